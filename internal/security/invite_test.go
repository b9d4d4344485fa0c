package security_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/Rrens/chat-share/internal/domain"
	"github.com/Rrens/chat-share/internal/security"
	"github.com/google/uuid"
)

func TestInviteCodec_RoundTrip(t *testing.T) {
	codecs := map[string]*security.InviteCodec{
		"plain":  security.NewInviteCodec(""),
		"signed": security.NewInviteCodec("invite-secret"),
	}

	sessionIDs := []string{
		uuid.Must(uuid.NewV7()).String(),
		"s1",
		"with:colon",
		"unicode-جلسة",
	}

	for name, codec := range codecs {
		for _, sessionID := range sessionIDs {
			for _, role := range []domain.Role{domain.RoleEditor, domain.RoleViewer} {
				token, err := codec.Encode(sessionID, role)
				if err != nil {
					t.Fatalf("%s: encode failed: %v", name, err)
				}

				claims, err := codec.Decode(token)
				if err != nil {
					t.Fatalf("%s: decode failed: %v", name, err)
				}

				if claims.SessionID != sessionID || claims.Role != role {
					t.Errorf("%s: got %+v, want {%s %s}", name, claims, sessionID, role)
				}
			}
		}
	}
}

func TestInviteCodec_Deterministic(t *testing.T) {
	codec := security.NewInviteCodec("invite-secret")

	first, err := codec.Encode("session-1", domain.RoleEditor)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	second, _ := codec.Encode("session-1", domain.RoleEditor)

	if first != second {
		t.Errorf("tokens differ: %q vs %q", first, second)
	}

	if strings.ContainsAny(first, "+/=") {
		t.Errorf("token is not URL-safe: %q", first)
	}
}

func TestInviteCodec_RejectsOwnerRole(t *testing.T) {
	codec := security.NewInviteCodec("")

	_, err := codec.Encode("session-1", domain.RoleOwner)
	if !errors.Is(err, domain.ErrInvalidRoleAssignment) {
		t.Errorf("expected ErrInvalidRoleAssignment, got %v", err)
	}

	// Hand-crafted owner token must not decode
	forged := base64.RawURLEncoding.EncodeToString([]byte("owner:session-1"))
	if _, err := codec.Decode(forged); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for owner token, got %v", err)
	}
}

func TestInviteCodec_InvalidInput(t *testing.T) {
	codec := security.NewInviteCodec("")
	enc := base64.RawURLEncoding.EncodeToString

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not base64", "!!!***"},
		{"no separator", enc([]byte("editorsession"))},
		{"unknown role", enc([]byte("admin:session-1"))},
		{"empty session", enc([]byte("viewer:"))},
		{"empty role", enc([]byte(":session-1"))},
		{"invalid utf8", enc([]byte{'e', 0xff, ':', 'x'})},
		{"unexpected signature", enc([]byte("viewer:s1")) + ".abc"},
		{"binary garbage", string([]byte{0x00, 0x01, 0xfe})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			if !errors.Is(err, domain.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestInviteCodec_SignatureVerification(t *testing.T) {
	codec := security.NewInviteCodec("invite-secret")
	other := security.NewInviteCodec("different-secret")
	plain := security.NewInviteCodec("")

	token, err := other.Encode("session-1", domain.RoleEditor)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	unsigned, _ := plain.Encode("session-1", domain.RoleEditor)
	if _, err := codec.Decode(unsigned); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for unsigned token, got %v", err)
	}

	// Swap the payload while keeping the original signature
	good, _ := codec.Encode("session-1", domain.RoleViewer)
	_, sig, _ := strings.Cut(good, ".")
	tampered := base64.RawURLEncoding.EncodeToString([]byte("editor:session-1")) + "." + sig
	if _, err := codec.Decode(tampered); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for tampered payload, got %v", err)
	}
}

func FuzzInviteCodec_Decode(f *testing.F) {
	codec := security.NewInviteCodec("invite-secret")
	seed, _ := codec.Encode("session-1", domain.RoleViewer)
	f.Add(seed)
	f.Add("")
	f.Add("....")

	f.Fuzz(func(t *testing.T, token string) {
		claims, err := codec.Decode(token)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("untyped error: %v", err)
			}
			return
		}
		if !claims.Role.Invitable() || claims.SessionID == "" {
			t.Fatalf("decoded invalid claims: %+v", claims)
		}
	})
}
