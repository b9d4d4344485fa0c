package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Rrens/chat-share/internal/domain"
)

const (
	claimSeparator     = ":"
	signatureSeparator = "."
)

var tokenEncoding = base64.RawURLEncoding

// InviteCodec encodes {sessionID, role} into URL-safe invite tokens and back.
// Without a secret the token is plain obfuscation; with one it carries an
// HMAC-SHA256 signature that Decode verifies.
type InviteCodec struct {
	secret []byte
}

// NewInviteCodec creates a new invite codec. An empty secret disables signing.
func NewInviteCodec(secret string) *InviteCodec {
	c := &InviteCodec{}
	if secret != "" {
		c.secret = []byte(secret)
	}
	return c
}

// Signed reports whether tokens carry a signature
func (c *InviteCodec) Signed() bool {
	return len(c.secret) > 0
}

// Encode returns the invite token for a session and role.
// The result is deterministic so the same link can be shared repeatedly.
func (c *InviteCodec) Encode(sessionID string, role domain.Role) (string, error) {
	if !role.Invitable() {
		return "", fmt.Errorf("%w: role %q cannot be invited", domain.ErrInvalidRoleAssignment, role)
	}
	if sessionID == "" {
		return "", fmt.Errorf("%w: empty session id", domain.ErrInvalidToken)
	}

	payload := string(role) + claimSeparator + sessionID
	token := tokenEncoding.EncodeToString([]byte(payload))
	if c.Signed() {
		token += signatureSeparator + tokenEncoding.EncodeToString(c.sign([]byte(payload)))
	}
	return token, nil
}

// Decode parses an invite token. Any malformed input yields ErrInvalidToken.
func (c *InviteCodec) Decode(token string) (domain.InviteClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.InviteClaims{}, fmt.Errorf("%w: empty token", domain.ErrInvalidToken)
	}

	encoded, sig, hasSig := strings.Cut(token, signatureSeparator)
	if hasSig != c.Signed() {
		return domain.InviteClaims{}, fmt.Errorf("%w: signature mismatch", domain.ErrInvalidToken)
	}

	payload, err := tokenEncoding.DecodeString(encoded)
	if err != nil {
		return domain.InviteClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if hasSig {
		mac, err := tokenEncoding.DecodeString(sig)
		if err != nil || !hmac.Equal(mac, c.sign(payload)) {
			return domain.InviteClaims{}, fmt.Errorf("%w: signature mismatch", domain.ErrInvalidToken)
		}
	}

	if !utf8.Valid(payload) {
		return domain.InviteClaims{}, fmt.Errorf("%w: not utf-8", domain.ErrInvalidToken)
	}

	role, sessionID, ok := strings.Cut(string(payload), claimSeparator)
	if !ok {
		return domain.InviteClaims{}, fmt.Errorf("%w: missing separator", domain.ErrInvalidToken)
	}
	if !domain.Role(role).Invitable() {
		return domain.InviteClaims{}, fmt.Errorf("%w: role %q", domain.ErrInvalidToken, role)
	}
	if sessionID == "" {
		return domain.InviteClaims{}, fmt.Errorf("%w: empty session id", domain.ErrInvalidToken)
	}

	return domain.InviteClaims{SessionID: sessionID, Role: domain.Role(role)}, nil
}

func (c *InviteCodec) sign(payload []byte) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write(payload)
	return h.Sum(nil)
}
