package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a participant's permission level inside a shared session
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Invitable reports whether r may be embedded in an invite token.
// Owner is fixed to the session creator and is never handed out.
func (r Role) Invitable() bool {
	return r == RoleEditor || r == RoleViewer
}

// Rank orders roles from least to most privileged
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleOwner:
		return 3
	}
	return 0
}

// CanEdit reports whether the role may send messages to the shared chat
func (r Role) CanEdit() bool {
	return r.Rank() >= RoleEditor.Rank()
}

// Participant is a user with a role inside a collaborative session
type Participant struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// CollaborativeSession is a live sharing context bound 1:1 to a chat
type CollaborativeSession struct {
	ID             string        `json:"id"`
	ChatID         uuid.UUID     `json:"chat_id"`
	OwnerID        uuid.UUID     `json:"owner_id"`
	Participants   []Participant `json:"participants"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

// Clone returns a deep copy safe to hand out to callers
func (s *CollaborativeSession) Clone() *CollaborativeSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = make([]Participant, len(s.Participants))
	copy(c.Participants, s.Participants)
	return &c
}

// Participant returns the participant entry for userID
func (s *CollaborativeSession) Participant(userID uuid.UUID) (Participant, bool) {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// IsOwner reports whether userID created the session
func (s *CollaborativeSession) IsOwner(userID uuid.UUID) bool {
	return s.OwnerID == userID
}

// InviteClaims is the payload carried by an invite token
type InviteClaims struct {
	SessionID string `json:"session_id"`
	Role      Role   `json:"role"`
}

// SessionBinding is what a successful join hands back to the route layer
type SessionBinding struct {
	SessionID string    `json:"session_id"`
	ChatID    uuid.UUID `json:"chat_id"`
	Role      Role      `json:"role"`
}

// SessionRegistry is the authoritative store of live sessions.
// Implementations must make every mutation atomic per session and must not
// serialize mutations of unrelated sessions.
type SessionRegistry interface {
	Create(chatID, ownerID uuid.UUID, ownerDisplayName string) (*CollaborativeSession, error)
	GetByID(sessionID string) (*CollaborativeSession, bool)
	GetByChatID(chatID uuid.UUID) (*CollaborativeSession, bool)
	UpsertParticipant(sessionID string, userID uuid.UUID, displayName string, role Role) (*CollaborativeSession, error)
	RemoveParticipant(sessionID string, userID uuid.UUID) (*CollaborativeSession, error)
	Destroy(sessionID string)
	Sweep(idleTTL time.Duration) int
	Count() int
}
