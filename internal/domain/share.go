package domain

import "github.com/google/uuid"

// ShareRequest asks for an invite link to a chat
type ShareRequest struct {
	ChatID uuid.UUID `json:"chatId" validate:"required"`
	Role   Role      `json:"role" validate:"required,oneof=editor viewer"`
}

// ShareResponse is returned by POST /share
type ShareResponse struct {
	InviteLink       string `json:"inviteLink"`
	SessionID        string `json:"sessionId"`
	ParticipantCount int    `json:"participantCount"`
}

// JoinRequest redeems an invite. Either Token or SessionID must be set;
// Role is only consulted when joining by session ID.
type JoinRequest struct {
	SessionID string `json:"sessionId" validate:"required_without=Token,max=128"`
	Token     string `json:"token" validate:"required_without=SessionID,max=512"`
	Role      Role   `json:"role" validate:"omitempty,oneof=editor viewer"`
}

// JoinResponse is returned by POST /join
type JoinResponse struct {
	Success bool      `json:"success"`
	ChatID  uuid.UUID `json:"chatId"`
	Role    Role      `json:"role"`
}

// ShareStatus describes whether a chat is currently shared
type ShareStatus struct {
	Shared  bool                  `json:"shared"`
	Session *CollaborativeSession `json:"session,omitempty"`
}
