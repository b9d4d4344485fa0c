package domain

import "errors"

// Sharing errors
var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrDuplicateSession      = errors.New("session already exists for chat")
	ErrInvalidToken          = errors.New("invalid invite token")
	ErrInvalidRoleAssignment = errors.New("invalid role assignment")
	ErrCannotRemoveOwner     = errors.New("cannot remove session owner")
	ErrNotAuthorized         = errors.New("not authorized")
	ErrParticipantNotFound   = errors.New("participant not found")
)

// Storage and auth errors
var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
