package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Chat is the conversation record a collaborative session mirrors
type Chat struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatCreate represents chat creation data
type ChatCreate struct {
	Title string `json:"title" validate:"omitempty,max=255"`
}

// ChatRepository defines the interface for chat storage.
// GetByID returns ErrChatNotFound when the chat does not exist.
type ChatRepository interface {
	Create(ctx context.Context, chat *Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*Chat, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Chat, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OwnerCache caches chat ownership lookups
type OwnerCache interface {
	GetOwner(ctx context.Context, chatID uuid.UUID) (uuid.UUID, bool)
	SetOwner(ctx context.Context, chatID, ownerID uuid.UUID) error
	Invalidate(ctx context.Context, chatID uuid.UUID) error
}
