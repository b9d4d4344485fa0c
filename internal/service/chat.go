package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/chat-share/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultChatTitle = "محادثة جديدة"

// ChatService is the chat store surface the share routes depend on
type ChatService struct {
	chatRepo   domain.ChatRepository
	ownerCache domain.OwnerCache
	shares     *ShareService
}

// NewChatService creates a new chat service. ownerCache may be nil.
func NewChatService(chatRepo domain.ChatRepository, ownerCache domain.OwnerCache, shares *ShareService) *ChatService {
	return &ChatService{
		chatRepo:   chatRepo,
		ownerCache: ownerCache,
		shares:     shares,
	}
}

// Create creates a new chat owned by userID
func (s *ChatService) Create(ctx context.Context, userID uuid.UUID, input domain.ChatCreate) (*domain.Chat, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = defaultChatTitle
	}

	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.New(),
		OwnerID:   userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return chat, nil
}

// ListByOwner lists the chats a user owns
func (s *ChatService) ListByOwner(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Chat, error) {
	chats, err := s.chatRepo.ListByOwner(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// OwnerOf returns the owner of chatID or ErrChatNotFound
func (s *ChatService) OwnerOf(ctx context.Context, chatID uuid.UUID) (uuid.UUID, error) {
	if s.ownerCache != nil {
		if ownerID, ok := s.ownerCache.GetOwner(ctx, chatID); ok {
			return ownerID, nil
		}
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return uuid.Nil, err
	}

	if s.ownerCache != nil {
		if err := s.ownerCache.SetOwner(ctx, chatID, chat.OwnerID); err != nil {
			log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("failed to cache chat owner")
		}
	}

	return chat.OwnerID, nil
}

// AuthorizeOwner fails with ErrChatNotFound or ErrNotAuthorized unless
// userID owns chatID
func (s *ChatService) AuthorizeOwner(ctx context.Context, chatID, userID uuid.UUID) error {
	ownerID, err := s.OwnerOf(ctx, chatID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return domain.ErrNotAuthorized
	}
	return nil
}

// Delete removes a chat (owner only) and ends its collaborative session
func (s *ChatService) Delete(ctx context.Context, userID, chatID uuid.UUID) error {
	if err := s.AuthorizeOwner(ctx, chatID, userID); err != nil {
		return err
	}

	if err := s.chatRepo.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	if s.ownerCache != nil {
		if err := s.ownerCache.Invalidate(ctx, chatID); err != nil {
			log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("failed to invalidate chat owner cache")
		}
	}

	if s.shares != nil {
		s.shares.EndSessionForChat(chatID)
	}

	return nil
}
