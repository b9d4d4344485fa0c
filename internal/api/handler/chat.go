package handler

import (
	"net/http"
	"strconv"

	"github.com/Rrens/chat-share/internal/api/middleware"
	"github.com/Rrens/chat-share/internal/api/response"
	"github.com/Rrens/chat-share/internal/domain"
	"github.com/Rrens/chat-share/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ChatHandler handles chat endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// List returns the current user's chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit := queryInt(r, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := max(queryInt(r, "offset", 0), 0)

	chats, err := h.chatService.ListByOwner(r.Context(), user.ID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to list chats")
		response.InternalError(w, "failed to list chats")
		return
	}

	response.OK(w, chats)
}

// Create creates a chat owned by the current user
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.ChatCreate
	if !decodeBody(w, r, &input) {
		return
	}

	chat, err := h.chatService.Create(r.Context(), user.ID, input)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to create chat")
		response.InternalError(w, "failed to create chat")
		return
	}

	response.Created(w, chat)
}

// Delete deletes a chat and ends its collaborative session
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		response.BadRequest(w, "invalid chat ID")
		return
	}

	if err := h.chatService.Delete(r.Context(), user.ID, chatID); err != nil {
		if response.StatusFor(err) == http.StatusInternalServerError {
			log.Error().Err(err).Str("chat_id", chatID.String()).Msg("Failed to delete chat")
		}
		response.DomainError(w, err)
		return
	}

	response.NoContent(w)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
