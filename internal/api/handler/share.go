package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/chat-share/internal/api/middleware"
	"github.com/Rrens/chat-share/internal/api/response"
	"github.com/Rrens/chat-share/internal/domain"
	"github.com/Rrens/chat-share/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Shown for bad tokens and unknown sessions alike.
const linkNoLongerValid = "link is no longer valid"

// ShareHandler handles collaborative session endpoints
type ShareHandler struct {
	shareService *service.ShareService
	chatService  *service.ChatService
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService *service.ShareService, chatService *service.ChatService) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		chatService:  chatService,
	}
}

// Share starts (or reuses) the chat's session and returns an invite link
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.ShareRequest
	if !decodeBody(w, r, &input) {
		return
	}

	if !h.authorizeOwner(w, r, input.ChatID, user.ID) {
		return
	}

	session, err := h.shareService.GetOrCreateSession(input.ChatID, user.ID, user.DisplayName)
	if err != nil {
		log.Error().Err(err).Str("chat_id", input.ChatID.String()).Msg("Failed to create session")
		response.InternalError(w, "failed to share chat")
		return
	}

	link, err := h.shareService.GenerateInviteLink(session.ID, input.Role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRoleAssignment):
			response.BadRequest(w, "role must be editor or viewer")
		case errors.Is(err, domain.ErrSessionNotFound):
			response.Conflict(w, "session ended while sharing, try again")
		default:
			log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to generate invite link")
			response.InternalError(w, "failed to share chat")
		}
		return
	}

	response.OK(w, domain.ShareResponse{
		InviteLink:       link,
		SessionID:        session.ID,
		ParticipantCount: len(session.Participants),
	})
}

// Status reports whether a chat is currently shared
func (h *ShareHandler) Status(w http.ResponseWriter, r *http.Request) {
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

	if !h.authorizeOwner(w, r, chatID, user.ID) {
		return
	}

	session, shared := h.shareService.GetSessionByChatID(chatID)
	response.OK(w, domain.ShareStatus{Shared: shared, Session: session})
}

// Join redeems an invite token or session ID for the current user
func (h *ShareHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.JoinRequest
	if !decodeBody(w, r, &input) {
		return
	}

	ref := input.Token
	if ref == "" {
		ref = input.SessionID
	}

	binding, joined, err := h.shareService.JoinSession(ref, user.ID, user.DisplayName, input.Role)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRoleAssignment) {
			response.BadRequest(w, "role must be editor or viewer")
			return
		}
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to join session")
		response.InternalError(w, "failed to join session")
		return
	}
	if !joined {
		response.NotFound(w, linkNoLongerValid)
		return
	}

	response.OK(w, domain.JoinResponse{
		Success: true,
		ChatID:  binding.ChatID,
		Role:    binding.Role,
	})
}

// Invite decodes an invite token for the join page
func (h *ShareHandler) Invite(w http.ResponseWriter, r *http.Request) {
	claims, err := h.shareService.DecodeInvite(chi.URLParam(r, "token"))
	if err != nil {
		response.NotFound(w, linkNoLongerValid)
		return
	}

	response.OK(w, claims)
}

// GetSession returns a session to one of its participants
func (h *ShareHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	session, err := h.shareService.GetSessionForParticipant(chi.URLParam(r, "sessionID"), user.ID)
	if err != nil {
		response.NotFound(w, "session not found")
		return
	}

	response.OK(w, session)
}

// Leave removes the current user from a session
func (h *ShareHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	left, err := h.shareService.LeaveSession(chi.URLParam(r, "sessionID"), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCannotRemoveOwner) {
			response.Conflict(w, "the owner cannot leave; end the session instead")
			return
		}
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to leave session")
		response.InternalError(w, "failed to leave session")
		return
	}
	if !left {
		response.NotFound(w, "session not found")
		return
	}

	response.NoContent(w)
}

// End destroys a session. Only its owner may do this.
func (h *ShareHandler) End(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	ended, err := h.shareService.EndSession(chi.URLParam(r, "sessionID"), user.ID)
	if err != nil {
		response.DomainError(w, err)
		return
	}
	if !ended {
		response.NotFound(w, "session not found")
		return
	}

	response.NoContent(w)
}

// authorizeOwner writes the error response and returns false unless userID
// owns chatID
func (h *ShareHandler) authorizeOwner(w http.ResponseWriter, r *http.Request, chatID, userID uuid.UUID) bool {
	err := h.chatService.AuthorizeOwner(r.Context(), chatID, userID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrChatNotFound):
		response.NotFound(w, "chat not found")
	case errors.Is(err, domain.ErrNotAuthorized):
		response.Forbidden(w, "only the chat owner can share it")
	default:
		log.Error().Err(err).Str("chat_id", chatID.String()).Msg("Failed to resolve chat owner")
		response.InternalError(w, "failed to resolve chat")
	}
	return false
}
