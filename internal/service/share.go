package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/chat-share/internal/domain"
	"github.com/Rrens/chat-share/internal/metrics"
	"github.com/Rrens/chat-share/internal/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// createAttempts bounds the create-or-fetch loop in GetOrCreateSession.
// A retry is only needed when a racing session is destroyed between the
// failed create and the follow-up lookup.
const createAttempts = 3

// ShareService coordinates collaborative sessions: creation, invites,
// joining and leaving. Callers resolve identity and chat ownership first;
// nothing here blocks on I/O.
type ShareService struct {
	registry domain.SessionRegistry
	codec    *security.InviteCodec
	origin   string
}

// NewShareService creates a new share service. origin is the public base
// URL invite links are built on.
func NewShareService(registry domain.SessionRegistry, codec *security.InviteCodec, origin string) *ShareService {
	return &ShareService{
		registry: registry,
		codec:    codec,
		origin:   strings.TrimRight(origin, "/"),
	}
}

// GetOrCreateSession returns the live session for chatID, creating it if the
// chat is not shared yet. Concurrent callers for the same chat all get the
// same session.
func (s *ShareService) GetOrCreateSession(chatID, ownerID uuid.UUID, ownerDisplayName string) (*domain.CollaborativeSession, error) {
	for i := 0; i < createAttempts; i++ {
		if existing, ok := s.registry.GetByChatID(chatID); ok {
			return existing, nil
		}

		session, err := s.registry.Create(chatID, ownerID, ownerDisplayName)
		if err == nil {
			metrics.SessionsCreated.Inc()
			s.observeActive()
			log.Info().
				Str("session_id", session.ID).
				Str("chat_id", chatID.String()).
				Str("owner_id", ownerID.String()).
				Msg("collaborative session created")
			return session, nil
		}
		if !errors.Is(err, domain.ErrDuplicateSession) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to create session for chat %s: too much contention", chatID)
}

// GetSessionByChatID returns the live session for a chat, if any
func (s *ShareService) GetSessionByChatID(chatID uuid.UUID) (*domain.CollaborativeSession, bool) {
	return s.registry.GetByChatID(chatID)
}

// GetSession returns a session by ID
func (s *ShareService) GetSession(sessionID string) (*domain.CollaborativeSession, bool) {
	return s.registry.GetByID(sessionID)
}

// GetSessionForParticipant returns the session only if userID is part of it.
// Outsiders get ErrSessionNotFound so valid IDs are not revealed.
func (s *ShareService) GetSessionForParticipant(sessionID string, userID uuid.UUID) (*domain.CollaborativeSession, error) {
	session, ok := s.registry.GetByID(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if _, member := session.Participant(userID); !member {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// GenerateInviteLink builds the join URL for sessionID at the given role
func (s *ShareService) GenerateInviteLink(sessionID string, role domain.Role) (string, error) {
	if !role.Invitable() {
		return "", fmt.Errorf("%w: role %q cannot be invited", domain.ErrInvalidRoleAssignment, role)
	}
	if _, ok := s.registry.GetByID(sessionID); !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	token, err := s.codec.Encode(sessionID, role)
	if err != nil {
		return "", fmt.Errorf("failed to encode invite: %w", err)
	}

	metrics.InvitesGenerated.WithLabelValues(string(role)).Inc()

	return s.origin + "/join/" + token, nil
}

// DecodeInvite resolves an invite token for display on the join page.
// It fails with ErrInvalidToken or ErrSessionNotFound.
func (s *ShareService) DecodeInvite(token string) (domain.InviteClaims, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return domain.InviteClaims{}, err
	}
	if _, ok := s.registry.GetByID(claims.SessionID); !ok {
		return domain.InviteClaims{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, claims.SessionID)
	}
	return claims, nil
}

// JoinSession adds userID to a session. ref is either an invite token, whose
// role is authoritative, or a session ID, in which case requestedRole is
// trusted as already validated by the caller. An empty requested role joins
// as viewer.
//
// ok is false when the reference does not resolve to a live session; that
// is not an error. A non-owner asking for the owner role fails with
// ErrInvalidRoleAssignment.
func (s *ShareService) JoinSession(ref string, userID uuid.UUID, displayName string, requestedRole domain.Role) (domain.SessionBinding, bool, error) {
	sessionID, role := ref, requestedRole
	if claims, decodeErr := s.codec.Decode(ref); decodeErr == nil {
		sessionID, role = claims.SessionID, claims.Role
	}
	if role == "" {
		role = domain.RoleViewer
	}

	session, err := s.registry.UpsertParticipant(sessionID, userID, displayName, role)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			metrics.Joins.WithLabelValues("not_found").Inc()
			return domain.SessionBinding{}, false, nil
		}
		metrics.Joins.WithLabelValues("rejected").Inc()
		return domain.SessionBinding{}, false, err
	}

	participant, _ := session.Participant(userID)
	metrics.Joins.WithLabelValues("ok").Inc()
	log.Info().
		Str("session_id", session.ID).
		Str("user_id", userID.String()).
		Str("role", string(participant.Role)).
		Int("participants", len(session.Participants)).
		Msg("participant joined")

	return domain.SessionBinding{
		SessionID: session.ID,
		ChatID:    session.ChatID,
		Role:      participant.Role,
	}, true, nil
}

// LeaveSession removes userID from a session. It returns false when the
// session or participant is absent, and ErrCannotRemoveOwner for the owner.
func (s *ShareService) LeaveSession(sessionID string, userID uuid.UUID) (bool, error) {
	session, err := s.registry.RemoveParticipant(sessionID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrParticipantNotFound):
			return false, nil
		case errors.Is(err, domain.ErrCannotRemoveOwner):
			return false, err
		}
		return false, fmt.Errorf("failed to leave session: %w", err)
	}

	metrics.Leaves.Inc()
	log.Info().
		Str("session_id", session.ID).
		Str("user_id", userID.String()).
		Int("participants", len(session.Participants)).
		Msg("participant left")

	return true, nil
}

// EndSession destroys a session on behalf of its owner
func (s *ShareService) EndSession(sessionID string, requesterID uuid.UUID) (bool, error) {
	session, ok := s.registry.GetByID(sessionID)
	if !ok {
		return false, nil
	}
	if !session.IsOwner(requesterID) {
		return false, fmt.Errorf("%w: only the owner can end a session", domain.ErrNotAuthorized)
	}

	s.registry.Destroy(sessionID)
	s.ended("owner", session)
	return true, nil
}

// EndSessionForChat tears down the session of a chat that is being deleted
func (s *ShareService) EndSessionForChat(chatID uuid.UUID) bool {
	session, ok := s.registry.GetByChatID(chatID)
	if !ok {
		return false
	}

	s.registry.Destroy(session.ID)
	s.ended("chat_deleted", session)
	return true
}

// RunSweeper reclaims idle sessions every interval until ctx is done
func (s *ShareService) RunSweeper(ctx context.Context, interval, idleTTL time.Duration) {
	if interval <= 0 || idleTTL <= 0 {
		log.Info().Msg("Idle session sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepIdle(idleTTL)
		}
	}
}

// SweepIdle runs a single idle sweep and returns the number of sessions removed
func (s *ShareService) SweepIdle(idleTTL time.Duration) int {
	removed := s.registry.Sweep(idleTTL)
	if removed > 0 {
		metrics.SessionsEnded.WithLabelValues("idle").Add(float64(removed))
		s.observeActive()
		log.Info().Int("removed", removed).Dur("idle_ttl", idleTTL).Msg("idle sessions swept")
	}
	return removed
}

func (s *ShareService) ended(reason string, session *domain.CollaborativeSession) {
	metrics.SessionsEnded.WithLabelValues(reason).Inc()
	s.observeActive()
	log.Info().
		Str("session_id", session.ID).
		Str("chat_id", session.ChatID.String()).
		Str("reason", reason).
		Msg("collaborative session ended")
}

func (s *ShareService) observeActive() {
	metrics.SessionsActive.Set(float64(s.registry.Count()))
}
