package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/chat-share/internal/domain"
	"github.com/google/uuid"
)

// sessionEntry holds one live session behind its own lock.
// destroyed is set under mu before the entry leaves the indices, so a
// caller that looked the entry up just before removal sees it as gone.
type sessionEntry struct {
	mu        sync.Mutex
	session   *domain.CollaborativeSession
	destroyed bool
}

// SessionRegistry implements domain.SessionRegistry in process memory.
//
// The indices are guarded by mu, which is only held for map reads and
// writes. Session state is guarded per entry, so mutating one session
// never waits on another. When both locks are needed the entry lock is
// taken first.
type SessionRegistry struct {
	mu     sync.RWMutex
	byID   map[string]*sessionEntry
	byChat map[uuid.UUID]*sessionEntry

	now   func() time.Time
	newID func() string
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byID:   make(map[string]*sessionEntry),
		byChat: make(map[uuid.UUID]*sessionEntry),
		now:    time.Now,
		newID:  newSessionID,
	}
}

func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Create registers a new session for chatID with the owner as sole participant
func (r *SessionRegistry) Create(chatID, ownerID uuid.UUID, ownerDisplayName string) (*domain.CollaborativeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byChat[chatID]; exists {
		return nil, fmt.Errorf("%w: chat %s", domain.ErrDuplicateSession, chatID)
	}

	now := r.now()
	session := &domain.CollaborativeSession{
		ID:      r.newID(),
		ChatID:  chatID,
		OwnerID: ownerID,
		Participants: []domain.Participant{{
			UserID:      ownerID,
			DisplayName: ownerDisplayName,
			Role:        domain.RoleOwner,
			JoinedAt:    now,
		}},
		CreatedAt:      now,
		LastActivityAt: now,
	}

	entry := &sessionEntry{session: session}
	r.byID[session.ID] = entry
	r.byChat[chatID] = entry

	return session.Clone(), nil
}

// GetByID returns a snapshot of the session
func (r *SessionRegistry) GetByID(sessionID string) (*domain.CollaborativeSession, bool) {
	r.mu.RLock()
	entry, ok := r.byID[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return entry.snapshot()
}

// GetByChatID returns a snapshot of the live session for chatID
func (r *SessionRegistry) GetByChatID(chatID uuid.UUID) (*domain.CollaborativeSession, bool) {
	r.mu.RLock()
	entry, ok := r.byChat[chatID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return entry.snapshot()
}

// UpsertParticipant adds userID to the session or updates its role and
// display name in place. The owner keeps the owner role; nobody else can
// be given it.
func (r *SessionRegistry) UpsertParticipant(sessionID string, userID uuid.UUID, displayName string, role domain.Role) (*domain.CollaborativeSession, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRoleAssignment, role)
	}

	entry, ok := r.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.destroyed {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	s := entry.session
	isOwner := s.IsOwner(userID)
	if role == domain.RoleOwner && !isOwner {
		return nil, fmt.Errorf("%w: only the creator can be owner", domain.ErrInvalidRoleAssignment)
	}

	now := r.now()
	updated := false
	for i := range s.Participants {
		p := &s.Participants[i]
		if p.UserID != userID {
			continue
		}
		if !isOwner {
			p.Role = role
		}
		if displayName != "" {
			p.DisplayName = displayName
		}
		updated = true
		break
	}

	if !updated {
		if isOwner {
			role = domain.RoleOwner
		}
		s.Participants = append(s.Participants, domain.Participant{
			UserID:      userID,
			DisplayName: displayName,
			Role:        role,
			JoinedAt:    now,
		})
	}
	s.LastActivityAt = now

	return s.Clone(), nil
}

// RemoveParticipant drops userID from the session. The owner cannot leave;
// the session has to be destroyed instead.
func (r *SessionRegistry) RemoveParticipant(sessionID string, userID uuid.UUID) (*domain.CollaborativeSession, error) {
	entry, ok := r.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.destroyed {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	s := entry.session
	if s.IsOwner(userID) {
		return nil, domain.ErrCannotRemoveOwner
	}

	idx := -1
	for i, p := range s.Participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrParticipantNotFound, userID)
	}

	s.Participants = append(s.Participants[:idx], s.Participants[idx+1:]...)
	s.LastActivityAt = r.now()

	return s.Clone(), nil
}

// Destroy removes the session. Unknown IDs are ignored.
func (r *SessionRegistry) Destroy(sessionID string) {
	entry, ok := r.lookup(sessionID)
	if !ok {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	r.remove(entry)
}

// Sweep destroys every session idle for longer than idleTTL and returns
// how many were removed. A non-positive TTL disables sweeping.
func (r *SessionRegistry) Sweep(idleTTL time.Duration) int {
	if idleTTL <= 0 {
		return 0
	}

	r.mu.RLock()
	entries := make([]*sessionEntry, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	cutoff := r.now().Add(-idleTTL)
	removed := 0
	for _, entry := range entries {
		entry.mu.Lock()
		if !entry.destroyed && entry.session.LastActivityAt.Before(cutoff) {
			r.remove(entry)
			removed++
		}
		entry.mu.Unlock()
	}

	return removed
}

// Count returns the number of live sessions
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *SessionRegistry) lookup(sessionID string) (*sessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byID[sessionID]
	return entry, ok
}

// remove must be called with entry.mu held
func (r *SessionRegistry) remove(entry *sessionEntry) {
	if entry.destroyed {
		return
	}
	entry.destroyed = true

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, entry.session.ID)
	if r.byChat[entry.session.ChatID] == entry {
		delete(r.byChat, entry.session.ChatID)
	}
}

func (e *sessionEntry) snapshot() (*domain.CollaborativeSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil, false
	}
	return e.session.Clone(), true
}
