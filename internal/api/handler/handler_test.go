package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/chat-share/internal/api/handler"
	"github.com/Rrens/chat-share/internal/api/middleware"
	"github.com/Rrens/chat-share/internal/domain"
	"github.com/Rrens/chat-share/internal/repository/memory"
	"github.com/Rrens/chat-share/internal/repository/sqlite"
	"github.com/Rrens/chat-share/internal/security"
	"github.com/Rrens/chat-share/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://chat.example.com"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

type testEnv struct {
	router http.Handler
	users  *sqlite.UserRepository
	chats  *sqlite.ChatRepository
	shares *service.ShareService
}

// newTestEnv wires the share and chat handlers over an in-memory database.
// Requests carry the acting user in the X-Test-User header.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)

	env := &testEnv{
		users:  sqlite.NewUserRepository(db),
		chats:  sqlite.NewChatRepository(db),
		shares: service.NewShareService(memory.NewSessionRegistry(), security.NewInviteCodec(""), testOrigin),
	}
	chatService := service.NewChatService(env.chats, nil, env.shares)
	shareHandler := handler.NewShareHandler(env.shares, chatService)
	chatHandler := handler.NewChatHandler(chatService)

	r := chi.NewRouter()
	r.Get("/invites/{token}", shareHandler.Invite)
	r.Group(func(r chi.Router) {
		r.Use(env.injectUser)
		r.Get("/chats", chatHandler.List)
		r.Post("/chats", chatHandler.Create)
		r.Delete("/chats/{chatID}", chatHandler.Delete)
		r.Post("/share", shareHandler.Share)
		r.Get("/share/{chatID}", shareHandler.Status)
		r.Post("/join", shareHandler.Join)
		r.Get("/sessions/{sessionID}", shareHandler.GetSession)
		r.Post("/sessions/{sessionID}/leave", shareHandler.Leave)
		r.Delete("/sessions/{sessionID}", shareHandler.End)
	})
	env.router = r
	return env
}

func (e *testEnv) injectUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get("X-Test-User"))
		if err != nil {
			http.Error(w, "no test user", http.StatusUnauthorized)
			return
		}
		user, err := e.users.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, "unknown test user", http.StatusUnauthorized)
			return
		}
		current := domain.CurrentUser{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}
		next.ServeHTTP(w, r.WithContext(middleware.WithCurrentUser(r.Context(), current)))
	})
}

func (e *testEnv) addUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(name) + "@example.com",
		DisplayName:  name,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user.ID
}

func (e *testEnv) addChat(t *testing.T, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	now := time.Now()
	chat := &domain.Chat{ID: uuid.New(), OwnerID: ownerID, Title: "c1", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.chats.Create(context.Background(), chat))
	return chat.ID
}

func (e *testEnv) do(t *testing.T, method, path string, userID uuid.UUID, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := makeJSONRequest(method, path, body)
	if userID != uuid.Nil {
		req.Header.Set("X-Test-User", userID.String())
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (e *testEnv) share(t *testing.T, ownerID, chatID uuid.UUID, role string) domain.ShareResponse {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/share", ownerID, map[string]any{"chatId": chatID, "role": role})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.ShareResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func tokenOf(t *testing.T, link string) string {
	t.Helper()
	prefix := testOrigin + "/join/"
	require.True(t, strings.HasPrefix(link, prefix), "unexpected link %q", link)
	return strings.TrimPrefix(link, prefix)
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["success"] != true {
		t.Error("expected success to be true")
	}

	data, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data to be a map")
	}

	if data["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", data["status"])
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyCheck(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return assert.AnError })

	rec := httptest.NewRecorder()
	handler.ReadyCheck(map[string]handler.Pinger{"database": ok, "redis": nil})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ReadyCheck(map[string]handler.Pinger{"database": ok, "redis": down})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis not ready")
}

func TestShareHandler_ShareAndJoin(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Ali")
	guest := env.addUser(t, "Sara")
	chatID := env.addChat(t, owner)

	first := env.share(t, owner, chatID, "editor")
	assert.Equal(t, 1, first.ParticipantCount)

	second := env.share(t, owner, chatID, "viewer")
	assert.Equal(t, first.SessionID, second.SessionID, "sharing twice reuses the session")

	token := tokenOf(t, first.InviteLink)

	rec, body := env.do(t, http.MethodGet, "/invites/"+token, uuid.Nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var claims domain.InviteClaims
	require.NoError(t, json.Unmarshal(body.Data, &claims))
	assert.Equal(t, first.SessionID, claims.SessionID)
	assert.Equal(t, domain.RoleEditor, claims.Role)

	rec, body = env.do(t, http.MethodPost, "/join", guest, map[string]any{"token": token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined domain.JoinResponse
	require.NoError(t, json.Unmarshal(body.Data, &joined))
	assert.True(t, joined.Success)
	assert.Equal(t, chatID, joined.ChatID)
	assert.Equal(t, domain.RoleEditor, joined.Role)

	rec, body = env.do(t, http.MethodGet, "/sessions/"+first.SessionID, guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var session domain.CollaborativeSession
	require.NoError(t, json.Unmarshal(body.Data, &session))
	require.Len(t, session.Participants, 2)
	assert.Equal(t, guest, session.Participants[1].UserID)
	assert.Equal(t, "Sara", session.Participants[1].DisplayName)
	assert.Equal(t, domain.RoleEditor, session.Participants[1].Role)

	rec, body = env.do(t, http.MethodGet, "/share/"+chatID.String(), owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.ShareStatus
	require.NoError(t, json.Unmarshal(body.Data, &status))
	assert.True(t, status.Shared)
	assert.Equal(t, first.SessionID, status.Session.ID)
}

func TestShareHandler_ShareAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Ali")
	other := env.addUser(t, "Omar")
	chatID := env.addChat(t, owner)

	rec, _ := env.do(t, http.MethodPost, "/share", other, map[string]any{"chatId": chatID, "role": "editor"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/share", owner, map[string]any{"chatId": uuid.New(), "role": "editor"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/share", owner, map[string]any{"chatId": chatID, "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/share", owner, map[string]any{"role": "viewer"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/share/"+chatID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, shared := env.shares.GetSessionByChatID(chatID)
	assert.False(t, shared, "rejected requests must not start a session")
}

func TestShareHandler_JoinInvalidLink(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Ali")
	guest := env.addUser(t, "Sara")
	chatID := env.addChat(t, owner)
	resp := env.share(t, owner, chatID, "viewer")

	for _, ref := range []map[string]any{
		{"token": "not-a-token"},
		{"sessionId": "missing-session", "role": "viewer"},
	} {
		rec, body := env.do(t, http.MethodPost, "/join", guest, ref)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "link is no longer valid", body.Error)
	}

	rec, _ := env.do(t, http.MethodPost, "/join", guest, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/invites/garbage", uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "link is no longer valid", body.Error)

	session, ok := env.shares.GetSession(resp.SessionID)
	require.True(t, ok)
	assert.Len(t, session.Participants, 1, "failed joins have no side effects")
}

func TestShareHandler_JoinBySessionID(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Ali")
	guest := env.addUser(t, "Sara")
	chatID := env.addChat(t, owner)
	resp := env.share(t, owner, chatID, "viewer")

	rec, body := env.do(t, http.MethodPost, "/join", guest, map[string]any{"sessionId": resp.SessionID})
	require.Equal(t, http.StatusOK, rec.Code)
	var joined domain.JoinResponse
	require.NoError(t, json.Unmarshal(body.Data, &joined))
	assert.Equal(t, domain.RoleViewer, joined.Role, "no role joins as viewer")

	rec, body = env.do(t, http.MethodPost, "/join", owner, map[string]any{"sessionId": resp.SessionID, "role": "viewer"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(body.Data, &joined))
	assert.Equal(t, domain.RoleOwner, joined.Role, "owner keeps the owner role")
}

func TestShareHandler_LeaveAndEnd(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Ali")
	guest := env.addUser(t, "Sara")
	outsider := env.addUser(t, "Omar")
	chatID := env.addChat(t, owner)
	resp := env.share(t, owner, chatID, "editor")

	rec, _ := env.do(t, http.MethodPost, "/join", guest, map[string]any{"token": tokenOf(t, resp.InviteLink)})
	require.Equal(t, http.StatusOK, rec.Code)

	sessionPath := "/sessions/" + resp.SessionID

	rec, _ = env.do(t, http.MethodGet, sessionPath, outsider, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "outsiders cannot see the session")

	rec, _ = env.do(t, http.MethodPost, sessionPath+"/leave", owner, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, sessionPath, guest, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, sessionPath+"/leave", guest, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = env.do(t, http.MethodPost, sessionPath+"/leave", guest, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	session, ok := env.shares.GetSession(resp.SessionID)
	require.True(t, ok, "leaving never ends the session")
	assert.Len(t, session.Participants, 1)

	rec, _ = env.do(t, http.MethodDelete, sessionPath, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, sessionPath, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/join", guest, map[string]any{"token": tokenOf(t, resp.InviteLink)})
	assert.Equal(t, http.StatusNotFound, rec.Code, "invites die with their session")
}

func TestChatHandler(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Ali")
	other := env.addUser(t, "Omar")

	rec, body := env.do(t, http.MethodPost, "/chats", owner, map[string]any{"title": "trip"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var chat domain.Chat
	require.NoError(t, json.Unmarshal(body.Data, &chat))
	assert.Equal(t, "trip", chat.Title)

	rec, body = env.do(t, http.MethodGet, "/chats?limit=10", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chats []domain.Chat
	require.NoError(t, json.Unmarshal(body.Data, &chats))
	require.Len(t, chats, 1)
	assert.Equal(t, chat.ID, chats[0].ID)

	env.share(t, owner, chat.ID, "viewer")

	rec, _ = env.do(t, http.MethodDelete, "/chats/"+chat.ID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/chats/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/chats/"+chat.ID.String(), owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, shared := env.shares.GetSessionByChatID(chat.ID)
	assert.False(t, shared, "deleting a chat ends its session")

	rec, _ = env.do(t, http.MethodDelete, "/chats/"+chat.ID.String(), owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Helper to make JSON request
func makeJSONRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}
