package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/chat-share/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrChatNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: s1", domain.ErrSessionNotFound), http.StatusNotFound},
		{domain.ErrNotAuthorized, http.StatusForbidden},
		{domain.ErrCannotRemoveOwner, http.StatusConflict},
		{domain.ErrEmailTaken, http.StatusConflict},
		{domain.ErrInvalidRoleAssignment, http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	DomainError(rec, fmt.Errorf("%w: only the owner can end a session", domain.ErrNotAuthorized))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "not authorized", resp.Error, "wrapped detail stays server side")

	rec = httptest.NewRecorder()
	DomainError(rec, fmt.Errorf("failed to delete chat: %w", errors.New("pq: deadlock detected")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec).Error)
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "c1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]any{"id": "c1"}, resp.Data)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
