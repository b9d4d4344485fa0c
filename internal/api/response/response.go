package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/chat-share/internal/domain"
	"github.com/rs/zerolog/log"
)

// Response represents a standard API response
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// domainStatuses maps sentinel errors to the status they surface as.
// Order matters only for errors that wrap more than one sentinel.
var domainStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrChatNotFound, http.StatusNotFound},
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrParticipantNotFound, http.StatusNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrNotAuthorized, http.StatusForbidden},
	{domain.ErrCannotRemoveOwner, http.StatusConflict},
	{domain.ErrEmailTaken, http.StatusConflict},
	{domain.ErrInvalidRoleAssignment, http.StatusBadRequest},
	{domain.ErrInvalidToken, http.StatusBadRequest},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Debug().Err(err).Int("status", status).Msg("Failed to write response body")
	}
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, message any) {
	write(w, status, Response{Error: message})
}

// StatusFor returns the HTTP status a domain error maps to, or 500 for
// anything unrecognised
func StatusFor(err error) int {
	for _, ds := range domainStatuses {
		if errors.Is(err, ds.err) {
			return ds.status
		}
	}
	return http.StatusInternalServerError
}

// DomainError sends err with its mapped status. Known errors are reported
// by their sentinel text only, so wrapped detail never reaches the client;
// anything else is a generic 500.
func DomainError(w http.ResponseWriter, err error) {
	for _, ds := range domainStatuses {
		if errors.Is(err, ds.err) {
			Error(w, ds.status, ds.err.Error())
			return
		}
	}
	InternalError(w, "internal server error")
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message any) {
	Error(w, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(w http.ResponseWriter, message any) {
	Error(w, http.StatusForbidden, message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message any) {
	Error(w, http.StatusNotFound, message)
}

// Conflict sends a 409 Conflict response
func Conflict(w http.ResponseWriter, message any) {
	Error(w, http.StatusConflict, message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}
