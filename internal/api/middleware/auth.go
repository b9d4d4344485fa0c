package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/chat-share/internal/api/response"
	"github.com/Rrens/chat-share/internal/domain"
	"github.com/Rrens/chat-share/internal/metrics"
	"github.com/Rrens/chat-share/internal/security"
	"github.com/rs/zerolog/log"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *security.JWTManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *security.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the JWT token
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		user := domain.CurrentUser{
			ID:          claims.UserID,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
		}
		next.ServeHTTP(w, r.WithContext(WithCurrentUser(r.Context(), user)))
	})
}

// WithCurrentUser returns a copy of ctx carrying user
func WithCurrentUser(ctx context.Context, user domain.CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// CurrentUser gets the authenticated user from context
func CurrentUser(ctx context.Context) (domain.CurrentUser, bool) {
	user, ok := ctx.Value(currentUserKey).(domain.CurrentUser)
	return user, ok
}

// Limiter decides whether a request keyed by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
}

// RateLimitMiddleware handles rate limiting. It runs before chi has
// resolved the final route, so hits are labelled with a fixed scope.
type RateLimitMiddleware struct {
	rateLimiter Limiter
	scope       string
}

// NewRateLimitMiddleware creates a new rate limit middleware; scope names
// the route group it guards in metrics
func NewRateLimitMiddleware(rateLimiter Limiter, scope string) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, scope: scope}
}

// Limit applies rate limiting based on user ID
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok {
			response.Unauthorized(w, "unauthorized")
			return
		}

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), user.ID.String())
		if err != nil {
			// If rate limiter fails, allow the request but log the error
			log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		// Set rate limit headers
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			metrics.RateLimitHits.WithLabelValues(m.scope).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(time.Until(resetTime).Seconds()))))
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
