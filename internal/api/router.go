package api

import (
	"net/http"

	"github.com/Rrens/chat-share/internal/api/handler"
	customMiddleware "github.com/Rrens/chat-share/internal/api/middleware"
	"github.com/Rrens/chat-share/internal/config"
	"github.com/Rrens/chat-share/internal/domain"
	"github.com/Rrens/chat-share/internal/repository/redis"
	"github.com/Rrens/chat-share/internal/security"
	"github.com/Rrens/chat-share/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Dependencies are the storage and coordination components the router
// wires into handlers
type Dependencies struct {
	DB     handler.Pinger
	Users  domain.UserRepository
	Chats  domain.ChatRepository
	Redis  *redis.Client // nil when Redis is disabled
	Shares *service.ShareService
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if cfg.Metrics.Enabled {
		r.Use(customMiddleware.Metrics)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger(log.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	// Redis-backed helpers are optional
	var ownerCache domain.OwnerCache
	var rateLimitMiddleware *customMiddleware.RateLimitMiddleware
	readyDeps := map[string]handler.Pinger{"database": deps.DB}
	if deps.Redis != nil {
		ownerCache = redis.NewOwnerCache(deps.Redis, cfg.Share.OwnerCacheTTL)
		rateLimitMiddleware = customMiddleware.NewRateLimitMiddleware(redis.NewRateLimiter(
			deps.Redis,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		), "authenticated")
		readyDeps["redis"] = deps.Redis
	} else {
		log.Warn().Msg("Redis disabled: rate limiting and owner cache are off")
	}

	// Initialize services
	authService := service.NewAuthService(deps.Users, jwtManager)
	chatService := service.NewChatService(deps.Chats, ownerCache, deps.Shares)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	shareHandler := handler.NewShareHandler(deps.Shares, chatService)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	// Metrics endpoint (for Prometheus scraping)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(readyDeps))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Invite preview for the join page (public)
		r.Get("/invites/{token}", shareHandler.Invite)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if rateLimitMiddleware != nil {
				r.Use(rateLimitMiddleware.Limit)
			}

			r.Get("/auth/me", authHandler.Me)

			// Chat routes
			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chatHandler.List)
				r.Post("/", chatHandler.Create)
				r.Delete("/{chatID}", chatHandler.Delete)
			})

			// Sharing
			r.Post("/share", shareHandler.Share)
			r.Get("/share/{chatID}", shareHandler.Status)
			r.Post("/join", shareHandler.Join)

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", shareHandler.GetSession)
				r.Post("/leave", shareHandler.Leave)
				r.Delete("/", shareHandler.End)
			})
		})
	})

	return r
}
