package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/chat-share/internal/api"
	"github.com/Rrens/chat-share/internal/config"
	"github.com/Rrens/chat-share/internal/logging"
	"github.com/Rrens/chat-share/internal/repository/memory"
	"github.com/Rrens/chat-share/internal/repository/postgres"
	"github.com/Rrens/chat-share/internal/repository/redis"
	"github.com/Rrens/chat-share/internal/repository/sqlite"
	"github.com/Rrens/chat-share/internal/security"
	"github.com/Rrens/chat-share/internal/service"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	_, logCloser, err := logging.Setup(cfg.Logging, os.Getenv("ENV") == "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Msg("Starting chat share API server")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	deps, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer closeStore()

	// Initialize Redis
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		deps.Redis = redisClient
	}

	// Collaborative sessions live in process memory
	codec := security.NewInviteCodec(cfg.Share.InviteSecret)
	if !codec.Signed() {
		log.Warn().Msg("INVITE_SECRET is not set; invite tokens are unsigned")
	}
	deps.Shares = service.NewShareService(memory.NewSessionRegistry(), codec, cfg.Share.PublicOrigin)

	go deps.Shares.RunSweeper(ctx, cfg.Share.SweepInterval, cfg.Share.IdleTTL)

	// Initialize router
	router := api.NewRouter(cfg, deps)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openStore connects the configured chat and user storage backend
func openStore(ctx context.Context, cfg config.DatabaseConfig) (api.Dependencies, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, cfg.SQLitePath)
		if err != nil {
			return api.Dependencies{}, nil, err
		}
		return api.Dependencies{
			DB:    db,
			Users: sqlite.NewUserRepository(db),
			Chats: sqlite.NewChatRepository(db),
		}, db.Close, nil
	default:
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return api.Dependencies{}, nil, err
		}
		return api.Dependencies{
			DB:    db,
			Users: postgres.NewUserRepository(db),
			Chats: postgres.NewChatRepository(db),
		}, db.Close, nil
	}
}
