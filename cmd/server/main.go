package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/config"
	"github.com/agrilink/messaging/internal/domain"
	"github.com/agrilink/messaging/internal/httpserver"
	"github.com/agrilink/messaging/internal/realtime"
	"github.com/agrilink/messaging/internal/security"
	"github.com/agrilink/messaging/internal/store/postgres"
	"github.com/agrilink/messaging/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var zl *zap.Logger
	if cfg.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	var (
		convRepo domain.ConversationRepository
		msgRepo  domain.MessageRepository
		profRepo domain.ProfileRepository
	)
	switch cfg.DBDriver {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			logger.Fatalw("open sqlite", "error", err)
		}
		defer db.Close()
		if err := sqlite.Migrate(db); err != nil {
			logger.Fatalw("migrate sqlite", "error", err)
		}
		convRepo = sqlite.NewConversationRepo(db)
		msgRepo = sqlite.NewMessageRepo(db)
		profRepo = sqlite.NewProfileRepo(db)
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalw("open postgres", "error", err)
		}
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			logger.Fatalw("migrate postgres", "error", err)
		}
		convRepo = postgres.NewConversationRepo(db)
		msgRepo = postgres.NewMessageRepo(db)
		profRepo = postgres.NewProfileRepo(db)
	}

	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Events fan out through the in-process hub. With Redis configured, a
	// bridge mirrors them across instances.
	hub := realtime.NewHub()
	var publisher domain.EventPublisher = hub
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		bridge := realtime.NewBridge(hub, rdb, "messaging:events", logger)
		go bridge.Run(ctx)
		publisher = bridge
	}

	router := httpserver.NewRouter(cfg, logger, tokenSvc, hub, publisher, convRepo, msgRepo, profRepo)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("starting server", "app", cfg.AppName, "addr", cfg.HTTPAddr(), "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server error", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}
