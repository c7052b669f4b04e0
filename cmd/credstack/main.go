package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/credstack/credstack/internal/audit"
	"github.com/credstack/credstack/internal/config"
	httpserver "github.com/credstack/credstack/internal/http"
	"github.com/credstack/credstack/internal/notification"
	"github.com/credstack/credstack/pkg/auth"
	"github.com/credstack/credstack/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := repository.NewDB(dbCtx, repository.DBConfig{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		Name:            cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	dbCancel()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	store := repository.NewStore(db)

	// Email delivery; logs instead of sending when no relay is configured
	var sender notification.Sender
	if cfg.HasSMTP() {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		logger.Info("email delivery enabled", "host", cfg.SMTPHost)
	} else {
		sender = notification.NewLogSender(logger)
	}
	dispatcher := notification.NewDispatcher(sender, notification.DispatcherConfig{
		BaseURL:              cfg.BaseURL,
		VerificationTokenTTL: cfg.VerificationTokenTTL,
		ResetTokenTTL:        cfg.ResetTokenTTL,
	}, logger)
	defer dispatcher.Close()

	hasher := auth.NewHasher(
		uint32(cfg.Argon2TimeCost),
		uint32(cfg.Argon2MemoryKiB),
		uint8(cfg.Argon2Threads),
	)
	policy := auth.DefaultPasswordPolicy()
	policy.MinLength = cfg.PasswordMinLen
	codec := auth.NewSessionCodec([]byte(cfg.SigningSecret), nil)

	service := auth.NewService(auth.Config{
		SessionTTL:           cfg.SessionTTL,
		VerificationTokenTTL: cfg.VerificationTokenTTL,
		ResetTokenTTL:        cfg.ResetTokenTTL,
		MaxLoginAttempts:     cfg.MaxLoginAttempts,
		LockoutDuration:      cfg.LockoutDuration,
	}, store, hasher, codec, auth.ServiceOpts{
		Policy:   policy,
		Audit:    audit.NewRecorder(logger),
		Notifier: dispatcher,
	})

	// Periodically purge expired tokens and sessions
	purgeCtx, purgeCancel := context.WithCancel(context.Background())
	defer purgeCancel()
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				n, err := store.PurgeExpired(purgeCtx, time.Now().UTC())
				if err != nil {
					logger.Error("expired record purge failed", "error", err)
				} else if n > 0 {
					logger.Info("purged expired records", "rows", n)
				}
			}
		}
	}()

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		Service:         service,
		RateLimit:       cfg.AuthRateLimit,
		RateLimitWindow: cfg.AuthRateLimitWindow,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
