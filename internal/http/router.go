// Package http wires the auth endpoints into a chi router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/credstack/credstack/internal/http/features/account"
	"github.com/credstack/credstack/internal/http/features/email"
	"github.com/credstack/credstack/internal/http/features/password"
	"github.com/credstack/credstack/internal/http/middleware"
	"github.com/credstack/credstack/internal/httputil"
	"github.com/credstack/credstack/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Service         *auth.Service
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(middleware.DefaultMaxBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Requests: cfg.RateLimit,
		Window:   cfg.RateLimitWindow,
		Logger:   cfg.Logger,
	})

	accountHandler := account.NewHandler(cfg.Logger, cfg.Service)
	emailHandler := email.NewHandler(cfg.Logger, cfg.Service)
	passwordHandler := password.NewHandler(cfg.Logger, cfg.Service)

	r.Group(func(r chi.Router) {
		r.Use(authLimit)
		r.Post("/auth/register", accountHandler.Register)
		r.Post("/auth/login", accountHandler.Login)
		r.Post("/auth/verify-email", emailHandler.VerifyEmail)
		r.Post("/auth/resend-verification", emailHandler.ResendVerification)
		r.Post("/auth/password/reset-request", passwordHandler.RequestReset)
		r.Post("/auth/password/reset", passwordHandler.Reset)
	})
	r.Post("/auth/logout", accountHandler.Logout)

	return r
}
