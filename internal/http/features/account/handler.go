// Package account exposes registration, login, and logout endpoints.
package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/credstack/credstack/internal/httputil"
	"github.com/credstack/credstack/pkg/auth"
	"github.com/credstack/credstack/pkg/domain"
)

// Handler handles account lifecycle endpoints.
type Handler struct {
	logger  *slog.Logger
	service *auth.Service
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, service *auth.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles account registration.
// POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid email address")
		return
	}

	meta := auth.RequestMeta{IP: httputil.ClientIP(r), UserAgent: r.UserAgent()}
	account, err := h.service.Register(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			httputil.Error(w, http.StatusConflict, "email already registered")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrTransient):
			httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful. Please check your email to verify your account.",
		"account": account.Public(),
	})
}

// Login handles credential authentication.
// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	meta := auth.RequestMeta{IP: httputil.ClientIP(r), UserAgent: r.UserAgent()}
	result, err := h.service.Login(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		var locked *domain.AccountLockedError
		switch {
		case errors.As(err, &locked):
			httputil.JSON(w, http.StatusForbidden, map[string]any{
				"error":        "account locked due to too many failed login attempts",
				"locked_until": locked.Until,
			})
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, domain.ErrEmailNotVerified):
			httputil.Error(w, http.StatusForbidden, "email not verified")
		case errors.Is(err, domain.ErrTransient):
			httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		default:
			h.logger.Error("login failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"session_token": result.SessionToken,
		"expires_at":    result.ExpiresAt,
		"account":       result.Account,
	})
}

// Logout deactivates the caller's session.
// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := httputil.BearerToken(r)
	if token == "" {
		httputil.Error(w, http.StatusUnauthorized, "missing session token")
		return
	}

	meta := auth.RequestMeta{IP: httputil.ClientIP(r), UserAgent: r.UserAgent()}
	if err := h.service.Logout(r.Context(), token, meta); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSession):
			httputil.Error(w, http.StatusUnauthorized, "invalid session")
		case errors.Is(err, domain.ErrTransient):
			httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		default:
			h.logger.Error("logout failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "logout failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}
