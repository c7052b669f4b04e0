// Package password exposes the password reset endpoints.
package password

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/credstack/credstack/internal/httputil"
	"github.com/credstack/credstack/pkg/auth"
	"github.com/credstack/credstack/pkg/domain"
)

// Handler handles password reset endpoints.
type Handler struct {
	logger  *slog.Logger
	service *auth.Service
}

// NewHandler creates a new password handler.
func NewHandler(logger *slog.Logger, service *auth.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// ResetRequestRequest carries the email to send a reset link to.
type ResetRequestRequest struct {
	Email string `json:"email"`
}

// ResetRequest carries a reset token and the replacement password.
type ResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// RequestReset issues a password reset token. The response is the same
// whether or not the email is registered.
// POST /auth/password/reset-request
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	meta := auth.RequestMeta{IP: httputil.ClientIP(r), UserAgent: r.UserAgent()}
	message, err := h.service.RequestPasswordReset(r.Context(), req.Email, meta)
	if err != nil {
		if errors.Is(err, domain.ErrTransient) {
			httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
			return
		}
		h.logger.Error("password reset request failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "request failed")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": message})
}

// Reset consumes a reset token and replaces the credential.
// POST /auth/password/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "token and new_password are required")
		return
	}

	meta := auth.RequestMeta{IP: httputil.ClientIP(r), UserAgent: r.UserAgent()}
	message, err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword, meta)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenInvalid):
			httputil.Error(w, http.StatusBadRequest, "invalid reset token")
		case errors.Is(err, domain.ErrTokenConsumed):
			httputil.Error(w, http.StatusBadRequest, "reset token already used")
		case errors.Is(err, domain.ErrTokenExpired):
			httputil.Error(w, http.StatusBadRequest, "reset token expired")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrTransient):
			httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		default:
			h.logger.Error("password reset failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "password reset failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": message})
}
