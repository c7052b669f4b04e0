// Package email exposes the email verification endpoints.
package email

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/credstack/credstack/internal/httputil"
	"github.com/credstack/credstack/pkg/auth"
	"github.com/credstack/credstack/pkg/domain"
)

// Handler handles email verification endpoints.
type Handler struct {
	logger  *slog.Logger
	service *auth.Service
}

// NewHandler creates a new email handler.
func NewHandler(logger *slog.Logger, service *auth.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// VerifyRequest carries a verification token.
type VerifyRequest struct {
	Token string `json:"token"`
}

// ResendRequest carries the email to resend verification for.
type ResendRequest struct {
	Email string `json:"email"`
}

// VerifyEmail consumes a verification token.
// POST /auth/verify-email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		// Links from email land here as a query parameter.
		req.Token = r.URL.Query().Get("token")
	}
	if req.Token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	account, err := h.service.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenInvalid):
			httputil.Error(w, http.StatusBadRequest, "invalid verification token")
		case errors.Is(err, domain.ErrTokenConsumed):
			httputil.Error(w, http.StatusBadRequest, "verification token already used")
		case errors.Is(err, domain.ErrTokenExpired):
			httputil.Error(w, http.StatusBadRequest, "verification token expired")
		case errors.Is(err, domain.ErrTransient):
			httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		default:
			h.logger.Error("email verification failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Email verified. You can now log in.",
		"account": account.Public(),
	})
}

// ResendVerification issues a fresh verification token. The response is
// the same whether or not the email is registered.
// POST /auth/resend-verification
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	meta := auth.RequestMeta{IP: httputil.ClientIP(r), UserAgent: r.UserAgent()}
	message, err := h.service.ResendVerification(r.Context(), req.Email, meta)
	if err != nil {
		if errors.Is(err, domain.ErrTransient) {
			httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
			return
		}
		h.logger.Error("resend verification failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "request failed")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": message})
}
