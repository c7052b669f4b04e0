package auth

import "context"

// Audit event kinds emitted by the orchestrator.
const (
	EventRegistrationSuccess  = "registration_success"
	EventRegistrationFailure  = "registration_failure"
	EventEmailVerification    = "email_verification"
	EventLoginSuccess         = "login_success"
	EventLoginFailure         = "login_failure"
	EventAccountLocked        = "account_locked"
	EventLogout               = "logout"
	EventPasswordResetRequest = "password_reset_request"
	EventPasswordResetSuccess = "password_reset_success"
)

// AuditRecorder receives security events. Implementations are
// fire-and-forget and must never raise back into the orchestrator.
type AuditRecorder interface {
	Record(ctx context.Context, event string, attrs map[string]any)
}

// NopAuditRecorder discards all events.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, string, map[string]any) {}
