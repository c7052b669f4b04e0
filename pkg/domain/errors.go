package domain

import (
	"errors"
	"fmt"
	"time"
)

// Business-rule errors returned by the orchestrator. The HTTP layer maps
// these to status codes; nothing below it inspects transport concerns.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateEmail     = errors.New("email address already registered")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address not verified")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenConsumed      = errors.New("token already used")
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidSession     = errors.New("invalid or inactive session")
)

// ErrTransient marks infrastructure failures (store unreachable, timeout)
// that are safe for the caller to retry. They are never conflated with
// business failures and never mutate login counters.
var ErrTransient = errors.New("transient backend failure")

// AccountLockedError carries the unlock time for a locked account.
// JustLocked is set when this very attempt crossed the failure threshold.
type AccountLockedError struct {
	Until      time.Time
	JustLocked bool
}

func (e *AccountLockedError) Error() string {
	if e.JustLocked {
		return fmt.Sprintf("account locked due to too many failed login attempts, try again after %s", e.Until.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("account is locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrAccountLocked) match both lock variants.
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// TransientError wraps an infrastructure failure so errors.Is(err,
// ErrTransient) holds while the cause stays available via Unwrap.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient backend failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// Transient wraps err as a TransientError. It returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Cause: err}
}
