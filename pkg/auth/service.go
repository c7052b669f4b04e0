package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

// Default lifecycle settings.
const (
	DefaultSessionTTL           = 24 * time.Hour
	DefaultVerificationTokenTTL = 24 * time.Hour
	DefaultResetTokenTTL        = time.Hour
	DefaultMaxLoginAttempts     = 5
	DefaultLockoutDuration      = 30 * time.Minute
	DefaultStoreTimeout         = 5 * time.Second
)

// Generic responses for anti-enumeration operations. The same bytes are
// returned whether or not the email exists; tests depend on that.
const (
	GenericVerificationMessage = "If the email exists and is not verified, a new verification email has been sent."
	GenericResetMessage        = "If the email exists, a password reset link has been sent."
	PasswordResetDoneMessage   = "Password reset successful. Please log in with your new password."
)

// Config holds the orchestrator's lifecycle settings.
type Config struct {
	SessionTTL           time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	MaxLoginAttempts     int
	LockoutDuration      time.Duration

	// StoreTimeout bounds every store interaction; on expiry the operation
	// fails with a transient error instead of hanging.
	StoreTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.VerificationTokenTTL == 0 {
		c.VerificationTokenTTL = DefaultVerificationTokenTTL
	}
	if c.ResetTokenTTL == 0 {
		c.ResetTokenTTL = DefaultResetTokenTTL
	}
	if c.MaxLoginAttempts == 0 {
		c.MaxLoginAttempts = DefaultMaxLoginAttempts
	}
	if c.LockoutDuration == 0 {
		c.LockoutDuration = DefaultLockoutDuration
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
}

// RequestMeta carries caller context for the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	SessionToken string
	ExpiresAt    time.Time
	Account      domain.PublicInfo
}

// Service is the authentication orchestrator. It is stateless between
// calls; all durable state lives in the Store.
type Service struct {
	config   Config
	store    Store
	hasher   *Hasher
	policy   *PasswordPolicy
	codec    *SessionCodec
	clock    Clock
	audit    AuditRecorder
	notifier Notifier
}

// ServiceOpts holds optional collaborators; nil fields get safe defaults.
type ServiceOpts struct {
	Policy   *PasswordPolicy
	Clock    Clock
	Audit    AuditRecorder
	Notifier Notifier
}

// NewService creates the orchestrator.
func NewService(config Config, store Store, hasher *Hasher, codec *SessionCodec, opts ServiceOpts) *Service {
	config.applyDefaults()
	if opts.Policy == nil {
		opts.Policy = DefaultPasswordPolicy()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Audit == nil {
		opts.Audit = NopAuditRecorder{}
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	return &Service{
		config:   config,
		store:    store,
		hasher:   hasher,
		policy:   opts.Policy,
		codec:    codec,
		clock:    opts.Clock,
		audit:    opts.Audit,
		notifier: opts.Notifier,
	}
}

// Register creates an unverified account with a hashed credential and its
// first email verification token, then asks for a verification email to be
// sent. The account and token are persisted atomically.
func (s *Service) Register(ctx context.Context, email, password string, meta RequestMeta) (*domain.Account, error) {
	email = NormalizeEmail(email)

	sctx, cancel := s.storeCtx(ctx)
	_, err := s.store.FindAccountByEmail(sctx, email)
	cancel()
	switch {
	case err == nil:
		s.recordRegistration(ctx, email, meta, false, "Email already registered")
		return nil, domain.ErrDuplicateEmail
	case errors.Is(err, domain.ErrAccountNotFound):
		// proceed
	default:
		return nil, domain.Transient(err)
	}

	if err := s.policy.Validate(password); err != nil {
		s.recordRegistration(ctx, email, meta, false, "Weak password")
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	secret, err := GenerateToken(DefaultTokenBytes)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	account := &domain.Account{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: false,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	token := &domain.EmailVerificationToken{
		ID:        uuid.New(),
		AccountID: account.ID,
		Token:     secret,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.VerificationTokenTTL),
	}

	sctx, cancel = s.storeCtx(ctx)
	err = s.store.CreateAccountWithVerification(sctx, account, token)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			// Lost the race against a concurrent registration.
			s.recordRegistration(ctx, email, meta, false, "Email already registered")
			return nil, domain.ErrDuplicateEmail
		}
		return nil, domain.Transient(err)
	}

	s.notifier.EnqueueVerification(ctx, account.Email, secret)
	s.recordRegistration(ctx, email, meta, true, "")

	return account, nil
}

// VerifyEmail consumes a verification token and marks the owning account
// verified. Check order is fixed: existence, then used, then expired.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) (*domain.Account, error) {
	sctx, cancel := s.storeCtx(ctx)
	token, err := s.store.FindVerificationToken(sctx, rawToken)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			s.audit.Record(ctx, EventEmailVerification, map[string]any{
				"success": false, "reason": "Invalid token",
			})
			return nil, domain.ErrTokenInvalid
		}
		return nil, domain.Transient(err)
	}

	if token.IsUsed {
		s.recordVerification(ctx, token.AccountID, false, "Token already used")
		return nil, domain.ErrTokenConsumed
	}

	now := s.clock.Now()
	if token.ExpiredAt(now) {
		s.recordVerification(ctx, token.AccountID, false, "Token expired")
		return nil, domain.ErrTokenExpired
	}

	sctx, cancel = s.storeCtx(ctx)
	account, err := s.store.ConsumeVerificationToken(sctx, token.ID, now)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrTokenConsumed) {
			// A concurrent caller consumed it first.
			s.recordVerification(ctx, token.AccountID, false, "Token already used")
			return nil, domain.ErrTokenConsumed
		}
		return nil, domain.Transient(err)
	}

	s.recordVerification(ctx, account.ID, true, "")
	return account, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. The response message is identical whether the email is unknown,
// already verified, or eligible; revealing which would enable enumeration.
// Prior unused tokens remain valid until expiry; they are superseded, not
// revoked.
func (s *Service) ResendVerification(ctx context.Context, email string, meta RequestMeta) (string, error) {
	email = NormalizeEmail(email)

	sctx, cancel := s.storeCtx(ctx)
	account, err := s.store.FindAccountByEmail(sctx, email)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return GenericVerificationMessage, nil
		}
		return "", domain.Transient(err)
	}

	if account.EmailVerified {
		return GenericVerificationMessage, nil
	}

	secret, err := GenerateToken(DefaultTokenBytes)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	token := &domain.EmailVerificationToken{
		ID:        uuid.New(),
		AccountID: account.ID,
		Token:     secret,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.VerificationTokenTTL),
	}

	sctx, cancel = s.storeCtx(ctx)
	err = s.store.CreateVerificationToken(sctx, token)
	cancel()
	if err != nil {
		return "", domain.Transient(err)
	}

	s.notifier.EnqueueVerification(ctx, account.Email, secret)
	return GenericVerificationMessage, nil
}

// Login authenticates a credential pair and issues a session. Account
// lookup failure, unverified email, lockout, and password mismatch are
// reported in that order; lock expiry is cleared lazily here.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	email = NormalizeEmail(email)

	sctx, cancel := s.storeCtx(ctx)
	account, err := s.store.FindAccountByEmail(sctx, email)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Generic failure; never reveal that the email is unknown.
			s.recordLogin(ctx, email, uuid.Nil, meta, false, "Invalid credentials")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Transient(err)
	}

	if !account.EmailVerified {
		s.recordLogin(ctx, email, account.ID, meta, false, "Email not verified")
		return nil, domain.ErrEmailNotVerified
	}

	now := s.clock.Now()
	if account.IsLocked {
		if account.LockedUntil != nil && now.Before(*account.LockedUntil) {
			s.recordLogin(ctx, email, account.ID, meta, false, "Account locked")
			return nil, &domain.AccountLockedError{Until: *account.LockedUntil}
		}

		// Lockout elapsed: clear lazily and keep evaluating this attempt.
		sctx, cancel = s.storeCtx(ctx)
		err = s.store.ClearLockout(sctx, account.ID, now)
		cancel()
		if err != nil {
			return nil, domain.Transient(err)
		}
		account.IsLocked = false
		account.LockedUntil = nil
		account.FailedLoginAttempts = 0
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		lockUntil := now.Add(s.config.LockoutDuration)

		sctx, cancel = s.storeCtx(ctx)
		_, justLocked, err := s.store.RecordLoginFailure(sctx, account.ID, now, lockUntil, s.config.MaxLoginAttempts)
		cancel()
		if err != nil {
			return nil, domain.Transient(err)
		}

		if justLocked {
			s.audit.Record(ctx, EventAccountLocked, map[string]any{
				"account_id": account.ID.String(),
				"email":      account.Email,
				"reason":     "Max login attempts exceeded",
				"ip":         meta.IP,
			})
			return nil, &domain.AccountLockedError{Until: lockUntil, JustLocked: true}
		}

		s.recordLogin(ctx, email, account.ID, meta, false, "Invalid password")
		return nil, domain.ErrInvalidCredentials
	}

	sessionToken, expiresAt, err := s.codec.Issue(account.ID, account.Email, s.config.SessionTTL)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:        uuid.New(),
		AccountID: account.ID,
		Token:     sessionToken,
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	// Counter reset, last_login_at, and the session insert commit as one
	// unit; a failed insert must not leave the counters reset.
	sctx, cancel = s.storeCtx(ctx)
	err = s.store.RecordLoginSuccessWithSession(sctx, account.ID, now, session)
	cancel()
	if err != nil {
		return nil, domain.Transient(err)
	}

	s.recordLogin(ctx, email, account.ID, meta, true, "")

	return &LoginResult{
		SessionToken: sessionToken,
		ExpiresAt:    expiresAt,
		Account:      account.Public(),
	}, nil
}

// RequestPasswordReset issues a reset token for the account, if it exists.
// The response is identical either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, meta RequestMeta) (string, error) {
	email = NormalizeEmail(email)

	sctx, cancel := s.storeCtx(ctx)
	account, err := s.store.FindAccountByEmail(sctx, email)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.recordResetRequest(ctx, email, meta)
			return GenericResetMessage, nil
		}
		return "", domain.Transient(err)
	}

	secret, err := GenerateToken(DefaultTokenBytes)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	token := &domain.PasswordResetToken{
		ID:        uuid.New(),
		AccountID: account.ID,
		Token:     secret,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.ResetTokenTTL),
	}

	sctx, cancel = s.storeCtx(ctx)
	err = s.store.CreateResetToken(sctx, token)
	cancel()
	if err != nil {
		return "", domain.Transient(err)
	}

	s.notifier.EnqueuePasswordReset(ctx, account.Email, secret)
	s.recordResetRequest(ctx, email, meta)

	return GenericResetMessage, nil
}

// ResetPassword consumes a reset token, replaces the credential, and
// deactivates every session of the account so nothing established under
// the old password survives. All writes commit as one unit.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string, meta RequestMeta) (string, error) {
	sctx, cancel := s.storeCtx(ctx)
	token, err := s.store.FindResetToken(sctx, rawToken)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return "", domain.ErrTokenInvalid
		}
		return "", domain.Transient(err)
	}

	if token.IsUsed {
		return "", domain.ErrTokenConsumed
	}

	now := s.clock.Now()
	if token.ExpiredAt(now) {
		return "", domain.ErrTokenExpired
	}

	if err := s.policy.Validate(newPassword); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", err
	}

	sctx, cancel = s.storeCtx(ctx)
	err = s.store.ResetCredential(sctx, token.ID, token.AccountID, hash, now)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrTokenConsumed) {
			return "", domain.ErrTokenConsumed
		}
		return "", domain.Transient(err)
	}

	s.audit.Record(ctx, EventPasswordResetSuccess, map[string]any{
		"account_id": token.AccountID.String(),
		"success":    true,
		"ip":         meta.IP,
	})

	return PasswordResetDoneMessage, nil
}

// Logout deactivates the session identified by the given token.
func (s *Service) Logout(ctx context.Context, sessionToken string, meta RequestMeta) error {
	sctx, cancel := s.storeCtx(ctx)
	session, err := s.store.FindActiveSession(sctx, sessionToken)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			return domain.ErrInvalidSession
		}
		return domain.Transient(err)
	}

	if !session.UsableAt(s.clock.Now()) {
		return domain.ErrInvalidSession
	}

	sctx, cancel = s.storeCtx(ctx)
	err = s.store.DeactivateSession(sctx, session.ID)
	cancel()
	if err != nil {
		return domain.Transient(err)
	}

	s.audit.Record(ctx, EventLogout, map[string]any{
		"account_id": session.AccountID.String(),
		"ip":         meta.IP,
	})
	return nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

func (s *Service) recordRegistration(ctx context.Context, email string, meta RequestMeta, success bool, reason string) {
	event := EventRegistrationSuccess
	if !success {
		event = EventRegistrationFailure
	}
	attrs := map[string]any{"email": email, "success": success}
	if reason != "" {
		attrs["reason"] = reason
	}
	if meta.IP != "" {
		attrs["ip"] = meta.IP
	}
	s.audit.Record(ctx, event, attrs)
}

func (s *Service) recordVerification(ctx context.Context, accountID uuid.UUID, success bool, reason string) {
	attrs := map[string]any{"account_id": accountID.String(), "success": success}
	if reason != "" {
		attrs["reason"] = reason
	}
	s.audit.Record(ctx, EventEmailVerification, attrs)
}

func (s *Service) recordLogin(ctx context.Context, email string, accountID uuid.UUID, meta RequestMeta, success bool, reason string) {
	event := EventLoginSuccess
	if !success {
		event = EventLoginFailure
	}
	attrs := map[string]any{"email": email, "success": success}
	if accountID != uuid.Nil {
		attrs["account_id"] = accountID.String()
	}
	if reason != "" {
		attrs["reason"] = reason
	}
	if meta.IP != "" {
		attrs["ip"] = meta.IP
	}
	s.audit.Record(ctx, event, attrs)
}

func (s *Service) recordResetRequest(ctx context.Context, email string, meta RequestMeta) {
	attrs := map[string]any{"email": email}
	if meta.IP != "" {
		attrs["ip"] = meta.IP
	}
	s.audit.Record(ctx, EventPasswordResetRequest, attrs)
}
