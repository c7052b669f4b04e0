package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credstack/credstack/pkg/domain"
)

const (
	goodPassword  = "Str0ngPass!1"
	otherPassword = "An0therPass!2"
)

// fakeStore is an in-memory Store with the same atomicity semantics as
// the SQL implementation.
type fakeStore struct {
	mu            sync.Mutex
	accounts      map[uuid.UUID]*domain.Account
	byEmail       map[string]uuid.UUID
	verifications map[uuid.UUID]*domain.EmailVerificationToken
	resets        map[uuid.UUID]*domain.PasswordResetToken
	sessions      map[uuid.UUID]*domain.Session

	// failWith, when set, makes every call fail with this error.
	failWith error

	// failSessionWith, when set, makes the login-success write fail
	// without mutating anything, like a rolled-back transaction.
	failSessionWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:      make(map[uuid.UUID]*domain.Account),
		byEmail:       make(map[string]uuid.UUID),
		verifications: make(map[uuid.UUID]*domain.EmailVerificationToken),
		resets:        make(map[uuid.UUID]*domain.PasswordResetToken),
		sessions:      make(map[uuid.UUID]*domain.Session),
	}
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	return &cp
}

func (s *fakeStore) CreateAccountWithVerification(ctx context.Context, account *domain.Account, token *domain.EmailVerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.byEmail[account.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	cp := *account
	s.accounts[account.ID] = &cp
	s.byEmail[account.Email] = account.ID
	tcp := *token
	s.verifications[token.ID] = &tcp
	return nil
}

func (s *fakeStore) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	id, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(s.accounts[id]), nil
}

func (s *fakeStore) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (s *fakeStore) CreateVerificationToken(ctx context.Context, token *domain.EmailVerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cp := *token
	s.verifications[token.ID] = &cp
	return nil
}

func (s *fakeStore) FindVerificationToken(ctx context.Context, rawToken string) (*domain.EmailVerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, t := range s.verifications {
		if t.Token == rawToken {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTokenInvalid
}

func (s *fakeStore) ConsumeVerificationToken(ctx context.Context, tokenID uuid.UUID, now time.Time) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	t, ok := s.verifications[tokenID]
	if !ok || t.IsUsed {
		return nil, domain.ErrTokenConsumed
	}
	t.IsUsed = true
	t.UsedAt = &now
	a := s.accounts[t.AccountID]
	a.EmailVerified = true
	a.UpdatedAt = now
	return copyAccount(a), nil
}

func (s *fakeStore) CreateResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cp := *token
	s.resets[token.ID] = &cp
	return nil
}

func (s *fakeStore) FindResetToken(ctx context.Context, rawToken string) (*domain.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, t := range s.resets {
		if t.Token == rawToken {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTokenInvalid
}

func (s *fakeStore) ResetCredential(ctx context.Context, tokenID, accountID uuid.UUID, newHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	t, ok := s.resets[tokenID]
	if !ok || t.IsUsed {
		return domain.ErrTokenConsumed
	}
	t.IsUsed = true
	t.UsedAt = &now
	a := s.accounts[accountID]
	a.PasswordHash = newHash
	a.UpdatedAt = now
	for _, sess := range s.sessions {
		if sess.AccountID == accountID {
			sess.IsActive = false
		}
	}
	return nil
}

func (s *fakeStore) RecordLoginFailure(ctx context.Context, accountID uuid.UUID, now, lockUntil time.Time, maxAttempts int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, false, s.failWith
	}
	a, ok := s.accounts[accountID]
	if !ok {
		return 0, false, domain.ErrAccountNotFound
	}
	a.FailedLoginAttempts++
	a.LastFailedLogin = &now
	a.UpdatedAt = now
	if a.FailedLoginAttempts >= maxAttempts {
		a.IsLocked = true
		until := lockUntil
		a.LockedUntil = &until
	}
	return a.FailedLoginAttempts, a.IsLocked && a.FailedLoginAttempts == maxAttempts, nil
}

func (s *fakeStore) ClearLockout(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	a := s.accounts[accountID]
	a.IsLocked = false
	a.LockedUntil = nil
	a.FailedLoginAttempts = 0
	a.UpdatedAt = now
	return nil
}

func (s *fakeStore) RecordLoginSuccessWithSession(ctx context.Context, accountID uuid.UUID, now time.Time, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.failSessionWith != nil {
		return s.failSessionWith
	}
	a := s.accounts[accountID]
	a.FailedLoginAttempts = 0
	a.LastFailedLogin = nil
	last := now
	a.LastLoginAt = &last
	a.UpdatedAt = now
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *fakeStore) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, sess := range s.sessions {
		if sess.Token == token && sess.IsActive {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, domain.ErrInvalidSession
}

func (s *fakeStore) DeactivateSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	sess, ok := s.sessions[id]
	if !ok || !sess.IsActive {
		return domain.ErrInvalidSession
	}
	sess.IsActive = false
	return nil
}

func (s *fakeStore) verificationFor(accountID uuid.UUID) *domain.EmailVerificationToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.verifications {
		if t.AccountID == accountID && !t.IsUsed {
			cp := *t
			return &cp
		}
	}
	return nil
}

func (s *fakeStore) activeSessionCount(accountID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.AccountID == accountID && sess.IsActive {
			n++
		}
	}
	return n
}

// fakeClock is a mutable Clock for tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier captures enqueued notifications.
type recordingNotifier struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
}

func (n *recordingNotifier) EnqueueVerification(ctx context.Context, email, token string) <-chan error {
	n.mu.Lock()
	n.verifications = append(n.verifications, email)
	n.mu.Unlock()
	return closedResult()
}

func (n *recordingNotifier) EnqueuePasswordReset(ctx context.Context, email, token string) <-chan error {
	n.mu.Lock()
	n.resets = append(n.resets, email)
	n.mu.Unlock()
	return closedResult()
}

// recordingAudit captures emitted events.
type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAudit) Record(ctx context.Context, event string, attrs map[string]any) {
	a.mu.Lock()
	a.events = append(a.events, event)
	a.mu.Unlock()
}

func (a *recordingAudit) has(event string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.events {
		if e == event {
			return true
		}
	}
	return false
}

type testEnv struct {
	service  *Service
	store    *fakeStore
	clock    *fakeClock
	notifier *recordingNotifier
	audit    *recordingAudit
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	auditRec := &recordingAudit{}

	// Low-cost hashing keeps the tests fast.
	hasher := NewHasher(1, 1024, 1)
	codec := NewSessionCodec([]byte("0123456789abcdef0123456789abcdef"), clock)

	service := NewService(Config{}, store, hasher, codec, ServiceOpts{
		Clock:    clock,
		Audit:    auditRec,
		Notifier: notifier,
	})
	return &testEnv{service: service, store: store, clock: clock, notifier: notifier, audit: auditRec}
}

func (e *testEnv) register(t *testing.T, email string) *domain.Account {
	t.Helper()
	account, err := e.service.Register(context.Background(), email, goodPassword, RequestMeta{})
	require.NoError(t, err)
	return account
}

func (e *testEnv) registerVerified(t *testing.T, email string) *domain.Account {
	t.Helper()
	account := e.register(t, email)
	token := e.store.verificationFor(account.ID)
	require.NotNil(t, token)
	verified, err := e.service.VerifyEmail(context.Background(), token.Token)
	require.NoError(t, err)
	return verified
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.service.Register(ctx, "User@Example.COM", goodPassword, RequestMeta{IP: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", account.Email)
	assert.False(t, account.EmailVerified)
	assert.True(t, account.IsActive)
	assert.NotEqual(t, goodPassword, account.PasswordHash)

	token := env.store.verificationFor(account.ID)
	require.NotNil(t, token)
	assert.Equal(t, env.clock.Now().Add(DefaultVerificationTokenTTL), token.ExpiresAt)
	assert.Len(t, env.notifier.verifications, 1)
	assert.True(t, env.audit.has(EventRegistrationSuccess))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "user@example.com")

	// Case differences normalize to the same address.
	_, err := env.service.Register(context.Background(), "USER@example.com", goodPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.True(t, env.audit.has(EventRegistrationFailure))
}

func TestRegister_WeakPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Register(context.Background(), "user@example.com", "weak", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
	assert.Empty(t, env.notifier.verifications)
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "user@example.com")
	token := env.store.verificationFor(account.ID)
	require.NotNil(t, token)

	verified, err := env.service.VerifyEmail(context.Background(), token.Token)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	// Second consumption of the same token fails.
	_, err = env.service.VerifyEmail(context.Background(), token.Token)
	assert.ErrorIs(t, err, domain.ErrTokenConsumed)
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.VerifyEmail(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyEmail_Expired(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "user@example.com")
	token := env.store.verificationFor(account.ID)
	require.NotNil(t, token)

	env.clock.Advance(DefaultVerificationTokenTTL + time.Minute)
	_, err := env.service.VerifyEmail(context.Background(), token.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyEmail_UsedReportedBeforeExpired(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "user@example.com")
	token := env.store.verificationFor(account.ID)
	require.NotNil(t, token)

	_, err := env.service.VerifyEmail(context.Background(), token.Token)
	require.NoError(t, err)

	// Token is now both used and expired; used wins.
	env.clock.Advance(DefaultVerificationTokenTTL + time.Minute)
	_, err = env.service.VerifyEmail(context.Background(), token.Token)
	assert.ErrorIs(t, err, domain.ErrTokenConsumed)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "user@example.com")
	first := env.store.verificationFor(account.ID)
	require.NotNil(t, first)
	ctx := context.Background()

	msg, err := env.service.ResendVerification(ctx, "user@example.com", RequestMeta{})
	require.NoError(t, err)

	// Identical response for an unknown address.
	unknownMsg, err := env.service.ResendVerification(ctx, "ghost@example.com", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, msg, unknownMsg)

	// The superseded token still works.
	_, err = env.service.VerifyEmail(ctx, first.Token)
	assert.NoError(t, err)

	// Identical response once verified, and no new token is issued.
	verifiedMsg, err := env.service.ResendVerification(ctx, "user@example.com", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, msg, verifiedMsg)
	assert.Len(t, env.notifier.verifications, 2) // register + one resend
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	result, err := env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{IP: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, account.ID, result.Account.ID)
	assert.Equal(t, env.clock.Now().Add(DefaultSessionTTL), result.ExpiresAt)
	assert.Equal(t, 1, env.store.activeSessionCount(account.ID))
	assert.True(t, env.audit.has(EventLoginSuccess))

	// The session token is verifiable and carries the account identity.
	claims, err := env.service.codec.Verify(result.SessionToken)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, account.ID, id)

	stored, err := env.store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, env.clock.Now(), *stored.LastLoginAt)
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Login(context.Background(), "ghost@example.com", goodPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_Unverified(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "user@example.com")
	_, err := env.service.Login(context.Background(), "user@example.com", goodPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrEmailNotVerified)
}

func TestLogin_LockoutSequence(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	// Failures below the threshold report invalid credentials.
	for i := 0; i < DefaultMaxLoginAttempts-1; i++ {
		_, err := env.service.Login(ctx, "user@example.com", "Wr0ngPass!x", RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "attempt %d", i+1)
	}

	// The threshold attempt locks the account.
	_, err := env.service.Login(ctx, "user@example.com", "Wr0ngPass!x", RequestMeta{})
	var locked *domain.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.True(t, locked.JustLocked)
	assert.Equal(t, env.clock.Now().Add(DefaultLockoutDuration), locked.Until)
	assert.ErrorIs(t, err, domain.ErrAccountLocked)
	assert.True(t, env.audit.has(EventAccountLocked))

	// While locked, even the correct password is rejected.
	_, err = env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{})
	require.ErrorAs(t, err, &locked)
	assert.False(t, locked.JustLocked)

	// After the lockout elapses the correct password works again.
	env.clock.Advance(DefaultLockoutDuration + time.Minute)
	result, err := env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
}

func TestLogin_FailedSessionWriteLeavesCountersIntact(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.service.Login(ctx, "user@example.com", "Wr0ngPass!x", RequestMeta{})
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// The counter reset and session insert commit together; when the
	// write fails, neither may stick.
	env.store.failSessionWith = errors.New("insert failed")
	_, err := env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{})
	require.ErrorIs(t, err, domain.ErrTransient)

	stored, err := env.store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LastLoginAt)
	assert.Equal(t, 0, env.store.activeSessionCount(account.ID))
}

func TestVerifyEmail_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "user@example.com")
	token := env.store.verificationFor(account.ID)
	require.NotNil(t, token)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.VerifyEmail(context.Background(), token.Token)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, consumed int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrTokenConsumed):
			consumed++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, consumed)

	stored, err := env.store.FindAccountByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
}

func TestLogin_LazyUnlockResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	for i := 0; i < DefaultMaxLoginAttempts; i++ {
		env.service.Login(ctx, "user@example.com", "Wr0ngPass!x", RequestMeta{})
	}
	env.clock.Advance(DefaultLockoutDuration + time.Minute)

	// A wrong password after the lazy unlock counts from one again.
	_, err := env.service.Login(ctx, "user@example.com", "Wr0ngPass!x", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	stored, err := env.store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLocked)
	assert.Equal(t, 1, stored.FailedLoginAttempts)
}

func TestRequestPasswordReset_GenericMessage(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	known, err := env.service.RequestPasswordReset(ctx, "user@example.com", RequestMeta{})
	require.NoError(t, err)
	unknown, err := env.service.RequestPasswordReset(ctx, "ghost@example.com", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, known, unknown)

	assert.Len(t, env.notifier.resets, 1)
	assert.True(t, env.audit.has(EventPasswordResetRequest))
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	// Establish a session that must not survive the reset.
	result, err := env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{})
	require.NoError(t, err)

	_, err = env.service.RequestPasswordReset(ctx, "user@example.com", RequestMeta{})
	require.NoError(t, err)

	var resetToken string
	env.store.mu.Lock()
	for _, tok := range env.store.resets {
		resetToken = tok.Token
	}
	env.store.mu.Unlock()
	require.NotEmpty(t, resetToken)

	msg, err := env.service.ResetPassword(ctx, resetToken, otherPassword, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, PasswordResetDoneMessage, msg)

	// Old sessions are gone.
	err = env.service.Logout(ctx, result.SessionToken, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	// Old password no longer works, new one does.
	_, err = env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.service.Login(ctx, "user@example.com", otherPassword, RequestMeta{})
	assert.NoError(t, err)

	// The token is single-use.
	_, err = env.service.ResetPassword(ctx, resetToken, goodPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrTokenConsumed)
}

func TestResetPassword_Expired(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	_, err := env.service.RequestPasswordReset(ctx, "user@example.com", RequestMeta{})
	require.NoError(t, err)

	var resetToken string
	env.store.mu.Lock()
	for _, tok := range env.store.resets {
		resetToken = tok.Token
	}
	env.store.mu.Unlock()

	env.clock.Advance(DefaultResetTokenTTL + time.Minute)
	_, err = env.service.ResetPassword(ctx, resetToken, otherPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestResetPassword_WeakPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	_, err := env.service.RequestPasswordReset(ctx, "user@example.com", RequestMeta{})
	require.NoError(t, err)

	var resetToken string
	env.store.mu.Lock()
	for _, tok := range env.store.resets {
		resetToken = tok.Token
	}
	env.store.mu.Unlock()

	_, err = env.service.ResetPassword(ctx, resetToken, "weak", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	// A rejected password does not consume the token.
	_, err = env.service.ResetPassword(ctx, resetToken, otherPassword, RequestMeta{})
	assert.NoError(t, err)
}

func TestResetPassword_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.ResetPassword(context.Background(), "no-such-token", otherPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "user@example.com")
	ctx := context.Background()

	result, err := env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(ctx, result.SessionToken, RequestMeta{}))
	assert.Equal(t, 0, env.store.activeSessionCount(account.ID))
	assert.True(t, env.audit.has(EventLogout))

	// Logging out an already-deactivated session fails.
	err = env.service.Logout(ctx, result.SessionToken, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestLogout_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	err := env.service.Logout(context.Background(), "no-such-session", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestStoreFailuresAreTransient(t *testing.T) {
	env := newTestEnv(t)
	env.store.failWith = errors.New("connection refused")
	ctx := context.Background()

	_, err := env.service.Register(ctx, "user@example.com", goodPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrTransient)

	_, err = env.service.Login(ctx, "user@example.com", goodPassword, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrTransient)

	_, err = env.service.VerifyEmail(ctx, "token")
	assert.ErrorIs(t, err, domain.ErrTransient)

	_, err = env.service.RequestPasswordReset(ctx, "user@example.com", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrTransient)
}
