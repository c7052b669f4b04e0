package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is reported on a job's result channel when the dispatch
// queue has no room. The enclosing account operation still succeeds.
var ErrQueueFull = errors.New("notification queue full")

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 15 * time.Second
)

type job struct {
	to      string
	subject string
	body    string
	result  chan error
}

// DispatcherConfig holds link and lifetime settings rendered into the
// message bodies.
type DispatcherConfig struct {
	BaseURL              string
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
}

// Dispatcher queues account emails and delivers them from a background
// worker, keeping delivery latency and failures out of request handling.
// Each enqueue returns a channel that receives the delivery result once.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	config DispatcherConfig

	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher creates a dispatcher and starts its worker. Zero TTLs
// fall back to 24 hours for verification and 1 hour for reset.
func NewDispatcher(sender Sender, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.VerificationTokenTTL == 0 {
		config.VerificationTokenTTL = 24 * time.Hour
	}
	if config.ResetTokenTTL == 0 {
		config.ResetTokenTTL = time.Hour
	}
	d := &Dispatcher{
		sender: sender,
		logger: logger,
		config: config,
		jobs:   make(chan job, defaultQueueSize),
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// EnqueueVerification queues an email-verification message.
func (d *Dispatcher) EnqueueVerification(ctx context.Context, email, token string) <-chan error {
	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Welcome!\r\n\r\n"+
			"Please verify your email address by visiting the link below:\r\n\r\n"+
			"%s/auth/verify-email?token=%s\r\n\r\n"+
			"The link expires in %s. If you did not create an account, ignore this message.\r\n",
		d.config.BaseURL, token, formatTTL(d.config.VerificationTokenTTL))
	return d.enqueue(ctx, email, subject, body)
}

// EnqueuePasswordReset queues a password-reset message.
func (d *Dispatcher) EnqueuePasswordReset(ctx context.Context, email, token string) <-chan error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n"+
			"Use the link below to choose a new password:\r\n\r\n"+
			"%s/auth/password/reset?token=%s\r\n\r\n"+
			"The link expires in %s. If you did not request this, ignore this message.\r\n",
		d.config.BaseURL, token, formatTTL(d.config.ResetTokenTTL))
	return d.enqueue(ctx, email, subject, body)
}

// formatTTL renders a duration in the plain wording used in email
// bodies: whole hours as hours, anything else as minutes.
func formatTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d / time.Minute)
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// Close stops accepting work and waits for queued deliveries to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) enqueue(ctx context.Context, to, subject, body string) <-chan error {
	result := make(chan error, 1)
	j := job{to: to, subject: subject, body: body, result: result}

	select {
	case d.jobs <- j:
	default:
		d.logger.WarnContext(ctx, "notification dropped", "to", to, "subject", subject, "reason", "queue full")
		result <- ErrQueueFull
		close(result)
	}
	return result
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
		err := d.sender.Send(ctx, j.to, j.subject, j.body)
		cancel()

		if err != nil {
			d.logger.Error("notification delivery failed", "to", j.to, "subject", j.subject, "error", err)
		}
		j.result <- err
		close(j.result)
	}
}
