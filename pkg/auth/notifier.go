package auth

import "context"

// Notifier hands notification requests to an asynchronous sender. Enqueue
// calls return immediately; the returned channel receives the delivery
// result exactly once for callers that choose to wait. Delivery failure is
// never a user-facing failure of the enclosing operation.
type Notifier interface {
	EnqueueVerification(ctx context.Context, email, token string) <-chan error
	EnqueuePasswordReset(ctx context.Context, email, token string) <-chan error
}

// NopNotifier discards notification requests, reporting instant success.
type NopNotifier struct{}

func (NopNotifier) EnqueueVerification(context.Context, string, string) <-chan error {
	return closedResult()
}

func (NopNotifier) EnqueuePasswordReset(context.Context, string, string) <-chan error {
	return closedResult()
}

func closedResult() <-chan error {
	ch := make(chan error, 1)
	ch <- nil
	close(ch)
	return ch
}
