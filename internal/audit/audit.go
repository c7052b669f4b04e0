// Package audit writes the security event trail as structured log records.
package audit

import (
	"context"
	"log/slog"
)

// Recorder emits security events through a dedicated slog logger so the
// trail can be routed and retained separately from application logs.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder creates a recorder over the given logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger.With("component", "audit")}
}

// Record emits one security event. It never fails back to the caller.
func (r *Recorder) Record(ctx context.Context, event string, attrs map[string]any) {
	args := make([]any, 0, 2*len(attrs)+2)
	args = append(args, "event", event)
	for k, v := range attrs {
		args = append(args, k, v)
	}
	r.logger.InfoContext(ctx, "security event", args...)
}
