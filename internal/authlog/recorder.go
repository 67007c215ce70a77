package authlog

import (
	"context"
	"log/slog"
	"time"
)

// recordTimeout bounds the detached database write behind StoreRecorder.
const recordTimeout = 5 * time.Second

// Recorder is the sink auth events are emitted into. Implementations must
// never block the caller and must swallow their own failures; an auth flow
// cannot be allowed to fail because its audit trail did.
//
// The concrete sink is chosen once at startup and injected into the auth
// service, so swapping console logging for persistence (or fanning out to
// both) is a wiring change, not a code change.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// --- Slog Recorder ---

// SlogRecorder writes events to the structured log. This is the default
// sink in development, where the console is the audit trail.
type SlogRecorder struct {
	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Record implements Recorder. Failed flows log at Warn, successes at Info.
func (r *SlogRecorder) Record(ctx context.Context, event Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("user_agent", event.UserAgent),
		slog.String("path", event.Path),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", event.Email))
	}
	if event.ErrorCode != "" {
		attrs = append(attrs, slog.String("error_code", event.ErrorCode))
	}

	level := slog.LevelInfo
	if event.Failed() {
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx, level, "auth event", attrs...)
}

// --- Store Recorder ---

// StoreRecorder persists events through a Repository. The write happens on
// a detached goroutine with its own timeout so a slow database never holds
// up a sign-in, and failures are logged rather than returned.
type StoreRecorder struct {
	repo Repository
}

// NewStoreRecorder creates a Recorder that persists events via repo.
func NewStoreRecorder(repo Repository) *StoreRecorder {
	return &StoreRecorder{repo: repo}
}

// Record implements Recorder. The request context is not reused because
// the request usually completes before the insert does.
func (r *StoreRecorder) Record(_ context.Context, event Event) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("auth event recorder panic",
					slog.String("event_type", string(event.Type)),
					slog.Any("panic", p),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := r.repo.Insert(ctx, &event); err != nil {
			slog.Warn("auth event dropped",
				slog.String("event_type", string(event.Type)),
				slog.String("event_id", event.ID),
				slog.Any("error", err),
			)
		}
	}()
}

// --- Fan-out and No-op Recorders ---

// MultiRecorder fans each event out to every child recorder in order.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ctx context.Context, event Event) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, event)
		}
	}
}

// NopRecorder discards every event. Useful in tests that do not assert on
// the audit trail.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Event) {}
