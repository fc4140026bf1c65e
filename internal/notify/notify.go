// Package notify delivers counter notifications to observers.
//
// The lifecycle manager calls a Notifier synchronously, exactly once per
// committed transition and only after the commit succeeded.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/counterslot/internal/ir"
)

// Notifier receives committed events. Implementations must not block for
// long; they run on the caller's goroutine.
type Notifier interface {
	Notify(ctx context.Context, ev ir.Event)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, ev ir.Event)

// Notify calls f.
func (f Func) Notify(ctx context.Context, ev ir.Event) {
	f(ctx, ev)
}

// Discard drops every event.
var Discard Notifier = Func(func(context.Context, ir.Event) {})

// Multi fans an event out to every notifier in order.
type Multi []Notifier

// Notify delivers ev to each notifier.
func (m Multi) Notify(ctx context.Context, ev ir.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// Log writes each event to a structured logger at Info.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier. A nil logger selects slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify logs ev using its literal message.
func (l *Log) Notify(ctx context.Context, ev ir.Event) {
	l.logger.InfoContext(ctx, ev.Message,
		"seq", ev.Seq,
		"kind", string(ev.Kind),
		"address", ev.Address.String(),
		"owner", ev.Owner.String(),
		"value", ev.Value,
		"event_id", ev.ID,
	)
}

// Recorder captures events in delivery order.
//
// Thread-safety: safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []ir.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify appends ev.
func (r *Recorder) Notify(_ context.Context, ev ir.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []ir.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Messages returns the captured messages in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Message
	}
	return out
}

// Len returns the number of captured events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset discards captured events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
