// Package notify carries the toast style messages the boarding flow shows to
// the user: save confirmations, persistence warnings and submission failures.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Variant controls how a notification is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantWarning     Variant = "warning"
	VariantDestructive Variant = "destructive"
)

// Notification is a single user facing message.
type Notification struct {
	Variant     Variant `json:"variant"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
}

// Notifier delivers notifications to whatever surface is active.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) {
	if f != nil {
		f(ctx, n)
	}
}

// Nop discards every notification.
var Nop Notifier = Func(func(context.Context, Notification) {})

// Logger writes notifications to a zerolog logger. Destructive notifications
// are logged at warn level.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Notify(_ context.Context, n Notification) {
	evt := l.logger.Info()
	if n.Variant == VariantDestructive || n.Variant == VariantWarning {
		evt = l.logger.Warn()
	}
	evt.Str("variant", string(n.Variant)).Str("title", n.Title).Msg(n.Description)
}

// Recorder keeps every notification in memory. HTTP handlers drain it into
// responses and tests assert on it.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// All returns the recorded notifications without clearing them.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}
