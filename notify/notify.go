// Package notify delivers the transient, auto-dismissing notices the user
// sees after an undo or a failed translation. The package owns timing and
// delivery only; rendering is a sink concern (the page script positions and
// styles the element).
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDismiss is how long a notice stays visible.
const DefaultDismiss = 1500 * time.Millisecond

// Level classifies a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is one transient message.
type Notice struct {
	ID    int    `json:"id"`
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Sink receives notices and their dismissals.
type Sink interface {
	Show(Notice)
	Dismiss(id int)
}

// Notifier posts notices to a sink and dismisses each one after a fixed
// duration. Safe for concurrent use.
type Notifier struct {
	sink    Sink
	dismiss time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	nextID int
	timers map[int]*time.Timer
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDismissAfter overrides the auto-dismiss duration.
func WithDismissAfter(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.dismiss = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New creates a Notifier delivering to sink.
func New(sink Sink, opts ...Option) *Notifier {
	n := &Notifier{
		sink:    sink,
		dismiss: DefaultDismiss,
		logger:  slog.Default(),
		timers:  make(map[int]*time.Timer),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Info posts an informational notice (e.g. undo confirmation).
func (n *Notifier) Info(text string) { n.post(LevelInfo, text) }

// Error posts an error notice. Errors are also logged so failures survive
// past the dismiss window.
func (n *Notifier) Error(text string) {
	n.logger.Error("user-visible error", "text", text)
	n.post(LevelError, text)
}

func (n *Notifier) post(level Level, text string) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.mu.Unlock()

	// The sink must see the notice before its dismissal can fire.
	n.sink.Show(Notice{ID: id, Level: level, Text: text})

	n.mu.Lock()
	n.timers[id] = time.AfterFunc(n.dismiss, func() {
		n.mu.Lock()
		delete(n.timers, id)
		n.mu.Unlock()
		n.sink.Dismiss(id)
	})
	n.mu.Unlock()
}

// Close cancels all pending dismiss timers.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
