// ABOUTME: Best-effort fan-out of data-access events to subscribers
// ABOUTME: Suppressed until boot completes and notifications are enabled

package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pdguard/pdguard/internal/store"
)

// Event is one data-access decision, broadcast to observers and appended to
// the persistent access log.
type Event struct {
	ID          string    `json:"id"`
	PackageName string    `json:"package_name"`
	UID         int       `json:"uid"`
	Mode        string    `json:"mode"`
	DataTag     string    `json:"data_tag"`
	Output      string    `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AccessAppender is the slice of the store the notifier needs.
type AccessAppender interface {
	AppendAccess(ctx context.Context, entry store.AccessEntry) error
}

// Notifier fans events out to in-process subscribers and persists them.
// Everything it does is best effort: a full subscriber drops the event, a
// failed append is logged and swallowed. A decision never fails because its
// notification could not be delivered.
type Notifier struct {
	logger *slog.Logger
	log    AccessAppender

	bootCompleted atomic.Bool
	enabled       atomic.Bool

	mu   sync.RWMutex
	subs map[string]chan Event
}

// subscriberBuffer is the per-subscriber channel depth; events beyond it
// are dropped, not queued.
const subscriberBuffer = 16

// New creates a notifier. log may be nil to skip persistence (tests).
// Notifications start enabled but latched until SetBootCompleted.
func New(log AccessAppender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		logger: logger.With("component", "notify"),
		log:    log,
		subs:   make(map[string]chan Event),
	}
	n.enabled.Store(true)
	return n
}

// SetBootCompleted releases the startup latch. One-way: the latch never
// re-arms during a process lifetime.
func (n *Notifier) SetBootCompleted() {
	n.bootCompleted.Store(true)
}

// BootCompleted reports the latch state.
func (n *Notifier) BootCompleted() bool {
	return n.bootCompleted.Load()
}

// SetEnabled toggles broadcasting. Persistence of the matching flag is the
// caller's concern.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Enabled reports whether broadcasting is on.
func (n *Notifier) Enabled() bool {
	return n.enabled.Load()
}

// Subscribe registers an observer. The returned cancel func must be called
// to release the subscription; the channel is closed by cancel.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	n.mu.Lock()
	n.subs[id] = ch
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if existing, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(existing)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish stamps the event with an ID and timestamp, persists it, and fans
// it out. Broadcast is suppressed until boot completes and while disabled;
// the audit append happens regardless.
func (n *Notifier) Publish(ctx context.Context, ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if n.log != nil {
		entry := store.AccessEntry{
			ID:          ev.ID,
			PackageName: ev.PackageName,
			UID:         ev.UID,
			DataTag:     ev.DataTag,
			Mode:        ev.Mode,
			Output:      ev.Output,
			CreatedAt:   ev.Timestamp,
		}
		if err := n.log.AppendAccess(ctx, entry); err != nil {
			n.logger.Warn("access log append failed",
				"package", ev.PackageName, "tag", ev.DataTag, "error", err)
		}
	}

	if !n.bootCompleted.Load() || !n.enabled.Load() {
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for id, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			n.logger.Debug("dropping event for slow subscriber",
				"subscriber", id, "package", ev.PackageName)
		}
	}
}

// SubscriberCount reports how many observers are registered.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
