// ABOUTME: The arbiter maps (package, category) to an access decision
// ABOUTME: Absent records allow, store failures fail closed to EMPTY

package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdguard/pdguard/internal/metrics"
	"github.com/pdguard/pdguard/internal/notify"
	"github.com/pdguard/pdguard/internal/settings"
)

// ErrUnknownCategory marks a decision request for a category the record
// model does not know.
var ErrUnknownCategory = errors.New("unknown data category")

// SettingsReader is the slice of the store the arbiter reads from.
type SettingsReader interface {
	GetSettings(ctx context.Context, packageName string) (*settings.Record, error)
}

// Publisher receives one event per decision, success or failure.
type Publisher interface {
	Publish(ctx context.Context, ev notify.Event)
}

// Decision is the arbiter's verdict for one access.
type Decision struct {
	PackageName string            `json:"package_name"`
	UID         int               `json:"uid"`
	Category    settings.Category `json:"category"`
	Mode        settings.Mode     `json:"mode"`
	Output      string            `json:"output,omitempty"`
	Err         error             `json:"-"`
}

// Allowed reports whether the caller may see the real value.
func (d Decision) Allowed() bool {
	return d.Err == nil && d.Mode == settings.ModeReal
}

// Arbiter resolves access decisions. It never returns real data on a
// failure path: a store error yields an EMPTY decision carrying the error.
type Arbiter struct {
	reader   SettingsReader
	notifier Publisher
	logger   *slog.Logger
}

// New creates an arbiter. notifier may be nil to skip event emission.
func New(reader SettingsReader, notifier Publisher, logger *slog.Logger) *Arbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{
		reader:   reader,
		notifier: notifier,
		logger:   logger.With("component", "policy"),
	}
}

// Decide resolves one access. Every call produces exactly one event on the
// notification channel, whether the decision succeeded or failed.
func (a *Arbiter) Decide(ctx context.Context, packageName string, category settings.Category) Decision {
	rec, err := a.reader.GetSettings(ctx, packageName)
	if err != nil {
		// fail closed: the caller gets the empty substitute, never the
		// real value, and the event records the malfunction
		a.logger.Error("settings lookup failed, failing closed",
			"package", packageName, "category", category, "error", err)
		metrics.DecisionFailures.Inc()
		d := Decision{
			PackageName: packageName,
			UID:         settings.UnknownUID,
			Category:    category,
			Mode:        settings.ModeEmpty,
			Output:      emptyOutput(category),
			Err:         fmt.Errorf("resolving settings: %w", err),
		}
		a.publish(ctx, d, true)
		return d
	}

	if rec == nil {
		// no record means no restriction
		d := Decision{
			PackageName: packageName,
			UID:         settings.UnknownUID,
			Category:    category,
			Mode:        settings.ModeReal,
		}
		a.publish(ctx, d, true)
		return d
	}

	mode, ok := rec.ModeFor(category)
	if !ok {
		d := Decision{
			PackageName: packageName,
			UID:         rec.UID,
			Category:    category,
			Mode:        settings.ModeEmpty,
			Err:         fmt.Errorf("category %q: %w", category, ErrUnknownCategory),
		}
		a.publish(ctx, d, true)
		return d
	}

	d := Decision{
		PackageName: packageName,
		UID:         rec.UID,
		Category:    category,
		Mode:        mode,
		Output:      rec.EffectiveValue(category),
	}
	a.publish(ctx, d, rec.NotificationMode == settings.NotifyOn)
	return d
}

// publish emits the decision's event. Error events always go out; success
// events respect the record's per-package notification setting.
func (a *Arbiter) publish(ctx context.Context, d Decision, wanted bool) {
	metrics.Decisions.WithLabelValues(d.Mode.String()).Inc()
	if a.notifier == nil {
		return
	}
	if d.Err == nil && !wanted {
		return
	}
	ev := notify.Event{
		PackageName: d.PackageName,
		UID:         d.UID,
		Mode:        d.Mode.String(),
		DataTag:     string(d.Category),
		Output:      d.Output,
	}
	if d.Err != nil {
		ev.Error = d.Err.Error()
	}
	metrics.EventsPublished.Inc()
	a.notifier.Publish(ctx, ev)
}

// emptyOutput is the EMPTY substitute for a category's value. Android ID
// gets its fixed placeholder; everything else is the empty string.
func emptyOutput(category settings.Category) string {
	if category == settings.DataAndroidID {
		return settings.EmptyAndroidID
	}
	return ""
}
