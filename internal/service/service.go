// ABOUTME: The manager service tying gate, store, arbiter, and notifier
// ABOUTME: Owns the enabled and notifications flags and the boot latch

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pdguard/pdguard/internal/authz"
	"github.com/pdguard/pdguard/internal/installed"
	"github.com/pdguard/pdguard/internal/metrics"
	"github.com/pdguard/pdguard/internal/notify"
	"github.com/pdguard/pdguard/internal/policy"
	"github.com/pdguard/pdguard/internal/settings"
	"github.com/pdguard/pdguard/internal/store"
)

// Version is reported to clients for compatibility checks.
const Version = "1.51"

// Service is the privacy-settings authority. Every public method checks
// the caller's identity against the gate before touching state.
type Service struct {
	store    store.Store
	gate     *authz.Gate
	notifier *notify.Notifier
	arbiter  *policy.Arbiter
	lister   installed.Lister
	resolver installed.UIDResolver
	logger   *slog.Logger

	enabled atomic.Bool
}

// Options carries the optional collaborators.
type Options struct {
	// Lister feeds purge; nil disables purge runs.
	Lister installed.Lister
	// Resolver backs per-UID lookups; nil disables them.
	Resolver installed.UIDResolver
}

// New wires a service and restores the persisted flag state.
func New(ctx context.Context, st store.Store, gate *authz.Gate, notifier *notify.Notifier, opts Options, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:    st,
		gate:     gate,
		notifier: notifier,
		arbiter:  policy.New(st, notifier, logger),
		lister:   opts.Lister,
		resolver: opts.Resolver,
		logger:   logger.With("component", "service"),
	}

	enabled, err := st.GetValue(ctx, store.SettingEnabled)
	if err != nil {
		return nil, fmt.Errorf("restoring enabled flag: %w", err)
	}
	s.enabled.Store(enabled != store.ValueFalse)

	notifEnabled, err := st.GetValue(ctx, store.SettingNotificationsEnabled)
	if err != nil {
		return nil, fmt.Errorf("restoring notifications flag: %w", err)
	}
	notifier.SetEnabled(notifEnabled != store.ValueFalse)

	return s, nil
}

// Version reports the service version string.
func (s *Service) Version() string { return Version }

// Enabled reports whether enforcement is on.
func (s *Service) Enabled() bool { return s.enabled.Load() }

// GetSettings returns a package's record. With enforcement disabled every
// lookup reports no restriction, regardless of stored state.
func (s *Service) GetSettings(ctx context.Context, packageName string) (*settings.Record, error) {
	if err := s.gate.AuthorizeRead(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return nil, err
	}
	if !s.enabled.Load() {
		return nil, nil
	}
	return s.store.GetSettings(ctx, packageName)
}

// GetSettingsMany resolves a batch, one slot per input package.
func (s *Service) GetSettingsMany(ctx context.Context, packageNames []string) ([]*settings.Record, error) {
	if err := s.gate.AuthorizeRead(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return nil, err
	}
	if !s.enabled.Load() {
		return make([]*settings.Record, len(packageNames)), nil
	}
	return s.store.GetSettingsMany(ctx, packageNames)
}

// GetSettingsAll returns every stored record.
func (s *Service) GetSettingsAll(ctx context.Context) ([]*settings.Record, error) {
	if err := s.gate.AuthorizeRead(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return nil, err
	}
	return s.store.GetSettingsAll(ctx)
}

// GetSettingsByUID resolves a UID to its package set and returns the
// settings for each. An unknown UID yields an empty result.
func (s *Service) GetSettingsByUID(ctx context.Context, uid int) ([]*settings.Record, error) {
	if err := s.gate.AuthorizeRead(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return nil, err
	}
	if s.resolver == nil {
		return []*settings.Record{}, nil
	}
	pkgs, err := s.resolver.PackagesForUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("resolving uid %d: %w", uid, err)
	}
	recs := make([]*settings.Record, 0, len(pkgs))
	for _, pkg := range pkgs {
		rec, err := s.store.GetSettings(ctx, pkg)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Decide arbitrates one access. With enforcement disabled every access is
// allowed without an event.
func (s *Service) Decide(ctx context.Context, packageName string, category settings.Category) (policy.Decision, error) {
	if err := s.gate.AuthorizeRead(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return policy.Decision{}, err
	}
	if !s.enabled.Load() {
		return policy.Decision{
			PackageName: packageName,
			UID:         settings.UnknownUID,
			Category:    category,
			Mode:        settings.ModeReal,
		}, nil
	}
	return s.arbiter.Decide(ctx, packageName, category), nil
}

// SaveSettings persists a record after the write gate clears it.
func (s *Service) SaveSettings(ctx context.Context, rec *settings.Record) error {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	if err := s.store.SaveSettings(ctx, rec); err != nil {
		metrics.StoreFailures.Inc()
		return err
	}
	s.logger.Info("settings saved", "package", rec.PackageName, "uid", rec.UID)
	return nil
}

// SaveSettingsMany persists a batch with per-record verdicts.
func (s *Service) SaveSettingsMany(ctx context.Context, recs []*settings.Record) ([]error, error) {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return nil, err
	}
	results, err := s.store.SaveSettingsMany(ctx, recs)
	if err != nil {
		metrics.StoreFailures.Inc()
		return nil, err
	}
	return results, nil
}

// DeleteSettings removes one package's record.
func (s *Service) DeleteSettings(ctx context.Context, packageName string) (bool, error) {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return false, err
	}
	ok, err := s.store.DeleteSettings(ctx, packageName)
	if err != nil {
		metrics.StoreFailures.Inc()
		return false, err
	}
	if ok {
		s.logger.Info("settings deleted", "package", packageName)
	}
	return ok, nil
}

// DeleteSettingsMany removes a batch of records.
func (s *Service) DeleteSettingsMany(ctx context.Context, packageNames []string) (store.DeleteResult, error) {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return store.DeleteResult{}, err
	}
	return s.store.DeleteSettingsMany(ctx, packageNames)
}

// DeleteSettingsAll wipes every record.
func (s *Service) DeleteSettingsAll(ctx context.Context) (int, error) {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return 0, err
	}
	n, err := s.store.DeleteSettingsAll(ctx)
	if err != nil {
		metrics.StoreFailures.Inc()
		return 0, err
	}
	s.logger.Warn("all settings deleted", "count", n)
	return n, nil
}

// Purge reconciles the store against the installed-package set.
func (s *Service) Purge(ctx context.Context) error {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	if s.lister == nil {
		s.logger.Debug("purge skipped, no installed-package source")
		return nil
	}
	pkgs, err := s.lister.List(ctx)
	if err != nil {
		metrics.PurgeRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("listing installed packages: %w", err)
	}
	if err := s.store.PurgeSettings(ctx, pkgs); err != nil {
		metrics.PurgeRuns.WithLabelValues("error").Inc()
		return err
	}
	metrics.PurgeRuns.WithLabelValues("ok").Inc()
	s.logger.Info("purge completed", "installed", len(pkgs))
	return nil
}

// Notify publishes an access event reported by an external consumer that
// resolved a value itself.
func (s *Service) Notify(ctx context.Context, packageName string, uid int, mode settings.Mode, category settings.Category, output string) error {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	metrics.EventsPublished.Inc()
	s.notifier.Publish(ctx, notify.Event{
		PackageName: packageName,
		UID:         uid,
		Mode:        mode.String(),
		DataTag:     string(category),
		Output:      output,
	})
	return nil
}

// SetEnabled toggles enforcement and persists the flag.
func (s *Service) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	value := store.ValueTrue
	if !enabled {
		value = store.ValueFalse
	}
	if err := s.store.SetValue(ctx, store.SettingEnabled, value); err != nil {
		return err
	}
	s.enabled.Store(enabled)
	s.logger.Info("enforcement flag changed", "enabled", enabled)
	return nil
}

// SetNotificationsEnabled toggles event broadcasting and persists the flag.
func (s *Service) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	value := store.ValueTrue
	if !enabled {
		value = store.ValueFalse
	}
	if err := s.store.SetValue(ctx, store.SettingNotificationsEnabled, value); err != nil {
		return err
	}
	s.notifier.SetEnabled(enabled)
	s.logger.Info("notifications flag changed", "enabled", enabled)
	return nil
}

// NotificationsEnabled reports the broadcast flag.
func (s *Service) NotificationsEnabled() bool { return s.notifier.Enabled() }

// SetBootCompleted releases the notification latch. One way.
func (s *Service) SetBootCompleted(ctx context.Context) error {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	s.notifier.SetBootCompleted()
	s.logger.Info("boot completed, notifications unlatched")
	return nil
}

// BootCompleted reports the latch state.
func (s *Service) BootCompleted() bool { return s.notifier.BootCompleted() }

// AuthorizeKey registers a management application's public key.
func (s *Service) AuthorizeKey(ctx context.Context, packageName, pubkey string) error {
	if err := s.gate.AuthorizeManage(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	fp, err := authz.FingerprintFromKey(pubkey)
	if err != nil {
		return fmt.Errorf("parsing key for %s: %w", packageName, err)
	}
	return s.store.AuthorizeApp(ctx, store.AuthorizedApp{
		PackageName: packageName,
		Kind:        store.KindKey,
		Fingerprint: fp,
	})
}

// DeauthorizeKeys revokes every key credential for a package.
func (s *Service) DeauthorizeKeys(ctx context.Context, packageName string) error {
	if err := s.gate.AuthorizeManage(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	return s.store.DeauthorizeApp(ctx, packageName, store.KindKey)
}

// AuthorizeSignature registers a signing-certificate digest.
func (s *Service) AuthorizeSignature(ctx context.Context, packageName, digest string) error {
	if err := s.gate.AuthorizeManage(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	return s.store.AuthorizeApp(ctx, store.AuthorizedApp{
		PackageName: packageName,
		Kind:        store.KindSignature,
		Fingerprint: digest,
	})
}

// DeauthorizeSignatures revokes every signature credential for a package.
func (s *Service) DeauthorizeSignatures(ctx context.Context, packageName string) error {
	if err := s.gate.AuthorizeManage(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	return s.store.DeauthorizeApp(ctx, packageName, store.KindSignature)
}

// ListAuthorizedApps returns the credential registry.
func (s *Service) ListAuthorizedApps(ctx context.Context) ([]store.AuthorizedApp, error) {
	if err := s.gate.AuthorizeManage(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return nil, err
	}
	return s.store.ListAuthorizedApps(ctx)
}

// GetValue reads a flag from the store.
func (s *Service) GetValue(ctx context.Context, name string) (string, error) {
	if err := s.gate.AuthorizeRead(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return "", err
	}
	return s.store.GetValue(ctx, name)
}

// SetValue writes a flag to the store.
func (s *Service) SetValue(ctx context.Context, name, value string) error {
	if err := s.gate.AuthorizeWrite(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return err
	}
	return s.store.SetValue(ctx, name, value)
}

// RecentAccess returns the newest audit entries.
func (s *Service) RecentAccess(ctx context.Context, limit int) ([]store.AccessEntry, error) {
	if err := s.gate.AuthorizeRead(ctx, authz.FromContext(ctx)); err != nil {
		metrics.AuthDenials.Inc()
		return nil, err
	}
	return s.store.RecentAccess(ctx, limit)
}
