// ABOUTME: Store interface, sentinel errors, and shared persistence types
// ABOUTME: Implementations provide transactional settings storage with mirroring

package store

import (
	"context"
	"errors"
	"time"

	"github.com/pdguard/pdguard/internal/settings"
)

// Sentinel errors. Expected absence is a nil/false return, never an error;
// these mark malfunction or refusal.
var (
	// ErrStoreUnavailable means the backing database could not be reached
	// even after retrying.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIntegrityViolation means the store found state that must not exist,
	// such as duplicate rows for one package during a save.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrMalformedInput means a caller-supplied record cannot be persisted.
	ErrMalformedInput = errors.New("malformed input")

	// ErrMirrorWrite means the plaintext mirror could not be written; the
	// enclosing transaction is rolled back when it occurs.
	ErrMirrorWrite = errors.New("mirror write failed")
)

// Flag names in the map table.
const (
	SettingEnabled              = "enabled"
	SettingNotificationsEnabled = "notifications_enabled"
	SettingDBVersion            = "db_version"

	ValueTrue  = "1"
	ValueFalse = "0"
)

const (
	schemaVersion = 4
	retryAttempts = 5
)

// Authorized-app credential kinds.
const (
	KindKey       = "key"
	KindSignature = "signature"
)

// AuthorizedApp is one registry row granting a management application the
// right to mutate settings.
type AuthorizedApp struct {
	PackageName string    `json:"package_name"`
	Kind        string    `json:"kind"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessEntry is one persisted audit record of a data-access decision.
type AccessEntry struct {
	ID          string    `json:"id"`
	PackageName string    `json:"package_name"`
	UID         int       `json:"uid"`
	DataTag     string    `json:"data_tag"`
	Mode        string    `json:"mode"`
	Output      string    `json:"output"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeleteResult reports the outcome of a batch delete.
type DeleteResult struct {
	Deleted int      `json:"deleted"`
	Missing []string `json:"missing,omitempty"`
}

// Store is the persistence boundary for privacy settings, flags, the
// authorized-app registry, and the access log.
type Store interface {
	// GetSettings returns the record for a package, or (nil, nil) when no
	// record exists.
	GetSettings(ctx context.Context, packageName string) (*settings.Record, error)

	// GetSettingsMany resolves a batch of packages. The result has one slot
	// per input package, nil where no record exists.
	GetSettingsMany(ctx context.Context, packageNames []string) ([]*settings.Record, error)

	// GetSettingsAll returns every stored record.
	GetSettingsAll(ctx context.Context) ([]*settings.Record, error)

	// SaveSettings upserts one record and rewrites its mirror files in a
	// single transaction. On success the record's ID is populated.
	SaveSettings(ctx context.Context, rec *settings.Record) error

	// SaveSettingsMany saves a batch inside one transaction with per-record
	// outcomes: the returned slice has one error slot per input record, nil
	// on success. A failed record does not poison its neighbours.
	SaveSettingsMany(ctx context.Context, recs []*settings.Record) ([]error, error)

	// DeleteSettings removes a package's record, child rows, and mirror
	// files. Returns false when no record existed.
	DeleteSettings(ctx context.Context, packageName string) (bool, error)

	// DeleteSettingsMany removes a batch of records.
	DeleteSettingsMany(ctx context.Context, packageNames []string) (DeleteResult, error)

	// DeleteSettingsAll removes every record and returns how many went.
	DeleteSettingsAll(ctx context.Context) (int, error)

	// PurgeSettings reconciles the store against the installed-package set:
	// drops records for absent packages, collapses duplicate rows, and
	// prunes orphaned mirror directories.
	PurgeSettings(ctx context.Context, installed []string) error

	// GetValue reads a flag from the map table ("" when unset).
	GetValue(ctx context.Context, name string) (string, error)

	// SetValue writes a flag to the map table.
	SetValue(ctx context.Context, name, value string) error

	// AuthorizeApp adds a registry row; idempotent.
	AuthorizeApp(ctx context.Context, app AuthorizedApp) error

	// DeauthorizeApp removes all registry rows of one kind for a package.
	DeauthorizeApp(ctx context.Context, packageName, kind string) error

	// IsAppAuthorized reports whether a matching registry row exists.
	IsAppAuthorized(ctx context.Context, packageName, kind, fingerprint string) (bool, error)

	// ListAuthorizedApps returns the whole registry.
	ListAuthorizedApps(ctx context.Context) ([]AuthorizedApp, error)

	// AppendAccess persists one audit entry. Best effort by contract: the
	// caller logs and swallows failures.
	AppendAccess(ctx context.Context, entry AccessEntry) error

	// RecentAccess returns the newest audit entries, newest first.
	RecentAccess(ctx context.Context, limit int) ([]AccessEntry, error)

	// Close releases the database handle once in-flight work drains.
	Close() error
}
