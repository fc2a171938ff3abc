// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Settings rows, allowed-contacts child rows, flag table, mirror rewrite

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdguard/pdguard/internal/settings"
)

// SQLiteStore implements Store on a single SQLite file plus a plaintext
// mirror tree. Reads run under WAL snapshot isolation; writes serialize on
// writeMu in addition to the engine's own write lock.
type SQLiteStore struct {
	path      string
	mirrorDir string
	logger    *slog.Logger

	handle  *handleRef
	retry   retryPolicy
	writeMu chan struct{}

	// mirrorWrite is swapped out in tests to force mirror failures.
	mirrorWrite func(packageName, name, value string) error

	// readHook, when set, runs after a read attempt scans its rows; tests
	// use it to fail an attempt partway through.
	readHook func() error
}

// NewSQLiteStore opens (or creates) the settings database at path and roots
// the mirror tree at mirrorDir. Schema creation and migration run before
// the store is returned.
func NewSQLiteStore(path, mirrorDir string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	for _, dir := range []string{filepath.Dir(path), mirrorDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	s := &SQLiteStore{
		path:      path,
		mirrorDir: mirrorDir,
		logger:    logger,
		handle:    newHandleRef(path),
		retry:     retryPolicy{attempts: retryAttempts},
		writeMu:   make(chan struct{}, 1),
	}
	s.mirrorWrite = s.writeMirrorSetting

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	logger.Info("sqlite store initialized", "path", path, "mirror", mirrorDir)
	return s, nil
}

// Close drains and releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.handle.close()
}

func (s *SQLiteStore) lockWrite() func() {
	s.writeMu <- struct{}{}
	return func() { <-s.writeMu }
}

// createSchema creates the version-4 tables if they don't exist.
func (s *SQLiteStore) createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			_id INTEGER PRIMARY KEY AUTOINCREMENT,
			package_name TEXT NOT NULL,
			uid INTEGER NOT NULL DEFAULT -1,
			device_id_setting INTEGER NOT NULL DEFAULT 0,
			device_id TEXT NOT NULL DEFAULT '',
			line1_number_setting INTEGER NOT NULL DEFAULT 0,
			line1_number TEXT NOT NULL DEFAULT '',
			location_gps_setting INTEGER NOT NULL DEFAULT 0,
			location_gps_lat TEXT NOT NULL DEFAULT '',
			location_gps_lon TEXT NOT NULL DEFAULT '',
			location_network_setting INTEGER NOT NULL DEFAULT 0,
			location_network_lat TEXT NOT NULL DEFAULT '',
			location_network_lon TEXT NOT NULL DEFAULT '',
			network_info_setting INTEGER NOT NULL DEFAULT 0,
			sim_info_setting INTEGER NOT NULL DEFAULT 0,
			sim_serial_setting INTEGER NOT NULL DEFAULT 0,
			sim_serial TEXT NOT NULL DEFAULT '',
			subscriber_id_setting INTEGER NOT NULL DEFAULT 0,
			subscriber_id TEXT NOT NULL DEFAULT '',
			accounts_setting INTEGER NOT NULL DEFAULT 0,
			accounts_auth_tokens_setting INTEGER NOT NULL DEFAULT 0,
			outgoing_calls_setting INTEGER NOT NULL DEFAULT 0,
			incoming_calls_setting INTEGER NOT NULL DEFAULT 0,
			contacts_setting INTEGER NOT NULL DEFAULT 0,
			calendar_setting INTEGER NOT NULL DEFAULT 0,
			mms_setting INTEGER NOT NULL DEFAULT 0,
			sms_setting INTEGER NOT NULL DEFAULT 0,
			call_log_setting INTEGER NOT NULL DEFAULT 0,
			bookmarks_setting INTEGER NOT NULL DEFAULT 0,
			system_logs_setting INTEGER NOT NULL DEFAULT 0,
			notification_setting INTEGER NOT NULL DEFAULT 0,
			intent_boot_completed_setting INTEGER NOT NULL DEFAULT 0,
			camera_setting INTEGER NOT NULL DEFAULT 0,
			record_audio_setting INTEGER NOT NULL DEFAULT 0,
			sms_send_setting INTEGER NOT NULL DEFAULT 0,
			phone_call_setting INTEGER NOT NULL DEFAULT 0,
			ip_table_protect_setting INTEGER NOT NULL DEFAULT 0,
			icc_access_setting INTEGER NOT NULL DEFAULT 0,
			add_on_management_setting INTEGER NOT NULL DEFAULT 0,
			android_id_setting INTEGER NOT NULL DEFAULT 0,
			android_id TEXT NOT NULL DEFAULT '',
			wifi_info_setting INTEGER NOT NULL DEFAULT 0,
			switch_connectivity_setting INTEGER NOT NULL DEFAULT 0,
			send_mms_setting INTEGER NOT NULL DEFAULT 0,
			force_online_state_setting INTEGER NOT NULL DEFAULT 0,
			switch_wifi_state_setting INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_settings_package
			ON settings(package_name);

		CREATE TABLE IF NOT EXISTS allowed_contacts (
			settings_id INTEGER NOT NULL,
			contact_id INTEGER NOT NULL,
			PRIMARY KEY (settings_id, contact_id)
		);

		CREATE TABLE IF NOT EXISTS map (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS authorized_apps (
			package_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (package_name, kind, fingerprint)
		);

		CREATE TABLE IF NOT EXISTS access_log (
			id TEXT PRIMARY KEY,
			package_name TEXT NOT NULL,
			uid INTEGER NOT NULL,
			data_tag TEXT NOT NULL,
			mode TEXT NOT NULL,
			output TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_access_log_created
			ON access_log(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	seed := `INSERT OR IGNORE INTO map (name, value) VALUES (?, ?)`
	for _, kv := range [][2]string{
		{SettingEnabled, ValueTrue},
		{SettingNotificationsEnabled, ValueTrue},
		{SettingDBVersion, fmt.Sprintf("%d", schemaVersion)},
	} {
		if _, err := db.Exec(seed, kv[0], kv[1]); err != nil {
			return fmt.Errorf("seeding flag %s: %w", kv[0], err)
		}
	}
	return nil
}

// settingsCols is every settings column except _id, in insert order.
const settingsCols = `package_name, uid,
	device_id_setting, device_id,
	line1_number_setting, line1_number,
	location_gps_setting, location_gps_lat, location_gps_lon,
	location_network_setting, location_network_lat, location_network_lon,
	network_info_setting, sim_info_setting,
	sim_serial_setting, sim_serial,
	subscriber_id_setting, subscriber_id,
	accounts_setting, accounts_auth_tokens_setting,
	outgoing_calls_setting, incoming_calls_setting,
	contacts_setting, calendar_setting,
	mms_setting, sms_setting, call_log_setting, bookmarks_setting,
	system_logs_setting, notification_setting,
	intent_boot_completed_setting, camera_setting, record_audio_setting,
	sms_send_setting, phone_call_setting,
	ip_table_protect_setting, icc_access_setting, add_on_management_setting,
	android_id_setting, android_id,
	wifi_info_setting, switch_connectivity_setting, send_mms_setting,
	force_online_state_setting, switch_wifi_state_setting`

const settingsPlaceholders = `?, ?,
	?, ?,
	?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?,
	?, ?,
	?, ?,
	?, ?,
	?, ?,
	?, ?,
	?, ?, ?, ?,
	?, ?,
	?, ?, ?,
	?, ?,
	?, ?, ?,
	?, ?,
	?, ?, ?,
	?, ?`

// recordArgs lists a record's values in settingsCols order.
func recordArgs(r *settings.Record) []any {
	return []any{
		r.PackageName, r.UID,
		r.DeviceIDMode, r.DeviceID,
		r.Line1NumberMode, r.Line1Number,
		r.LocationGPSMode, r.LocationGPSLat, r.LocationGPSLon,
		r.LocationNetworkMode, r.LocationNetworkLat, r.LocationNetworkLon,
		r.NetworkInfoMode, r.SimInfoMode,
		r.SimSerialMode, r.SimSerial,
		r.SubscriberIDMode, r.SubscriberID,
		r.AccountsMode, r.AccountsAuthTokensMode,
		r.OutgoingCallsMode, r.IncomingCallsMode,
		r.ContactsMode, r.CalendarMode,
		r.MMSMode, r.SMSMode, r.CallLogMode, r.BookmarksMode,
		r.SystemLogsMode, r.NotificationMode,
		r.IntentBootCompletedMode, r.CameraMode, r.RecordAudioMode,
		r.SMSSendMode, r.PhoneCallMode,
		r.IPTableProtectMode, r.ICCAccessMode, r.AddOnManagementMode,
		r.AndroidIDMode, r.AndroidID,
		r.WifiInfoMode, r.SwitchConnectivityMode, r.SendMMSMode,
		r.ForceOnlineStateMode, r.SwitchWifiStateMode,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one settings row (with the _id column first).
func scanRecord(row rowScanner) (*settings.Record, error) {
	var r settings.Record
	var id int64
	err := row.Scan(
		&id,
		&r.PackageName, &r.UID,
		&r.DeviceIDMode, &r.DeviceID,
		&r.Line1NumberMode, &r.Line1Number,
		&r.LocationGPSMode, &r.LocationGPSLat, &r.LocationGPSLon,
		&r.LocationNetworkMode, &r.LocationNetworkLat, &r.LocationNetworkLon,
		&r.NetworkInfoMode, &r.SimInfoMode,
		&r.SimSerialMode, &r.SimSerial,
		&r.SubscriberIDMode, &r.SubscriberID,
		&r.AccountsMode, &r.AccountsAuthTokensMode,
		&r.OutgoingCallsMode, &r.IncomingCallsMode,
		&r.ContactsMode, &r.CalendarMode,
		&r.MMSMode, &r.SMSMode, &r.CallLogMode, &r.BookmarksMode,
		&r.SystemLogsMode, &r.NotificationMode,
		&r.IntentBootCompletedMode, &r.CameraMode, &r.RecordAudioMode,
		&r.SMSSendMode, &r.PhoneCallMode,
		&r.IPTableProtectMode, &r.ICCAccessMode, &r.AddOnManagementMode,
		&r.AndroidIDMode, &r.AndroidID,
		&r.WifiInfoMode, &r.SwitchConnectivityMode, &r.SendMMSMode,
		&r.ForceOnlineStateMode, &r.SwitchWifiStateMode,
	)
	if err != nil {
		return nil, err
	}
	r.ID = &id
	return &r, nil
}

const selectRecord = `SELECT _id, ` + settingsCols + ` FROM settings`

// GetSettings returns the record for one package, nil when absent. If
// duplicate rows exist the first wins and the anomaly is logged; purge is
// the repair path.
func (s *SQLiteStore) GetSettings(ctx context.Context, packageName string) (*settings.Record, error) {
	var rec *settings.Record
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		rec = nil
		rows, err := db.QueryContext(ctx,
			selectRecord+` WHERE package_name = ? ORDER BY _id`, packageName)
		if err != nil {
			return fmt.Errorf("querying settings: %w", err)
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			count++
			if count == 1 {
				r, err := scanRecord(rows)
				if err != nil {
					return fmt.Errorf("scanning settings row: %w", err)
				}
				rec = r
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating settings rows: %w", err)
		}
		if s.readHook != nil {
			if err := s.readHook(); err != nil {
				return err
			}
		}
		if count > 1 {
			s.logger.Warn("duplicate settings rows found, first wins",
				"package", packageName, "rows", count)
		}
		if rec != nil {
			contacts, err := s.loadAllowedContacts(ctx, db, *rec.ID)
			if err != nil {
				return err
			}
			rec.AllowedContacts = contacts
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetSettingsMany resolves a batch, one slot per input, nil where absent.
// An empty input yields an empty slice.
func (s *SQLiteStore) GetSettingsMany(ctx context.Context, packageNames []string) ([]*settings.Record, error) {
	out := make([]*settings.Record, 0, len(packageNames))
	for _, pkg := range packageNames {
		rec, err := s.GetSettings(ctx, pkg)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetSettingsAll returns every stored record ordered by row ID.
func (s *SQLiteStore) GetSettingsAll(ctx context.Context) ([]*settings.Record, error) {
	var recs []*settings.Record
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		recs = nil
		rows, err := db.QueryContext(ctx, selectRecord+` ORDER BY _id`)
		if err != nil {
			return fmt.Errorf("querying all settings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				return fmt.Errorf("scanning settings row: %w", err)
			}
			recs = append(recs, r)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating settings rows: %w", err)
		}
		for _, r := range recs {
			contacts, err := s.loadAllowedContacts(ctx, db, *r.ID)
			if err != nil {
				return err
			}
			r.AllowedContacts = contacts
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *SQLiteStore) loadAllowedContacts(ctx context.Context, db *sql.DB, settingsID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT contact_id FROM allowed_contacts WHERE settings_id = ? ORDER BY contact_id`,
		settingsID)
	if err != nil {
		return nil, fmt.Errorf("querying allowed contacts: %w", err)
	}
	defer rows.Close()

	var contacts []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning contact id: %w", err)
		}
		contacts = append(contacts, id)
	}
	return contacts, rows.Err()
}

// SaveSettings upserts a record, replaces its allowed-contacts rows, and
// rewrites its mirror files, all in one transaction. Finding more than one
// existing row for the package fails the save with ErrIntegrityViolation.
func (s *SQLiteStore) SaveSettings(ctx context.Context, rec *settings.Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	unlock := s.lockWrite()
	defer unlock()

	return s.retry.run(s.handle, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning save transaction: %w", err)
		}
		defer tx.Rollback()

		id, err := s.saveInTx(ctx, tx, rec)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing save: %w", err)
		}
		rec.ID = &id
		return nil
	})
}

// saveInTx performs the row upsert, contacts replacement, and mirror
// rewrite for one record inside an open transaction.
func (s *SQLiteStore) saveInTx(ctx context.Context, tx *sql.Tx, rec *settings.Record) (int64, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM settings WHERE package_name = ?`, rec.PackageName).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting existing rows: %w", err)
	}

	var id int64
	switch {
	case count > 1:
		return 0, fmt.Errorf("package %s has %d settings rows: %w",
			rec.PackageName, count, ErrIntegrityViolation)
	case count == 1:
		if err := tx.QueryRowContext(ctx,
			`SELECT _id FROM settings WHERE package_name = ?`, rec.PackageName).
			Scan(&id); err != nil {
			return 0, fmt.Errorf("resolving row id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			updateSettingsSQL, append(recordArgs(rec), id)...); err != nil {
			return 0, fmt.Errorf("updating settings row: %w", err)
		}
	default:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO settings (`+settingsCols+`) VALUES (`+settingsPlaceholders+`)`,
			recordArgs(rec)...)
		if err != nil {
			return 0, fmt.Errorf("inserting settings row: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading inserted row id: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM allowed_contacts WHERE settings_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clearing allowed contacts: %w", err)
	}
	for _, cid := range rec.AllowedContacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO allowed_contacts (settings_id, contact_id) VALUES (?, ?)`,
			id, cid); err != nil {
			return 0, fmt.Errorf("inserting allowed contact: %w", err)
		}
	}

	// Mirror rewrite is part of the save: a failed file write aborts the
	// whole transaction so row and mirror never diverge.
	for _, m := range mirroredSettings(rec) {
		if err := s.mirrorWrite(rec.PackageName, m.name, m.value); err != nil {
			return 0, fmt.Errorf("mirroring %s: %w", m.name, errors.Join(ErrMirrorWrite, err))
		}
	}
	return id, nil
}

var updateSettingsSQL = `UPDATE settings SET
	package_name = ?, uid = ?,
	device_id_setting = ?, device_id = ?,
	line1_number_setting = ?, line1_number = ?,
	location_gps_setting = ?, location_gps_lat = ?, location_gps_lon = ?,
	location_network_setting = ?, location_network_lat = ?, location_network_lon = ?,
	network_info_setting = ?, sim_info_setting = ?,
	sim_serial_setting = ?, sim_serial = ?,
	subscriber_id_setting = ?, subscriber_id = ?,
	accounts_setting = ?, accounts_auth_tokens_setting = ?,
	outgoing_calls_setting = ?, incoming_calls_setting = ?,
	contacts_setting = ?, calendar_setting = ?,
	mms_setting = ?, sms_setting = ?, call_log_setting = ?, bookmarks_setting = ?,
	system_logs_setting = ?, notification_setting = ?,
	intent_boot_completed_setting = ?, camera_setting = ?, record_audio_setting = ?,
	sms_send_setting = ?, phone_call_setting = ?,
	ip_table_protect_setting = ?, icc_access_setting = ?, add_on_management_setting = ?,
	android_id_setting = ?, android_id = ?,
	wifi_info_setting = ?, switch_connectivity_setting = ?, send_mms_setting = ?,
	force_online_state_setting = ?, switch_wifi_state_setting = ?
	WHERE _id = ?`

// SaveSettingsMany saves a batch inside one transaction using savepoints so
// a failed record rolls back alone. The outer error is reserved for store
// malfunction; per-record verdicts land in the returned slice.
func (s *SQLiteStore) SaveSettingsMany(ctx context.Context, recs []*settings.Record) ([]error, error) {
	results := make([]error, len(recs))
	if len(recs) == 0 {
		return results, nil
	}
	unlock := s.lockWrite()
	defer unlock()

	err := s.retry.run(s.handle, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning batch transaction: %w", err)
		}
		defer tx.Rollback()

		for i, rec := range recs {
			if err := validateRecord(rec); err != nil {
				results[i] = err
				continue
			}
			sp := fmt.Sprintf("save_%d", i)
			if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
				return fmt.Errorf("creating savepoint: %w", err)
			}
			id, err := s.saveInTx(ctx, tx, rec)
			if err != nil {
				results[i] = err
				if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO "+sp); rbErr != nil {
					return fmt.Errorf("rolling back savepoint: %w", rbErr)
				}
				continue
			}
			rec.ID = &id
			if _, err := tx.ExecContext(ctx, "RELEASE "+sp); err != nil {
				return fmt.Errorf("releasing savepoint: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteSettings removes a package's row(s), child rows, and mirror files.
func (s *SQLiteStore) DeleteSettings(ctx context.Context, packageName string) (bool, error) {
	unlock := s.lockWrite()
	defer unlock()

	var deleted bool
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning delete transaction: %w", err)
		}
		defer tx.Rollback()

		n, err := s.deleteInTx(ctx, tx, packageName)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing delete: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.removeMirror(packageName)
	}
	return deleted, nil
}

func (s *SQLiteStore) deleteInTx(ctx context.Context, tx *sql.Tx, packageName string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM allowed_contacts WHERE settings_id IN
			(SELECT _id FROM settings WHERE package_name = ?)`, packageName); err != nil {
		return 0, fmt.Errorf("deleting allowed contacts: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM settings WHERE package_name = ?`, packageName)
	if err != nil {
		return 0, fmt.Errorf("deleting settings row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return n, nil
}

// DeleteSettingsMany removes a batch, reporting how many records existed
// and which packages had nothing to delete.
func (s *SQLiteStore) DeleteSettingsMany(ctx context.Context, packageNames []string) (DeleteResult, error) {
	var result DeleteResult
	for _, pkg := range packageNames {
		ok, err := s.DeleteSettings(ctx, pkg)
		if err != nil {
			return DeleteResult{}, err
		}
		if ok {
			result.Deleted++
		} else {
			result.Missing = append(result.Missing, pkg)
		}
	}
	return result, nil
}

// DeleteSettingsAll wipes every record and the whole mirror tree.
func (s *SQLiteStore) DeleteSettingsAll(ctx context.Context) (int, error) {
	unlock := s.lockWrite()
	defer unlock()

	var n int64
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning delete-all transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM allowed_contacts`); err != nil {
			return fmt.Errorf("deleting allowed contacts: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM settings`)
		if err != nil {
			return fmt.Errorf("deleting settings: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting deleted rows: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	s.clearMirrorTree()
	return int(n), nil
}

// GetValue reads a flag from the map table, "" when unset.
func (s *SQLiteStore) GetValue(ctx context.Context, name string) (string, error) {
	var value string
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`SELECT value FROM map WHERE name = ?`, name).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			value = ""
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading flag %s: %w", name, err)
		}
		return nil
	})
	return value, err
}

// SetValue upserts a flag in the map table.
func (s *SQLiteStore) SetValue(ctx context.Context, name, value string) error {
	unlock := s.lockWrite()
	defer unlock()

	return s.retry.run(s.handle, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO map (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
		if err != nil {
			return fmt.Errorf("writing flag %s: %w", name, err)
		}
		return nil
	})
}

func validateRecord(rec *settings.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record: %w", ErrMalformedInput)
	}
	if rec.PackageName == "" {
		return fmt.Errorf("empty package name: %w", ErrMalformedInput)
	}
	for _, c := range settings.Categories {
		if m, ok := rec.ModeFor(c); ok && !m.Valid() {
			return fmt.Errorf("category %s has invalid mode %d: %w", c, m, ErrMalformedInput)
		}
	}
	return nil
}
