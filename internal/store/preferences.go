package store

import (
	"database/sql"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
)

func (db *DB) PutPreferences(prefs *domain.UserPreferences) error {
	query := `INSERT INTO preferences (
		user_id, theme, font_size, chord_style, default_key, auto_sync,
		sync_on_cellular, export_format, export_with_chords,
		sync_status, last_synced_at, version, created_at, updated_at
	) VALUES (
		:user_id, :theme, :font_size, :chord_style, :default_key, :auto_sync,
		:sync_on_cellular, :export_format, :export_with_chords,
		:sync_status, :last_synced_at, :version, :created_at, :updated_at
	)
	ON CONFLICT(user_id) DO UPDATE SET
		theme = excluded.theme,
		font_size = excluded.font_size,
		chord_style = excluded.chord_style,
		default_key = excluded.default_key,
		auto_sync = excluded.auto_sync,
		sync_on_cellular = excluded.sync_on_cellular,
		export_format = excluded.export_format,
		export_with_chords = excluded.export_with_chords,
		sync_status = excluded.sync_status,
		last_synced_at = excluded.last_synced_at,
		version = excluded.version,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at`

	_, err := db.NamedExec(query, prefs)
	return err
}

func (db *DB) GetPreferences(userID string) (*domain.UserPreferences, error) {
	prefs := &domain.UserPreferences{}
	err := db.Get(prefs, `SELECT * FROM preferences WHERE user_id = ?`, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

func (db *DB) ListPreferences() ([]*domain.UserPreferences, error) {
	var prefs []*domain.UserPreferences
	err := db.Select(&prefs, `SELECT * FROM preferences ORDER BY user_id ASC`)
	return prefs, err
}

func (db *DB) DeletePreferences(userID string) error {
	_, err := db.Exec(`DELETE FROM preferences WHERE user_id = ?`, userID)
	return err
}

func (db *DB) ClearPreferences() error {
	_, err := db.Exec(`DELETE FROM preferences`)
	return err
}

func (db *DB) MarkPreferencesSynced(userID string, at time.Time) error {
	query := `UPDATE preferences SET sync_status = ?, last_synced_at = ? WHERE user_id = ?`
	_, err := db.Exec(query, domain.SyncStatusSynced, at, userID)
	return err
}

func (db *DB) GetPreferencesStats() (*EntityStats, error) {
	stats := &EntityStats{}
	err := db.Get(stats, `SELECT COUNT(*) as count, COALESCE(COUNT(*) * 256, 0) as bytes FROM preferences`)
	return stats, err
}
