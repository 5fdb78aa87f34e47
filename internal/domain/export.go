package domain

import "time"

// ExportData is a snapshot bundle of cached entities. Immutable once produced.
// When Compressed is set the plain entity slices are empty and Payload holds
// a base64-encoded gzip of the inner bundle.
type ExportData struct {
	Version     int                `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	ExportedBy  string             `json:"exported_by"`
	Songs       []*CachedSong      `json:"songs,omitempty"`
	Setlists    []*CachedSetlist   `json:"setlists,omitempty"`
	Preferences []*UserPreferences `json:"preferences,omitempty"`
	Checksum    string             `json:"checksum"`
	Compressed  bool               `json:"compressed,omitempty"`
	Payload     string             `json:"payload,omitempty"`
}

// ConflictResolution selects how an import resolves id collisions.
type ConflictResolution string

const (
	ResolutionKeepExisting ConflictResolution = "keep_existing"
	ResolutionOverwrite    ConflictResolution = "overwrite"
	ResolutionCreateNew    ConflictResolution = "create_new"
	ResolutionReplace      ConflictResolution = "replace"
)

// ImportConflict records one id collision and the resolution taken.
type ImportConflict struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Resolution ConflictResolution `json:"resolution"`
}

// ImportError records one record that failed to persist.
type ImportError struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ImportResult is the transient report of an import. Never persisted.
type ImportResult struct {
	Success             bool             `json:"success"`
	SongsImported       int              `json:"songs_imported"`
	SetlistsImported    int              `json:"setlists_imported"`
	PreferencesImported int              `json:"preferences_imported"`
	Conflicts           []ImportConflict `json:"conflicts,omitempty"`
	Errors              []ImportError    `json:"errors,omitempty"`
	BackupID            string           `json:"backup_id,omitempty"`
}
