package offline

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Kuebic/songbook-offline/internal/constants"
	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// ImportOptions controls conflict resolution and backup behavior.
type ImportOptions struct {
	Strategy     domain.ConflictResolution `json:"strategy"`
	CreateBackup bool                      `json:"create_backup"`
}

// ImportData validates and merges an export bundle into the local store.
// Structural problems fail fast before any write; per-record failures are
// itemized and do not abort the rest of the import. Imports operate
// directly against the store and never touch the sync queue.
func (s *Service) ImportData(data *domain.ExportData, opts ImportOptions) (*domain.ImportResult, error) {
	bundle, err := validateBundle(data)
	if err != nil {
		return nil, err
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = domain.ResolutionKeepExisting
	}
	switch strategy {
	case domain.ResolutionKeepExisting, domain.ResolutionOverwrite, domain.ResolutionCreateNew, domain.ResolutionReplace:
	default:
		return nil, &domain.InvalidFormatError{Reason: fmt.Sprintf("unknown conflict resolution %q", strategy)}
	}

	result := &domain.ImportResult{Success: true}

	if opts.CreateBackup {
		backupID, err := s.writeBackup()
		if err != nil {
			return nil, err
		}
		result.BackupID = backupID
	}

	if strategy == domain.ResolutionReplace {
		if err := s.clearTargetedStores(bundle); err != nil {
			return nil, err
		}
	}

	for _, song := range bundle.Songs {
		s.importSong(song, strategy, result)
	}
	for _, setlist := range bundle.Setlists {
		s.importSetlist(setlist, strategy, result)
	}
	for _, prefs := range bundle.Preferences {
		s.importPreferences(prefs, strategy, result)
	}

	// Imported rows supersede whatever the read-through cache held.
	s.cacheMu.Lock()
	s.songCache = make(map[string]*domain.CachedSong)
	s.setlistCache = make(map[string]*domain.CachedSetlist)
	s.cacheMu.Unlock()

	s.log.Info("Import finished",
		"songs", result.SongsImported,
		"setlists", result.SetlistsImported,
		"preferences", result.PreferencesImported,
		"conflicts", len(result.Conflicts),
		"errors", len(result.Errors))
	return result, nil
}

// validateBundle runs the structural check and inflates a compressed payload.
func validateBundle(data *domain.ExportData) (*exportBundle, error) {
	if data == nil {
		return nil, &domain.InvalidFormatError{Reason: "bundle is nil"}
	}
	if data.Version < 1 || data.Version > constants.ExportFormatVersion {
		return nil, &domain.InvalidFormatError{Reason: fmt.Sprintf("unsupported format version %d", data.Version)}
	}

	var inner []byte
	bundle := &exportBundle{}

	if data.Compressed {
		raw, err := base64.StdEncoding.DecodeString(data.Payload)
		if err != nil {
			return nil, &domain.InvalidFormatError{Reason: "payload is not valid base64"}
		}
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, &domain.InvalidFormatError{Reason: "payload is not valid gzip"}
		}
		inner, err = io.ReadAll(gz)
		if err != nil {
			return nil, &domain.InvalidFormatError{Reason: "payload failed to decompress"}
		}
		if err := json.Unmarshal(inner, bundle); err != nil {
			return nil, &domain.InvalidFormatError{Reason: "payload is not a valid bundle"}
		}
	} else {
		bundle.Songs = data.Songs
		bundle.Setlists = data.Setlists
		bundle.Preferences = data.Preferences
		var err error
		inner, err = json.Marshal(bundle)
		if err != nil {
			return nil, &domain.InvalidFormatError{Reason: "bundle is not serializable"}
		}
	}

	if data.Checksum != "" && bundleChecksum(inner) != data.Checksum {
		return nil, &domain.InvalidFormatError{Reason: "checksum mismatch"}
	}
	return bundle, nil
}

func (s *Service) clearTargetedStores(bundle *exportBundle) error {
	if bundle.Songs != nil {
		if err := s.db.ClearSongs(); err != nil {
			return &domain.StorageError{Op: "clear songs", Err: err}
		}
	}
	if bundle.Setlists != nil {
		if err := s.db.ClearSetlists(); err != nil {
			return &domain.StorageError{Op: "clear setlists", Err: err}
		}
	}
	if bundle.Preferences != nil {
		if err := s.db.ClearPreferences(); err != nil {
			return &domain.StorageError{Op: "clear preferences", Err: err}
		}
	}
	return nil
}

// writeBackup snapshots the whole store into metadata for rollback reference.
func (s *Service) writeBackup() (string, error) {
	snapshot, err := s.ExportData(ExportOptions{
		IncludeSongs:       true,
		IncludeSetlists:    true,
		IncludePreferences: true,
		ExportedBy:         "pre-import-backup",
	})
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", &domain.StorageError{Op: "marshal backup", Err: err}
	}

	backupID := uuid.New().String()
	if err := s.db.SetMetadata(store.MetaBackupPrefix+backupID, raw); err != nil {
		return "", &domain.StorageError{Op: "write backup", Err: err}
	}
	return backupID, nil
}

// GetBackup returns a previously stored pre-import backup bundle.
func (s *Service) GetBackup(backupID string) (*domain.ExportData, error) {
	raw, err := s.db.GetMetadata(store.MetaBackupPrefix + backupID)
	if err != nil {
		return nil, &domain.StorageError{Op: "read backup", Err: err}
	}
	if raw == nil {
		return nil, nil
	}
	data := &domain.ExportData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, &domain.InvalidFormatError{Reason: "stored backup is corrupt"}
	}
	return data, nil
}

// conflicting reports whether an incoming record collides with an existing
// one. Identical version and timestamp means the same revision: not a
// conflict, the write is idempotent. Any divergence is a conflict and the
// strategy decides; with identical updatedAt but different version the local
// record still wins under keep_existing (deterministic local-preference
// tie-break).
func conflicting(existingVersion, incomingVersion int64, existingUpdated, incomingUpdated time.Time) bool {
	return existingVersion != incomingVersion || !existingUpdated.Equal(incomingUpdated)
}

func (s *Service) importSong(song *domain.CachedSong, strategy domain.ConflictResolution, result *domain.ImportResult) {
	if song == nil || song.ID == "" {
		result.Errors = append(result.Errors, domain.ImportError{Type: "song", Message: "missing id"})
		return
	}
	if song.Title == "" {
		result.Errors = append(result.Errors, domain.ImportError{ID: song.ID, Type: "song", Message: "missing title"})
		return
	}

	unlock := s.locks.lock("songs/" + song.ID)
	defer unlock()

	record := song.Clone()
	if strategy != domain.ResolutionReplace {
		existing, err := s.db.GetSong(record.ID)
		if err != nil {
			result.Errors = append(result.Errors, domain.ImportError{ID: record.ID, Type: "song", Message: err.Error()})
			return
		}
		if existing != nil && conflicting(existing.Version, record.Version, existing.UpdatedAt, record.UpdatedAt) {
			switch strategy {
			case domain.ResolutionKeepExisting:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.ID, Type: "song", Resolution: domain.ResolutionKeepExisting})
				return
			case domain.ResolutionOverwrite:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.ID, Type: "song", Resolution: domain.ResolutionOverwrite})
			case domain.ResolutionCreateNew:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.ID, Type: "song", Resolution: domain.ResolutionCreateNew})
				record.ID = uuid.New().String()
				record.ServerID = ""
				record.ServerVersion = 0
				record.SyncStatus = domain.SyncStatusPending
				record.LastSyncedAt = nil
			}
		}
	}

	if err := s.db.PutSong(record); err != nil {
		result.Errors = append(result.Errors, domain.ImportError{ID: record.ID, Type: "song", Message: err.Error()})
		return
	}
	result.SongsImported++
}

func (s *Service) importSetlist(setlist *domain.CachedSetlist, strategy domain.ConflictResolution, result *domain.ImportResult) {
	if setlist == nil || setlist.ID == "" {
		result.Errors = append(result.Errors, domain.ImportError{Type: "setlist", Message: "missing id"})
		return
	}
	if setlist.Name == "" {
		result.Errors = append(result.Errors, domain.ImportError{ID: setlist.ID, Type: "setlist", Message: "missing name"})
		return
	}

	unlock := s.locks.lock("setlists/" + setlist.ID)
	defer unlock()

	record := setlist.Clone()
	record.Normalize()
	if strategy != domain.ResolutionReplace {
		existing, err := s.db.GetSetlist(record.ID)
		if err != nil {
			result.Errors = append(result.Errors, domain.ImportError{ID: record.ID, Type: "setlist", Message: err.Error()})
			return
		}
		if existing != nil && conflicting(existing.Version, record.Version, existing.UpdatedAt, record.UpdatedAt) {
			switch strategy {
			case domain.ResolutionKeepExisting:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.ID, Type: "setlist", Resolution: domain.ResolutionKeepExisting})
				return
			case domain.ResolutionOverwrite:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.ID, Type: "setlist", Resolution: domain.ResolutionOverwrite})
			case domain.ResolutionCreateNew:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.ID, Type: "setlist", Resolution: domain.ResolutionCreateNew})
				record.ID = uuid.New().String()
				record.ShareToken = ""
				record.ServerID = ""
				record.ServerVersion = 0
				record.SyncStatus = domain.SyncStatusPending
				record.LastSyncedAt = nil
			}
		}
	}

	if err := s.db.PutSetlist(record); err != nil {
		result.Errors = append(result.Errors, domain.ImportError{ID: record.ID, Type: "setlist", Message: err.Error()})
		return
	}
	result.SetlistsImported++
}

func (s *Service) importPreferences(prefs *domain.UserPreferences, strategy domain.ConflictResolution, result *domain.ImportResult) {
	if prefs == nil || prefs.UserID == "" {
		result.Errors = append(result.Errors, domain.ImportError{Type: "preferences", Message: "missing user id"})
		return
	}

	unlock := s.locks.lock("preferences/" + prefs.UserID)
	defer unlock()

	record := prefs.Clone()
	if strategy != domain.ResolutionReplace {
		existing, err := s.db.GetPreferences(record.UserID)
		if err != nil {
			result.Errors = append(result.Errors, domain.ImportError{ID: record.UserID, Type: "preferences", Message: err.Error()})
			return
		}
		if existing != nil && conflicting(existing.Version, record.Version, existing.UpdatedAt, record.UpdatedAt) {
			switch strategy {
			case domain.ResolutionKeepExisting:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.UserID, Type: "preferences", Resolution: domain.ResolutionKeepExisting})
				return
			case domain.ResolutionOverwrite:
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.UserID, Type: "preferences", Resolution: domain.ResolutionOverwrite})
			case domain.ResolutionCreateNew:
				// Preferences are keyed by user: a second copy makes no
				// sense, so create_new falls back to keeping the local one.
				result.Conflicts = append(result.Conflicts, domain.ImportConflict{ID: record.UserID, Type: "preferences", Resolution: domain.ResolutionKeepExisting})
				return
			}
		}
	}

	if err := s.db.PutPreferences(record); err != nil {
		result.Errors = append(result.Errors, domain.ImportError{ID: record.UserID, Type: "preferences", Message: err.Error()})
		return
	}
	result.PreferencesImported++
}
