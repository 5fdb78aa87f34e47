package offline

import (
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
)

// SavePreferences persists a user's preferences record (one per user).
func (s *Service) SavePreferences(prefs *domain.UserPreferences) (*domain.UserPreferences, error) {
	if prefs == nil {
		return nil, &domain.ValidationError{Field: "preferences", Message: "cannot be nil"}
	}
	if prefs.UserID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Message: "cannot be empty"}
	}

	saved := prefs.Clone()

	unlock := s.locks.lock("preferences/" + saved.UserID)
	defer unlock()

	existing, err := s.db.GetPreferences(saved.UserID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get preferences", Err: err}
	}

	now := time.Now()
	saved.UpdatedAt = now
	if existing != nil {
		saved.CreatedAt = existing.CreatedAt
		saved.Version = existing.Version + 1
	} else {
		saved.CreatedAt = now
		if saved.Version < 1 {
			saved.Version = 1
		}
	}

	if saved.SyncStatus != domain.SyncStatusSynced {
		saved.SyncStatus = domain.SyncStatusPending
	} else if saved.LastSyncedAt == nil {
		saved.LastSyncedAt = &now
	}

	if err := s.db.PutPreferences(saved); err != nil {
		s.emitStorageError("save preferences", err)
		return nil, &domain.StorageError{Op: "put preferences", Err: err}
	}

	s.bus.Publish(domain.Event{Type: domain.EventPreferencesUpdated, EntityID: saved.UserID})
	s.log.Debug("Preferences saved", "user_id", saved.UserID, "version", saved.Version)
	return saved.Clone(), nil
}

// GetPreferences returns the user's preferences, nil when none are stored.
func (s *Service) GetPreferences(userID string) (*domain.UserPreferences, error) {
	prefs, err := s.db.GetPreferences(userID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get preferences", Err: err}
	}
	return prefs, nil
}
