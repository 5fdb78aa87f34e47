package offline

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// SaveSetlist validates, stamps and persists a setlist. Item order is
// renormalized to a dense 0..n-1 sequence before the write.
func (s *Service) SaveSetlist(setlist *domain.CachedSetlist) (*domain.CachedSetlist, error) {
	if setlist == nil {
		return nil, &domain.ValidationError{Field: "setlist", Message: "cannot be nil"}
	}
	if setlist.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "cannot be empty"}
	}

	saved := setlist.Clone()
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	saved.Normalize()

	unlock := s.locks.lock("setlists/" + saved.ID)
	defer unlock()

	return s.saveSetlistLocked(saved, true)
}

// saveSetlistLocked finishes a setlist write. Caller holds the per-id lock.
// enqueue=false lets item-level operations substitute their own queue entry.
func (s *Service) saveSetlistLocked(saved *domain.CachedSetlist, enqueue bool) (*domain.CachedSetlist, error) {
	existing, err := s.db.GetSetlist(saved.ID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get setlist", Err: err}
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

	if err := s.db.PutSetlist(saved); err != nil {
		s.emitStorageError("save setlist", err)
		return nil, &domain.StorageError{Op: "put setlist", Err: err}
	}

	s.cacheMu.Lock()
	s.setlistCache[saved.ID] = saved.Clone()
	s.cacheMu.Unlock()

	eventType := domain.EventSetlistUpdated
	opType := domain.OperationUpdate
	if existing == nil {
		eventType = domain.EventSetlistAdded
		opType = domain.OperationCreate
	}
	s.bus.Publish(domain.Event{Type: eventType, EntityID: saved.ID, Resource: domain.ResourceSetlist})

	if enqueue && s.enqueuer != nil && saved.SyncStatus == domain.SyncStatusPending {
		if _, err := s.enqueuer.Enqueue(opType, domain.ResourceSetlist, saved.ID, saved); err != nil {
			s.log.Warn("Failed to enqueue setlist mutation", "setlist_id", saved.ID, "error", err)
		}
	}

	s.log.Debug("Setlist saved", "setlist_id", saved.ID, "version", saved.Version)
	return saved.Clone(), nil
}

// GetSetlist reads through the memory cache.
func (s *Service) GetSetlist(id string) (*domain.CachedSetlist, error) {
	s.cacheMu.RLock()
	cached := s.setlistCache[id]
	s.cacheMu.RUnlock()

	if cached != nil {
		return cached.Clone(), nil
	}

	setlist, err := s.db.GetSetlist(id)
	if err != nil {
		return nil, &domain.StorageError{Op: "get setlist", Err: err}
	}
	if setlist == nil {
		return nil, nil
	}

	s.cacheMu.Lock()
	s.setlistCache[id] = setlist.Clone()
	s.cacheMu.Unlock()

	return setlist, nil
}

// DeleteSetlist removes a setlist from store and memory cache. Idempotent.
func (s *Service) DeleteSetlist(id string) error {
	unlock := s.locks.lock("setlists/" + id)
	defer unlock()

	existing, err := s.db.GetSetlist(id)
	if err != nil {
		return &domain.StorageError{Op: "get setlist", Err: err}
	}

	if err := s.db.DeleteSetlist(id); err != nil {
		s.emitStorageError("delete setlist", err)
		return &domain.StorageError{Op: "delete setlist", Err: err}
	}

	s.cacheMu.Lock()
	delete(s.setlistCache, id)
	s.cacheMu.Unlock()
	s.history.drop(id)

	if existing != nil {
		s.bus.Publish(domain.Event{Type: domain.EventSetlistDeleted, EntityID: id, Resource: domain.ResourceSetlist})
		if s.enqueuer != nil {
			if _, err := s.enqueuer.Enqueue(domain.OperationDelete, domain.ResourceSetlist, id, map[string]string{"id": id}); err != nil {
				s.log.Warn("Failed to enqueue setlist delete", "setlist_id", id, "error", err)
			}
		}
	}
	return nil
}

// GetSetlists lists cached setlists.
func (s *Service) GetSetlists(q store.SetlistQuery) ([]*domain.CachedSetlist, error) {
	q.Limit = clampLimit(q.Limit)
	setlists, err := s.db.ListSetlists(q)
	if err != nil {
		return nil, &domain.StorageError{Op: "list setlists", Err: err}
	}
	return setlists, nil
}

// AddSongToSetlist inserts a song reference at position (append when out of
// range) and enqueues the new arrangement for the remote.
func (s *Service) AddSongToSetlist(setlistID string, item domain.SetlistItem, position int) (*domain.CachedSetlist, error) {
	if item.SongID == "" {
		return nil, &domain.ValidationError{Field: "song_id", Message: "cannot be empty"}
	}

	unlock := s.locks.lock("setlists/" + setlistID)
	defer unlock()

	setlist, err := s.db.GetSetlist(setlistID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get setlist", Err: err}
	}
	if setlist == nil {
		return nil, &domain.NotFoundError{Resource: "setlist", ID: setlistID}
	}

	s.history.push(setlistID, setlist.Clone())
	inserted := setlist.AddSong(item, position)

	saved, err := s.saveSetlistWithoutSync(setlist)
	if err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		payload := arrangementPayload(setlistID, inserted)
		if _, err := s.enqueuer.Enqueue(domain.OperationCreate, domain.ResourceArrangement, arrangementID(setlistID, item.SongID), payload); err != nil {
			s.log.Warn("Failed to enqueue arrangement create", "setlist_id", setlistID, "song_id", item.SongID, "error", err)
		}
	}
	return saved, nil
}

// RemoveSongFromSetlist removes a song reference and enqueues the
// arrangement delete. Removing an absent song is a no-op.
func (s *Service) RemoveSongFromSetlist(setlistID, songID string) (*domain.CachedSetlist, error) {
	unlock := s.locks.lock("setlists/" + setlistID)
	defer unlock()

	setlist, err := s.db.GetSetlist(setlistID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get setlist", Err: err}
	}
	if setlist == nil {
		return nil, &domain.NotFoundError{Resource: "setlist", ID: setlistID}
	}

	s.history.push(setlistID, setlist.Clone())
	if !setlist.RemoveSong(songID) {
		return setlist.Clone(), nil
	}

	saved, err := s.saveSetlistWithoutSync(setlist)
	if err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		if _, err := s.enqueuer.Enqueue(domain.OperationDelete, domain.ResourceArrangement, arrangementID(setlistID, songID),
			map[string]string{"setlist_id": setlistID, "song_id": songID}); err != nil {
			s.log.Warn("Failed to enqueue arrangement delete", "setlist_id", setlistID, "song_id", songID, "error", err)
		}
	}
	return saved, nil
}

// MoveSetlistSong reorders a setlist and enqueues the setlist update.
func (s *Service) MoveSetlistSong(setlistID string, from, to int) (*domain.CachedSetlist, error) {
	unlock := s.locks.lock("setlists/" + setlistID)
	defer unlock()

	setlist, err := s.db.GetSetlist(setlistID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get setlist", Err: err}
	}
	if setlist == nil {
		return nil, &domain.NotFoundError{Resource: "setlist", ID: setlistID}
	}

	s.history.push(setlistID, setlist.Clone())
	if !setlist.MoveSong(from, to) {
		return nil, &domain.ValidationError{Field: "position", Message: "out of range"}
	}

	saved, err := s.saveSetlistWithoutSync(setlist)
	if err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		if _, err := s.enqueuer.Enqueue(domain.OperationUpdate, domain.ResourceSetlist, setlistID, saved); err != nil {
			s.log.Warn("Failed to enqueue setlist reorder", "setlist_id", setlistID, "error", err)
		}
	}
	return saved, nil
}

// DuplicateSetlist copies a setlist under a new id and name.
func (s *Service) DuplicateSetlist(id, newName string) (*domain.CachedSetlist, error) {
	setlist, err := s.GetSetlist(id)
	if err != nil {
		return nil, err
	}
	if setlist == nil {
		return nil, &domain.NotFoundError{Resource: "setlist", ID: id}
	}

	copy := setlist.Clone()
	copy.ID = ""
	copy.Name = newName
	if copy.Name == "" {
		copy.Name = setlist.Name + " (copy)"
	}
	copy.ShareToken = ""
	copy.IsPublic = false
	copy.UsageCount = 0
	copy.LastUsedAt = nil
	copy.ServerID = ""
	copy.ServerVersion = 0
	copy.Version = 0
	copy.SyncStatus = domain.SyncStatusPending
	copy.LastSyncedAt = nil

	return s.SaveSetlist(copy)
}

// RecordSetlistUsage bumps usage stats without a sync round trip.
func (s *Service) RecordSetlistUsage(id string) error {
	unlock := s.locks.lock("setlists/" + id)
	defer unlock()

	now := time.Now()
	if err := s.db.RecordSetlistUsage(id, now); err != nil {
		return &domain.StorageError{Op: "record setlist usage", Err: err}
	}

	s.cacheMu.Lock()
	if c := s.setlistCache[id]; c != nil {
		c.UsageCount++
		c.LastUsedAt = &now
	}
	s.cacheMu.Unlock()
	return nil
}

// UndoSetlist restores the previous in-memory snapshot of a setlist. History
// is ephemeral UI state, never persisted.
func (s *Service) UndoSetlist(id string) (*domain.CachedSetlist, error) {
	prev := s.history.pop(id)
	if prev == nil {
		return nil, &domain.NotFoundError{Resource: "setlist history", ID: id}
	}

	unlock := s.locks.lock("setlists/" + id)
	defer unlock()

	prev.Normalize()
	saved, err := s.saveSetlistWithoutSync(prev)
	if err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		if _, err := s.enqueuer.Enqueue(domain.OperationUpdate, domain.ResourceSetlist, id, saved); err != nil {
			s.log.Warn("Failed to enqueue setlist undo", "setlist_id", id, "error", err)
		}
	}
	return saved, nil
}

// saveSetlistWithoutSync runs the stamped write and event emission but lets
// the caller decide what to enqueue. Caller holds the per-id lock.
func (s *Service) saveSetlistWithoutSync(setlist *domain.CachedSetlist) (*domain.CachedSetlist, error) {
	return s.saveSetlistLocked(setlist, false)
}

func arrangementID(setlistID, songID string) string {
	return setlistID + ":" + songID
}

func arrangementPayload(setlistID string, item domain.SetlistItem) map[string]any {
	return map[string]any{
		"setlist_id": setlistID,
		"song_id":    item.SongID,
		"order":      item.Order,
		"transpose":  item.Transpose,
		"notes":      item.Notes,
	}
}
