package offline

import (
	"sort"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// CleanupConfig bounds the cache. Zero values disable the matching rule.
type CleanupConfig struct {
	MaxAge         time.Duration `json:"max_age"`
	MaxItems       int           `json:"max_items"`
	MaxStorageSize int64         `json:"max_storage_size"`
	PreserveRecent time.Duration `json:"preserve_recent"`
	DryRun         bool          `json:"dry_run"`
}

// CleanupResult reports what was removed (or would be, under DryRun).
type CleanupResult struct {
	SongsRemoved    int   `json:"songs_removed"`
	SetlistsRemoved int   `json:"setlists_removed"`
	BytesFreed      int64 `json:"bytes_freed"`
	DryRun          bool  `json:"dry_run"`
}

// Cleanup evicts cached songs under size and count pressure in LRU order,
// then reclaims anything past MaxAge regardless of access recency. Items
// accessed within PreserveRecent never leave.
func (s *Service) Cleanup(cfg CleanupConfig) (*CleanupResult, error) {
	now := time.Now()
	result := &CleanupResult{DryRun: cfg.DryRun}

	songs, err := s.db.ListSongs(store.SongQuery{})
	if err != nil {
		return nil, &domain.StorageError{Op: "list songs", Err: err}
	}

	preserved := func(song *domain.CachedSong) bool {
		if cfg.PreserveRecent <= 0 || song.LastAccessedAt == nil {
			return false
		}
		return now.Sub(*song.LastAccessedAt) <= cfg.PreserveRecent
	}

	var candidates []*domain.CachedSong
	for _, song := range songs {
		if !preserved(song) {
			candidates = append(candidates, song)
		}
	}
	// Least recently accessed first; never-accessed songs sort oldest.
	sort.Slice(candidates, func(i, j int) bool {
		return accessTime(candidates[i]).Before(accessTime(candidates[j]))
	})

	totalCount := len(songs)
	var totalBytes int64
	for _, song := range songs {
		totalBytes += song.FileSize
	}

	remove := make(map[string]*domain.CachedSong)
	idx := 0
	for cfg.MaxItems > 0 && totalCount > cfg.MaxItems && idx < len(candidates) {
		song := candidates[idx]
		idx++
		remove[song.ID] = song
		totalCount--
		totalBytes -= song.FileSize
	}
	for cfg.MaxStorageSize > 0 && totalBytes > cfg.MaxStorageSize && idx < len(candidates) {
		song := candidates[idx]
		idx++
		remove[song.ID] = song
		totalCount--
		totalBytes -= song.FileSize
	}
	if cfg.MaxAge > 0 {
		for _, song := range candidates {
			if _, gone := remove[song.ID]; gone {
				continue
			}
			if now.Sub(song.UpdatedAt) > cfg.MaxAge {
				remove[song.ID] = song
			}
		}
	}

	for id, song := range remove {
		result.SongsRemoved++
		result.BytesFreed += song.FileSize
		if cfg.DryRun {
			continue
		}
		if err := s.db.DeleteSong(id); err != nil {
			s.log.Warn("Cleanup failed to delete song", "song_id", id, "error", err)
			continue
		}
		s.cacheMu.Lock()
		delete(s.songCache, id)
		s.cacheMu.Unlock()
	}

	if cfg.MaxAge > 0 {
		removed, err := s.cleanupSetlists(cfg, now)
		if err != nil {
			return nil, err
		}
		result.SetlistsRemoved = removed
	}

	if !cfg.DryRun {
		s.bus.Publish(domain.Event{Type: domain.EventCleanupCompleted, Detail: result})
		s.log.Info("Cleanup completed",
			"songs_removed", result.SongsRemoved,
			"setlists_removed", result.SetlistsRemoved,
			"bytes_freed", result.BytesFreed)
	}
	return result, nil
}

func (s *Service) cleanupSetlists(cfg CleanupConfig, now time.Time) (int, error) {
	setlists, err := s.db.ListSetlists(store.SetlistQuery{})
	if err != nil {
		return 0, &domain.StorageError{Op: "list setlists", Err: err}
	}

	removed := 0
	for _, setlist := range setlists {
		if now.Sub(setlist.UpdatedAt) <= cfg.MaxAge {
			continue
		}
		if cfg.PreserveRecent > 0 && setlist.LastUsedAt != nil && now.Sub(*setlist.LastUsedAt) <= cfg.PreserveRecent {
			continue
		}
		removed++
		if cfg.DryRun {
			continue
		}
		if err := s.db.DeleteSetlist(setlist.ID); err != nil {
			s.log.Warn("Cleanup failed to delete setlist", "setlist_id", setlist.ID, "error", err)
			continue
		}
		s.cacheMu.Lock()
		delete(s.setlistCache, setlist.ID)
		s.cacheMu.Unlock()
		s.history.drop(setlist.ID)
	}
	return removed, nil
}

func accessTime(song *domain.CachedSong) time.Time {
	if song.LastAccessedAt != nil {
		return *song.LastAccessedAt
	}
	return time.Time{}
}
