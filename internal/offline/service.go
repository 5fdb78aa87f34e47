// Package offline implements the cache semantics on top of the raw store:
// CRUD with version stamping, read-through memory caching, quota monitoring,
// cleanup, export/import and event emission.
package offline

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/Kuebic/songbook-offline/internal/constants"
	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/logger"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// Enqueuer hands local mutations to the durable sync queue. Implemented by
// syncqueue.Queue; nil disables speculative sync (import/export always
// bypass it).
type Enqueuer interface {
	Enqueue(opType domain.OperationType, resource domain.Resource, entityID string, payload any) (*domain.SyncOperation, error)
}

// Service is the offline storage service. Construct one long-lived instance
// at application start; it owns every entity it returns and hands out copies.
type Service struct {
	db    *store.DB
	log   *logger.Logger
	bus   *Bus
	quota QuotaEstimator

	enqueuer Enqueuer

	locks keyedMutex

	cacheMu      sync.RWMutex
	songCache    map[string]*domain.CachedSong
	setlistCache map[string]*domain.CachedSetlist

	quotaMu        sync.Mutex
	lastQuotaLevel QuotaLevel

	history setlistHistory
}

func NewService(db *store.DB, log *logger.Logger, bus *Bus, quota QuotaEstimator) *Service {
	if bus == nil {
		bus = NewBus()
	}
	return &Service{
		db:             db,
		log:            log.WithComponent("offline"),
		bus:            bus,
		quota:          quota,
		songCache:      make(map[string]*domain.CachedSong),
		setlistCache:   make(map[string]*domain.CachedSetlist),
		lastQuotaLevel: QuotaLevelNormal,
	}
}

// Events returns the service's event bus for subscriptions.
func (s *Service) Events() *Bus {
	return s.bus
}

// SetEnqueuer wires the sync queue in after construction (the queue itself
// needs the store first).
func (s *Service) SetEnqueuer(e Enqueuer) {
	s.enqueuer = e
}

// keyedMutex serializes writes per (store, id) so interleaved saves to the
// same record cannot lose updates.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	e := k.locks[key]
	if e == nil {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// SaveSong validates, stamps and persists a song, marks it pending for sync
// and enqueues the remote mutation. The returned record is a copy.
func (s *Service) SaveSong(song *domain.CachedSong) (*domain.CachedSong, error) {
	if song == nil {
		return nil, &domain.ValidationError{Field: "song", Message: "cannot be nil"}
	}
	if song.Title == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "cannot be empty"}
	}

	saved := song.Clone()
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}

	unlock := s.locks.lock("songs/" + saved.ID)
	defer unlock()

	existing, err := s.db.GetSong(saved.ID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get song", Err: err}
	}

	now := time.Now()
	saved.UpdatedAt = now
	if existing != nil {
		saved.CreatedAt = existing.CreatedAt
		saved.Version = existing.Version + 1
		if saved.AccessCount == 0 {
			saved.AccessCount = existing.AccessCount
			saved.LastAccessedAt = existing.LastAccessedAt
		}
	} else {
		saved.CreatedAt = now
		if saved.Version < 1 {
			saved.Version = 1
		}
	}

	// Explicitly marked synced records (e.g. hydrated from the remote) keep
	// their status; everything else is a pending local mutation.
	if saved.SyncStatus != domain.SyncStatusSynced {
		saved.SyncStatus = domain.SyncStatusPending
	} else if saved.LastSyncedAt == nil {
		saved.LastSyncedAt = &now
	}

	saved.FileSize, saved.Checksum = songSize(saved)

	if err := s.checkQuotaForWrite(saved.FileSize); err != nil {
		return nil, err
	}

	if err := s.db.PutSong(saved); err != nil {
		s.emitStorageError("save song", err)
		return nil, &domain.StorageError{Op: "put song", Err: err}
	}

	s.cacheMu.Lock()
	s.songCache[saved.ID] = saved.Clone()
	s.cacheMu.Unlock()

	eventType := domain.EventSongUpdated
	opType := domain.OperationUpdate
	if existing == nil {
		eventType = domain.EventSongAdded
		opType = domain.OperationCreate
	}
	s.bus.Publish(domain.Event{Type: eventType, EntityID: saved.ID, Resource: domain.ResourceSong})

	if s.enqueuer != nil && saved.SyncStatus == domain.SyncStatusPending {
		if _, err := s.enqueuer.Enqueue(opType, domain.ResourceSong, saved.ID, saved); err != nil {
			s.log.Warn("Failed to enqueue song mutation", "song_id", saved.ID, "error", err)
		}
	}

	s.log.Debug("Song saved", "song_id", saved.ID, "version", saved.Version)
	return saved.Clone(), nil
}

// GetSong reads through the memory cache. A hit bumps access stats as a
// fire-and-forget side effect; the read returns immediately.
func (s *Service) GetSong(id string) (*domain.CachedSong, error) {
	s.cacheMu.RLock()
	cached := s.songCache[id]
	s.cacheMu.RUnlock()

	if cached != nil {
		s.touchSong(id)
		return cached.Clone(), nil
	}

	song, err := s.db.GetSong(id)
	if err != nil {
		return nil, &domain.StorageError{Op: "get song", Err: err}
	}
	if song == nil {
		return nil, nil
	}

	s.cacheMu.Lock()
	s.songCache[id] = song.Clone()
	s.cacheMu.Unlock()

	s.touchSong(id)
	return song, nil
}

func (s *Service) touchSong(id string) {
	go func() {
		unlock := s.locks.lock("songs/" + id)
		defer unlock()

		now := time.Now()
		if err := s.db.TouchSongAccess(id, now); err != nil {
			s.log.Warn("Failed to record song access", "song_id", id, "error", err)
			return
		}
		s.cacheMu.Lock()
		if c := s.songCache[id]; c != nil {
			c.AccessCount++
			c.LastAccessedAt = &now
		}
		s.cacheMu.Unlock()
	}()
}

// DeleteSong removes a song from store and memory cache. Idempotent.
func (s *Service) DeleteSong(id string) error {
	unlock := s.locks.lock("songs/" + id)
	defer unlock()

	existing, err := s.db.GetSong(id)
	if err != nil {
		return &domain.StorageError{Op: "get song", Err: err}
	}

	if err := s.db.DeleteSong(id); err != nil {
		s.emitStorageError("delete song", err)
		return &domain.StorageError{Op: "delete song", Err: err}
	}

	s.cacheMu.Lock()
	delete(s.songCache, id)
	s.cacheMu.Unlock()

	if existing != nil {
		s.bus.Publish(domain.Event{Type: domain.EventSongDeleted, EntityID: id, Resource: domain.ResourceSong})
		if s.enqueuer != nil {
			if _, err := s.enqueuer.Enqueue(domain.OperationDelete, domain.ResourceSong, id, map[string]string{"id": id}); err != nil {
				s.log.Warn("Failed to enqueue song delete", "song_id", id, "error", err)
			}
		}
	}
	return nil
}

// GetSongs lists cached songs with filters, sorting, pagination and search.
func (s *Service) GetSongs(q store.SongQuery) ([]*domain.CachedSong, error) {
	q.Limit = clampLimit(q.Limit)
	songs, err := s.db.ListSongs(q)
	if err != nil {
		return nil, &domain.StorageError{Op: "list songs", Err: err}
	}
	return songs, nil
}

// ToggleFavorite flips the favorite flag through the full save path.
func (s *Service) ToggleFavorite(id string) (*domain.CachedSong, error) {
	song, err := s.GetSong(id)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, &domain.NotFoundError{Resource: "song", ID: id}
	}
	song.IsFavorite = !song.IsFavorite
	return s.SaveSong(song)
}

func (s *Service) emitStorageError(op string, err error) {
	s.bus.Publish(domain.Event{Type: domain.EventStorageError, Detail: op + ": " + err.Error()})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return limit
}

// songSize estimates the record's stored size and content checksum.
func songSize(song *domain.CachedSong) (int64, string) {
	data, err := json.Marshal(song)
	if err != nil {
		return 0, ""
	}
	h := xxhash.New()
	_, _ = h.WriteString(song.Lyrics)
	_, _ = h.WriteString(song.ChordSheet)
	_, _ = h.WriteString(song.Title)
	_, _ = h.WriteString(song.Artist)
	return int64(len(data)), strconv.FormatUint(h.Sum64(), 16)
}
