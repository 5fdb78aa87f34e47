package domain

import (
	"time"
)

// SyncStatus marks whether a locally cached entity matches the last known remote state.
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusConflict SyncStatus = "conflict"
	SyncStatusError    SyncStatus = "error"
)

// CachedSong is a locally cached song with usage and storage bookkeeping.
//
// Version is monotonic and incremented on every local mutation; SyncStatus
// synced implies LastSyncedAt is set.
type CachedSong struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	ID             string      `json:"id" db:"id"`
	Title          string      `json:"title" db:"title"`
	Artist         string      `json:"artist" db:"artist"`
	Key            string      `json:"key,omitempty" db:"key_name"`
	Tempo          int         `json:"tempo,omitempty" db:"tempo"`
	TimeSignature  string      `json:"time_signature,omitempty" db:"time_signature"`
	Capo           int         `json:"capo,omitempty" db:"capo"`
	Lyrics         string      `json:"lyrics,omitempty" db:"lyrics"`
	ChordSheet     string      `json:"chord_sheet,omitempty" db:"chord_sheet"`
	Tags           StringSlice `json:"tags,omitempty" db:"tags"`
	IsFavorite     bool        `json:"is_favorite" db:"is_favorite"`
	AccessCount    int         `json:"access_count" db:"access_count"`
	LastAccessedAt *time.Time  `json:"last_accessed_at,omitempty" db:"last_accessed_at"`
	FileSize       int64       `json:"file_size" db:"file_size"`
	Checksum       string      `json:"checksum,omitempty" db:"checksum"`
	ServerID       string      `json:"server_id,omitempty" db:"server_id"`
	ServerVersion  int64       `json:"server_version,omitempty" db:"server_version"`
	SyncStatus     SyncStatus  `json:"sync_status" db:"sync_status"`
	LastSyncedAt   *time.Time  `json:"last_synced_at,omitempty" db:"last_synced_at"`
	Version        int64       `json:"version" db:"version"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy. Store accessors hand out copies so callers can
// never mutate cached state in place.
func (s *CachedSong) Clone() *CachedSong {
	if s == nil {
		return nil
	}
	c := *s
	c.Tags = append(StringSlice(nil), s.Tags...)
	if s.LastAccessedAt != nil {
		t := *s.LastAccessedAt
		c.LastAccessedAt = &t
	}
	if s.LastSyncedAt != nil {
		t := *s.LastSyncedAt
		c.LastSyncedAt = &t
	}
	return &c
}

// SetlistItem references a song by id within a setlist.
type SetlistItem struct {
	SongID    string `json:"song_id"`
	Order     int    `json:"order"`
	Transpose int    `json:"transpose"` // semitone offset
	Notes     string `json:"notes,omitempty"`
}

// CachedSetlist is a locally cached setlist. Items keep a dense 0..n-1 order
// matching array position after every mutating operation.
type CachedSetlist struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	ID            string       `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	Description   string       `json:"description,omitempty" db:"description"`
	CreatedBy     string       `json:"created_by" db:"created_by"`
	Items         SetlistItems `json:"songs" db:"items"`
	IsPublic      bool         `json:"is_public" db:"is_public"`
	ShareToken    string       `json:"share_token,omitempty" db:"share_token"`
	UsageCount    int          `json:"usage_count" db:"usage_count"`
	LastUsedAt    *time.Time   `json:"last_used_at,omitempty" db:"last_used_at"`
	ServerID      string       `json:"server_id,omitempty" db:"server_id"`
	ServerVersion int64        `json:"server_version,omitempty" db:"server_version"`
	SyncStatus    SyncStatus   `json:"sync_status" db:"sync_status"`
	LastSyncedAt  *time.Time   `json:"last_synced_at,omitempty" db:"last_synced_at"`
	Version       int64        `json:"version" db:"version"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy.
func (s *CachedSetlist) Clone() *CachedSetlist {
	if s == nil {
		return nil
	}
	c := *s
	c.Items = append(SetlistItems(nil), s.Items...)
	if s.LastUsedAt != nil {
		t := *s.LastUsedAt
		c.LastUsedAt = &t
	}
	if s.LastSyncedAt != nil {
		t := *s.LastSyncedAt
		c.LastSyncedAt = &t
	}
	return &c
}

// Normalize re-assigns a dense 0..n-1 order matching array position.
func (s *CachedSetlist) Normalize() {
	for i := range s.Items {
		s.Items[i].Order = i
	}
}

// AddSong appends a song at the given position (or at the end when position
// is out of range), renormalizes the order and returns the inserted item
// with its assigned order.
func (s *CachedSetlist) AddSong(item SetlistItem, position int) SetlistItem {
	if position < 0 || position >= len(s.Items) {
		position = len(s.Items)
		s.Items = append(s.Items, item)
	} else {
		s.Items = append(s.Items, SetlistItem{})
		copy(s.Items[position+1:], s.Items[position:])
		s.Items[position] = item
	}
	s.Normalize()
	return s.Items[position]
}

// RemoveSong removes the first item referencing songID. Returns false when
// the song is not in the setlist.
func (s *CachedSetlist) RemoveSong(songID string) bool {
	for i, item := range s.Items {
		if item.SongID == songID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			s.Normalize()
			return true
		}
	}
	return false
}

// MoveSong moves the item at position from to position to.
func (s *CachedSetlist) MoveSong(from, to int) bool {
	if from < 0 || from >= len(s.Items) || to < 0 || to >= len(s.Items) {
		return false
	}
	item := s.Items[from]
	s.Items = append(s.Items[:from], s.Items[from+1:]...)
	s.Items = append(s.Items, SetlistItem{})
	copy(s.Items[to+1:], s.Items[to:])
	s.Items[to] = item
	s.Normalize()
	return true
}

// UserPreferences holds per-user display, sync and export configuration.
// Keyed by user id: one record per user.
type UserPreferences struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	UserID           string     `json:"user_id" db:"user_id"`
	Theme            string     `json:"theme" db:"theme"`
	FontSize         int        `json:"font_size" db:"font_size"`
	ChordStyle       string     `json:"chord_style" db:"chord_style"`
	DefaultKey       string     `json:"default_key,omitempty" db:"default_key"`
	AutoSync         bool       `json:"auto_sync" db:"auto_sync"`
	SyncOnCellular   bool       `json:"sync_on_cellular" db:"sync_on_cellular"`
	ExportFormat     string     `json:"export_format" db:"export_format"`
	ExportWithChords bool       `json:"export_with_chords" db:"export_with_chords"`
	SyncStatus       SyncStatus `json:"sync_status" db:"sync_status"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty" db:"last_synced_at"`
	Version          int64      `json:"version" db:"version"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy.
func (p *UserPreferences) Clone() *UserPreferences {
	if p == nil {
		return nil
	}
	c := *p
	if p.LastSyncedAt != nil {
		t := *p.LastSyncedAt
		c.LastSyncedAt = &t
	}
	return &c
}
