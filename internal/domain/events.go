package domain

import "time"

// EventType is the closed set of storage and sync events.
type EventType string

const (
	EventSongAdded          EventType = "song_added"
	EventSongUpdated        EventType = "song_updated"
	EventSongDeleted        EventType = "song_deleted"
	EventSetlistAdded       EventType = "setlist_added"
	EventSetlistUpdated     EventType = "setlist_updated"
	EventSetlistDeleted     EventType = "setlist_deleted"
	EventPreferencesUpdated EventType = "preferences_updated"
	EventQuotaWarning       EventType = "quota_warning"
	EventQuotaCritical      EventType = "quota_critical"
	EventSyncCompleted      EventType = "sync_completed"
	EventSyncFailed         EventType = "sync_failed"
	EventCleanupCompleted   EventType = "cleanup_completed"
	EventStorageError       EventType = "storage_error"
)

// Event is a structured in-process notification. Delivery is synchronous and
// best-effort: handlers registered after an event fires never see it.
type Event struct {
	Type     EventType `json:"type"`
	EntityID string    `json:"entity_id,omitempty"`
	Resource Resource  `json:"resource,omitempty"`
	Detail   any       `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}
