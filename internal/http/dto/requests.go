package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/offline"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// AddSongRequest adds one song reference to a setlist.
type AddSongRequest struct {
	SongID    string `json:"song_id"`
	Position  int    `json:"position"`
	Transpose int    `json:"transpose"`
	Notes     string `json:"notes,omitempty"`
}

func (r *AddSongRequest) Validate() error {
	if r.SongID == "" {
		return &domain.ValidationError{Field: "song_id", Message: "cannot be empty"}
	}
	if r.Transpose < -11 || r.Transpose > 11 {
		return &domain.ValidationError{Field: "transpose", Message: "must be between -11 and 11 semitones"}
	}
	return nil
}

func (r *AddSongRequest) Item() domain.SetlistItem {
	return domain.SetlistItem{
		SongID:    r.SongID,
		Transpose: r.Transpose,
		Notes:     r.Notes,
	}
}

// MoveSongRequest reorders a setlist.
type MoveSongRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (r *MoveSongRequest) Validate() error {
	if r.From < 0 || r.To < 0 {
		return &domain.ValidationError{Field: "position", Message: "cannot be negative"}
	}
	return nil
}

// DuplicateRequest copies a setlist under a new name.
type DuplicateRequest struct {
	Name string `json:"name,omitempty"`
}

// ImportRequest carries a bundle and import options in one body.
type ImportRequest struct {
	Data     *domain.ExportData        `json:"data"`
	Strategy domain.ConflictResolution `json:"strategy,omitempty"`
	Backup   bool                      `json:"backup,omitempty"`
}

// LinkStateRequest reports the platform link signal.
type LinkStateRequest struct {
	Up bool `json:"up"`
}

// QueryValues is the subset of url.Values parsing the list endpoints share.
type QueryValues interface {
	Get(key string) string
}

// ParseSongQuery builds a store query from request parameters.
func ParseSongQuery(v QueryValues) (store.SongQuery, error) {
	q := store.SongQuery{
		Key:      v.Get("key"),
		Search:   v.Get("search"),
		SortBy:   v.Get("sort"),
		SortDesc: v.Get("order") == "desc",
	}
	if status := v.Get("sync_status"); status != "" {
		q.SyncStatus = domain.SyncStatus(status)
	}
	if tags := v.Get("tags"); tags != "" {
		q.Tags = strings.Split(tags, ",")
	}
	q.FavoritesOnly = v.Get("favorites") == "true"

	var err error
	if q.Limit, err = parseIntParam(v.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = parseIntParam(v.Get("offset"), "offset"); err != nil {
		return q, err
	}
	if q.UpdatedSince, err = parseTimeParam(v.Get("since"), "since"); err != nil {
		return q, err
	}
	if q.UpdatedBefore, err = parseTimeParam(v.Get("until"), "until"); err != nil {
		return q, err
	}
	return q, nil
}

// ParseSetlistQuery builds a store query from request parameters.
func ParseSetlistQuery(v QueryValues) (store.SetlistQuery, error) {
	q := store.SetlistQuery{
		CreatedBy: v.Get("created_by"),
		Search:    v.Get("search"),
		SortBy:    v.Get("sort"),
		SortDesc:  v.Get("order") == "desc",
	}
	if status := v.Get("sync_status"); status != "" {
		q.SyncStatus = domain.SyncStatus(status)
	}

	var err error
	if q.Limit, err = parseIntParam(v.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = parseIntParam(v.Get("offset"), "offset"); err != nil {
		return q, err
	}
	if q.UpdatedSince, err = parseTimeParam(v.Get("since"), "since"); err != nil {
		return q, err
	}
	if q.UpdatedBefore, err = parseTimeParam(v.Get("until"), "until"); err != nil {
		return q, err
	}
	return q, nil
}

// ParseExportOptions builds export options from request parameters.
func ParseExportOptions(v QueryValues, exportedBy string) (offline.ExportOptions, error) {
	opts := offline.ExportOptions{
		IncludeSongs:       v.Get("songs") != "false",
		IncludeSetlists:    v.Get("setlists") != "false",
		IncludePreferences: v.Get("preferences") != "false",
		Compress:           v.Get("compress") == "true",
		ExportedBy:         exportedBy,
	}
	var err error
	if opts.Since, err = parseTimeParam(v.Get("since"), "since"); err != nil {
		return opts, err
	}
	if opts.Until, err = parseTimeParam(v.Get("until"), "until"); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseIntParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &domain.ValidationError{Field: field, Message: fmt.Sprintf("must be a non-negative integer, got: %s", raw)}
	}
	return n, nil
}

func parseTimeParam(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &domain.ValidationError{Field: field, Message: "must be RFC3339, got: " + raw}
	}
	return &t, nil
}
