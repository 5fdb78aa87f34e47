package offline

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Kuebic/songbook-offline/internal/constants"
	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// ExportOptions selects what goes into an export bundle.
type ExportOptions struct {
	IncludeSongs       bool       `json:"include_songs"`
	IncludeSetlists    bool       `json:"include_setlists"`
	IncludePreferences bool       `json:"include_preferences"`
	Since              *time.Time `json:"since,omitempty"`
	Until              *time.Time `json:"until,omitempty"`
	Compress           bool       `json:"compress"`
	ExportedBy         string     `json:"exported_by,omitempty"`
}

// exportBundle is the inner payload the checksum covers, with or without
// compression.
type exportBundle struct {
	Songs       []*domain.CachedSong      `json:"songs,omitempty"`
	Setlists    []*domain.CachedSetlist   `json:"setlists,omitempty"`
	Preferences []*domain.UserPreferences `json:"preferences,omitempty"`
}

// ExportData reads a snapshot of the requested entity types directly from
// the store (the sync queue is not involved) and returns an immutable
// bundle with a content checksum.
func (s *Service) ExportData(opts ExportOptions) (*domain.ExportData, error) {
	bundle := exportBundle{}
	var err error

	if opts.IncludeSongs {
		bundle.Songs, err = s.db.ListSongs(store.SongQuery{UpdatedSince: opts.Since, UpdatedBefore: opts.Until})
		if err != nil {
			return nil, &domain.StorageError{Op: "export songs", Err: err}
		}
	}
	if opts.IncludeSetlists {
		bundle.Setlists, err = s.db.ListSetlists(store.SetlistQuery{UpdatedSince: opts.Since, UpdatedBefore: opts.Until})
		if err != nil {
			return nil, &domain.StorageError{Op: "export setlists", Err: err}
		}
	}
	if opts.IncludePreferences {
		bundle.Preferences, err = s.db.ListPreferences()
		if err != nil {
			return nil, &domain.StorageError{Op: "export preferences", Err: err}
		}
	}

	inner, err := json.Marshal(bundle)
	if err != nil {
		return nil, &domain.StorageError{Op: "marshal export", Err: err}
	}

	data := &domain.ExportData{
		Version:    constants.ExportFormatVersion,
		ExportedAt: time.Now(),
		ExportedBy: opts.ExportedBy,
		Checksum:   bundleChecksum(inner),
	}

	if opts.Compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(inner); err != nil {
			return nil, &domain.StorageError{Op: "compress export", Err: err}
		}
		if err := gz.Close(); err != nil {
			return nil, &domain.StorageError{Op: "compress export", Err: err}
		}
		data.Compressed = true
		data.Payload = base64.StdEncoding.EncodeToString(buf.Bytes())
	} else {
		data.Songs = bundle.Songs
		data.Setlists = bundle.Setlists
		data.Preferences = bundle.Preferences
	}

	s.log.Info("Export produced",
		"songs", len(bundle.Songs),
		"setlists", len(bundle.Setlists),
		"preferences", len(bundle.Preferences),
		"compressed", data.Compressed)
	return data, nil
}

// bundleChecksum hashes the canonical JSON of the inner bundle so a round
// trip verifies regardless of compression.
func bundleChecksum(inner []byte) string {
	return strconv.FormatUint(xxhash.Sum64(inner), 16)
}
