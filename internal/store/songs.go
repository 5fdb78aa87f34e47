package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
)

// SongQuery filters and orders a song listing. Zero values mean "no filter".
type SongQuery struct {
	SyncStatus    domain.SyncStatus
	Key           string
	Tags          []string
	FavoritesOnly bool
	UpdatedSince  *time.Time
	UpdatedBefore *time.Time
	Search        string
	SortBy        string // created, updated, name, access
	SortDesc      bool
	Limit         int
	Offset        int
}

func (db *DB) PutSong(song *domain.CachedSong) error {
	query := `INSERT INTO songs (
		id, title, artist, key_name, tempo, time_signature, capo, lyrics, chord_sheet,
		tags, is_favorite, access_count, last_accessed_at, file_size, checksum,
		server_id, server_version, sync_status, last_synced_at, version, created_at, updated_at
	) VALUES (
		:id, :title, :artist, :key_name, :tempo, :time_signature, :capo, :lyrics, :chord_sheet,
		:tags, :is_favorite, :access_count, :last_accessed_at, :file_size, :checksum,
		:server_id, :server_version, :sync_status, :last_synced_at, :version, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		artist = excluded.artist,
		key_name = excluded.key_name,
		tempo = excluded.tempo,
		time_signature = excluded.time_signature,
		capo = excluded.capo,
		lyrics = excluded.lyrics,
		chord_sheet = excluded.chord_sheet,
		tags = excluded.tags,
		is_favorite = excluded.is_favorite,
		access_count = excluded.access_count,
		last_accessed_at = excluded.last_accessed_at,
		file_size = excluded.file_size,
		checksum = excluded.checksum,
		server_id = excluded.server_id,
		server_version = excluded.server_version,
		sync_status = excluded.sync_status,
		last_synced_at = excluded.last_synced_at,
		version = excluded.version,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at`

	_, err := db.NamedExec(query, song)
	return err
}

func (db *DB) GetSong(id string) (*domain.CachedSong, error) {
	song := &domain.CachedSong{}
	err := db.Get(song, `SELECT * FROM songs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

func (db *DB) ListSongs(q SongQuery) ([]*domain.CachedSong, error) {
	var where []string
	var args []interface{}

	if q.SyncStatus != "" {
		where = append(where, "sync_status = ?")
		args = append(args, q.SyncStatus)
	}
	if q.Key != "" {
		where = append(where, "key_name = ?")
		args = append(args, q.Key)
	}
	if q.FavoritesOnly {
		where = append(where, "is_favorite = 1")
	}
	if q.UpdatedSince != nil {
		where = append(where, "updated_at >= ?")
		args = append(args, *q.UpdatedSince)
	}
	if q.UpdatedBefore != nil {
		where = append(where, "updated_at <= ?")
		args = append(args, *q.UpdatedBefore)
	}
	if q.Search != "" {
		where = append(where, "(title LIKE ? OR artist LIKE ? OR lyrics LIKE ?)")
		pat := "%" + q.Search + "%"
		args = append(args, pat, pat, pat)
	}
	for _, tag := range q.Tags {
		where = append(where, "tags LIKE ?")
		args = append(args, `%"`+tag+`"%`)
	}

	query := `SELECT * FROM songs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	order := "created_at"
	switch q.SortBy {
	case "updated":
		order = "updated_at"
	case "name":
		order = "title COLLATE NOCASE"
	case "access":
		order = "last_accessed_at"
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", order, dir)

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	var songs []*domain.CachedSong
	err := db.Select(&songs, query, args...)
	return songs, err
}

func (db *DB) DeleteSong(id string) error {
	_, err := db.Exec(`DELETE FROM songs WHERE id = ?`, id)
	return err
}

func (db *DB) ClearSongs() error {
	_, err := db.Exec(`DELETE FROM songs`)
	return err
}

// TouchSongAccess bumps access stats without changing version or sync status.
func (db *DB) TouchSongAccess(id string, at time.Time) error {
	query := `UPDATE songs SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`
	_, err := db.Exec(query, at, id)
	return err
}

func (db *DB) MarkSongSynced(id string, at time.Time) error {
	query := `UPDATE songs SET sync_status = ?, last_synced_at = ? WHERE id = ?`
	_, err := db.Exec(query, domain.SyncStatusSynced, at, id)
	return err
}

type EntityStats struct {
	Count int   `db:"count"`
	Bytes int64 `db:"bytes"`
}

func (db *DB) GetSongStats() (*EntityStats, error) {
	stats := &EntityStats{}
	err := db.Get(stats, `SELECT COUNT(*) as count, COALESCE(SUM(file_size), 0) as bytes FROM songs`)
	return stats, err
}
