package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
)

// SetlistQuery filters and orders a setlist listing.
type SetlistQuery struct {
	CreatedBy     string
	SyncStatus    domain.SyncStatus
	UpdatedSince  *time.Time
	UpdatedBefore *time.Time
	Search        string
	SortBy        string // created, updated, name, used
	SortDesc      bool
	Limit         int
	Offset        int
}

func (db *DB) PutSetlist(setlist *domain.CachedSetlist) error {
	query := `INSERT INTO setlists (
		id, name, description, created_by, items, is_public, share_token,
		usage_count, last_used_at, server_id, server_version,
		sync_status, last_synced_at, version, created_at, updated_at
	) VALUES (
		:id, :name, :description, :created_by, :items, :is_public, :share_token,
		:usage_count, :last_used_at, :server_id, :server_version,
		:sync_status, :last_synced_at, :version, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		created_by = excluded.created_by,
		items = excluded.items,
		is_public = excluded.is_public,
		share_token = excluded.share_token,
		usage_count = excluded.usage_count,
		last_used_at = excluded.last_used_at,
		server_id = excluded.server_id,
		server_version = excluded.server_version,
		sync_status = excluded.sync_status,
		last_synced_at = excluded.last_synced_at,
		version = excluded.version,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at`

	_, err := db.NamedExec(query, setlist)
	return err
}

func (db *DB) GetSetlist(id string) (*domain.CachedSetlist, error) {
	setlist := &domain.CachedSetlist{}
	err := db.Get(setlist, `SELECT * FROM setlists WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return setlist, nil
}

func (db *DB) ListSetlists(q SetlistQuery) ([]*domain.CachedSetlist, error) {
	var where []string
	var args []interface{}

	if q.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, q.CreatedBy)
	}
	if q.SyncStatus != "" {
		where = append(where, "sync_status = ?")
		args = append(args, q.SyncStatus)
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
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		pat := "%" + q.Search + "%"
		args = append(args, pat, pat)
	}

	query := `SELECT * FROM setlists`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	order := "created_at"
	switch q.SortBy {
	case "updated":
		order = "updated_at"
	case "name":
		order = "name COLLATE NOCASE"
	case "used":
		order = "last_used_at"
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

	var setlists []*domain.CachedSetlist
	err := db.Select(&setlists, query, args...)
	return setlists, err
}

func (db *DB) DeleteSetlist(id string) error {
	_, err := db.Exec(`DELETE FROM setlists WHERE id = ?`, id)
	return err
}

func (db *DB) ClearSetlists() error {
	_, err := db.Exec(`DELETE FROM setlists`)
	return err
}

// RecordSetlistUsage bumps usage stats without changing version or sync status.
func (db *DB) RecordSetlistUsage(id string, at time.Time) error {
	query := `UPDATE setlists SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?`
	_, err := db.Exec(query, at, id)
	return err
}

func (db *DB) MarkSetlistSynced(id string, at time.Time) error {
	query := `UPDATE setlists SET sync_status = ?, last_synced_at = ? WHERE id = ?`
	_, err := db.Exec(query, domain.SyncStatusSynced, at, id)
	return err
}

func (db *DB) GetSetlistStats() (*EntityStats, error) {
	stats := &EntityStats{}
	err := db.Get(stats, `SELECT COUNT(*) as count, COALESCE(SUM(LENGTH(items) + LENGTH(name)), 0) as bytes FROM setlists`)
	return stats, err
}
