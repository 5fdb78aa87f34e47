package store

import (
	"database/sql"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
)

func (db *DB) EnqueueOperation(op *domain.SyncOperation) error {
	query := `INSERT INTO sync_queue (id, type, resource, entity_id, data, status, retry_count, max_retries, created_at, updated_at)
		VALUES (:id, :type, :resource, :entity_id, :data, :status, :retry_count, :max_retries, :created_at, :updated_at)`

	_, err := db.NamedExec(query, op)
	return err
}

func (db *DB) GetOperation(id string) (*domain.SyncOperation, error) {
	op := &domain.SyncOperation{}
	err := db.Get(op, `SELECT * FROM sync_queue WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

// NextPendingOperation returns the oldest pending operation by enqueue order,
// or nil when the queue has nothing to drain.
func (db *DB) NextPendingOperation() (*domain.SyncOperation, error) {
	op := &domain.SyncOperation{}
	err := db.Get(op, `SELECT * FROM sync_queue WHERE status = ? ORDER BY seq ASC LIMIT 1`, domain.OperationPending)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (db *DB) ListOperations(status domain.OperationStatus, limit int) ([]*domain.SyncOperation, error) {
	var ops []*domain.SyncOperation
	if status == "" {
		err := db.Select(&ops, `SELECT * FROM sync_queue ORDER BY seq ASC LIMIT ?`, limit)
		return ops, err
	}
	err := db.Select(&ops, `SELECT * FROM sync_queue WHERE status = ? ORDER BY seq ASC LIMIT ?`, status, limit)
	return ops, err
}

func (db *DB) UpdateOperationStatus(id string, status domain.OperationStatus) error {
	query := `UPDATE sync_queue SET status = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, status, time.Now(), id)
	return err
}

// RecordOperationRetry puts a failed attempt back to pending with the retry
// count bumped and the error kept for inspection.
func (db *DB) RecordOperationRetry(id string, errMsg string) error {
	query := `UPDATE sync_queue SET status = ?, retry_count = retry_count + 1, last_error = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, domain.OperationPending, errMsg, time.Now(), id)
	return err
}

func (db *DB) MarkOperationFailed(id string, errMsg string) error {
	query := `UPDATE sync_queue SET status = ?, retry_count = retry_count + 1, last_error = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, domain.OperationFailed, errMsg, time.Now(), id)
	return err
}

func (db *DB) MarkOperationCompleted(id string) error {
	query := `UPDATE sync_queue SET status = ?, last_error = NULL, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, domain.OperationCompleted, time.Now(), id)
	return err
}

// ResetStuckOperations moves operations interrupted mid-sync back to pending.
// Called once on startup: syncing must not survive a process restart.
func (db *DB) ResetStuckOperations() error {
	query := `UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?`
	_, err := db.Exec(query, domain.OperationPending, time.Now(), domain.OperationSyncing)
	return err
}

// RetryFailedOperations resets failed operations for another round of drains.
func (db *DB) RetryFailedOperations() (int64, error) {
	query := `UPDATE sync_queue SET status = ?, retry_count = 0, last_error = NULL, updated_at = ? WHERE status = ?`
	res, err := db.Exec(query, domain.OperationPending, time.Now(), domain.OperationFailed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearCompletedOperations prunes terminal completed entries older than the
// cutoff. Never touches pending or failed.
func (db *DB) ClearCompletedOperations(olderThan time.Time) (int64, error) {
	query := `DELETE FROM sync_queue WHERE status = ? AND updated_at < ?`
	res, err := db.Exec(query, domain.OperationCompleted, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) ClearAllOperations() error {
	_, err := db.Exec(`DELETE FROM sync_queue`)
	return err
}

func (db *DB) GetQueueStats() (*domain.QueueStats, error) {
	query := `SELECT
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) as pending,
		COALESCE(SUM(CASE WHEN status = 'syncing' THEN 1 ELSE 0 END), 0) as syncing,
		COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) as completed,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed
	FROM sync_queue`

	stats := &domain.QueueStats{}
	err := db.Get(stats, query)
	return stats, err
}
