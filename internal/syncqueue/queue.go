// Package syncqueue drains durable local mutations against the remote API,
// in enqueue order, with bounded retry.
package syncqueue

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Kuebic/songbook-offline/internal/constants"
	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/logger"
	"github.com/Kuebic/songbook-offline/internal/netmon"
	"github.com/Kuebic/songbook-offline/internal/offline"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// Remote applies one sync operation against the remote API. A nil error is
// a confirmed success; anything else feeds the retry state machine.
type Remote interface {
	Apply(ctx context.Context, op *domain.SyncOperation) error
}

type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	SettleDelay time.Duration
	DrainPoll   time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := Config{
		MaxRetries:  constants.DefaultMaxRetries,
		RetryDelay:  constants.DefaultRetryDelay,
		SettleDelay: constants.DefaultSettleDelay,
		DrainPoll:   constants.DefaultDrainPoll,
	}
	if c == nil {
		return cfg
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.RetryDelay > 0 {
		cfg.RetryDelay = c.RetryDelay
	}
	if c.SettleDelay >= 0 {
		cfg.SettleDelay = c.SettleDelay
	}
	if c.DrainPoll > 0 {
		cfg.DrainPoll = c.DrainPoll
	}
	return cfg
}

// Queue is the durable sync queue. One drain pass runs at a time; an
// operation in flight always resolves before queue state changes.
type Queue struct {
	db      *store.DB
	remote  Remote
	monitor *netmon.Monitor
	bus     *offline.Bus
	log     *logger.Logger
	cfg     Config

	drainSem chan struct{}
}

func NewQueue(db *store.DB, remote Remote, monitor *netmon.Monitor, bus *offline.Bus, log *logger.Logger, cfg *Config) *Queue {
	return &Queue{
		db:       db,
		remote:   remote,
		monitor:  monitor,
		bus:      bus,
		log:      log.WithComponent("syncqueue"),
		cfg:      cfg.withDefaults(),
		drainSem: make(chan struct{}, 1),
	}
}

// Enqueue stores a durable operation with a payload snapshot taken now.
// Implements offline.Enqueuer.
func (q *Queue) Enqueue(opType domain.OperationType, resource domain.Resource, entityID string, payload any) (*domain.SyncOperation, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.ValidationError{Field: "payload", Message: "not serializable: " + err.Error()}
	}

	now := time.Now()
	op := &domain.SyncOperation{
		ID:         uuid.New().String(),
		Type:       opType,
		Resource:   resource,
		EntityID:   entityID,
		Data:       data,
		Status:     domain.OperationPending,
		MaxRetries: q.cfg.MaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := q.db.EnqueueOperation(op); err != nil {
		return nil, &domain.StorageError{Op: "enqueue", Err: err}
	}
	q.log.Debug("Operation enqueued", "op_id", op.ID, "type", opType, "resource", resource, "entity_id", entityID)
	return op, nil
}

// Drain processes pending operations in FIFO order until the queue is empty,
// connectivity drops, or the context is cancelled. Only one drain runs at a
// time; a second call returns immediately with zero processed.
func (q *Queue) Drain(ctx context.Context) (int, error) {
	select {
	case q.drainSem <- struct{}{}:
	default:
		return 0, nil
	}
	defer func() { <-q.drainSem }()

	processed := 0
	for {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if q.monitor != nil && q.monitor.EffectiveStatus() != netmon.StatusOnline {
			q.log.Debug("Drain stopping: not online")
			return processed, nil
		}

		op, err := q.db.NextPendingOperation()
		if err != nil {
			return processed, &domain.StorageError{Op: "next pending", Err: err}
		}
		if op == nil {
			return processed, nil
		}

		if err := q.db.UpdateOperationStatus(op.ID, domain.OperationSyncing); err != nil {
			return processed, &domain.StorageError{Op: "mark syncing", Err: err}
		}

		// The in-flight call always resolves; cancellation only prevents
		// starting the next operation.
		applyErr := q.remote.Apply(ctx, op)
		if applyErr == nil {
			if err := q.db.MarkOperationCompleted(op.ID); err != nil {
				return processed, &domain.StorageError{Op: "mark completed", Err: err}
			}
			q.markEntitySynced(op)
			q.publish(domain.EventSyncCompleted, op, "")
			q.log.Info("Operation synced", "op_id", op.ID, "resource", op.Resource, "entity_id", op.EntityID)
			processed++
			continue
		}

		if op.RetryCount+1 >= op.MaxRetries {
			if err := q.db.MarkOperationFailed(op.ID, applyErr.Error()); err != nil {
				return processed, &domain.StorageError{Op: "mark failed", Err: err}
			}
			q.publish(domain.EventSyncFailed, op, applyErr.Error())
			q.log.Warn("Operation failed permanently", "op_id", op.ID, "resource", op.Resource, "retries", op.RetryCount+1, "error", applyErr)
			continue
		}

		if err := q.db.RecordOperationRetry(op.ID, applyErr.Error()); err != nil {
			return processed, &domain.StorageError{Op: "record retry", Err: err}
		}
		q.log.Debug("Operation retry scheduled", "op_id", op.ID, "retry", op.RetryCount+1, "error", applyErr)

		// Short fixed delay plus jitter between attempts.
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		case <-time.After(q.retryBackoff()):
		}
	}
}

func (q *Queue) retryBackoff() time.Duration {
	return q.cfg.RetryDelay + time.Duration(rand.Int63n(int64(constants.RetryJitter)+1))
}

func (q *Queue) markEntitySynced(op *domain.SyncOperation) {
	if op.Type == domain.OperationDelete {
		return
	}
	now := time.Now()
	var err error
	switch op.Resource {
	case domain.ResourceSong:
		err = q.db.MarkSongSynced(op.EntityID, now)
	case domain.ResourceSetlist:
		err = q.db.MarkSetlistSynced(op.EntityID, now)
	case domain.ResourceArrangement:
		// Arrangements live inside their setlist record; nothing to mark.
	}
	if err != nil {
		q.log.Warn("Failed to mark entity synced", "op_id", op.ID, "entity_id", op.EntityID, "error", err)
	}
}

func (q *Queue) publish(t domain.EventType, op *domain.SyncOperation, errMsg string) {
	if q.bus == nil {
		return
	}
	e := domain.Event{Type: t, EntityID: op.EntityID, Resource: op.Resource}
	if errMsg != "" {
		e.Detail = errMsg
	}
	q.bus.Publish(e)
}

// RetryFailed resets failed operations to pending for the next drain.
func (q *Queue) RetryFailed() (int64, error) {
	n, err := q.db.RetryFailedOperations()
	if err != nil {
		return 0, &domain.StorageError{Op: "retry failed", Err: err}
	}
	if n > 0 {
		q.log.Info("Failed operations reset for retry", "count", n)
	}
	return n, nil
}

// ClearCompleted prunes terminal completed operations older than the
// retention window.
func (q *Queue) ClearCompleted() (int64, error) {
	cutoff := time.Now().Add(-constants.CompletedRetention)
	n, err := q.db.ClearCompletedOperations(cutoff)
	if err != nil {
		return 0, &domain.StorageError{Op: "clear completed", Err: err}
	}
	return n, nil
}

// ClearAll wipes the queue. Destructive; for logout and account switches.
func (q *Queue) ClearAll() error {
	if err := q.db.ClearAllOperations(); err != nil {
		return &domain.StorageError{Op: "clear all", Err: err}
	}
	q.log.Warn("Sync queue cleared")
	return nil
}

// List returns queue entries, optionally filtered by status.
func (q *Queue) List(status domain.OperationStatus, limit int) ([]*domain.SyncOperation, error) {
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	ops, err := q.db.ListOperations(status, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "list operations", Err: err}
	}
	return ops, nil
}

// Stats returns queue counts by status.
func (q *Queue) Stats() (*domain.QueueStats, error) {
	stats, err := q.db.GetQueueStats()
	if err != nil {
		return nil, &domain.StorageError{Op: "queue stats", Err: err}
	}
	return stats, nil
}
