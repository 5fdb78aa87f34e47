package domain

import (
	"encoding/json"
	"time"
)

type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

type Resource string

const (
	ResourceSong        Resource = "song"
	ResourceSetlist     Resource = "setlist"
	ResourceArrangement Resource = "arrangement"
)

type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationSyncing   OperationStatus = "syncing"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
)

// SyncOperation is a durable intent to mutate a remote resource. Data is a
// payload snapshot taken at enqueue time and never mutated afterwards.
// Seq gives the queue its FIFO order.
type SyncOperation struct {
	Seq        int64           `json:"seq" db:"seq"`
	ID         string          `json:"id" db:"id"`
	Type       OperationType   `json:"type" db:"type"`
	Resource   Resource        `json:"resource" db:"resource"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Data       json.RawMessage `json:"data,omitempty" db:"data"`
	Status     OperationStatus `json:"status" db:"status"`
	RetryCount int             `json:"retry_count" db:"retry_count"`
	MaxRetries int             `json:"max_retries" db:"max_retries"`
	LastError  *string         `json:"last_error,omitempty" db:"last_error"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// QueueStats aggregates sync queue counts by status.
type QueueStats struct {
	Total     int `db:"total" json:"total"`
	Pending   int `db:"pending" json:"pending"`
	Syncing   int `db:"syncing" json:"syncing"`
	Completed int `db:"completed" json:"completed"`
	Failed    int `db:"failed" json:"failed"`
}
