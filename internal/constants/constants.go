// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort          = "8080"
	DefaultDBPath        = "songbook.db"
	DefaultRemoteURL     = "http://127.0.0.1:9000"
	DefaultUserID        = "local"
	DefaultHTTPTimeout   = 30 * time.Second
	MinRequestInterval   = 100 * time.Millisecond
	DefaultProbeInterval = 30 * time.Second
	DefaultSettleDelay   = 2 * time.Second
)

// Sync queue
const (
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	RetryJitter        = 250 * time.Millisecond
	DefaultDrainPoll   = 5 * time.Second
	CompletedRetention = 24 * time.Hour
)

// Storage quota
const (
	DefaultQuotaBytes      = int64(100 << 20) // 100 MiB
	QuotaWarningThreshold  = 0.80
	QuotaCriticalThreshold = 0.95
)

// Query limits
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Setlist editing
const (
	MaxUndoHistory = 50
)

// Export format
const (
	ExportFormatVersion = 1
)

// Database
const (
	SchemaVersion = 1
)
