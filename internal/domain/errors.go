package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input to a save or import.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a lookup miss.
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// QuotaExceededError reports a write that would breach the storage quota
// with no eviction possible.
type QuotaExceededError struct {
	UsageBytes int64 `json:"usage_bytes"`
	QuotaBytes int64 `json:"quota_bytes"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: %d of %d bytes used", e.UsageBytes, e.QuotaBytes)
}

// InvalidFormatError reports an import bundle failing its structural check.
type InvalidFormatError struct {
	Reason string `json:"reason"`
}

func (e *InvalidFormatError) Error() string {
	return "invalid import format: " + e.Reason
}

// StorageError wraps an underlying adapter I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// SyncError reports a remote call failure with a retryability hint.
type SyncError struct {
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("sync failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
