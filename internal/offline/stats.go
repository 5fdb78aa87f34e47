package offline

import (
	"os"

	"github.com/Kuebic/songbook-offline/internal/constants"
	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// StorageStats aggregates per-entity item counts and byte sizes.
type StorageStats struct {
	Songs       store.EntityStats  `json:"songs"`
	Setlists    store.EntityStats  `json:"setlists"`
	Preferences store.EntityStats  `json:"preferences"`
	Queue       *domain.QueueStats `json:"queue"`
	TotalItems  int                `json:"total_items"`
	TotalBytes  int64              `json:"total_bytes"`
}

// QuotaLevel classifies platform storage usage.
type QuotaLevel string

const (
	QuotaLevelNormal   QuotaLevel = "normal"
	QuotaLevelWarning  QuotaLevel = "warning"
	QuotaLevelCritical QuotaLevel = "critical"
)

// QuotaStatus is the result of a quota check.
type QuotaStatus struct {
	UsageBytes   int64      `json:"usage_bytes"`
	QuotaBytes   int64      `json:"quota_bytes"`
	UsedFraction float64    `json:"used_fraction"`
	Level        QuotaLevel `json:"level"`
}

// QuotaEstimator reports platform storage usage against its quota. The
// default implementation measures the database file; tests substitute fakes.
type QuotaEstimator interface {
	Estimate() (usage, quota int64, err error)
}

// FileQuotaEstimator sizes the SQLite database file against a configured quota.
type FileQuotaEstimator struct {
	Path  string
	Quota int64
}

func (e *FileQuotaEstimator) Estimate() (int64, int64, error) {
	info, err := os.Stat(e.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, e.Quota, nil
		}
		return 0, e.Quota, err
	}
	return info.Size(), e.Quota, nil
}

// GetStorageStats aggregates counts and byte sizes across all stores.
func (s *Service) GetStorageStats() (*StorageStats, error) {
	songs, err := s.db.GetSongStats()
	if err != nil {
		return nil, &domain.StorageError{Op: "song stats", Err: err}
	}
	setlists, err := s.db.GetSetlistStats()
	if err != nil {
		return nil, &domain.StorageError{Op: "setlist stats", Err: err}
	}
	prefs, err := s.db.GetPreferencesStats()
	if err != nil {
		return nil, &domain.StorageError{Op: "preferences stats", Err: err}
	}
	queue, err := s.db.GetQueueStats()
	if err != nil {
		return nil, &domain.StorageError{Op: "queue stats", Err: err}
	}

	return &StorageStats{
		Songs:       *songs,
		Setlists:    *setlists,
		Preferences: *prefs,
		Queue:       queue,
		TotalItems:  songs.Count + setlists.Count + prefs.Count,
		TotalBytes:  songs.Bytes + setlists.Bytes + prefs.Bytes,
	}, nil
}

// CheckStorageQuota classifies usage and emits quota events on threshold
// crossings. Edge-triggered: a repeated check at the same level stays silent.
func (s *Service) CheckStorageQuota() (*QuotaStatus, error) {
	if s.quota == nil {
		return &QuotaStatus{Level: QuotaLevelNormal}, nil
	}

	usage, quota, err := s.quota.Estimate()
	if err != nil {
		return nil, &domain.StorageError{Op: "quota estimate", Err: err}
	}

	status := &QuotaStatus{
		UsageBytes: usage,
		QuotaBytes: quota,
		Level:      QuotaLevelNormal,
	}
	if quota > 0 {
		status.UsedFraction = float64(usage) / float64(quota)
	}
	switch {
	case status.UsedFraction >= constants.QuotaCriticalThreshold:
		status.Level = QuotaLevelCritical
	case status.UsedFraction >= constants.QuotaWarningThreshold:
		status.Level = QuotaLevelWarning
	}

	s.quotaMu.Lock()
	crossed := status.Level != s.lastQuotaLevel
	s.lastQuotaLevel = status.Level
	s.quotaMu.Unlock()

	if crossed {
		switch status.Level {
		case QuotaLevelWarning:
			s.bus.Publish(domain.Event{Type: domain.EventQuotaWarning, Detail: status})
		case QuotaLevelCritical:
			s.bus.Publish(domain.Event{Type: domain.EventQuotaCritical, Detail: status})
		}
	}
	return status, nil
}

// checkQuotaForWrite rejects a write whose estimated size would push usage
// past the quota. Eviction is a deliberate Cleanup call, not a save side
// effect.
func (s *Service) checkQuotaForWrite(size int64) error {
	if s.quota == nil {
		return nil
	}
	usage, quota, err := s.quota.Estimate()
	if err != nil {
		// An unavailable estimator never blocks a local save.
		s.log.Warn("Quota estimate failed", "error", err)
		return nil
	}
	if quota > 0 && usage+size > quota {
		return &domain.QuotaExceededError{UsageBytes: usage, QuotaBytes: quota}
	}
	return nil
}
