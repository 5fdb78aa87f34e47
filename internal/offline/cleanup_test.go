package offline

import (
	"testing"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// seedSong writes directly through the adapter so access times and ages can
// be controlled exactly.
func seedSong(t *testing.T, svc *Service, id string, accessedAgo, createdAgo time.Duration) {
	t.Helper()
	now := time.Now()
	accessed := now.Add(-accessedAgo)
	song := &domain.CachedSong{
		ID:             id,
		Title:          "Song " + id,
		FileSize:       100,
		AccessCount:    1,
		LastAccessedAt: &accessed,
		SyncStatus:     domain.SyncStatusSynced,
		Version:        1,
		CreatedAt:      now.Add(-createdAgo),
		UpdatedAt:      now.Add(-createdAgo),
	}
	if err := svc.db.PutSong(song); err != nil {
		t.Fatalf("seed song failed: %v", err)
	}
}

func TestCleanup_EvictsLeastRecentlyAccessedFirst(t *testing.T) {
	svc := setupService(t, nil)

	// c is least recently accessed but newest by creation time: LRU order
	// must win over age for cap pressure.
	seedSong(t, svc, "a", 1*time.Hour, 72*time.Hour)
	seedSong(t, svc, "b", 2*time.Hour, 48*time.Hour)
	seedSong(t, svc, "c", 50*time.Hour, 1*time.Hour)

	result, err := svc.Cleanup(CleanupConfig{MaxItems: 2})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.SongsRemoved != 1 {
		t.Fatalf("Expected 1 song removed, got %d", result.SongsRemoved)
	}
	if result.BytesFreed != 100 {
		t.Errorf("Expected 100 bytes freed, got %d", result.BytesFreed)
	}

	gone, _ := svc.db.GetSong("c")
	if gone != nil {
		t.Error("Expected least-recently-accessed song c evicted")
	}
	for _, id := range []string{"a", "b"} {
		if kept, _ := svc.db.GetSong(id); kept == nil {
			t.Errorf("Expected song %s preserved", id)
		}
	}
}

func TestCleanup_PreserveRecentWinsOverAge(t *testing.T) {
	svc := setupService(t, nil)

	// Old by creation but accessed five minutes ago
	seedSong(t, svc, "recent", 5*time.Minute, 100*24*time.Hour)
	seedSong(t, svc, "stale", 90*24*time.Hour, 100*24*time.Hour)

	result, err := svc.Cleanup(CleanupConfig{
		MaxAge:         30 * 24 * time.Hour,
		PreserveRecent: time.Hour,
	})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.SongsRemoved != 1 {
		t.Fatalf("Expected 1 removal, got %d", result.SongsRemoved)
	}
	if kept, _ := svc.db.GetSong("recent"); kept == nil {
		t.Error("Expected recently accessed song preserved despite age")
	}
	if gone, _ := svc.db.GetSong("stale"); gone != nil {
		t.Error("Expected stale song reclaimed by age")
	}
}

func TestCleanup_MaxStorageSize(t *testing.T) {
	svc := setupService(t, nil)

	seedSong(t, svc, "a", 1*time.Hour, 10*time.Hour)
	seedSong(t, svc, "b", 2*time.Hour, 10*time.Hour)
	seedSong(t, svc, "c", 3*time.Hour, 10*time.Hour)

	// 300 bytes stored; cap at 150 forces two LRU evictions
	result, err := svc.Cleanup(CleanupConfig{MaxStorageSize: 150})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.SongsRemoved != 2 {
		t.Errorf("Expected 2 removals, got %d", result.SongsRemoved)
	}
	if kept, _ := svc.db.GetSong("a"); kept == nil {
		t.Error("Expected most recently accessed song kept")
	}
}

func TestCleanup_DryRunReportsWithoutDeleting(t *testing.T) {
	svc := setupService(t, nil)

	seedSong(t, svc, "a", 1*time.Hour, 10*time.Hour)
	seedSong(t, svc, "b", 2*time.Hour, 10*time.Hour)

	var cleanupEvents int
	unsub := svc.Events().Subscribe(domain.EventCleanupCompleted, func(domain.Event) { cleanupEvents++ })
	defer unsub()

	result, err := svc.Cleanup(CleanupConfig{MaxItems: 1, DryRun: true})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if !result.DryRun || result.SongsRemoved != 1 {
		t.Errorf("Expected dry-run report of 1 removal, got %+v", result)
	}

	songs, _ := svc.db.ListSongs(store.SongQuery{})
	if len(songs) != 2 {
		t.Errorf("Dry run deleted songs: %d left", len(songs))
	}
	if cleanupEvents != 0 {
		t.Errorf("Dry run should not emit cleanup events, got %d", cleanupEvents)
	}
}

func TestCleanup_RemovesAgedSetlists(t *testing.T) {
	svc := setupService(t, nil)

	now := time.Now()
	old := &domain.CachedSetlist{
		ID: "old", Name: "Old", SyncStatus: domain.SyncStatusSynced, Version: 1,
		CreatedAt: now.Add(-90 * 24 * time.Hour), UpdatedAt: now.Add(-90 * 24 * time.Hour),
	}
	fresh := &domain.CachedSetlist{
		ID: "fresh", Name: "Fresh", SyncStatus: domain.SyncStatusSynced, Version: 1,
		CreatedAt: now, UpdatedAt: now,
	}
	for _, s := range []*domain.CachedSetlist{old, fresh} {
		if err := svc.db.PutSetlist(s); err != nil {
			t.Fatalf("seed setlist failed: %v", err)
		}
	}

	result, err := svc.Cleanup(CleanupConfig{MaxAge: 30 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.SetlistsRemoved != 1 {
		t.Errorf("Expected 1 setlist removed, got %d", result.SetlistsRemoved)
	}
	if kept, _ := svc.db.GetSetlist("fresh"); kept == nil {
		t.Error("Expected fresh setlist kept")
	}
}
