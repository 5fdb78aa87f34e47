package syncqueue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/logger"
	"github.com/Kuebic/songbook-offline/internal/netmon"
	"github.com/Kuebic/songbook-offline/internal/offline"
	"github.com/Kuebic/songbook-offline/internal/store"
)

// stubRemote records applied operations and fails on demand.
type stubRemote struct {
	mu      sync.Mutex
	applied []string // entity ids in apply order
	failAll bool
	failFor map[string]bool
	started chan struct{} // closed on first Apply, if set
	block   chan struct{} // Apply waits on this, if set
}

func (r *stubRemote) Apply(_ context.Context, op *domain.SyncOperation) error {
	r.mu.Lock()
	r.applied = append(r.applied, op.EntityID)
	started := r.started
	r.started = nil
	fail := r.failAll || r.failFor[op.EntityID]
	block := r.block
	r.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	if fail {
		return errors.New("remote unavailable")
	}
	return nil
}

func (r *stubRemote) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.applied...)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

func setupQueue(t *testing.T, remote Remote, monitor *netmon.Monitor, bus *offline.Bus, cfg *Config) (*Queue, *store.DB) {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if cfg == nil {
		cfg = &Config{RetryDelay: time.Millisecond}
	}
	return NewQueue(db, remote, monitor, bus, testLogger(), cfg), db
}

func TestQueue_DrainFIFO(t *testing.T) {
	remote := &stubRemote{}
	bus := offline.NewBus()
	q, _ := setupQueue(t, remote, nil, bus, nil)

	var completed int
	unsub := bus.Subscribe(domain.EventSyncCompleted, func(domain.Event) { completed++ })
	defer unsub()

	for _, id := range []string{"song-a", "song-b", "song-c"} {
		if _, err := q.Enqueue(domain.OperationCreate, domain.ResourceSong, id, map[string]string{"id": id}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	processed, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 3 {
		t.Errorf("Expected 3 processed, got %d", processed)
	}

	calls := remote.calls()
	if len(calls) != 3 || calls[0] != "song-a" || calls[1] != "song-b" || calls[2] != "song-c" {
		t.Errorf("Expected enqueue-order apply, got %v", calls)
	}
	if completed != 3 {
		t.Errorf("Expected 3 completion events, got %d", completed)
	}

	stats, err := q.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Pending != 0 || stats.Completed != 3 {
		t.Errorf("Unexpected stats after drain: %+v", stats)
	}
}

func TestQueue_RetryBound(t *testing.T) {
	remote := &stubRemote{failAll: true}
	bus := offline.NewBus()
	q, db := setupQueue(t, remote, nil, bus, &Config{MaxRetries: 3, RetryDelay: time.Millisecond})

	var failures int
	unsub := bus.Subscribe(domain.EventSyncFailed, func(domain.Event) { failures++ })
	defer unsub()

	op, err := q.Enqueue(domain.OperationUpdate, domain.ResourceSong, "song-x", nil)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	processed, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 0 {
		t.Errorf("Expected 0 processed, got %d", processed)
	}

	if got := len(remote.calls()); got != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", got)
	}
	if failures != 1 {
		t.Errorf("Expected 1 failure event, got %d", failures)
	}

	stored, err := db.GetOperation(op.ID)
	if err != nil {
		t.Fatalf("GetOperation failed: %v", err)
	}
	if stored.Status != domain.OperationFailed {
		t.Errorf("Expected failed status, got %s", stored.Status)
	}
	if stored.RetryCount != 3 {
		t.Errorf("Expected retry count 3, got %d", stored.RetryCount)
	}
	if stored.LastError == nil || *stored.LastError == "" {
		t.Error("Expected last error recorded")
	}

	// A terminal failure never resurrects on its own.
	if _, err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if got := len(remote.calls()); got != 3 {
		t.Errorf("Expected no further attempts, got %d", got)
	}
}

func TestQueue_FailedOperationDoesNotBlockRest(t *testing.T) {
	remote := &stubRemote{failFor: map[string]bool{"doomed": true}}
	q, db := setupQueue(t, remote, nil, nil, &Config{MaxRetries: 2, RetryDelay: time.Millisecond})

	bad, _ := q.Enqueue(domain.OperationCreate, domain.ResourceSong, "doomed", nil)
	good, _ := q.Enqueue(domain.OperationCreate, domain.ResourceSong, "fine", nil)

	processed, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 1 {
		t.Errorf("Expected 1 processed, got %d", processed)
	}

	badOp, _ := db.GetOperation(bad.ID)
	goodOp, _ := db.GetOperation(good.ID)
	if badOp.Status != domain.OperationFailed {
		t.Errorf("Expected head operation failed, got %s", badOp.Status)
	}
	if goodOp.Status != domain.OperationCompleted {
		t.Errorf("Expected trailing operation completed, got %s", goodOp.Status)
	}
}

func TestQueue_RetryFailedResets(t *testing.T) {
	remote := &stubRemote{failAll: true}
	q, db := setupQueue(t, remote, nil, nil, &Config{MaxRetries: 1, RetryDelay: time.Millisecond})

	op, _ := q.Enqueue(domain.OperationDelete, domain.ResourceSetlist, "sl-1", nil)
	if _, err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	stored, _ := db.GetOperation(op.ID)
	if stored.Status != domain.OperationFailed {
		t.Fatalf("Expected failed, got %s", stored.Status)
	}

	n, err := q.RetryFailed()
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 reset, got %d", n)
	}
	stored, _ = db.GetOperation(op.ID)
	if stored.Status != domain.OperationPending || stored.RetryCount != 0 {
		t.Errorf("Expected fresh pending op, got %+v", stored)
	}

	remote.mu.Lock()
	remote.failAll = false
	remote.mu.Unlock()
	processed, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 1 {
		t.Errorf("Expected 1 processed after retry, got %d", processed)
	}
}

func TestQueue_DrainRefusesWhileOffline(t *testing.T) {
	monitor := netmon.NewMonitor(nil, time.Hour, testLogger())
	remote := &stubRemote{}
	q, db := setupQueue(t, remote, monitor, nil, nil)

	op, _ := q.Enqueue(domain.OperationCreate, domain.ResourceSong, "song-1", nil)

	processed, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 0 {
		t.Errorf("Expected nothing processed offline, got %d", processed)
	}
	if len(remote.calls()) != 0 {
		t.Error("Remote must not be called while offline")
	}
	stored, _ := db.GetOperation(op.ID)
	if stored.Status != domain.OperationPending {
		t.Errorf("Operation should stay pending, got %s", stored.Status)
	}
}

func TestQueue_SingleDrainAtATime(t *testing.T) {
	remote := &stubRemote{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	q, _ := setupQueue(t, remote, nil, nil, nil)
	if _, err := q.Enqueue(domain.OperationCreate, domain.ResourceSong, "song-1", nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := q.Drain(context.Background()); err != nil {
			t.Errorf("Drain failed: %v", err)
		}
	}()

	<-remote.started
	processed, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Second drain failed: %v", err)
	}
	if processed != 0 {
		t.Errorf("Concurrent drain should be a no-op, got %d processed", processed)
	}

	close(remote.block)
	<-done
}

func TestQueue_MarksEntitySynced(t *testing.T) {
	remote := &stubRemote{}
	q, db := setupQueue(t, remote, nil, nil, nil)

	song := &domain.CachedSong{
		ID:         "song-1",
		Title:      "Test",
		SyncStatus: domain.SyncStatusPending,
		Version:    1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := db.PutSong(song); err != nil {
		t.Fatalf("PutSong failed: %v", err)
	}
	if _, err := q.Enqueue(domain.OperationCreate, domain.ResourceSong, song.ID, song); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if _, err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	stored, err := db.GetSong(song.ID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if stored.SyncStatus != domain.SyncStatusSynced {
		t.Errorf("Expected synced status, got %s", stored.SyncStatus)
	}
	if stored.LastSyncedAt == nil {
		t.Error("Expected last synced timestamp")
	}
}

func TestQueue_ClearAll(t *testing.T) {
	q, _ := setupQueue(t, &stubRemote{}, nil, nil, nil)
	for _, id := range []string{"a", "b"} {
		if _, err := q.Enqueue(domain.OperationCreate, domain.ResourceSong, id, nil); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	if err := q.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	stats, _ := q.Stats()
	if stats.Total != 0 {
		t.Errorf("Expected empty queue, got %+v", stats)
	}
}

func TestWorker_ResetsInterruptedOperationsOnStart(t *testing.T) {
	q, db := setupQueue(t, &stubRemote{}, nil, nil, &Config{RetryDelay: time.Millisecond, DrainPoll: time.Hour})

	op, _ := q.Enqueue(domain.OperationUpdate, domain.ResourceSetlist, "sl-1", nil)
	if err := db.UpdateOperationStatus(op.ID, domain.OperationSyncing); err != nil {
		t.Fatalf("UpdateOperationStatus failed: %v", err)
	}

	w := NewWorker(q, nil)
	w.Start()
	defer w.Stop()

	stored, err := db.GetOperation(op.ID)
	if err != nil {
		t.Fatalf("GetOperation failed: %v", err)
	}
	if stored.Status != domain.OperationPending {
		t.Errorf("Interrupted operation should be pending again, got %s", stored.Status)
	}
}

// Offline edits accumulate in the queue; once the link comes back a drain
// delivers each of them exactly once.
func TestQueue_OfflineEditsSyncOnReconnect(t *testing.T) {
	monitor := netmon.NewMonitor(nil, time.Hour, testLogger())
	remote := &stubRemote{}
	bus := offline.NewBus()
	q, db := setupQueue(t, remote, monitor, bus, nil)

	svc := offline.NewService(db, testLogger(), bus, nil)
	svc.SetEnqueuer(q)

	setlist, err := svc.SaveSetlist(&domain.CachedSetlist{Name: "Wednesday Rehearsal"})
	if err != nil {
		t.Fatalf("SaveSetlist failed: %v", err)
	}
	if _, err := svc.AddSongToSetlist(setlist.ID, domain.SetlistItem{SongID: "song-1"}, -1); err != nil {
		t.Fatalf("AddSongToSetlist failed: %v", err)
	}

	// Still offline: the edits are durable but nothing reaches the remote.
	if _, err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(remote.calls()) != 0 {
		t.Fatalf("Remote called while offline: %v", remote.calls())
	}
	stats, _ := q.Stats()
	if stats.Pending != 2 {
		t.Fatalf("Expected 2 pending operations, got %+v", stats)
	}

	monitor.SetLinkUp(true)
	processed, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if processed != 2 {
		t.Errorf("Expected 2 processed, got %d", processed)
	}

	calls := remote.calls()
	if len(calls) != 2 {
		t.Fatalf("Expected exactly 2 remote calls, got %v", calls)
	}
	if calls[0] != setlist.ID {
		t.Errorf("Expected setlist create first, got %s", calls[0])
	}
	if calls[1] != setlist.ID+":song-1" {
		t.Errorf("Expected arrangement create second, got %s", calls[1])
	}

	stats, _ = q.Stats()
	if stats.Pending != 0 || stats.Completed != 2 {
		t.Errorf("Expected drained queue, got %+v", stats)
	}
}
