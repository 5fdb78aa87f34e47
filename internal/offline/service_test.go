package offline

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/logger"
	"github.com/Kuebic/songbook-offline/internal/store"
)

type fakeQuota struct {
	usage int64
	quota int64
	err   error
}

func (f *fakeQuota) Estimate() (int64, int64, error) {
	return f.usage, f.quota, f.err
}

func setupService(t *testing.T, quota QuotaEstimator) *Service {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db, logger.Default(), NewBus(), quota)
}

func TestService_SaveSongStampsAndVersions(t *testing.T) {
	svc := setupService(t, nil)

	saved, err := svc.SaveSong(&domain.CachedSong{Title: "How Great Thou Art", Artist: "Trad."})
	if err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}
	if saved.ID == "" {
		t.Error("Expected generated id")
	}
	if saved.Version != 1 {
		t.Errorf("Expected version 1, got %d", saved.Version)
	}
	if saved.SyncStatus != domain.SyncStatusPending {
		t.Errorf("Expected pending sync status, got %s", saved.SyncStatus)
	}
	if saved.FileSize == 0 || saved.Checksum == "" {
		t.Error("Expected computed file size and checksum")
	}

	saved.Artist = "Traditional"
	again, err := svc.SaveSong(saved)
	if err != nil {
		t.Fatalf("SaveSong update failed: %v", err)
	}
	if again.Version != 2 {
		t.Errorf("Expected version 2 after update, got %d", again.Version)
	}
	if !again.CreatedAt.Equal(saved.CreatedAt) {
		t.Error("Expected createdAt preserved on update")
	}
}

func TestService_SaveSongValidation(t *testing.T) {
	svc := setupService(t, nil)

	_, err := svc.SaveSong(&domain.CachedSong{Artist: "No Title"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Field != "title" {
		t.Errorf("Expected title field error, got %s", verr.Field)
	}
}

func TestService_SaveSongQuotaExceeded(t *testing.T) {
	svc := setupService(t, &fakeQuota{usage: 99, quota: 100})

	_, err := svc.SaveSong(&domain.CachedSong{Title: "Too Big", Lyrics: "la la la"})
	var qerr *domain.QuotaExceededError
	if !errors.As(err, &qerr) {
		t.Fatalf("Expected QuotaExceededError, got %v", err)
	}
}

func TestService_GetSongReturnsCopy(t *testing.T) {
	svc := setupService(t, nil)

	saved, err := svc.SaveSong(&domain.CachedSong{Title: "Original"})
	if err != nil {
		t.Fatalf("SaveSong failed: %v", err)
	}

	got, err := svc.GetSong(saved.ID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	got.Title = "mutated by caller"

	again, _ := svc.GetSong(saved.ID)
	if again.Title != "Original" {
		t.Error("Caller mutation leaked into the cache")
	}
}

func TestService_DeleteSongIdempotent(t *testing.T) {
	svc := setupService(t, nil)

	saved, _ := svc.SaveSong(&domain.CachedSong{Title: "Doomed"})
	if err := svc.DeleteSong(saved.ID); err != nil {
		t.Errorf("DeleteSong failed: %v", err)
	}
	if err := svc.DeleteSong(saved.ID); err != nil {
		t.Errorf("Second DeleteSong failed: %v", err)
	}

	got, err := svc.GetSong(saved.ID)
	if err != nil || got != nil {
		t.Errorf("Expected song gone, got %v, %v", got, err)
	}
}

func TestService_Events(t *testing.T) {
	svc := setupService(t, nil)

	var added, deleted []string
	unsubAdd := svc.Events().Subscribe(domain.EventSongAdded, func(e domain.Event) {
		added = append(added, e.EntityID)
	})
	defer unsubAdd()
	unsubDel := svc.Events().Subscribe(domain.EventSongDeleted, func(e domain.Event) {
		deleted = append(deleted, e.EntityID)
	})

	saved, _ := svc.SaveSong(&domain.CachedSong{Title: "Evented"})
	if len(added) != 1 || added[0] != saved.ID {
		t.Errorf("Expected one song_added event for %s, got %v", saved.ID, added)
	}

	_ = svc.DeleteSong(saved.ID)
	if len(deleted) != 1 {
		t.Errorf("Expected one song_deleted event, got %v", deleted)
	}

	// Unsubscribed handlers stay silent; deletes of absent ids emit nothing
	unsubDel()
	_ = svc.DeleteSong(saved.ID)
	if len(deleted) != 1 {
		t.Errorf("Expected no further delete events, got %v", deleted)
	}
}

func TestService_SetlistItemOperations(t *testing.T) {
	svc := setupService(t, nil)

	setlist, err := svc.SaveSetlist(&domain.CachedSetlist{Name: "Sunday Morning", CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("SaveSetlist failed: %v", err)
	}

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := svc.AddSongToSetlist(setlist.ID, domain.SetlistItem{SongID: id, Transpose: 2}, -1); err != nil {
			t.Fatalf("AddSongToSetlist failed: %v", err)
		}
	}

	updated, err := svc.RemoveSongFromSetlist(setlist.ID, "s1")
	if err != nil {
		t.Fatalf("RemoveSongFromSetlist failed: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(updated.Items))
	}
	for i, item := range updated.Items {
		if item.Order != i {
			t.Errorf("Expected dense order %d, got %d", i, item.Order)
		}
	}

	// Undo restores the pre-removal snapshot
	restored, err := svc.UndoSetlist(setlist.ID)
	if err != nil {
		t.Fatalf("UndoSetlist failed: %v", err)
	}
	if len(restored.Items) != 3 {
		t.Errorf("Expected undo to restore 3 items, got %d", len(restored.Items))
	}
	if restored.Version <= updated.Version {
		t.Errorf("Expected undo to bump version past %d, got %d", updated.Version, restored.Version)
	}
}

func TestService_DuplicateSetlist(t *testing.T) {
	svc := setupService(t, nil)

	original, _ := svc.SaveSetlist(&domain.CachedSetlist{
		Name:       "Original",
		CreatedBy:  "u1",
		IsPublic:   true,
		ShareToken: "tok",
		Items:      domain.SetlistItems{{SongID: "s1"}},
	})

	copy, err := svc.DuplicateSetlist(original.ID, "")
	if err != nil {
		t.Fatalf("DuplicateSetlist failed: %v", err)
	}
	if copy.ID == original.ID {
		t.Error("Expected new id for duplicate")
	}
	if copy.Name != "Original (copy)" {
		t.Errorf("Expected default copy name, got %q", copy.Name)
	}
	if copy.ShareToken != "" || copy.IsPublic {
		t.Error("Expected sharing metadata cleared on duplicate")
	}
	if len(copy.Items) != 1 {
		t.Errorf("Expected items carried over, got %d", len(copy.Items))
	}
}

func TestService_Preferences(t *testing.T) {
	svc := setupService(t, nil)

	missing, err := svc.GetPreferences("u1")
	if err != nil || missing != nil {
		t.Errorf("Expected nil,nil for unset preferences, got %v, %v", missing, err)
	}

	saved, err := svc.SavePreferences(&domain.UserPreferences{UserID: "u1", Theme: "dark", FontSize: 14})
	if err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("Expected version 1, got %d", saved.Version)
	}

	saved.Theme = "light"
	again, _ := svc.SavePreferences(saved)
	if again.Version != 2 {
		t.Errorf("Expected version 2, got %d", again.Version)
	}

	_, err = svc.SavePreferences(&domain.UserPreferences{})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for missing user id, got %v", err)
	}
}

func TestService_TouchUpdatesAccessStats(t *testing.T) {
	svc := setupService(t, nil)

	saved, _ := svc.SaveSong(&domain.CachedSong{Title: "Tracked"})
	if _, err := svc.GetSong(saved.ID); err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}

	// The access bump is fire-and-forget; give it a moment to land.
	deadline := time.Now().Add(2 * time.Second)
	for {
		song, err := svc.db.GetSong(saved.ID)
		if err != nil {
			t.Fatalf("GetSong failed: %v", err)
		}
		if song.AccessCount > 0 && song.LastAccessedAt != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Access stats never recorded: %+v", song)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
