package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()

	store, err := NewSessionStore(t.TempDir())
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(domain.SessionRecord{
		Summary: "resumen",
		ActionItems: []domain.ActionItem{
			{Title: "Revisar login", Status: domain.StatusPending},
		},
		Transcript: []domain.TranscriptSegment{
			{Text: "hola", Timestamp: 1},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("no id assigned")
	}
	if saved.Title == "" {
		t.Error("no default title assigned")
	}

	got, err := store.Get(saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Summary != "resumen" || len(got.ActionItems) != 1 || len(got.Transcript) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	saved, _ := store.Save(domain.SessionRecord{Summary: "x"})
	if err := store.Delete(saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(saved.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("session readable after delete")
	}
	if err := store.Delete(saved.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second delete: got %v, want ErrSessionNotFound", err)
	}
}

func TestListPaginationAndTruncation(t *testing.T) {
	store := newTestStore(t)

	long := strings.Repeat("a", 300)
	for i := 0; i < 5; i++ {
		_, err := store.Save(domain.SessionRecord{
			Title:     fmt.Sprintf("s%d", i),
			Summary:   long,
			StartTime: int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	entries, total, err := store.List(1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(entries) != 2 {
		t.Fatalf("page size = %d, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Title != "s4" || entries[1].Title != "s3" {
		t.Errorf("order = %s, %s", entries[0].Title, entries[1].Title)
	}
	if len(entries[0].Summary) != listSummaryLimit+3 {
		t.Errorf("summary not truncated: len %d", len(entries[0].Summary))
	}

	entries, _, _ = store.List(3, 2)
	if len(entries) != 1 {
		t.Errorf("last page size = %d, want 1", len(entries))
	}

	entries, _, _ = store.List(9, 2)
	if len(entries) != 0 {
		t.Errorf("beyond-end page size = %d, want 0", len(entries))
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	store.Save(domain.SessionRecord{
		ActionItems: []domain.ActionItem{{Title: "a", Status: domain.StatusPending}, {Title: "b", Status: domain.StatusPending}},
		Transcript:  []domain.TranscriptSegment{{Text: "x"}},
	})
	store.Save(domain.SessionRecord{
		ActionItems: []domain.ActionItem{{Title: "c", Status: domain.StatusPending}},
	})

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSessions != 2 || stats.TotalActionItems != 3 || stats.TotalSegments != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AverageItemsPerGroup != 1.5 {
		t.Errorf("average = %v, want 1.5", stats.AverageItemsPerGroup)
	}
}
