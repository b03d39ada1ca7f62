package stats

import (
	"context"
	"testing"
	"time"

	"beacon-hq/beacon/pkg/visit"
	"beacon-hq/beacon/pkg/visit/storage"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, store visit.Storage, ip, recordedAt string) {
	t.Helper()

	_, err := store.Insert(context.Background(), &visit.Visit{
		IP:         ip,
		Language:   "en-US",
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64)",
		Platform:   "Linux",
		Timezone:   "Europe/Berlin",
		RecordedAt: recordedAt,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func TestAggregator_Stats(t *testing.T) {
	store := storage.NewMemoryStorage()
	agg := New(store)

	// Two clients, three events: A twice, B once.
	seed(t, store, "198.51.100.7", "2024-03-15T10:00:00Z")
	seed(t, store, "198.51.100.7", "2024-03-14T09:00:00Z")
	seed(t, store, "203.0.113.9", "2024-03-15T11:00:00Z")

	got, err := agg.Stats(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if got.UniqueClients != 2 {
		t.Errorf("expected 2 unique clients, got %d", got.UniqueClients)
	}
	if got.TotalEvents != 3 {
		t.Errorf("expected 3 total events, got %d", got.TotalEvents)
	}

	if len(got.Daily) != 2 {
		t.Fatalf("expected 2 daily buckets, got %d: %+v", len(got.Daily), got.Daily)
	}
	// Descending by date, sparse: days without records are absent.
	if got.Daily[0].Date != "2024-03-15" || got.Daily[0].Count != 2 {
		t.Errorf("unexpected first bucket: %+v", got.Daily[0])
	}
	if got.Daily[1].Date != "2024-03-14" || got.Daily[1].Count != 1 {
		t.Errorf("unexpected second bucket: %+v", got.Daily[1])
	}
}

func TestAggregator_Stats_WindowBounds(t *testing.T) {
	store := storage.NewMemoryStorage()
	agg := New(store)

	seed(t, store, "198.51.100.7", "2024-03-15T10:00:00Z") // today
	seed(t, store, "198.51.100.7", "2024-02-14T10:00:00Z") // exactly 30 days back
	seed(t, store, "198.51.100.7", "2024-02-13T10:00:00Z") // outside the window

	got, err := agg.Stats(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	// Totals cover the whole store, only daily buckets are windowed.
	if got.TotalEvents != 3 {
		t.Errorf("expected 3 total events, got %d", got.TotalEvents)
	}
	if len(got.Daily) != 2 {
		t.Fatalf("expected 2 buckets inside window, got %d: %+v", len(got.Daily), got.Daily)
	}
	for _, bucket := range got.Daily {
		if bucket.Date == "2024-02-13" {
			t.Error("bucket outside window included")
		}
	}
}

func TestAggregator_Stats_Empty(t *testing.T) {
	agg := New(storage.NewMemoryStorage())

	got, err := agg.Stats(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if got.UniqueClients != 0 || got.TotalEvents != 0 {
		t.Errorf("expected zero stats, got %+v", got)
	}
	if len(got.Daily) != 0 {
		t.Errorf("expected no daily buckets, got %+v", got.Daily)
	}
}

func TestAggregator_Stats_NonISORecordedAt(t *testing.T) {
	store := storage.NewMemoryStorage()
	agg := New(store)

	// Opaque recordedAt values bucket by prefix without parsing.
	seed(t, store, "198.51.100.7", "around noon") // 10-char prefix "around noo"
	seed(t, store, "198.51.100.7", "2024-03-15T10:00:00Z")

	got, err := agg.Stats(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if got.TotalEvents != 2 {
		t.Errorf("expected both events counted, got %d", got.TotalEvents)
	}
	// The opaque prefix sorts outside [since, until] and is excluded from
	// daily buckets.
	if len(got.Daily) != 1 || got.Daily[0].Date != "2024-03-15" {
		t.Errorf("unexpected daily buckets: %+v", got.Daily)
	}
}
