package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"beacon-hq/beacon/pkg/visit"
)

func createTempDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "visits.db")

	store, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to create SQLite storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func sampleVisit(ip, language string) *visit.Visit {
	return &visit.Visit{
		IP:         ip,
		Language:   language,
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64)",
		Platform:   "Linux",
		Timezone:   "Europe/Berlin",
		RecordedAt: "2024-03-15T10:30:00Z",
	}
}

func TestSQLiteStorage_InsertAndGet(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, sampleVisit("198.51.100.7", "en-US"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != 1 {
		t.Errorf("expected id 1, got %d", id)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != id || got.IP != "198.51.100.7" || got.Language != "en-US" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestSQLiteStorage_Get_NotFound(t *testing.T) {
	store := createTempDB(t)

	_, err := store.Get(context.Background(), 42)
	if !errors.Is(err, visit.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ContiguousIDs(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	for want := int64(1); want <= 10; want++ {
		id, err := store.Insert(ctx, sampleVisit("198.51.100.7", "en-US"))
		if err != nil {
			t.Fatalf("insert %d failed: %v", want, err)
		}
		if id != want {
			t.Errorf("expected id %d, got %d", want, id)
		}
	}
}

func TestSQLiteStorage_IDsNotReusedAfterClear(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Insert(ctx, sampleVisit("198.51.100.7", "en-US")); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	id, err := store.Insert(ctx, sampleVisit("198.51.100.7", "en-US"))
	if err != nil {
		t.Fatalf("insert after clear failed: %v", err)
	}
	if id != 4 {
		t.Errorf("expected id 4 after clear, got %d", id)
	}
}

func TestSQLiteStorage_DeleteByID(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, sampleVisit("198.51.100.7", "en-US"))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	deleted, err := store.DeleteByID(ctx, id)
	if err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report true")
	}

	// Second delete finds nothing.
	deleted, err = store.DeleteByID(ctx, id)
	if err != nil {
		t.Fatalf("second DeleteByID failed: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report false")
	}
}

func TestSQLiteStorage_Query_Filters(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	seeds := []struct{ ip, language, platform string }{
		{"198.51.100.7", "fr-FR", "Linux"},
		{"198.51.100.7", "en-US", "Linux"},
		{"203.0.113.9", "fr-CA", "MacIntel"},
		{"203.0.113.9", "fr-BE", "Linux"},
	}
	for _, s := range seeds {
		v := sampleVisit(s.ip, s.language)
		v.Platform = s.platform
		if _, err := store.Insert(ctx, v); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// Single substring filter.
	records, err := store.Query(ctx, &visit.Query{
		Filters:   map[visit.Field]string{visit.FieldLanguage: "fr"},
		SortField: visit.FieldID,
		SortOrder: visit.SortAsc,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 fr matches, got %d", len(records))
	}

	// Filters combine with AND.
	records, err = store.Query(ctx, &visit.Query{
		Filters: map[visit.Field]string{
			visit.FieldLanguage: "fr",
			visit.FieldPlatform: "Linux",
		},
		SortField: visit.FieldID,
		SortOrder: visit.SortAsc,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 AND matches, got %d", len(records))
	}

	// Substring matching is case-sensitive.
	records, err = store.Query(ctx, &visit.Query{
		Filters:   map[visit.Field]string{visit.FieldLanguage: "FR"},
		SortField: visit.FieldID,
		SortOrder: visit.SortAsc,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 case-sensitive FR match, got %d", len(records))
	}
}

func TestSQLiteStorage_Query_CaseSensitiveAcrossConnections(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, sampleVisit("198.51.100.7", "EN-US")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Case sensitivity is a per-connection setting. Hammering the pool
	// forces queries onto freshly opened connections, which must behave
	// the same as the one that ran initialization.
	var wg sync.WaitGroup
	mismatches := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := store.Query(ctx, &visit.Query{
				Filters:   map[visit.Field]string{visit.FieldLanguage: "en-us"},
				SortField: visit.FieldID,
				SortOrder: visit.SortAsc,
			})
			if err != nil {
				t.Errorf("Query failed: %v", err)
				return
			}
			if len(records) != 0 {
				mismatches <- len(records)
			}
		}()
	}
	wg.Wait()
	close(mismatches)

	if n := len(mismatches); n > 0 {
		t.Errorf("case-insensitive match observed on %d/50 queries", n)
	}
}

func TestSQLiteStorage_Query_WildcardsMatchLiterally(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	for _, language := range []string{"a%b", "a_b", "axb", `a\b`} {
		if _, err := store.Insert(ctx, sampleVisit("198.51.100.7", language)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// LIKE metacharacters in a filter must match as plain text, the same
	// containment semantics the memory backend applies.
	tests := []struct {
		pattern string
		want    int
	}{
		{"%", 1},
		{"_", 1},
		{"a_b", 1},
		{`\`, 1},
		{"a", 4},
	}
	for _, tt := range tests {
		records, err := store.Query(ctx, &visit.Query{
			Filters:   map[visit.Field]string{visit.FieldLanguage: tt.pattern},
			SortField: visit.FieldID,
			SortOrder: visit.SortAsc,
		})
		if err != nil {
			t.Fatalf("Query(%q) failed: %v", tt.pattern, err)
		}
		if len(records) != tt.want {
			t.Errorf("Query(%q) matched %d records, want %d", tt.pattern, len(records), tt.want)
		}
	}
}

func TestSQLiteStorage_Query_RejectsNonFilterableField(t *testing.T) {
	store := createTempDB(t)

	_, err := store.Query(context.Background(), &visit.Query{
		Filters:   map[visit.Field]string{visit.FieldRecordedAt: "2024"},
		SortField: visit.FieldID,
		SortOrder: visit.SortAsc,
	})
	if err == nil {
		t.Fatal("expected error for non-filterable field")
	}
	if !visit.IsStorage(err) {
		t.Errorf("expected StorageError, got %T", err)
	}
}

func TestSQLiteStorage_Query_SortAndPagination(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		v := sampleVisit("198.51.100.7", "en-US")
		v.RecordedAt = fmt.Sprintf("2024-03-%02dT10:00:00Z", 10+i)
		if _, err := store.Insert(ctx, v); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// Descending by recordedAt.
	records, err := store.Query(ctx, &visit.Query{
		SortField: visit.FieldRecordedAt,
		SortOrder: visit.SortDesc,
		Limit:     2,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RecordedAt != "2024-03-14T10:00:00Z" {
		t.Errorf("unexpected first record: %+v", records[0])
	}

	// Concatenating pages walks the whole set without overlap.
	var seen []int64
	for offset := 0; offset < 5; offset += 2 {
		page, err := store.Query(ctx, &visit.Query{
			SortField: visit.FieldRecordedAt,
			SortOrder: visit.SortDesc,
			Limit:     2,
			Offset:    offset,
		})
		if err != nil {
			t.Fatalf("page query failed: %v", err)
		}
		for _, r := range page {
			seen = append(seen, r.ID)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 records across pages, got %d", len(seen))
	}
	unique := make(map[int64]struct{})
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	if len(unique) != 5 {
		t.Errorf("pages overlapped: %v", seen)
	}
}

func TestSQLiteStorage_Query_StableTiebreak(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	// Identical sort keys; order must fall back to id.
	for i := 0; i < 4; i++ {
		if _, err := store.Insert(ctx, sampleVisit("198.51.100.7", "en-US")); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := store.Query(ctx, &visit.Query{
		SortField: visit.FieldRecordedAt,
		SortOrder: visit.SortDesc,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	for i := 1; i < len(records); i++ {
		if records[i-1].ID < records[i].ID {
			t.Errorf("tiebreak order broken at %d: %v then %v", i, records[i-1].ID, records[i].ID)
		}
	}
}

func TestSQLiteStorage_Count(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	for _, lang := range []string{"fr-FR", "en-US", "fr-CA"} {
		if _, err := store.Insert(ctx, sampleVisit("198.51.100.7", lang)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	count, err := store.Count(ctx, &visit.Query{
		Filters:   map[visit.Field]string{visit.FieldLanguage: "fr"},
		SortField: visit.FieldID,
		SortOrder: visit.SortAsc,
		Limit:     1,
	})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	// Count ignores Limit.
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestSQLiteStorage_DistinctClients(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	for _, ip := range []string{"198.51.100.7", "203.0.113.9", "198.51.100.7"} {
		if _, err := store.Insert(ctx, sampleVisit(ip, "en-US")); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	unique, err := store.DistinctClients(ctx)
	if err != nil {
		t.Fatalf("DistinctClients failed: %v", err)
	}
	if unique != 2 {
		t.Errorf("expected 2 distinct clients, got %d", unique)
	}

	total, err := store.CountAll(ctx)
	if err != nil {
		t.Fatalf("CountAll failed: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 total, got %d", total)
	}
}

func TestSQLiteStorage_DailyCounts(t *testing.T) {
	store := createTempDB(t)
	ctx := context.Background()

	stamps := []string{
		"2024-03-15T10:00:00Z",
		"2024-03-15T18:00:00Z",
		"2024-03-12T09:00:00Z",
		"2024-01-01T00:00:00Z", // outside the window
	}
	for _, ts := range stamps {
		v := sampleVisit("198.51.100.7", "en-US")
		v.RecordedAt = ts
		if _, err := store.Insert(ctx, v); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	counts, err := store.DailyCounts(ctx, "2024-02-14", "2024-03-15")
	if err != nil {
		t.Fatalf("DailyCounts failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 days, got %d: %+v", len(counts), counts)
	}
	// Descending by date, sparse.
	if counts[0].Date != "2024-03-15" || counts[0].Count != 2 {
		t.Errorf("unexpected first bucket: %+v", counts[0])
	}
	if counts[1].Date != "2024-03-12" || counts[1].Count != 1 {
		t.Errorf("unexpected second bucket: %+v", counts[1])
	}
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "visits.db")

	store, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Insert(ctx, sampleVisit("198.51.100.7", "en-US")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.IP != "198.51.100.7" {
		t.Errorf("record lost across reopen: %+v", got)
	}
}
