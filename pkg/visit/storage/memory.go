package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"beacon-hq/beacon/pkg/visit"
)

// MemoryStorage implements visit.Storage using an in-memory map. It backs
// the ephemeral storage mode and the test suites; data is lost when the
// process exits.
//
// A single RWMutex provides the global write ordering: mutations take the
// write lock, reads take the read lock, so a read can never observe a
// half-written record.
type MemoryStorage struct {
	records map[int64]*visit.Visit
	nextID  int64
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[int64]*visit.Visit),
	}
}

// Insert appends a visit and returns the assigned id. The counter only
// advances once the record is in the map, so ids of successful inserts are
// contiguous. Ids are never reused, even after Clear.
func (s *MemoryStorage) Insert(ctx context.Context, v *visit.Visit) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID + 1
	record := *v
	record.ID = id
	s.records[id] = &record
	s.nextID = id

	return id, nil
}

// Get retrieves a visit by id.
func (s *MemoryStorage) Get(ctx context.Context, id int64) (*visit.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, visit.ErrNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

// DeleteByID removes the record with the given id if present.
func (s *MemoryStorage) DeleteByID(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// Clear removes all records and returns the count removed. The id
// sequence is not reset.
func (s *MemoryStorage) Clear(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.records))
	s.records = make(map[int64]*visit.Visit)
	return removed, nil
}

// Query retrieves visits matching the query's filters.
func (s *MemoryStorage) Query(ctx context.Context, q *visit.Query) ([]*visit.Visit, error) {
	s.mu.RLock()

	matched := make([]*visit.Visit, 0, len(s.records))
	for _, record := range s.records {
		if matchesFilters(record, q.Filters) {
			recordCopy := *record
			matched = append(matched, &recordCopy)
		}
	}
	s.mu.RUnlock()

	sortVisits(matched, q.SortField, q.SortOrder)

	if q.Limit <= 0 {
		return matched, nil
	}

	start := q.Offset
	if start > len(matched) {
		return []*visit.Visit{}, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// Count returns the number of visits matching the query's filters.
func (s *MemoryStorage) Count(ctx context.Context, q *visit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesFilters(record, q.Filters) {
			count++
		}
	}
	return count, nil
}

// DistinctClients returns the number of distinct ip values.
func (s *MemoryStorage) DistinctClients(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, record := range s.records {
		seen[record.IP] = struct{}{}
	}
	return int64(len(seen)), nil
}

// CountAll returns the total number of records.
func (s *MemoryStorage) CountAll(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.records)), nil
}

// DailyCounts groups records by the date prefix of RecordedAt, restricted
// to [since, until], descending by date.
func (s *MemoryStorage) DailyCounts(ctx context.Context, since, until string) ([]visit.DailyCount, error) {
	s.mu.RLock()

	byDate := make(map[string]int64)
	for _, record := range s.records {
		if len(record.RecordedAt) < 10 {
			continue
		}
		date := record.RecordedAt[:10]
		if date < since || date > until {
			continue
		}
		byDate[date]++
	}
	s.mu.RUnlock()

	counts := make([]visit.DailyCount, 0, len(byDate))
	for date, count := range byDate {
		counts = append(counts, visit.DailyCount{Date: date, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Date > counts[j].Date })

	return counts, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[int64]*visit.Visit)
	return nil
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// matchesFilters checks every filter as a case-sensitive substring match.
func matchesFilters(v *visit.Visit, filters map[visit.Field]string) bool {
	for field, pattern := range filters {
		if !strings.Contains(fieldValue(v, field), pattern) {
			return false
		}
	}
	return true
}

// fieldValue returns a visit's value for a string-valued field.
func fieldValue(v *visit.Visit, f visit.Field) string {
	switch f {
	case visit.FieldIP:
		return v.IP
	case visit.FieldLanguage:
		return v.Language
	case visit.FieldUserAgent:
		return v.UserAgent
	case visit.FieldPlatform:
		return v.Platform
	case visit.FieldTimezone:
		return v.Timezone
	case visit.FieldRecordedAt:
		return v.RecordedAt
	default:
		return ""
	}
}

// sortVisits orders records by the sort field with id as tiebreaker,
// mirroring the SQLite backend's ORDER BY.
func sortVisits(records []*visit.Visit, field visit.Field, order visit.SortOrder) {
	asc := order == visit.SortAsc

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !asc {
			a, b = b, a
		}
		if field == visit.FieldID {
			return a.ID < b.ID
		}
		av, bv := fieldValue(a, field), fieldValue(b, field)
		if av != bv {
			return av < bv
		}
		return a.ID < b.ID
	})
}
