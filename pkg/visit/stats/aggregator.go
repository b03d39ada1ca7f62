package stats

import (
	"context"
	"time"

	"beacon-hq/beacon/pkg/visit"
)

// WindowDays is the trailing window for daily bucketed counts.
const WindowDays = 30

// Aggregator derives coarse statistics from a visit store. It only reads;
// it holds no state of its own.
type Aggregator struct {
	storage visit.Storage
}

// New creates an Aggregator over the given storage backend.
func New(storage visit.Storage) *Aggregator {
	return &Aggregator{storage: storage}
}

// Stats returns unique-client and total counts over all records, plus
// per-day bucketed counts for the WindowDays days before now.
//
// Daily buckets group on the first 10 characters of RecordedAt; the value
// is never calendar-parsed, so a non-ISO recordedAt silently buckets under
// whatever its prefix happens to be. Days with no records are omitted.
func (a *Aggregator) Stats(ctx context.Context, now time.Time) (*visit.Stats, error) {
	unique, err := a.storage.DistinctClients(ctx)
	if err != nil {
		return nil, err
	}

	total, err := a.storage.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	since := now.AddDate(0, 0, -WindowDays).Format("2006-01-02")
	until := now.Format("2006-01-02")

	daily, err := a.storage.DailyCounts(ctx, since, until)
	if err != nil {
		return nil, err
	}

	return &visit.Stats{
		UniqueClients: unique,
		TotalEvents:   total,
		Daily:         daily,
	}, nil
}
