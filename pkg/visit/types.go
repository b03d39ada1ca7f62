package visit

import (
	"context"
	"time"
)

// Field length bounds for a Visit. Values outside these bounds are rejected
// by the validator before they ever reach storage.
const (
	MinIPLen         = 7
	MaxIPLen         = 45
	MinLanguageLen   = 2
	MaxLanguageLen   = 20
	MinUserAgentLen  = 5
	MaxUserAgentLen  = 500
	MinPlatformLen   = 2
	MaxPlatformLen   = 50
	MinTimezoneLen   = 2
	MaxTimezoneLen   = 100
	MinRecordedAtLen = 10
	MaxRecordedAtLen = 40
)

// Visit is a single persisted visitor event: the browser fingerprint a
// client reported plus the network identity the server observed.
//
// ID is assigned by the store at insert time, is strictly increasing and
// never reused, and is the only field usable as a stable ordering
// tiebreaker. All other fields are immutable once written.
//
// RecordedAt is an opaque string. It is length/charset-checked at
// validation time but never parsed as a calendar timestamp; the aggregator
// buckets on its first 10 characters (the date portion of an ISO 8601
// string).
type Visit struct {
	ID         int64  `json:"id"`
	IP         string `json:"ip"`
	Language   string `json:"language"`
	UserAgent  string `json:"userAgent"`
	Platform   string `json:"platform"`
	Timezone   string `json:"timezone"`
	RecordedAt string `json:"recordedAt"`
}

// Field identifies a Visit column eligible for filtering or sorting.
// The query builder maps caller-supplied strings onto this closed set;
// storage backends only ever see Field values, never raw input.
type Field string

// The complete set of addressable fields.
const (
	FieldID         Field = "id"
	FieldIP         Field = "ip"
	FieldLanguage   Field = "language"
	FieldUserAgent  Field = "userAgent"
	FieldPlatform   Field = "platform"
	FieldTimezone   Field = "timezone"
	FieldRecordedAt Field = "recordedAt"
)

// SortOrder is the direction of a query's ordering.
type SortOrder string

const (
	// SortAsc orders results ascending.
	SortAsc SortOrder = "asc"
	// SortDesc orders results descending.
	SortDesc SortOrder = "desc"
)

// Query is a fully resolved read description produced by the query builder.
// Filters are case-sensitive substring predicates combined with AND; an
// absent filter imposes no constraint. Limit <= 0 means no limit (used by
// exporters); the builder always emits a positive Limit for paged reads.
type Query struct {
	Filters   map[Field]string
	SortField Field
	SortOrder SortOrder
	Limit     int
	Offset    int
}

// DailyCount is the number of visits recorded on a single date, where the
// date is the first 10 characters of RecordedAt.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Stats is the aggregate view over the whole store.
type Stats struct {
	UniqueClients int64        `json:"uniqueClients"`
	TotalEvents   int64        `json:"totalEvents"`
	Daily         []DailyCount `json:"dailyCountsLast30Days"`
}

// Storage defines the interface for visit storage backends.
// Implementations must be thread-safe: all mutating operations execute
// under a single global write ordering, and reads never observe a
// partially written record.
type Storage interface {
	// Insert appends a visit and returns the assigned id. Ids assigned to
	// successful inserts are contiguous and never reused; a failed insert
	// does not observably advance the sequence.
	Insert(ctx context.Context, v *Visit) (int64, error)

	// Get retrieves a visit by id. Returns ErrNotFound if no such record
	// exists.
	Get(ctx context.Context, id int64) (*Visit, error)

	// DeleteByID removes the record with the given id if present and
	// reports whether a record was removed.
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// Clear removes all records and returns the count removed.
	Clear(ctx context.Context) (int64, error)

	// Query retrieves visits matching the query's filters, ordered by its
	// sort key with id as tiebreaker, windowed by Limit/Offset.
	Query(ctx context.Context, q *Query) ([]*Visit, error)

	// Count returns the number of visits matching the query's filters,
	// ignoring Limit/Offset.
	Count(ctx context.Context, q *Query) (int64, error)

	// DistinctClients returns the number of distinct ip values across all
	// records.
	DistinctClients(ctx context.Context) (int64, error)

	// CountAll returns the total number of records.
	CountAll(ctx context.Context) (int64, error)

	// DailyCounts groups records by the first 10 characters of RecordedAt,
	// restricted to dates in [since, until] (lexicographic comparison,
	// which is chronological for ISO dates), descending by date. Dates
	// with no records are not synthesized.
	DailyCounts(ctx context.Context, since, until string) ([]DailyCount, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// NowUTC returns the current time in UTC. Write paths use it to default
// RecordedAt; tests substitute fixed clocks instead of calling it.
func NowUTC() time.Time { return time.Now().UTC() }
