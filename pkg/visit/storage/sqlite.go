package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"beacon-hq/beacon/pkg/visit"
)

// columns maps addressable visit fields to their SQL column names. The
// query builder guarantees only whitelisted fields reach this layer; an
// unknown field here is a programming error, not bad input.
var columns = map[visit.Field]string{
	visit.FieldID:         "id",
	visit.FieldIP:         "ip",
	visit.FieldLanguage:   "language",
	visit.FieldUserAgent:  "user_agent",
	visit.FieldPlatform:   "platform",
	visit.FieldTimezone:   "timezone",
	visit.FieldRecordedAt: "recorded_at",
}

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode so reads proceed
	// concurrently with the single writer.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/visits.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements visit.Storage using SQLite.
//
// Mutating operations (Insert, DeleteByID, Clear) serialize on writeMu,
// giving a single global write ordering; reads run on separate pooled
// connections and, under WAL, observe a consistent snapshot unaffected by
// an in-flight write.
type SQLiteStorage struct {
	db      *sql.DB
	config  *SQLiteConfig
	writeMu sync.Mutex
	logger  *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend, initializing the
// schema and enabling WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "visit.storage.sqlite")

	// Pragmas ride on the DSN so every pooled connection gets them, not
	// just the one that happens to run initialization. SQLite LIKE is
	// ASCII case-insensitive by default; filters are case-sensitive
	// substring containment.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_case_sensitive_like=true",
		config.Path, config.BusyTimeout.Milliseconds())
	if config.WALMode {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, visit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema. Connection pragmas are carried
// on the DSN.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return visit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return visit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return visit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return visit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Insert appends a visit and returns the assigned id.
//
// AUTOINCREMENT assigns the id inside the insert statement itself, so a
// failed insert never observably advances the sequence and the caller may
// retry safely.
func (s *SQLiteStorage) Insert(ctx context.Context, v *visit.Visit) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (ip, language, user_agent, platform, timezone, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.IP, v.Language, v.UserAgent, v.Platform, v.Timezone, v.RecordedAt,
	)
	if err != nil {
		return 0, visit.NewStorageError("sqlite", "insert", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, visit.NewStorageError("sqlite", "insert", err)
	}

	return id, nil
}

// Get retrieves a visit by id.
func (s *SQLiteStorage) Get(ctx context.Context, id int64) (*visit.Visit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ip, language, user_agent, platform, timezone, recorded_at
		FROM visits WHERE id = ?`, id)

	var v visit.Visit
	err := row.Scan(&v.ID, &v.IP, &v.Language, &v.UserAgent, &v.Platform, &v.Timezone, &v.RecordedAt)
	if err == sql.ErrNoRows {
		return nil, visit.ErrNotFound
	}
	if err != nil {
		return nil, visit.NewStorageError("sqlite", "get", err)
	}

	return &v, nil
}

// DeleteByID removes the record with the given id if present.
func (s *SQLiteStorage) DeleteByID(ctx context.Context, id int64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM visits WHERE id = ?", id)
	if err != nil {
		return false, visit.NewStorageError("sqlite", "delete", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, visit.NewStorageError("sqlite", "delete", err)
	}

	return affected > 0, nil
}

// Clear removes all records and returns the count removed.
func (s *SQLiteStorage) Clear(ctx context.Context) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM visits")
	if err != nil {
		return 0, visit.NewStorageError("sqlite", "clear", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, visit.NewStorageError("sqlite", "clear", err)
	}

	return removed, nil
}

// Query retrieves visits matching the query's filters.
func (s *SQLiteStorage) Query(ctx context.Context, q *visit.Query) ([]*visit.Visit, error) {
	whereClause, args, err := buildWhereClause(q)
	if err != nil {
		return nil, visit.NewStorageError("sqlite", "query", err)
	}

	sortColumn, ok := columns[q.SortField]
	if !ok {
		return nil, visit.NewStorageError("sqlite", "query",
			fmt.Errorf("unknown sort field %q", q.SortField))
	}

	direction := "DESC"
	if q.SortOrder == visit.SortAsc {
		direction = "ASC"
	}

	sqlQuery := "SELECT id, ip, language, user_agent, platform, timezone, recorded_at FROM visits"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	// id tiebreaker keeps pagination stable when the sort key has
	// duplicate values.
	sqlQuery += fmt.Sprintf(" ORDER BY %s %s, id %s", sortColumn, direction, direction)

	if q.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, visit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*visit.Visit{}
	for rows.Next() {
		var v visit.Visit
		if err := rows.Scan(&v.ID, &v.IP, &v.Language, &v.UserAgent, &v.Platform, &v.Timezone, &v.RecordedAt); err != nil {
			return nil, visit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, visit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of visits matching the query's filters,
// ignoring Limit/Offset.
func (s *SQLiteStorage) Count(ctx context.Context, q *visit.Query) (int64, error) {
	whereClause, args, err := buildWhereClause(q)
	if err != nil {
		return 0, visit.NewStorageError("sqlite", "count", err)
	}

	sqlQuery := "SELECT COUNT(*) FROM visits"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, visit.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// DistinctClients returns the number of distinct ip values.
func (s *SQLiteStorage) DistinctClients(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT ip) FROM visits").Scan(&count)
	if err != nil {
		return 0, visit.NewStorageError("sqlite", "distinct_clients", err)
	}
	return count, nil
}

// CountAll returns the total number of records.
func (s *SQLiteStorage) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visits").Scan(&count)
	if err != nil {
		return 0, visit.NewStorageError("sqlite", "count_all", err)
	}
	return count, nil
}

// DailyCounts groups records by the date prefix of recorded_at, restricted
// to [since, until], descending by date.
func (s *SQLiteStorage) DailyCounts(ctx context.Context, since, until string) ([]visit.DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(recorded_at, 1, 10) AS day, COUNT(*)
		FROM visits
		WHERE substr(recorded_at, 1, 10) BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day DESC`, since, until)
	if err != nil {
		return nil, visit.NewStorageError("sqlite", "daily_counts", err)
	}
	defer rows.Close()

	counts := []visit.DailyCount{}
	for rows.Next() {
		var dc visit.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, visit.NewStorageError("sqlite", "scan", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, visit.NewStorageError("sqlite", "daily_counts", err)
	}

	return counts, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return visit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// likeEscaper neutralizes SQLite LIKE metacharacters so filter patterns
// match as literal substrings, the same way the memory backend's
// strings.Contains does.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without the "WHERE" keyword) and its arguments.
// Filters are substring predicates (LIKE with wildcards on both sides)
// combined with AND; iteration over the fixed column order keeps the
// clause deterministic.
func buildWhereClause(q *visit.Query) (string, []interface{}, error) {
	if len(q.Filters) == 0 {
		return "", nil, nil
	}

	order := []visit.Field{
		visit.FieldIP, visit.FieldLanguage, visit.FieldUserAgent,
		visit.FieldPlatform, visit.FieldTimezone,
	}

	var conditions []string
	var args []interface{}
	matched := 0

	for _, f := range order {
		pattern, ok := q.Filters[f]
		if !ok {
			continue
		}
		conditions = append(conditions, columns[f]+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(pattern)+"%")
		matched++
	}

	if matched != len(q.Filters) {
		return "", nil, fmt.Errorf("query contains a non-filterable field")
	}

	return strings.Join(conditions, " AND "), args, nil
}
