// Package storage provides visit.Storage backends.
//
// Two implementations are available:
//
//   - SQLiteStorage: the durable backend. WAL mode so reads proceed
//     concurrently with the single writer, a write mutex for the global
//     mutation ordering, AUTOINCREMENT for the monotonic id sequence, and
//     PRAGMA case_sensitive_like so substring filters behave identically
//     to the memory backend.
//   - MemoryStorage: an ephemeral map behind an RWMutex. Used by the test
//     suites and the "memory" storage mode.
//
// Both backends satisfy the same contract: ids of successful inserts are
// contiguous and never reused, mutations are atomic with respect to each
// other, and reads never observe a partially written record. Storage
// failures are wrapped as visit.StorageError; a missing record is
// visit.ErrNotFound.
package storage
