// Package visit defines the core data model for the Beacon telemetry
// collector: the Visit record, the query description executed by storage
// backends, the aggregate statistics shape, and the error taxonomy shared
// by every layer.
//
// # Architecture
//
// The ingestion-and-query core consists of five collaborating pieces:
//
//  1. Admission limiter (pkg/limits/ratelimit) - sliding-window rate check
//     keyed by client identity, consulted before anything else on a write
//  2. Validator (pkg/visit/validate) - structural checks on the inbound
//     payload, reporting every violation at once
//  3. Storage (pkg/visit/storage) - the durable table of visits; owns the
//     write path and the monotonic id sequence
//  4. Query builder (pkg/visit/query) - translates untyped filter/sort/page
//     parameters into a safe Query against a fixed field whitelist
//  5. Aggregator (pkg/visit/stats) - unique-client, total, and per-day
//     bucketed counts over a trailing 30-day window
//
// # Write Flow
//
//	client payload + remote address
//	     ↓
//	Admission limiter (Allow)
//	     ↓
//	Validator (collects all field errors)
//	     ↓
//	Storage.Insert (assigns id, serialized with all writers)
//
// Reads bypass the limiter and validator entirely: caller parameters flow
// through the query builder into Storage.Query/Count, and the aggregator
// reads the same store independently.
//
// # Error Taxonomy
//
// Every operation returns one of four error kinds, never a raw driver
// error: AdmissionDeniedError, ValidationError, ErrNotFound, or
// StorageError. All four are explicit result values; nothing in this core
// panics across its API boundary.
package visit
