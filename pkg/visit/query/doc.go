// Package query translates an open set of untyped filter/sort/pagination
// parameters into safe, bounded reads against a visit store.
//
// Safety comes from two closed maps compiled into this package: the
// recognized filter fields and the sort-field whitelist. Caller-controlled
// strings select entries from these maps; they are never interpolated into
// a query structure. Unrecognized filters are dropped, an unrecognized
// sort field falls back to recordedAt, and page/perPage are clamped rather
// than rejected, so no input shape can produce an unsafe or unbounded
// query.
package query
