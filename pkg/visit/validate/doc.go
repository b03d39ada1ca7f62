// Package validate performs structural validation of inbound visit
// payloads before they reach storage.
//
// Validation operates on the untyped key/value structure supplied by the
// transport layer plus the admitting network identity. Every check
// produces a field-scoped failure and all failures are collected rather
// than short-circuited, so a single response can report every violation.
//
// Checks, in order:
//
//  1. language, userAgent, platform, timezone, recordedAt: present, a
//     string, within length bounds (values are whitespace-trimmed before
//     the length check)
//  2. timezone: restricted to the charset [A-Za-z0-9_/+-]
//  3. ip: within length bounds (derived from the connection, never
//     client-controlled)
//
// recordedAt is optional: an absent or empty value defaults to the current
// UTC time in RFC 3339 form. The value is otherwise opaque; it is never
// parsed as a calendar timestamp.
//
// Validation is side-effect free. It never touches storage and never
// consumes an admission slot; admission is checked before validation,
// independent of its outcome.
package validate
