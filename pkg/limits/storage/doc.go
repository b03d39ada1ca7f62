// Package storage persists admission limiter state so that sliding
// windows survive a process restart: without it, a restart resets every
// client's window and briefly doubles the effective admission budget.
//
// Two backends implement the Backend interface: MemoryBackend (tests and
// deployments that accept the reset) and SQLiteBackend (durable, single
// writer). State is saved on shutdown and restored on startup; entries
// that aged out of the window are dropped on restore, so persistence can
// only ever tighten admission, never loosen it.
package storage
