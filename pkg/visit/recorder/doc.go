// Package recorder implements the synchronous write path for visits.
//
// A Recorder ties together the admission limiter, the field validator,
// and a storage backend. Admission runs first so that abusive clients
// pay for invalid payloads too; validation runs second so a denied
// request does no parsing work; storage is reached only by admitted,
// valid visits.
package recorder
