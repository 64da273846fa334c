// Package history journals the outcome of every update cycle in SQLite.
//
// Each run gets one row in runs and one row per terminal project outcome in
// outcomes. The journal is append-only; `pspman history` reads it back. Schema
// changes bump schemaVersion; users delete the journal to adopt a new schema.
package history
