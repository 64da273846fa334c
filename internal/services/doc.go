// Package services defines shared utilities consumed by the work queues,
// actions, and CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, queue names, and project
//     names for logging.
//   - Structured error markers plus the Wrap helper, and the mapping from
//     those markers to process exit codes.
package services
