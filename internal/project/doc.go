// Package project models one tracked repository.
//
// A Record carries the remote locator, the local name derived from it, and a
// Tag describing the pending action, the detected install backend, and the
// outcome of the last step. Tags have a compact integer form for the project
// database; in memory they are plain enumerations.
package project
