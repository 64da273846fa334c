// Package preflight holds the checks that must pass before a run mutates
// anything: refusing to run as root unless forced, verifying read, write and
// search access on the clone directory and install prefix, and making sure
// git is on PATH.
//
// The CLI runs Verify before taking the run lock. Failures are returned as
// *PermissionError (exit code 2) or configuration errors.
package preflight
