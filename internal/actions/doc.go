// Package actions holds the units of work the queues run: clone, pull, install
// through one of four build backends, delete, and the success and failure
// sinks that report each outcome.
//
// Every action has the queue.Action signature. Actions never mutate the record
// they receive; they return a queue.Result carrying the updated tag. External
// tools are reached only through a shell.Runner.
package actions
