// Package queue implements the work queues that make up an update cycle.
//
// A Queue buffers project records in a bounded inbox, runs its Action over
// each batch with bounded parallelism, and routes every record to its success
// or fail downstream. Queues form a DAG: a queue finishes only after every
// upstream feeder (and the controller, when it feeds the queue directly) has
// signalled that no more input will arrive, and then it signals done to its
// own downstreams. Sinks are queues without downstreams; they keep every
// record they receive.
//
// Cancelling the run context stops new work from starting. Actions already
// running complete with a non-cancellable context and buffered leftovers are
// routed to the fail downstream as interrupted, so every record that entered
// the graph still reaches exactly one sink.
package queue
