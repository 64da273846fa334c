// Package workflow is the pipeline controller for one pspman run.
//
// Controller.Run loads the project database, adopts untracked working trees
// found by discovery, then wires the queue graph:
//
//	delete ──────────────┐
//	clone ──┐            ├─> success / fail
//	pull  ──┴─> install ─┘
//
// With only_pull the install queue is left out and clone/pull feed success
// directly. Deletions are enqueued first, then new projects, then every
// existing project unless the run is stale. Each entry queue is closed once its
// adds are issued; the run ends when both sinks have drained. Sink deliveries
// are folded back into the database and journaled to the history store.
package workflow
