package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pspman/internal/logging"
	"pspman/internal/project"
	"pspman/internal/services"
)

// Result is what an Action reports for one record. The queue applies Tag to the
// record, stamps the update time when Touch is set, and routes on Success.
type Result struct {
	Name    string
	Message string
	Tag     project.Tag
	Success bool
	Touch   bool
}

// Action performs one unit of work on a record. It must not mutate rec; the
// queue applies the returned Result.
type Action func(ctx context.Context, rec *project.Record) Result

// State is the lifecycle phase of a queue.
type State int32

const (
	// StateIdle accepts input.
	StateIdle State = iota
	// StateDraining accepts nothing new and is finishing buffered records.
	StateDraining
	// StateClosed has routed everything and signalled its downstreams.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Delivery is a record that reached a queue with no downstream for its result.
type Delivery struct {
	Record *project.Record
	Result Result
}

// Queue is one stage of the pipeline.
type Queue struct {
	name         string
	action       Action
	parallelism  int
	capacity     int
	stallTimeout time.Duration
	stallRetries int
	logger       *slog.Logger
	now          func() time.Time

	success *Queue
	fail    *Queue

	inbox chan *project.Record
	done  chan struct{}
	// seen holds every name accepted so far; only the run goroutine touches it.
	seen map[string]struct{}

	// mu is held for reading across every send into inbox so the inbox is never
	// closed under a blocked sender.
	mu          sync.RWMutex
	accepting   bool
	upstream    map[*Queue]struct{}
	feeders     int
	closeCalled bool
	fedDirectly atomic.Bool

	state   atomic.Int32
	started atomic.Bool

	resMu     sync.Mutex
	delivered []Delivery
	err       error
}

// New builds a queue and registers it as a feeder of its downstreams. Every
// queue in a graph must be started before records are added to any of them.
func New(name string, action Action, opts ...Option) *Queue {
	q := &Queue{
		name:         name,
		action:       action,
		parallelism:  1,
		capacity:     defaultCapacity,
		stallTimeout: defaultStallTimeout,
		stallRetries: defaultStallRetries,
		now:          time.Now,
		upstream:     make(map[*Queue]struct{}),
		seen:         make(map[string]struct{}),
		accepting:    true,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	q.logger = logging.NewComponentLogger(q.logger, "queue")
	q.inbox = make(chan *project.Record, q.capacity)
	for _, ds := range q.downstreams() {
		ds.register(q)
	}
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// State reports the current lifecycle phase.
func (q *Queue) State() State { return State(q.state.Load()) }

// Done is closed once the queue reaches StateClosed.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Start launches the run loop. Queues without downstreams are sinks and ignore
// cancellation so that interrupted records are still recorded.
func (q *Queue) Start(ctx context.Context) {
	if !q.started.CompareAndSwap(false, true) {
		return
	}
	if q.success == nil && q.fail == nil {
		ctx = context.WithoutCancel(ctx)
	}
	go q.run(services.WithQueue(ctx, q.name))
}

// Add enqueues rec on behalf of the controller. Once the controller has added to
// a queue it must call Close before the queue can finish.
func (q *Queue) Add(ctx context.Context, rec *project.Record) error {
	q.fedDirectly.Store(true)
	return q.enqueue(ctx, rec)
}

// Close tells the queue that the controller will add nothing more.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeCalled = true
	q.maybeCloseLocked()
}

// Wait blocks until the queue is closed and returns the first routing error.
func (q *Queue) Wait() error {
	<-q.done
	return q.Err()
}

// Err returns the first routing error observed by the queue.
func (q *Queue) Err() error {
	q.resMu.Lock()
	defer q.resMu.Unlock()
	return q.err
}

// Deliveries returns the records that terminated at this queue.
func (q *Queue) Deliveries() []Delivery {
	q.resMu.Lock()
	defer q.resMu.Unlock()
	out := make([]Delivery, len(q.delivered))
	copy(out, q.delivered)
	return out
}

// Results returns the results of the records that terminated at this queue.
func (q *Queue) Results() []Result {
	deliveries := q.Deliveries()
	out := make([]Result, len(deliveries))
	for i, d := range deliveries {
		out[i] = d.Result
	}
	return out
}

// Processed counts the records that terminated at this queue.
func (q *Queue) Processed() int {
	q.resMu.Lock()
	defer q.resMu.Unlock()
	return len(q.delivered)
}

func (q *Queue) downstreams() []*Queue {
	var out []*Queue
	if q.success != nil {
		out = append(out, q.success)
	}
	if q.fail != nil && q.fail != q.success {
		out = append(out, q.fail)
	}
	return out
}

func (q *Queue) register(feeder *Queue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.upstream[feeder]; ok {
		return
	}
	q.upstream[feeder] = struct{}{}
	q.feeders++
}

func (q *Queue) signalDone(from *Queue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.upstream[from]; !ok {
		q.logger.Warn("done signal from unknown feeder",
			logging.String(logging.FieldQueue, q.name),
			logging.String("feeder", from.name),
		)
		return
	}
	delete(q.upstream, from)
	q.maybeCloseLocked()
}

// maybeCloseLocked closes the inbox once every feeder is finished. The
// controller counts as a feeder when it added directly or when the queue has
// no upstream queues at all.
func (q *Queue) maybeCloseLocked() {
	if !q.accepting || len(q.upstream) > 0 {
		return
	}
	controllerFeeds := q.feeders == 0 || q.fedDirectly.Load()
	if controllerFeeds && !q.closeCalled {
		return
	}
	q.accepting = false
	q.state.Store(int32(StateDraining))
	close(q.inbox)
}

func (q *Queue) enqueue(ctx context.Context, rec *project.Record) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.accepting {
		return &ClosedQueueError{Queue: q.name, Project: rec.Name}
	}

	select {
	case q.inbox <- rec:
		return nil
	default:
	}

	timer := time.NewTimer(q.stallTimeout)
	defer timer.Stop()
	stalls := 0
	for {
		select {
		case q.inbox <- rec:
			if stalls >= q.stallRetries {
				q.logger.Info("handoff resumed",
					logging.String(logging.FieldQueue, q.name),
					logging.String(logging.FieldProject, rec.Name),
					logging.Int("stalls", stalls),
				)
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: add %s to %s queue: %w", services.ErrInterrupted, rec.Name, q.name, ctx.Err())
		case <-timer.C:
			stalls++
			if stalls == q.stallRetries {
				logging.WarnWithContext(q.logger, "handoff stalled", "queue_handoff_stalled",
					logging.String(logging.FieldQueue, q.name),
					logging.String(logging.FieldProject, rec.Name),
					logging.Int("stalls", stalls),
					logging.String(logging.FieldImpact, "pipeline is slower than expected; the record is still queued"),
					logging.String(logging.FieldErrorHint, "a long build is occupying every worker"),
				)
			} else {
				q.logger.Debug("handoff waiting",
					logging.String(logging.FieldQueue, q.name),
					logging.String(logging.FieldProject, rec.Name),
					logging.Int("stalls", stalls),
				)
			}
			timer.Reset(q.stallTimeout)
		}
	}
}

func (q *Queue) run(ctx context.Context) {
	defer q.finish()
	logger := logging.WithContext(ctx, q.logger)
	for {
		first, ok := <-q.inbox
		if !ok {
			return
		}
		if batch := q.collect(logger, first); len(batch) > 0 {
			q.runBatch(ctx, logger, batch)
		}
	}
}

// collect drains whatever is already buffered behind first. A name the queue
// has already accepted, in this batch or an earlier one, is dropped.
func (q *Queue) collect(logger *slog.Logger, first *project.Record) []*project.Record {
	var batch []*project.Record
	accept := func(rec *project.Record) {
		if _, dup := q.seen[rec.Name]; dup {
			logger.Debug("duplicate record dropped", logging.String(logging.FieldProject, rec.Name))
			return
		}
		q.seen[rec.Name] = struct{}{}
		batch = append(batch, rec)
	}
	accept(first)
	for {
		select {
		case rec, ok := <-q.inbox:
			if !ok {
				return batch
			}
			accept(rec)
		default:
			return batch
		}
	}
}

func (q *Queue) runBatch(ctx context.Context, logger *slog.Logger, batch []*project.Record) {
	logger.Debug("running batch", logging.Int("items", len(batch)), logging.Int("parallelism", q.parallelism))

	results := make([]Result, len(batch))
	work := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(q.parallelism)
	for i, rec := range batch {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = interrupted(rec, q.name)
				return nil
			}
			results[i] = q.invoke(work, logger, rec)
			return nil
		})
	}
	_ = g.Wait()

	for i, rec := range batch {
		q.route(ctx, logger, rec, results[i])
	}
}

func (q *Queue) invoke(ctx context.Context, logger *slog.Logger, rec *project.Record) (res Result) {
	ctx = services.WithProject(ctx, rec.Name)
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("panic: %v", r)
			logging.ErrorWithContext(logger, "action panicked", "action_panic",
				logging.String(logging.FieldProject, rec.Name),
				logging.String("panic", fmt.Sprint(r)),
			)
			res = failed(rec, reason, fmt.Sprintf("%s: %s aborted (%s)", rec.Name, q.name, reason))
		}
	}()
	res = q.action(ctx, rec)
	if res.Name == "" {
		res.Name = rec.Name
	}
	return res
}

func (q *Queue) route(ctx context.Context, logger *slog.Logger, rec *project.Record, res Result) {
	rec.Tag = res.Tag
	if res.Touch {
		rec.TouchUpdated(q.now())
	}

	target := q.fail
	if res.Success {
		target = q.success
	}
	if res.Message != "" && target != nil {
		logger.Info(res.Message, logging.String(logging.FieldProject, rec.Name), logging.Bool("success", res.Success))
	}
	if target == nil {
		q.deliver(rec, res)
		return
	}
	if err := target.enqueue(context.WithoutCancel(ctx), rec); err != nil {
		logging.ErrorWithContext(logger, "routing failed", "queue_routing_failed",
			logging.String(logging.FieldProject, rec.Name),
			logging.String("target", target.name),
			logging.Error(err),
		)
		q.resMu.Lock()
		if q.err == nil {
			q.err = err
		}
		q.resMu.Unlock()
		q.deliver(rec, res)
	}
}

func (q *Queue) deliver(rec *project.Record, res Result) {
	q.resMu.Lock()
	defer q.resMu.Unlock()
	q.delivered = append(q.delivered, Delivery{Record: rec, Result: res})
}

func (q *Queue) finish() {
	for _, ds := range q.downstreams() {
		ds.signalDone(q)
	}
	q.state.Store(int32(StateClosed))
	close(q.done)
}

// InterruptedReason marks records that never ran because the run was cancelled.
const InterruptedReason = "interrupted"

func interrupted(rec *project.Record, queueName string) Result {
	return failed(rec, InterruptedReason, fmt.Sprintf("%s: %s interrupted", rec.Name, queueName))
}

func failed(rec *project.Record, reason, message string) Result {
	tag := rec.Tag
	tag.MarkFailed(stepFor(tag.Pending), reason)
	return Result{Name: rec.Name, Message: message, Tag: tag}
}

func stepFor(pending project.PendingAction) project.Step {
	switch pending {
	case project.PendingPull:
		return project.StepPull
	case project.PendingInstall:
		return project.StepInstall
	case project.PendingDelete:
		return project.StepDelete
	default:
		return project.StepNone
	}
}
