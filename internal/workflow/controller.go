package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pspman/internal/actions"
	"pspman/internal/config"
	"pspman/internal/database"
	"pspman/internal/discovery"
	"pspman/internal/history"
	"pspman/internal/logging"
	"pspman/internal/project"
	"pspman/internal/queue"
	"pspman/internal/services"
	"pspman/internal/shell"
)

// Request lists the explicit work for a run besides updating existing projects.
type Request struct {
	// Install holds install requests in URL[___branch[___only]] form.
	Install []string
	// Delete holds project names.
	Delete []string
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Succeeded   int
	Failed      int
	Interrupted int
	Skipped     int
}

// Controller drives pipeline runs for one configuration.
type Controller struct {
	cfg      *config.Config
	runner   shell.Runner
	logger   *slog.Logger
	reporter actions.Reporter
	journal  *history.Store
	now      func() time.Time
	newRunID func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger injects the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithReporter sets where sink status lines go.
func WithReporter(r actions.Reporter) Option {
	return func(c *Controller) { c.reporter = r }
}

// WithHistory journals every terminal outcome to store.
func WithHistory(store *history.Store) Option {
	return func(c *Controller) { c.journal = store }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRunID fixes the run identifier.
func WithRunID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.newRunID = func() string { return id }
		}
	}
}

// New builds a controller. cfg must already be normalized.
func New(cfg *config.Config, runner shell.Runner, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		runner:   runner,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logging.NewComponentLogger(c.logger, "workflow")
	return c
}

// graph holds the queues of one run. del and install may be nil.
type graph struct {
	success *queue.Queue
	fail    *queue.Queue
	del     *queue.Queue
	install *queue.Queue
	clone   *queue.Queue
	pull    *queue.Queue
}

func (g *graph) all() []*queue.Queue {
	out := []*queue.Queue{g.success, g.fail, g.clone, g.pull}
	if g.del != nil {
		out = append(out, g.del)
	}
	if g.install != nil {
		out = append(out, g.install)
	}
	return out
}

// Run executes one update cycle. Per-project failures are reported in the
// summary; the returned error is reserved for run-level problems and
// interruption.
func (c *Controller) Run(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{RunID: c.newRunID(), StartedAt: c.now().UTC()}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, c.logger)

	additions, err := parseRequests(req.Install)
	if err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, services.Wrap(services.ErrInterrupted, "workflow", "run", "interrupted before start", err)
	}

	db, err := database.Load(c.cfg.DatabasePath())
	if err != nil {
		return summary, err
	}
	if err := c.adoptUntracked(ctx, db); err != nil {
		return summary, err
	}

	g := c.buildGraph(len(req.Delete) > 0, logger)
	for _, q := range g.all() {
		q.Start(ctx)
	}

	enqueueErr := c.enqueue(ctx, logger, g, db, req, additions, &summary)

	<-g.success.Done()
	<-g.fail.Done()

	var routeErrs []error
	for _, q := range g.all() {
		if err := q.Wait(); err != nil {
			routeErrs = append(routeErrs, err)
		}
	}

	entries := c.collect(g, db, &summary)
	summary.FinishedAt = c.now().UTC()

	persistCtx := context.WithoutCancel(ctx)
	var errs []error
	if err := db.Save(); err != nil {
		errs = append(errs, err)
	}
	if err := c.journalRun(persistCtx, summary, ctx.Err() != nil, entries); err != nil {
		logging.WarnWithContext(logger, "history journal write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from pspman history"),
		)
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("interrupted", summary.Interrupted),
		logging.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	errs = append(errs, routeErrs...)
	if enqueueErr != nil {
		errs = append(errs, enqueueErr)
	}
	if ctx.Err() != nil && enqueueErr == nil {
		errs = append(errs, services.Wrap(services.ErrInterrupted, "workflow", "run", "interrupted", ctx.Err()))
	}
	return summary, errors.Join(errs...)
}

func parseRequests(raw []string) ([]*project.Record, error) {
	out := make([]*project.Record, 0, len(raw))
	for _, r := range raw {
		parsed, err := project.ParseRequest(r)
		if err != nil {
			return nil, err
		}
		rec, err := project.FromRequest(parsed)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Controller) adoptUntracked(ctx context.Context, db *database.Database) error {
	dirs := make(map[string]struct{}, db.Len())
	for _, rec := range db.Records() {
		dirs[rec.DirName()] = struct{}{}
	}
	scanner := discovery.New(c.cfg.Paths.CloneDir, c.runner, c.logger)
	found, err := scanner.Scan(ctx, func(dir string) bool {
		_, ok := dirs[dir]
		return ok
	})
	if err != nil {
		return err
	}
	for _, rec := range found {
		c.logger.Info("adopting untracked project",
			logging.String(logging.FieldProject, rec.Name),
			logging.String("url", rec.URL),
		)
		db.Put(rec)
	}
	return nil
}

func (c *Controller) buildGraph(withDelete bool, logger *slog.Logger) *graph {
	exec := actions.New(c.cfg.Paths.CloneDir, c.cfg.Paths.Prefix, c.runner,
		actions.WithLogger(c.logger),
		actions.WithReporter(c.reporter),
	)
	common := []queue.Option{
		queue.WithLogger(logger),
		queue.WithCapacity(c.cfg.Run.InboxCapacity),
		queue.WithHandoff(c.cfg.StallTimeout(), c.cfg.Handoff.StallRetries),
		queue.WithClock(c.now),
	}
	workers := c.cfg.Parallelism()
	stage := func(name string, action queue.Action, extra ...queue.Option) *queue.Queue {
		opts := append(append([]queue.Option{}, common...), extra...)
		return queue.New(name, action, opts...)
	}

	g := &graph{}
	g.success = stage("success", exec.Success, queue.WithParallelism(1))
	g.fail = stage("fail", exec.Failure, queue.WithParallelism(1))
	if withDelete {
		g.del = stage("delete", exec.Delete, queue.WithParallelism(workers), queue.WithSuccess(g.success), queue.WithFail(g.fail))
	}
	next := g.success
	if !c.cfg.Run.OnlyPull {
		g.install = stage("install", exec.Install, queue.WithParallelism(workers), queue.WithSuccess(g.success), queue.WithFail(g.fail))
		next = g.install
	}
	g.clone = stage("clone", exec.Clone, queue.WithParallelism(workers), queue.WithSuccess(next), queue.WithFail(g.fail))
	g.pull = stage("pull", exec.Update, queue.WithParallelism(workers), queue.WithSuccess(next), queue.WithFail(g.fail))
	return g
}

// enqueue feeds the entry queues and always closes them, even on error, so the
// graph can drain.
func (c *Controller) enqueue(ctx context.Context, logger *slog.Logger, g *graph, db *database.Database, req Request, additions []*project.Record, summary *Summary) error {
	defer func() {
		if g.del != nil {
			g.del.Close()
		}
		g.clone.Close()
		g.pull.Close()
	}()

	skip := make(map[string]struct{})

	for _, name := range req.Delete {
		rec, ok := db.Get(name)
		if !ok {
			logger.Warn(fmt.Sprintf("couldn't find %s in %s", name, c.cfg.Paths.CloneDir),
				logging.String(logging.FieldProject, name),
				logging.String(logging.FieldEventType, "delete_unknown"),
			)
			summary.Skipped++
			continue
		}
		if _, dup := skip[name]; dup {
			continue
		}
		skip[name] = struct{}{}
		rec.Tag.MarkPending(project.PendingDelete)
		if err := g.del.Add(ctx, rec); err != nil {
			return err
		}
	}
	if g.del != nil {
		g.del.Close()
	}

	for _, rec := range additions {
		if _, ok := db.Get(rec.Name); ok {
			logger.Info(fmt.Sprintf("%s appears to be installed already", rec.Name),
				logging.String(logging.FieldProject, rec.Name),
				logging.String(logging.FieldEventType, "install_duplicate"),
			)
			summary.Skipped++
			continue
		}
		if _, dup := skip[rec.Name]; dup {
			summary.Skipped++
			continue
		}
		rec.Dir = project.ResolveDir(c.cfg.Paths.CloneDir, rec.Name)
		if rec.Dir != rec.Name {
			logger.Warn("a file occupies the clone path; using a suffixed directory",
				logging.String(logging.FieldProject, rec.Name),
				logging.String("dir", rec.Dir),
			)
		}
		skip[rec.Name] = struct{}{}
		rec.Tag.MarkPending(project.PendingPull)
		if err := g.clone.Add(ctx, rec); err != nil {
			return err
		}
	}
	g.clone.Close()

	if c.cfg.Run.Stale {
		logger.Debug("stale run; existing projects are not pulled")
		return nil
	}
	for _, rec := range db.Records() {
		if _, ok := skip[rec.Name]; ok {
			continue
		}
		if rec.Tag.Pending == project.PendingNone {
			rec.Tag.MarkPending(project.PendingPull)
		}
		if err := g.pull.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// collect folds sink deliveries back into db and builds journal entries.
func (c *Controller) collect(g *graph, db *database.Database, summary *Summary) []history.Entry {
	var entries []history.Entry
	record := func(d queue.Delivery, success bool) {
		entries = append(entries, history.Entry{
			RunID:      summary.RunID,
			Project:    d.Record.Name,
			Step:       d.Record.Tag.Outcome.Step.String(),
			Success:    success,
			Message:    d.Result.Message,
			RecordedAt: c.now().UTC(),
		})
	}

	for _, d := range g.success.Deliveries() {
		summary.Succeeded++
		record(d, true)
		if d.Record.Tag.Outcome.Step == project.StepDelete {
			db.Remove(d.Record.Name)
			continue
		}
		db.Put(d.Record)
	}
	for _, d := range g.fail.Deliveries() {
		if d.Record.Tag.Outcome.Reason == queue.InterruptedReason {
			summary.Interrupted++
		} else {
			summary.Failed++
		}
		record(d, false)
		if _, tracked := db.Get(d.Record.Name); !tracked && d.Record.Tag.Outcome.Step != project.StepInstall {
			// New project that never finished cloning.
			continue
		}
		db.Put(d.Record)
	}
	return entries
}

func (c *Controller) journalRun(ctx context.Context, summary Summary, interrupted bool, entries []history.Entry) error {
	if c.journal == nil {
		return nil
	}
	return c.journal.Record(ctx, history.Run{
		ID:          summary.RunID,
		StartedAt:   summary.StartedAt,
		FinishedAt:  summary.FinishedAt,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		Interrupted: interrupted,
	}, entries)
}
