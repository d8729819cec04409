// Package executor runs the current day plan: it holds the live
// schedule snapshot, fires each task at its trigger time in its own
// goroutine, and supersedes the snapshot when a new plan is applied.
//
// Transitions are serialised under one mutex, which is what enforces
// the state machine: a Pending task superseded by a reload is
// Cancelled before it can fire, while a task that has already reached
// InProgress always runs to completion. A perform failure is recorded
// on its own run and never touches sibling tasks. Tasks of one
// sequence that share a trigger time run one after another in their
// declared order.
package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hearthward/conductor/internal/scheduling/facts"
	"github.com/hearthward/conductor/internal/scheduling/scheduler"
)

// defaultPerformTimeout bounds a single Perform call.
const defaultPerformTimeout = 30 * time.Second

// taskRun is the executor-internal run state. The cancel channel wakes
// the task goroutine when the run is superseded; done closes when the
// run reaches a terminal status, which is what successor tasks in the
// same sequence wait on.
type taskRun struct {
	TaskRun
	cancel chan struct{}
	done   chan struct{}
}

// Executor owns the live plan. All exported methods are safe for
// concurrent use.
type Executor struct {
	performer      Performer
	reporter       Reporter
	recorder       Recorder
	log            Logger
	performTimeout time.Duration

	// clock is swapped in tests.
	clock func() time.Time

	mu       sync.Mutex
	planDate facts.Date
	runs     map[string]*taskRun
	stop     chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// New creates an executor delegating side effects to performer.
//
// Parameters:
//   - performer: Action collaborator invoked per due task
//   - log: Logger, or nil for no logging
//
// Returns:
//   - *Executor: Executor with no plan applied yet
func New(performer Performer, log Logger) *Executor {
	if log == nil {
		log = noopLogger{}
	}
	return &Executor{
		performer:      performer,
		log:            log,
		performTimeout: defaultPerformTimeout,
		clock:          time.Now,
		runs:           make(map[string]*taskRun),
		stop:           make(chan struct{}),
	}
}

// SetReporter configures the high-visibility outcome channel.
func (e *Executor) SetReporter(r Reporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporter = r
}

// SetRecorder configures the transition sink.
func (e *Executor) SetRecorder(r Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = r
}

// Apply installs a new plan, superseding the previous one.
//
// Pending tasks absent from the new plan are Cancelled. A pending task
// whose identity and resolved content are unchanged is carried over
// untouched, keeping its armed timer. InProgress and terminal runs are
// never altered. Terminal runs from an earlier date are dropped.
//
// Tasks already past their latest-start horizon complete immediately as
// stale, without performing.
//
// Parameters:
//   - ctx: Context passed to recorder callbacks
//   - plan: The freshly built plan to install
func (e *Executor) Apply(ctx context.Context, plan *scheduler.Plan) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}

	if plan.Date != e.planDate {
		e.dropFinishedRunsLocked()
		e.planDate = plan.Date
	}

	incoming := make(map[string]*scheduler.Task, len(plan.Tasks))
	for i := range plan.Tasks {
		incoming[plan.Tasks[i].ID()] = &plan.Tasks[i]
	}

	// Cancel pending runs that the new plan no longer contains, or
	// whose content changed.
	for id, run := range e.runs {
		if run.Status != StatusPending {
			continue
		}
		task, present := incoming[id]
		if present && tasksEqual(task, &run.Task) {
			continue
		}
		e.cancelLocked(ctx, run)
	}

	// Launch runs for new tasks.
	now := e.clock()
	for id, task := range incoming {
		if existing, ok := e.runs[id]; ok && !existing.Status.Terminal() {
			continue
		}
		run := &taskRun{
			TaskRun: TaskRun{
				Task:        *task,
				RunID:       plan.RunID,
				Status:      StatusPending,
				ScheduledAt: now,
			},
			cancel: make(chan struct{}),
			done:   make(chan struct{}),
		}
		e.runs[id] = run

		if now.After(task.Latest) {
			e.finishStaleLocked(ctx, run)
			continue
		}
		e.launchLocked(run)
	}

	e.log.Info("plan applied",
		"run_id", plan.RunID,
		"date", plan.Date.String(),
		"tasks", len(plan.Tasks),
	)
}

// Snapshot returns a copy of every run the executor currently tracks,
// ordered by trigger time then task identity.
func (e *Executor) Snapshot() []TaskRun {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make([]TaskRun, 0, len(e.runs))
	for _, run := range e.runs {
		snapshot = append(snapshot, run.TaskRun)
	}
	sort.Slice(snapshot, func(a, b int) bool {
		if !snapshot[a].Task.Time.Equal(snapshot[b].Task.Time) {
			return snapshot[a].Task.Time.Before(snapshot[b].Task.Time)
		}
		return snapshot[a].Task.ID() < snapshot[b].Task.ID()
	})
	return snapshot
}

// Close stops the executor: pending tasks are cancelled and in-progress
// tasks are drained until ctx expires.
//
// Parameters:
//   - ctx: Bounds the drain wait
//
// Returns:
//   - error: ErrDrainTimeout if in-progress tasks outlived ctx
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	close(e.stop)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrDrainTimeout
	}
}

// ─── Internals ──────────────────────────────────────────────────────────────

// launchLocked starts the goroutine that waits out the task's trigger
// time. Caller holds e.mu.
func (e *Executor) launchLocked(run *taskRun) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		timer := time.NewTimer(run.Task.Time.Sub(e.clock()))
		defer timer.Stop()

		select {
		case <-run.cancel:
			// Superseded; cancelLocked already recorded the transition.
			return
		case <-e.stop:
			e.mu.Lock()
			e.cancelLocked(context.Background(), run)
			e.mu.Unlock()
			return
		case <-timer.C:
		}

		// Tasks of one sequence sharing a trigger time run in their
		// declared order: wait for the previous task to finish first.
		if pred := e.predecessorDone(run); pred != nil {
			select {
			case <-run.cancel:
				return
			case <-e.stop:
				e.mu.Lock()
				e.cancelLocked(context.Background(), run)
				e.mu.Unlock()
				return
			case <-pred:
			}
		}

		if !e.begin(run) {
			return
		}
		e.perform(run)
	}()
}

// predecessorDone returns the done channel of the task declared
// immediately before run in the same sequence occurrence, when both
// share a trigger time. Nil when there is no such run.
func (e *Executor) predecessorDone(run *taskRun) <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, other := range e.runs {
		t := &other.Task
		if t.Sequence == run.Task.Sequence && t.Occurrence == run.Task.Occurrence &&
			t.Index == run.Task.Index-1 && t.Time.Equal(run.Task.Time) {
			return other.done
		}
	}
	return nil
}

// begin attempts the Pending -> InProgress transition. It loses the
// race only against cancellation.
func (e *Executor) begin(run *taskRun) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if run.Status != StatusPending {
		return false
	}
	run.Status = StatusInProgress
	run.StartedAt = e.clock()

	e.log.Info("task started",
		"task", run.Task.ID(),
		"title", run.Task.Title,
		"topics", len(run.Task.Topics),
	)
	if e.recorder != nil {
		e.recorder.TaskStarted(context.Background(), &run.TaskRun)
	}
	return true
}

// perform invokes the action collaborator and finishes the run. A
// failure is recorded on this run only.
func (e *Executor) perform(run *taskRun) {
	ctx, cancel := context.WithTimeout(context.Background(), e.performTimeout)
	defer cancel()

	err := e.performer.Perform(ctx, &run.Task)

	e.mu.Lock()
	run.Status = StatusCompleted
	run.FinishedAt = e.clock()
	if err != nil {
		run.Error = err.Error()
	}
	close(run.done)
	snapshot := run.TaskRun
	reporter, recorder := e.reporter, e.recorder
	e.mu.Unlock()

	if err != nil {
		e.log.Error("task failed",
			"task", run.Task.ID(),
			"title", run.Task.Title,
			"error", err,
		)
	} else {
		e.log.Info("task completed", "task", run.Task.ID(), "title", run.Task.Title)
	}

	if recorder != nil {
		recorder.TaskFinished(ctx, &snapshot)
	}
	if reporter != nil && (err != nil || run.Task.Important) {
		reporter.ReportOutcome(ctx, &snapshot)
	}
}

// cancelLocked performs Pending -> Cancelled. Caller holds e.mu.
// No-op for runs already beyond Pending.
func (e *Executor) cancelLocked(ctx context.Context, run *taskRun) {
	if run.Status != StatusPending {
		return
	}
	run.Status = StatusCancelled
	run.FinishedAt = e.clock()
	close(run.cancel)
	close(run.done)

	e.log.Debug("task cancelled", "task", run.Task.ID(), "title", run.Task.Title)
	if e.recorder != nil {
		e.recorder.TaskFinished(ctx, &run.TaskRun)
	}
}

// finishStaleLocked completes a task that was applied past its
// latest-start horizon. Caller holds e.mu.
func (e *Executor) finishStaleLocked(ctx context.Context, run *taskRun) {
	run.Status = StatusCompleted
	run.Stale = true
	run.FinishedAt = e.clock()
	close(run.done)

	e.log.Warn("task applied past its latest start, completing without action",
		"task", run.Task.ID(),
		"title", run.Task.Title,
		"trigger", run.Task.Time,
	)
	if e.recorder != nil {
		e.recorder.TaskFinished(ctx, &run.TaskRun)
	}
}

// dropFinishedRunsLocked clears terminal runs, used on day rollover.
// Caller holds e.mu.
func (e *Executor) dropFinishedRunsLocked() {
	for id, run := range e.runs {
		if run.Status.Terminal() {
			delete(e.runs, id)
		}
	}
}

// tasksEqual reports whether two resolved tasks are interchangeable for
// carry-over purposes.
func tasksEqual(a, b *scheduler.Task) bool {
	if a.Sequence != b.Sequence || a.Occurrence != b.Occurrence || a.Index != b.Index {
		return false
	}
	if a.Title != b.Title || a.Payload != b.Payload || a.Important != b.Important {
		return false
	}
	if !a.Time.Equal(b.Time) || !a.Latest.Equal(b.Latest) {
		return false
	}
	if len(a.Topics) != len(b.Topics) {
		return false
	}
	for i := range a.Topics {
		if a.Topics[i] != b.Topics[i] {
			return false
		}
	}
	return true
}
