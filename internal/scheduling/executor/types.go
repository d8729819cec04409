package executor

import (
	"context"
	"errors"
	"time"

	"github.com/hearthward/conductor/internal/scheduling/scheduler"
)

// Domain errors for the executor package.
var (
	// ErrDrainTimeout is returned by Close when in-progress tasks do
	// not finish within the drain deadline.
	ErrDrainTimeout = errors.New("executor: drain timed out")
)

// Status is the lifecycle state of a task run.
//
// Legal transitions: Pending -> InProgress -> Completed, and
// Pending -> Cancelled. Completed and Cancelled are terminal.
type Status string

// Task run states.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TaskRun is the observable state of one task within the current plan.
// Snapshot returns copies; mutating a TaskRun has no effect on the
// executor.
type TaskRun struct {
	// Task is the resolved task being run.
	Task scheduler.Task

	// RunID identifies the plan build this run belongs to.
	RunID string

	// Status is the current lifecycle state.
	Status Status

	// Stale marks a task that was already past its latest-start
	// horizon when the plan was applied. Stale tasks complete without
	// performing.
	Stale bool

	// Error holds the perform failure, if any. A failed perform still
	// counts as Completed; failure isolation keeps sibling tasks
	// unaffected.
	Error string

	// Lifecycle timestamps. Zero until the transition happens.
	ScheduledAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Performer carries out a task's side effects, typically by publishing
// the payload to the task's command topics.
type Performer interface {
	Perform(ctx context.Context, task *scheduler.Task) error
}

// Reporter receives high-visibility outcomes: every failed run, and
// every run of an important-flagged task.
type Reporter interface {
	ReportOutcome(ctx context.Context, run *TaskRun)
}

// Recorder persists task run transitions, e.g. to the history store or
// a telemetry sink.
type Recorder interface {
	TaskStarted(ctx context.Context, run *TaskRun)
	TaskFinished(ctx context.Context, run *TaskRun)
}

// MultiRecorder fans transitions out to several recorders.
func MultiRecorder(recorders ...Recorder) Recorder {
	return multiRecorder(recorders)
}

type multiRecorder []Recorder

func (m multiRecorder) TaskStarted(ctx context.Context, run *TaskRun) {
	for _, r := range m {
		r.TaskStarted(ctx, run)
	}
}

func (m multiRecorder) TaskFinished(ctx context.Context, run *TaskRun) {
	for _, r := range m {
		r.TaskFinished(ctx, run)
	}
}

// Logger is the minimal logging interface the executor needs.
// Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
