package history

import (
	"context"
	"time"

	"github.com/hearthward/conductor/internal/scheduling/executor"
	"github.com/hearthward/conductor/internal/scheduling/facts"
)

// Logger is the minimal logging interface the recorder needs.
// Satisfied by logging.Logger.
type Logger interface {
	Error(msg string, args ...any)
}

// Recorder persists executor task transitions to the repository. It
// implements executor.Recorder; repository failures are logged rather
// than surfaced, so a broken disk never stalls task execution.
type Recorder struct {
	repo Repository
	loc  *time.Location
	log  Logger
}

// NewRecorder creates a history recorder. The location resolves a
// task's UTC trigger instant back to its civil plan date.
func NewRecorder(repo Repository, loc *time.Location, log Logger) *Recorder {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = noopLogger{}
	}
	return &Recorder{repo: repo, loc: loc, log: log}
}

// TaskStarted records the Pending -> InProgress transition.
func (r *Recorder) TaskStarted(ctx context.Context, run *executor.TaskRun) {
	r.record(ctx, run)
}

// TaskFinished records a terminal transition.
func (r *Recorder) TaskFinished(ctx context.Context, run *executor.TaskRun) {
	r.record(ctx, run)
}

func (r *Recorder) record(ctx context.Context, run *executor.TaskRun) {
	exec := &Execution{
		RunID:       run.RunID,
		TaskID:      run.Task.ID(),
		SequenceID:  run.Task.Sequence,
		Title:       run.Task.Title,
		Status:      string(run.Status),
		Important:   run.Task.Important,
		Stale:       run.Stale,
		Error:       run.Error,
		PlanDate:    facts.DateOf(run.Task.Time, r.loc),
		ScheduledAt: run.Task.Time,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}

	if err := r.repo.Record(ctx, exec); err != nil {
		r.log.Error("recording task execution failed",
			"task", exec.TaskID,
			"run", exec.RunID,
			"error", err,
		)
	}
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
