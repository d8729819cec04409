// Package history provides access to the task_executions table for
// recording and querying past task runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearthward/conductor/internal/scheduling/facts"
)

// Execution is one recorded task run.
type Execution struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	TaskID      string     `json:"task_id"`
	SequenceID  string     `json:"sequence_id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Important   bool       `json:"important"`
	Stale       bool       `json:"stale,omitempty"`
	Error       string     `json:"error,omitempty"`
	PlanDate    facts.Date `json:"plan_date"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	StartedAt   time.Time  `json:"started_at,omitzero"`
	FinishedAt  time.Time  `json:"finished_at,omitzero"`
}

// Repository defines the interface for task execution history.
type Repository interface {
	Record(ctx context.Context, exec *Execution) error
	ListByDate(ctx context.Context, date facts.Date) ([]Execution, error)
	Prune(ctx context.Context, before facts.Date) (int64, error)
}

// SQLiteRepository stores task executions in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new task execution repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record upserts an execution keyed by (run_id, task_id). The first
// write for a run inserts the row; later lifecycle transitions update
// it in place. The ID is generated if empty.
func (r *SQLiteRepository) Record(ctx context.Context, exec *Execution) error {
	if exec.ID == "" {
		exec.ID = "exec-" + uuid.NewString()[:8]
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_executions
		   (id, run_id, task_id, sequence_id, title, status, important, stale, error,
		    plan_date, scheduled_at, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, task_id) DO UPDATE SET
		   status = excluded.status,
		   stale = excluded.stale,
		   error = excluded.error,
		   started_at = COALESCE(excluded.started_at, started_at),
		   finished_at = excluded.finished_at`,
		exec.ID, exec.RunID, exec.TaskID, exec.SequenceID, exec.Title,
		exec.Status, boolInt(exec.Important), boolInt(exec.Stale),
		nullableString(exec.Error),
		exec.PlanDate.String(),
		exec.ScheduledAt.UTC().Format(time.RFC3339),
		nullableTime(exec.StartedAt),
		nullableTime(exec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("recording task execution: %w", err)
	}

	return nil
}

// ListByDate returns all executions recorded for one plan date,
// ordered by scheduled time.
func (r *SQLiteRepository) ListByDate(ctx context.Context, date facts.Date) ([]Execution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, task_id, sequence_id, title, status, important, stale,
		        error, plan_date, scheduled_at, started_at, finished_at
		 FROM task_executions
		 WHERE plan_date = ?
		 ORDER BY scheduled_at, task_id`,
		date.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying task executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task executions: %w", err)
	}

	if execs == nil {
		execs = []Execution{}
	}

	return execs, nil
}

// Prune deletes executions with a plan date strictly before the cutoff.
// Returns the number of rows removed.
func (r *SQLiteRepository) Prune(ctx context.Context, before facts.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM task_executions WHERE plan_date < ?`,
		before.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning task executions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning task executions: %w", err)
	}

	return n, nil
}

func scanExecution(rows *sql.Rows) (Execution, error) {
	var exec Execution
	var important, stale int
	var errText sql.NullString
	var planDate, scheduledAt string
	var startedAt, finishedAt sql.NullString

	if err := rows.Scan(&exec.ID, &exec.RunID, &exec.TaskID, &exec.SequenceID,
		&exec.Title, &exec.Status, &important, &stale,
		&errText, &planDate, &scheduledAt, &startedAt, &finishedAt); err != nil {
		return Execution{}, fmt.Errorf("scanning task execution: %w", err)
	}

	exec.Important = important != 0
	exec.Stale = stale != 0
	if errText.Valid {
		exec.Error = errText.String
	}

	date, err := facts.ParseDate(planDate)
	if err != nil {
		return Execution{}, fmt.Errorf("parsing plan date %q: %w", planDate, err)
	}
	exec.PlanDate = date

	t, err := time.Parse(time.RFC3339, scheduledAt)
	if err != nil {
		return Execution{}, fmt.Errorf("parsing scheduled_at %q: %w", scheduledAt, err)
	}
	exec.ScheduledAt = t

	if exec.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return Execution{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if exec.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return Execution{}, fmt.Errorf("parsing finished_at: %w", err)
	}

	return exec, nil
}

func parseNullableTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.String)
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableTime returns nil for zero times, or the RFC3339 text otherwise.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
