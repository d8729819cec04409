package actions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hearthward/conductor/internal/scheduling/executor"
)

// Logger is the minimal logging interface the reporters need.
// Satisfied by logging.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// taskOutcome is the JSON document published to conductor/status/task.
type taskOutcome struct {
	TaskID     string    `json:"task_id"`
	RunID      string    `json:"run_id"`
	Sequence   string    `json:"sequence"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Important  bool      `json:"important"`
	Stale      bool      `json:"stale,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// StatusReporter publishes task outcomes over MQTT. The executor only
// routes failed runs and important-flagged runs here, so every message
// on the topic is worth a subscriber's attention.
type StatusReporter struct {
	pub   Publisher
	topic string
	qos   byte
	log   Logger
}

// NewStatusReporter creates an MQTT outcome reporter.
func NewStatusReporter(pub Publisher, topic string, qos byte, log Logger) *StatusReporter {
	if log == nil {
		log = noopLogger{}
	}
	return &StatusReporter{pub: pub, topic: topic, qos: qos, log: log}
}

// ReportOutcome publishes the run's terminal state. Publish failures
// are logged; a report is never worth failing a task over.
func (r *StatusReporter) ReportOutcome(_ context.Context, run *executor.TaskRun) {
	outcome := taskOutcome{
		TaskID:     run.Task.ID(),
		RunID:      run.RunID,
		Sequence:   run.Task.Sequence,
		Title:      run.Task.Title,
		Status:     string(run.Status),
		Important:  run.Task.Important,
		Stale:      run.Stale,
		Error:      run.Error,
		FinishedAt: run.FinishedAt,
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		r.log.Error("marshalling task outcome", "task", outcome.TaskID, "error", err)
		return
	}

	if err := r.pub.Publish(r.topic, payload, r.qos, false); err != nil {
		r.log.Warn("publishing task outcome failed",
			"task", outcome.TaskID,
			"topic", r.topic,
			"error", err,
		)
	}
}

// LogReporter writes outcomes to the service log. Used when MQTT is
// disabled.
type LogReporter struct {
	log Logger
}

// NewLogReporter creates a log-only outcome reporter.
func NewLogReporter(log Logger) *LogReporter {
	if log == nil {
		log = noopLogger{}
	}
	return &LogReporter{log: log}
}

// ReportOutcome logs the run's terminal state.
func (r *LogReporter) ReportOutcome(_ context.Context, run *executor.TaskRun) {
	if run.Error != "" {
		r.log.Error("task outcome",
			"task", run.Task.ID(),
			"title", run.Task.Title,
			"status", run.Status,
			"error", run.Error,
		)
		return
	}
	r.log.Info("task outcome",
		"task", run.Task.ID(),
		"title", run.Task.Title,
		"status", run.Status,
	)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
