package actions

import (
	"context"
	"time"

	"github.com/hearthward/conductor/internal/scheduling/executor"
)

// TaskWriter is the telemetry surface the recorder needs.
// Satisfied by influxdb.Client.
type TaskWriter interface {
	WriteTaskExecution(sequence string, status string, important bool, duration time.Duration)
	WriteTaskFailure(sequence string, taskID string, errText string)
}

// TelemetryRecorder writes finished task runs to the time-series
// store. Start transitions are not recorded; the execution point
// carries the full duration once the run finishes.
type TelemetryRecorder struct {
	writer TaskWriter
}

// NewTelemetryRecorder creates an InfluxDB-backed recorder.
func NewTelemetryRecorder(writer TaskWriter) *TelemetryRecorder {
	return &TelemetryRecorder{writer: writer}
}

// TaskStarted is a no-op; only terminal transitions are written.
func (t *TelemetryRecorder) TaskStarted(context.Context, *executor.TaskRun) {}

// TaskFinished writes the run's outcome point. Runs that never
// started (cancelled, stale) record a zero duration.
func (t *TelemetryRecorder) TaskFinished(_ context.Context, run *executor.TaskRun) {
	var duration time.Duration
	if !run.StartedAt.IsZero() && !run.FinishedAt.IsZero() {
		duration = run.FinishedAt.Sub(run.StartedAt)
	}

	t.writer.WriteTaskExecution(run.Task.Sequence, string(run.Status), run.Task.Important, duration)

	if run.Error != "" {
		t.writer.WriteTaskFailure(run.Task.Sequence, run.Task.ID(), run.Error)
	}
}
