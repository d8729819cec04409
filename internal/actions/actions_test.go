package actions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hearthward/conductor/internal/scheduling/executor"
	"github.com/hearthward/conductor/internal/scheduling/scheduler"
)

// mockPublisher records publishes and can fail selected topics.
type mockPublisher struct {
	mu        sync.Mutex
	published []publishCall
	failTopic string
}

type publishCall struct {
	topic   string
	payload string
	qos     byte
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failTopic != "" && topic == m.failTopic {
		return errors.New("broker rejected publish")
	}
	m.published = append(m.published, publishCall{topic: topic, payload: string(payload), qos: qos})
	return nil
}

func (m *mockPublisher) calls() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishCall(nil), m.published...)
}

func testTask() scheduler.Task {
	return scheduler.Task{
		Sequence:  "morning-blinds",
		Title:     "open blinds",
		Payload:   `{"action":"open"}`,
		Topics:    []string{"command/kitchen/blinds", "command/lounge/blinds"},
		Important: true,
		Time:      time.Date(2026, time.August, 29, 7, 0, 0, 0, time.UTC),
	}
}

// ─── Performer ───

func TestPerformer_PublishesToAllTopics(t *testing.T) {
	pub := &mockPublisher{}
	performer := NewPerformer(pub, 1)
	task := testTask()

	if err := performer.Perform(context.Background(), &task); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}

	calls := pub.calls()
	if len(calls) != 2 {
		t.Fatalf("published %d messages, want 2", len(calls))
	}
	if calls[0].topic != "command/kitchen/blinds" || calls[1].topic != "command/lounge/blinds" {
		t.Errorf("topics = %v, want declaration order", calls)
	}
	for _, call := range calls {
		if call.payload != `{"action":"open"}` {
			t.Errorf("payload = %q, want task payload", call.payload)
		}
		if call.qos != 1 {
			t.Errorf("qos = %d, want 1", call.qos)
		}
	}
}

func TestPerformer_ContinuesPastFailedTopic(t *testing.T) {
	pub := &mockPublisher{failTopic: "command/kitchen/blinds"}
	performer := NewPerformer(pub, 1)
	task := testTask()

	err := performer.Perform(context.Background(), &task)
	if err == nil {
		t.Fatal("Perform() expected error for failed topic")
	}
	if !strings.Contains(err.Error(), "command/kitchen/blinds") {
		t.Errorf("error %q does not name the failed topic", err)
	}

	// The second topic must still receive its command.
	calls := pub.calls()
	if len(calls) != 1 || calls[0].topic != "command/lounge/blinds" {
		t.Errorf("surviving publishes = %v, want the lounge topic", calls)
	}
}

func TestPerformer_CancelledContext(t *testing.T) {
	pub := &mockPublisher{}
	performer := NewPerformer(pub, 1)
	task := testTask()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := performer.Perform(ctx, &task)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Perform() error = %v, want context.Canceled", err)
	}
	if len(pub.calls()) != 0 {
		t.Error("Perform() published despite cancelled context")
	}
}

// ─── StatusReporter ───

func TestStatusReporter_PublishesOutcome(t *testing.T) {
	pub := &mockPublisher{}
	reporter := NewStatusReporter(pub, "conductor/status/task", 1, nil)

	run := &executor.TaskRun{
		Task:       testTask(),
		RunID:      "run-1",
		Status:     executor.StatusCompleted,
		Error:      "publish timed out",
		FinishedAt: time.Date(2026, time.August, 29, 7, 0, 2, 0, time.UTC),
	}

	reporter.ReportOutcome(context.Background(), run)

	calls := pub.calls()
	if len(calls) != 1 {
		t.Fatalf("published %d messages, want 1", len(calls))
	}
	if calls[0].topic != "conductor/status/task" {
		t.Errorf("topic = %q, want conductor/status/task", calls[0].topic)
	}

	var outcome map[string]any
	if err := json.Unmarshal([]byte(calls[0].payload), &outcome); err != nil {
		t.Fatalf("outcome payload is not JSON: %v", err)
	}
	if outcome["task_id"] != "morning-blinds/0/0" {
		t.Errorf("task_id = %v, want morning-blinds/0/0", outcome["task_id"])
	}
	if outcome["status"] != "completed" {
		t.Errorf("status = %v, want completed", outcome["status"])
	}
	if outcome["error"] != "publish timed out" {
		t.Errorf("error = %v, want publish timed out", outcome["error"])
	}
}

func TestStatusReporter_PublishFailureDoesNotPanic(t *testing.T) {
	pub := &mockPublisher{failTopic: "conductor/status/task"}
	reporter := NewStatusReporter(pub, "conductor/status/task", 1, nil)

	run := &executor.TaskRun{Task: testTask(), RunID: "run-1", Status: executor.StatusCompleted}
	reporter.ReportOutcome(context.Background(), run)
}

// ─── LogReporter ───

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(string, ...any) {}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func TestLogReporter_RoutesByOutcome(t *testing.T) {
	log := &recordingLogger{}
	reporter := NewLogReporter(log)

	ok := &executor.TaskRun{Task: testTask(), Status: executor.StatusCompleted}
	reporter.ReportOutcome(context.Background(), ok)

	failed := &executor.TaskRun{Task: testTask(), Status: executor.StatusCompleted, Error: "boom"}
	reporter.ReportOutcome(context.Background(), failed)

	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.infos) != 1 {
		t.Errorf("info logs = %d, want 1", len(log.infos))
	}
	if len(log.errors) != 1 {
		t.Errorf("error logs = %d, want 1", len(log.errors))
	}
}

// ─── TelemetryRecorder ───

type mockTaskWriter struct {
	mu         sync.Mutex
	executions []string
	failures   []string
	durations  []time.Duration
}

func (m *mockTaskWriter) WriteTaskExecution(sequence string, status string, _ bool, duration time.Duration) {
	m.mu.Lock()
	m.executions = append(m.executions, sequence+"/"+status)
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

func (m *mockTaskWriter) WriteTaskFailure(sequence string, taskID string, _ string) {
	m.mu.Lock()
	m.failures = append(m.failures, sequence+"/"+taskID)
	m.mu.Unlock()
}

func TestTelemetryRecorder_WritesExecution(t *testing.T) {
	writer := &mockTaskWriter{}
	rec := NewTelemetryRecorder(writer)

	started := time.Date(2026, time.August, 29, 7, 0, 0, 0, time.UTC)
	run := &executor.TaskRun{
		Task:       testTask(),
		RunID:      "run-1",
		Status:     executor.StatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(1200 * time.Millisecond),
	}

	rec.TaskFinished(context.Background(), run)

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.executions) != 1 || writer.executions[0] != "morning-blinds/completed" {
		t.Errorf("executions = %v, want one completed point", writer.executions)
	}
	if writer.durations[0] != 1200*time.Millisecond {
		t.Errorf("duration = %v, want 1.2s", writer.durations[0])
	}
	if len(writer.failures) != 0 {
		t.Errorf("failures = %v, want none for a clean run", writer.failures)
	}
}

func TestTelemetryRecorder_WritesFailurePoint(t *testing.T) {
	writer := &mockTaskWriter{}
	rec := NewTelemetryRecorder(writer)

	run := &executor.TaskRun{
		Task:   testTask(),
		RunID:  "run-1",
		Status: executor.StatusCompleted,
		Error:  "broker rejected publish",
	}

	rec.TaskFinished(context.Background(), run)

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.failures) != 1 {
		t.Fatalf("failures = %v, want 1", writer.failures)
	}
	if writer.failures[0] != "morning-blinds/morning-blinds/0/0" {
		t.Errorf("failure identity = %q", writer.failures[0])
	}
	// Never-started run records zero duration.
	if writer.durations[0] != 0 {
		t.Errorf("duration = %v, want 0", writer.durations[0])
	}
}
