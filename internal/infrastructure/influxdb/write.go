package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTaskExecution writes a task outcome to the task_executions
// measurement.
//
// This is the primary telemetry method: every finished task run is
// recorded with its final status and how long the run took. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sequence: The owning sequence's ID (e.g., "morning-blinds")
//   - status: Final lifecycle state ("completed", "cancelled")
//   - important: Whether the task was flagged important
//   - duration: Wall-clock time from start to finish
//
// Example:
//
//	client.WriteTaskExecution("morning-blinds", "completed", true, 1200*time.Millisecond)
func (c *Client) WriteTaskExecution(sequence string, status string, important bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"task_executions",
		map[string]string{
			"sequence":  sequence,
			"status":    status,
			"important": boolTag(important),
		},
		map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"count":       int64(1),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTaskFailure records a failed task run with its error text.
//
// Failures also appear in task_executions via WriteTaskExecution; this
// measurement exists so dashboards can surface error messages without
// scanning the full execution stream.
func (c *Client) WriteTaskFailure(sequence string, taskID string, errText string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"task_failures",
		map[string]string{
			"sequence": sequence,
		},
		map[string]interface{}{
			"task_id": taskID,
			"error":   errText,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePlanBuild records a plan rebuild: how many tasks the new plan
// holds and which day classifications produced it.
//
// Parameters:
//   - runID: The plan build's unique ID
//   - taskCount: Number of tasks in the built plan
//   - classifications: Comma-joined day classification tags
func (c *Client) WritePlanBuild(runID string, taskCount int, classifications string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"plan_builds",
		map[string]string{
			"classifications": classifications,
		},
		map[string]interface{}{
			"run_id":     runID,
			"task_count": int64(taskCount),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "conductor-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
