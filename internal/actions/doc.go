// Package actions connects the task executor to the outside world.
//
// The executor itself only runs the task lifecycle; the side effects
// live here:
//
//   - Performer publishes a task's payload to its MQTT command topics.
//   - StatusReporter publishes high-visibility outcomes to the
//     conductor/status/task topic.
//   - TelemetryRecorder writes finished runs to InfluxDB.
//
// Each collaborator takes a narrow interface rather than a concrete
// client, so tests run without a broker or database.
package actions
