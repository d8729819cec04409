// Package influxdb records Conductor telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library and exposes a
// small write surface for the measurements Conductor produces: task
// executions, task failures, and plan rebuilds. Dashboards answer
// questions like "how long do morning blinds take to open" and "which
// sequences fail most often" from these series.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteTaskExecution("morning-blinds", "completed", true, 1200*time.Millisecond)
//
// # Write behaviour
//
// Writes go through the client library's asynchronous batched API and
// never block the caller. Batch size and flush interval come from
// config (batch_size, flush_interval). Failed batches surface through
// a callback registered with SetOnError; there is no per-write error
// return. Telemetry is best effort: an InfluxDB outage must not stall
// task execution.
//
// All methods are safe for concurrent use.
package influxdb
