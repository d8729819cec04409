package influxdb

import "errors"

// Sentinel errors for the telemetry client. Checked with errors.Is;
// write failures surface asynchronously through the SetOnError
// callback instead.
var (
	// ErrNotConnected indicates the client has no InfluxDB session.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial health probe against
	// the configured URL failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when telemetry is switched
	// off in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
