// Package logging provides structured logging for Conductor.
//
// It is a thin wrapper over log/slog that stamps the service name and
// version on every entry and selects format, destination, and level
// floor from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// JSON is the production format; text reads better during
// development. Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("plan built", "tasks", 12)
//	logger.Error("broker unreachable", "error", err)
//
// Never log secrets: broker passwords and InfluxDB tokens stay out of
// log fields.
package logging
