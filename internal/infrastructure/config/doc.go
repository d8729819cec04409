// Package config loads and validates Conductor configuration.
//
// Values come from three layers, each overriding the last: hardcoded
// defaults, the YAML file, and CONDUCTOR_* environment variables.
// Validation runs after all three, so a config that loads is a config
// the service can start on.
//
// Secrets (broker passwords, InfluxDB tokens) belong in environment
// variables, not the file; keep the file itself at 0600.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loc := cfg.Location()
//
// Loading happens once at startup; the scheduling documents the
// config points at (rules, sequences, calendar) are re-read on SIGHUP
// but the process config itself is not.
package config
