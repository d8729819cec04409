package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Conductor.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// SchedulingConfig points at the rule and sequence documents and
// controls the recomputation loop.
type SchedulingConfig struct {
	// RulesPath is the classification rules YAML document.
	RulesPath string `yaml:"rules_path"`

	// SequencesPath is the sequence definitions YAML document.
	SequencesPath string `yaml:"sequences_path"`

	// CalendarPath is the calendar facts YAML document. Optional; an
	// empty path means no external calendar facts.
	CalendarPath string `yaml:"calendar_path"`

	// RefreshInterval is how often the plan is recomputed between
	// midnights, in seconds.
	RefreshInterval int `yaml:"refresh_interval"`

	// DrainTimeout is how long shutdown waits for in-progress tasks,
	// in seconds.
	DrainTimeout int `yaml:"drain_timeout"`

	// Fields declares calendar-sourced condition fields.
	Fields SchedulingFieldsConfig `yaml:"fields"`

	// History controls the task execution history store.
	History HistoryConfig `yaml:"history"`
}

// SchedulingFieldsConfig declares the calendar fact fields conditions
// may reference.
type SchedulingFieldsConfig struct {
	Bools   []string `yaml:"bools"`
	Strings []string `yaml:"strings"`
}

// HistoryConfig controls retention of task execution records.
type HistoryConfig struct {
	// RetentionDays is how many days of records to keep. Zero disables
	// pruning.
	RetentionDays int `yaml:"retention_days"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CONDUCTOR_SECTION_KEY
// For example: CONDUCTOR_DATABASE_PATH, CONDUCTOR_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the --config flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Conductor",
			Timezone: "UTC",
		},
		Scheduling: SchedulingConfig{
			RulesPath:       "configs/rules.yaml",
			SequencesPath:   "configs/sequences.yaml",
			RefreshInterval: 300,
			DrainTimeout:    30,
			History: HistoryConfig{
				RetentionDays: 90,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/conductor.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "conductor",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CONDUCTOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Site
	if v := os.Getenv("CONDUCTOR_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}

	// Scheduling
	if v := os.Getenv("CONDUCTOR_SCHEDULING_RULES_PATH"); v != "" {
		cfg.Scheduling.RulesPath = v
	}
	if v := os.Getenv("CONDUCTOR_SCHEDULING_SEQUENCES_PATH"); v != "" {
		cfg.Scheduling.SequencesPath = v
	}

	// Database
	if v := os.Getenv("CONDUCTOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CONDUCTOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CONDUCTOR_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("CONDUCTOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CONDUCTOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("CONDUCTOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("CONDUCTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
	}

	// Scheduling validation
	if c.Scheduling.RulesPath == "" {
		errs = append(errs, "scheduling.rules_path is required")
	}
	if c.Scheduling.SequencesPath == "" {
		errs = append(errs, "scheduling.sequences_path is required")
	}
	if c.Scheduling.RefreshInterval < 1 {
		errs = append(errs, "scheduling.refresh_interval must be at least 1 second")
	}
	if c.Scheduling.DrainTimeout < 1 {
		errs = append(errs, "scheduling.drain_timeout must be at least 1 second")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535) {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves the site timezone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetRefreshInterval returns the plan refresh interval as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Scheduling.RefreshInterval) * time.Second
}

// GetDrainTimeout returns the shutdown drain timeout as a Duration.
func (c *Config) GetDrainTimeout() time.Duration {
	return time.Duration(c.Scheduling.DrainTimeout) * time.Second
}
