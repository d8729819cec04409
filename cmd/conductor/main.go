// Conductor - Day Orchestration Service
//
// This is the main entry point for the Conductor application.
// Conductor plans and executes a site's day:
//   - Classifies each date against a rule set (weekend, holiday, ...)
//   - Builds a task plan from the sequences that apply to the day
//   - Fires each task at its trigger time over MQTT
//   - Records every run to SQLite and, optionally, InfluxDB
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hearthward/conductor/migrations"

	"github.com/hearthward/conductor/internal/history"
	"github.com/hearthward/conductor/internal/infrastructure/config"
	"github.com/hearthward/conductor/internal/infrastructure/database"
	"github.com/hearthward/conductor/internal/infrastructure/influxdb"
	"github.com/hearthward/conductor/internal/infrastructure/logging"
	"github.com/hearthward/conductor/internal/infrastructure/mqtt"
	"github.com/hearthward/conductor/internal/scheduling/executor"
	"github.com/hearthward/conductor/internal/scheduling/facts"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,cyclop,funlen // startup wiring: each collaborator adds a branch
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Conductor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	loc := cfg.Location()

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	historyRepo := history.NewSQLiteRepository(db.DB)

	// control carries rebuild requests arriving over MQTT.
	control := make(chan string, 1)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// Operators can force a plan rebuild remotely, the SIGHUP
		// equivalent for installations without shell access.
		qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated 0-2 by config
		err = mqttClient.Subscribe(mqtt.Topics{}.Control(), qos, controlHandler(control))
		if err != nil {
			return fmt.Errorf("subscribing to control topic: %w", err)
		}
	} else {
		log.Info("MQTT disabled, task commands will be logged only")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Compile the scheduling documents. A document that fails to parse
	// or type-check refuses startup outright; a service running with
	// half a rule set is worse than one that will not start.
	eng, err := buildEngine(cfg, loc, log)
	if err != nil {
		return fmt.Errorf("compiling scheduling documents: %w", err)
	}
	log.Info("scheduling documents compiled",
		"rules", cfg.Scheduling.RulesPath,
		"sequences", cfg.Scheduling.SequencesPath,
	)

	// Wire the executor
	exec := buildExecutor(cfg, eng, mqttClient, influxClient, historyRepo, log)

	// Build and apply today's plan
	if err := rebuild(ctx, eng, exec, influxClient, log); err != nil {
		return fmt.Errorf("building initial plan: %w", err)
	}

	log.Info("initialisation complete")

	// SIGHUP reloads the scheduling documents without a restart
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	refresh := time.NewTicker(cfg.GetRefreshInterval())
	defer refresh.Stop()

	midnight := time.NewTimer(untilNextMidnight(eng.loc))
	defer midnight.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, draining tasks")
			return drain(exec, cfg.GetDrainTimeout(), log)

		case <-hup:
			log.Info("SIGHUP received, reloading scheduling documents")
			fresh, reloadErr := buildEngine(cfg, loc, log)
			if reloadErr != nil {
				// Keep running on the last good documents.
				log.Error("reload failed, keeping current documents", "error", reloadErr)
				continue
			}
			eng.replace(fresh)
			if err := rebuild(ctx, eng, exec, influxClient, log); err != nil {
				log.Error("rebuilding plan after reload", "error", err)
			}

		case req := <-control:
			if req != "rebuild" {
				log.Warn("ignoring unknown control request", "request", req)
				continue
			}
			log.Info("rebuild requested over MQTT")
			if err := rebuild(ctx, eng, exec, influxClient, log); err != nil {
				log.Error("rebuilding plan on request", "error", err)
			}

		case <-refresh.C:
			if err := rebuild(ctx, eng, exec, influxClient, log); err != nil {
				log.Error("refreshing plan", "error", err)
			}

		case <-midnight.C:
			midnight.Reset(untilNextMidnight(eng.loc))
			log.Info("day rollover", "date", facts.Today(eng.loc).String())
			pruneHistory(ctx, cfg, historyRepo, eng.loc, log)
			if err := rebuild(ctx, eng, exec, influxClient, log); err != nil {
				log.Error("rebuilding plan at midnight", "error", err)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses CONDUCTOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CONDUCTOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// controlHandler queues operator requests from the control topic for
// the run loop. Requests arriving while one is already queued are
// coalesced; a rebuild is idempotent.
func controlHandler(control chan<- string) func(string, []byte) error {
	return func(_ string, payload []byte) error {
		select {
		case control <- string(payload):
		default:
		}
		return nil
	}
}

// untilNextMidnight returns the duration until the next local midnight.
func untilNextMidnight(loc *time.Location) time.Duration {
	now := time.Now().In(loc)
	next := facts.DateOf(now, loc).Next().Midnight(loc)
	return next.Sub(now)
}

// drain closes the executor, allowing in-progress tasks the configured
// grace period.
func drain(exec *executor.Executor, timeout time.Duration, log *logging.Logger) error {
	drainCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := exec.Close(drainCtx); err != nil {
		if errors.Is(err, executor.ErrDrainTimeout) {
			log.Warn("in-progress tasks did not finish before the drain deadline")
			return nil
		}
		return fmt.Errorf("closing executor: %w", err)
	}

	log.Info("Conductor stopped")
	return nil
}

// pruneHistory removes task execution records older than the retention
// window. Zero retention disables pruning.
func pruneHistory(ctx context.Context, cfg *config.Config, repo history.Repository, loc *time.Location, log *logging.Logger) {
	retention := cfg.Scheduling.History.RetentionDays
	if retention <= 0 {
		return
	}

	cutoff := facts.Today(loc).AddDays(-retention)
	n, err := repo.Prune(ctx, cutoff)
	if err != nil {
		log.Error("pruning task history", "error", err)
		return
	}
	if n > 0 {
		log.Info("task history pruned", "removed", n, "before", cutoff.String())
	}
}
