package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hearthward/conductor/internal/actions"
	"github.com/hearthward/conductor/internal/history"
	"github.com/hearthward/conductor/internal/infrastructure/config"
	"github.com/hearthward/conductor/internal/infrastructure/influxdb"
	"github.com/hearthward/conductor/internal/infrastructure/logging"
	"github.com/hearthward/conductor/internal/infrastructure/mqtt"
	"github.com/hearthward/conductor/internal/scheduling/classifier"
	"github.com/hearthward/conductor/internal/scheduling/executor"
	"github.com/hearthward/conductor/internal/scheduling/facts"
	"github.com/hearthward/conductor/internal/scheduling/scheduler"
)

// engine bundles the compiled scheduling documents: the day
// classifier, the sequence scheduler, and the calendar provider. It is
// rebuilt wholesale on SIGHUP; the run loop is the only goroutine that
// touches it.
type engine struct {
	classifier *classifier.Classifier
	scheduler  *scheduler.Scheduler
	calendar   *facts.CalendarProvider
	loc        *time.Location
}

// buildEngine loads and compiles the rule, sequence, and calendar
// documents. Any parse or type error fails the build; the caller
// decides whether that refuses startup or keeps the previous engine.
func buildEngine(cfg *config.Config, loc *time.Location, log *logging.Logger) (*engine, error) {
	decls := facts.FieldDecls{
		Bools:   cfg.Scheduling.Fields.Bools,
		Strings: cfg.Scheduling.Fields.Strings,
	}

	calendar := facts.EmptyCalendar()
	if cfg.Scheduling.CalendarPath != "" {
		var err error
		calendar, err = facts.LoadCalendar(cfg.Scheduling.CalendarPath)
		if err != nil {
			return nil, fmt.Errorf("loading calendar: %w", err)
		}
	}

	rules, err := classifier.LoadRules(cfg.Scheduling.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	cls, err := classifier.New(rules, facts.ClassifierFields(decls))
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	cls.SetLogger(log)

	seqs, err := scheduler.LoadSequences(cfg.Scheduling.SequencesPath)
	if err != nil {
		return nil, fmt.Errorf("loading sequences: %w", err)
	}
	sched, err := scheduler.New(seqs, facts.SchedulerFields(decls), loc)
	if err != nil {
		return nil, fmt.Errorf("compiling sequences: %w", err)
	}
	sched.SetLogger(log)

	return &engine{
		classifier: cls,
		scheduler:  sched,
		calendar:   calendar,
		loc:        loc,
	}, nil
}

// replace swaps in a freshly compiled engine.
func (e *engine) replace(fresh *engine) {
	e.classifier = fresh.classifier
	e.scheduler = fresh.scheduler
	e.calendar = fresh.calendar
}

// dayFacts assembles the evaluation context for one date: local date
// facts plus whatever the calendar supplies.
func (e *engine) dayFacts(ctx context.Context, date facts.Date) (*facts.DayFacts, error) {
	cal, err := e.calendar.Facts(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("calendar facts for %s: %w", date, err)
	}
	day := facts.NewDayFacts(date)
	day.Calendar = cal
	return day, nil
}

// buildPlan classifies today and tomorrow, then schedules today's
// sequences against those classifications.
func (e *engine) buildPlan(ctx context.Context) (*scheduler.Plan, []string, error) {
	today := facts.Today(e.loc)

	day, err := e.dayFacts(ctx, today)
	if err != nil {
		return nil, nil, err
	}
	tomorrow, err := e.dayFacts(ctx, today.Next())
	if err != nil {
		return nil, nil, err
	}

	day.Today = e.classifier.Classify(day)
	day.Tomorrow = e.classifier.Classify(tomorrow)

	plan, err := e.scheduler.Schedule(day)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduling %s: %w", today, err)
	}

	return plan, classifier.SortedTags(day.Today), nil
}

// buildExecutor wires the executor to its collaborators: the MQTT
// performer and reporter when a broker is connected, the history
// recorder always, and the telemetry recorder when InfluxDB is
// connected.
func buildExecutor(cfg *config.Config, eng *engine, mqttClient *mqtt.Client, influxClient *influxdb.Client, repo history.Repository, log *logging.Logger) *executor.Executor {
	var performer executor.Performer
	var reporter executor.Reporter
	if mqttClient != nil {
		qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated 0-2 by config
		performer = actions.NewPerformer(mqttClient, qos)
		reporter = actions.NewStatusReporter(mqttClient, mqtt.Topics{}.TaskStatus(), qos, log)
	} else {
		performer = actions.NewLogPerformer(log)
		reporter = actions.NewLogReporter(log)
	}

	recorders := []executor.Recorder{
		history.NewRecorder(repo, eng.loc, log),
	}
	if influxClient != nil {
		recorders = append(recorders, actions.NewTelemetryRecorder(influxClient))
	}

	exec := executor.New(performer, log)
	exec.SetReporter(reporter)
	exec.SetRecorder(executor.MultiRecorder(recorders...))
	return exec
}

// rebuild computes a fresh plan and hands it to the executor. Tasks
// unchanged since the last apply keep their armed timers; the executor
// reconciles by task identity.
func rebuild(ctx context.Context, eng *engine, exec *executor.Executor, influxClient *influxdb.Client, log *logging.Logger) error {
	plan, tags, err := eng.buildPlan(ctx)
	if err != nil {
		return err
	}

	log.Info("plan built",
		"run_id", plan.RunID,
		"date", plan.Date.String(),
		"classifications", tags,
		"tasks", len(plan.Tasks),
	)

	exec.Apply(ctx, plan)

	if influxClient != nil {
		influxClient.WritePlanBuild(plan.RunID, len(plan.Tasks), strings.Join(tags, ","))
	}

	return nil
}
