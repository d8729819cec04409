// Package scheduler resolves configured sequences into the concrete,
// time-ordered task plan for one day.
//
// Sequences are filtered by their applicability conditions against the
// day's classification tags, then each retained sequence's task
// templates are expanded into absolute UTC trigger times for the site
// timezone. Building a plan is deterministic: identical inputs always
// yield an identical task list.
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hearthward/conductor/internal/conditions"
	"github.com/hearthward/conductor/internal/scheduling/facts"
)

// defaultLatestAfter bounds how late a task may start when a sequence
// does not set latest_after.
const defaultLatestAfter = time.Hour

// Logger is the minimal logging interface the scheduler needs.
// Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// compiledSequence is a Sequence with its conditions parsed and
// defaults applied.
type compiledSequence struct {
	id          string
	conds       []*conditions.Expr[*facts.DayFacts]
	today       []string
	tasks       []TaskTemplate
	repeatCount int
	repeatEvery time.Duration
	latestAfter time.Duration
}

// Scheduler builds day plans from a compiled sequence set. Safe for
// concurrent use after construction.
type Scheduler struct {
	seqs []compiledSequence
	loc  *time.Location
	log  Logger
}

// New compiles sequences against the given field registry.
//
// Every applicability condition is parsed here; a constructed Scheduler
// can no longer hit unknown-field or type errors. Any compile failure
// aborts construction.
//
// Parameters:
//   - seqs: Sequence definitions from configuration
//   - fields: Field registry for scheduler conditions
//   - loc: Site timezone used to resolve wall-clock task times
//
// Returns:
//   - *Scheduler: Ready-to-use scheduler
//   - error: ErrInvalidSequence or ErrDuplicateSequence wrapped with context
func New(seqs []Sequence, fields *conditions.Fields[*facts.DayFacts], loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	compiled := make([]compiledSequence, 0, len(seqs))
	seen := make(map[string]struct{}, len(seqs))
	for i, seq := range seqs {
		if seq.ID == "" {
			return nil, fmt.Errorf("%w: sequence %d has no id", ErrInvalidSequence, i)
		}
		if _, dup := seen[seq.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSequence, seq.ID)
		}
		seen[seq.ID] = struct{}{}

		if len(seq.Tasks) == 0 {
			return nil, fmt.Errorf("%w: sequence %s has no tasks", ErrInvalidSequence, seq.ID)
		}
		for j, task := range seq.Tasks {
			if len(task.Locations) == 0 || len(task.Devices) == 0 {
				return nil, fmt.Errorf("%w: sequence %s task %d needs locations and devices",
					ErrInvalidSequence, seq.ID, j)
			}
		}
		if seq.Repeat.Count > 1 && seq.Repeat.Every.Duration <= 0 {
			return nil, fmt.Errorf("%w: sequence %s repeats without spacing", ErrInvalidSequence, seq.ID)
		}

		cs := compiledSequence{
			id:          seq.ID,
			today:       seq.Today,
			tasks:       seq.Tasks,
			repeatCount: max(seq.Repeat.Count, 1),
			repeatEvery: seq.Repeat.Every.Duration,
			latestAfter: seq.LatestAfter.Duration,
		}
		if cs.latestAfter <= 0 {
			cs.latestAfter = defaultLatestAfter
		}
		for _, src := range seq.If {
			expr, err := conditions.Parse(src, fields)
			if err != nil {
				return nil, fmt.Errorf("%w: sequence %s: %w", ErrInvalidSequence, seq.ID, err)
			}
			cs.conds = append(cs.conds, expr)
		}
		compiled = append(compiled, cs)
	}
	return &Scheduler{seqs: compiled, loc: loc, log: noopLogger{}}, nil
}

// SetLogger configures logging. Call before first use.
func (s *Scheduler) SetLogger(log Logger) {
	if log != nil {
		s.log = log
	}
}

// Schedule builds the plan for one day.
//
// The day facts must already carry the classification sets for today
// and tomorrow. The returned plan's task list is a pure function of the
// day facts and the compiled sequence set; only RunID differs between
// rebuilds.
//
// Parameters:
//   - day: Classified facts for the date being planned
//
// Returns:
//   - *Plan: Time-ordered task plan, possibly empty
//   - error: If an applicability condition fails to evaluate
func (s *Scheduler) Schedule(day *facts.DayFacts) (*Plan, error) {
	plan := &Plan{
		RunID: uuid.New().String(),
		Date:  day.Date,
	}

	for i := range s.seqs {
		seq := &s.seqs[i]
		applies, err := s.applies(seq, day)
		if err != nil {
			return nil, fmt.Errorf("sequence %s applicability: %w", seq.id, err)
		}
		if !applies {
			s.log.Debug("sequence not applicable", "sequence", seq.id, "date", day.Date.String())
			continue
		}
		s.expand(plan, seq, day.Date)
	}

	// Stable sort: equal trigger times keep declaration order, which
	// is the order tasks were appended in.
	sort.SliceStable(plan.Tasks, func(a, b int) bool {
		return plan.Tasks[a].Time.Before(plan.Tasks[b].Time)
	})
	return plan, nil
}

// applies reports whether a sequence is selected for the day: every
// required today-tag present, and any applicability condition true.
func (s *Scheduler) applies(seq *compiledSequence, day *facts.DayFacts) (bool, error) {
	for _, tag := range seq.today {
		if _, ok := day.Today[tag]; !ok {
			return false, nil
		}
	}
	if len(seq.conds) == 0 {
		return true, nil
	}
	for _, cond := range seq.conds {
		ok, err := cond.Eval(day)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// expand appends every occurrence of every task in the sequence.
func (s *Scheduler) expand(plan *Plan, seq *compiledSequence, date facts.Date) {
	for occurrence := 0; occurrence < seq.repeatCount; occurrence++ {
		shift := time.Duration(occurrence) * seq.repeatEvery
		for index, tmpl := range seq.tasks {
			trigger := tmpl.Time.On(date, s.loc).Add(shift)
			plan.Tasks = append(plan.Tasks, Task{
				Sequence:   seq.id,
				Occurrence: occurrence,
				Index:      index,
				Title:      tmpl.Title,
				Payload:    tmpl.Payload,
				Topics:     commandTopics(tmpl.Locations, tmpl.Devices),
				Important:  tmpl.Important,
				Time:       trigger,
				Latest:     trigger.Add(seq.latestAfter),
			})
		}
	}
}

// commandTopics crosses locations and devices into command topics.
func commandTopics(locations, devices []string) []string {
	topics := make([]string, 0, len(locations)*len(devices))
	for _, loc := range locations {
		for _, dev := range devices {
			topics = append(topics, fmt.Sprintf("command/%s/%s", loc, dev))
		}
	}
	return topics
}
