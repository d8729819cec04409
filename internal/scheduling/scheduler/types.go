package scheduler

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hearthward/conductor/internal/scheduling/facts"
)

// TimeOfDay is a wall-clock time within a day, written HH:MM or
// HH:MM:SS in configuration.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var tod TimeOfDay
	switch n, _ := fmt.Sscanf(s, "%d:%d:%d", &tod.Hour, &tod.Minute, &tod.Second); n {
	case 2, 3:
	default:
		return TimeOfDay{}, fmt.Errorf("%w: bad time of day %q", ErrInvalidSequence, s)
	}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 ||
		tod.Second < 0 || tod.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: bad time of day %q", ErrInvalidSequence, s)
	}
	return tod, nil
}

// String returns the time in HH:MM:SS form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On resolves the wall-clock time on a date in loc to a UTC instant.
func (t TimeOfDay) On(date facts.Date, loc *time.Location) time.Time {
	return date.At(t.Hour, t.Minute, t.Second, loc).UTC()
}

// UnmarshalYAML decodes an HH:MM[:SS] scalar.
func (t *TimeOfDay) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Duration wraps time.Duration with YAML support for Go duration
// strings such as "10m" or "1h30m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML decodes a Go duration scalar.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrInvalidSequence, s)
	}
	d.Duration = parsed
	return nil
}

// Repeat makes a sequence fire multiple times in one day.
type Repeat struct {
	// Count is the total number of occurrences. Zero or one means the
	// sequence fires once.
	Count int `yaml:"count"`

	// Every is the spacing between occurrences.
	Every Duration `yaml:"every"`
}

// TaskTemplate is one task definition inside a sequence.
type TaskTemplate struct {
	// Title identifies the task in logs, history and reports.
	Title string `yaml:"title"`

	// Payload is published verbatim to each resolved topic.
	Payload string `yaml:"payload"`

	// Locations and Devices are crossed into command topics:
	// one topic per (location, device) pair.
	Locations []string `yaml:"locations"`
	Devices   []string `yaml:"devices"`

	// Time is the task's wall-clock trigger time on the scheduled day.
	Time TimeOfDay `yaml:"time"`

	// Important escalates failures to the high-visibility reporter.
	Important bool `yaml:"important"`
}

// Sequence is a named bundle of tasks gated by applicability
// conditions, as authored in configuration.
type Sequence struct {
	// ID names the sequence. Must be unique within the set.
	ID string `yaml:"id"`

	// If lists applicability conditions; the sequence applies when any
	// evaluates true. An empty list applies every day.
	If []string `yaml:"if"`

	// Today lists classification tags that must all be present in the
	// day's classification set. Shorthand for common gating.
	Today []string `yaml:"today"`

	// Tasks are instantiated in declaration order.
	Tasks []TaskTemplate `yaml:"tasks"`

	// Repeat optionally fires the sequence several times in a day.
	Repeat Repeat `yaml:"repeat"`

	// LatestAfter is how far past its trigger time a task may still
	// start. Tasks applied later than this are marked stale and
	// completed without performing. Defaults to one hour.
	LatestAfter Duration `yaml:"latest_after"`
}

// Task is one resolved, schedulable unit of work.
type Task struct {
	// Sequence is the owning sequence's ID; Occurrence its repeat
	// ordinal; Index the task's position within the sequence.
	Sequence   string
	Occurrence int
	Index      int

	Title     string
	Payload   string
	Topics    []string
	Important bool

	// Time is the absolute trigger instant in UTC. Latest is the
	// instant after which the task is considered stale.
	Time   time.Time
	Latest time.Time
}

// ID returns a stable identity for the task within one plan, used to
// match tasks across plan reloads.
func (t *Task) ID() string {
	return fmt.Sprintf("%s/%d/%d", t.Sequence, t.Occurrence, t.Index)
}

// Plan is the resolved schedule for one date: every applicable
// sequence's tasks, ordered by trigger time. Immutable once built.
type Plan struct {
	// RunID uniquely identifies this build of the plan.
	RunID string

	// Date is the civil date the plan covers.
	Date facts.Date

	// Tasks are ordered by ascending trigger time, ties broken by
	// sequence declaration order, then occurrence, then task index.
	Tasks []Task
}

// LoadSequences reads a sequence list from a YAML document.
//
// Parameters:
//   - path: Filesystem path of the sequences document
//
// Returns:
//   - []Sequence: Parsed sequence definitions, not yet compiled
//   - error: If the file is unreadable or malformed
func LoadSequences(path string) ([]Sequence, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from validated config
	if err != nil {
		return nil, fmt.Errorf("reading sequences file: %w", err)
	}
	var seqs []Sequence
	if err := yaml.Unmarshal(data, &seqs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSequence, err)
	}
	return seqs, nil
}
