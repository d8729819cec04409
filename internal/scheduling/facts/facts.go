package facts

import (
	"github.com/hearthward/conductor/internal/conditions"
)

// CalendarFacts carries the externally sourced facts for one date:
// free-form tags plus named boolean and string values declared in
// configuration.
type CalendarFacts struct {
	Tags    map[string]struct{}
	Bools   map[string]bool
	Strings map[string]string
}

// EmptyCalendarFacts returns an initialised, empty fact set.
func EmptyCalendarFacts() CalendarFacts {
	return CalendarFacts{
		Tags:    make(map[string]struct{}),
		Bools:   make(map[string]bool),
		Strings: make(map[string]string),
	}
}

// DayFacts is the evaluation context for one calendar date. It is built
// once per recomputation pass and treated as immutable afterwards.
type DayFacts struct {
	// Date is the civil date the facts describe.
	Date Date

	// DaysSinceEpoch counts whole days since 1970-01-01.
	DaysSinceEpoch int64

	// DayOfWeek is the lowercase English weekday name.
	DayOfWeek string

	// Calendar holds the externally supplied facts for Date.
	Calendar CalendarFacts

	// Today and Tomorrow hold classification tags, populated by the
	// classifier before scheduler conditions run. Nil-safe: a missing
	// set behaves as empty.
	Today    map[string]struct{}
	Tomorrow map[string]struct{}
}

// NewDayFacts derives the local facts for a date. Calendar facts start
// empty; classification sets start unset.
func NewDayFacts(date Date) *DayFacts {
	return &DayFacts{
		Date:           date,
		DaysSinceEpoch: date.DaysSinceEpoch(),
		DayOfWeek:      date.Weekday(),
		Calendar:       EmptyCalendarFacts(),
	}
}

// FieldDecls names the calendar-sourced fields that conditions may
// reference in addition to the built-ins. It comes from configuration
// and must match what the calendar provider supplies.
type FieldDecls struct {
	// Bools are boolean calendar facts, e.g. "is_public_holiday".
	// An undeclared or unsupplied fact reads as false.
	Bools []string `yaml:"bools"`

	// Strings are string calendar facts. Unsupplied facts read as "".
	Strings []string `yaml:"strings"`
}

// ClassifierFields builds the field registry for classifier rule
// conditions: days_since_epoch, day_of_week, the calendar tag set, and
// every declared calendar fact.
func ClassifierFields(decls FieldDecls) *conditions.Fields[*DayFacts] {
	fields := conditions.NewFields[*DayFacts]().
		Int("days_since_epoch", func(f *DayFacts) int64 { return f.DaysSinceEpoch }).
		String("day_of_week", func(f *DayFacts) string { return f.DayOfWeek }).
		Set("calendar", func(f *DayFacts) map[string]struct{} { return f.Calendar.Tags })
	return declareCalendarFields(fields, decls)
}

// SchedulerFields builds the field registry for sequence applicability
// conditions. It extends the classifier fields with the today and
// tomorrow classification sets.
func SchedulerFields(decls FieldDecls) *conditions.Fields[*DayFacts] {
	fields := ClassifierFields(decls).
		Set("today", func(f *DayFacts) map[string]struct{} { return f.Today }).
		Set("tomorrow", func(f *DayFacts) map[string]struct{} { return f.Tomorrow })
	return fields
}

func declareCalendarFields(fields *conditions.Fields[*DayFacts], decls FieldDecls) *conditions.Fields[*DayFacts] {
	for _, name := range decls.Bools {
		fields.Bool(name, func(f *DayFacts) bool { return f.Calendar.Bools[name] })
	}
	for _, name := range decls.Strings {
		fields.String(name, func(f *DayFacts) string { return f.Calendar.Strings[name] })
	}
	return fields
}
