package facts

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider errors.
var (
	// ErrBadCalendar is returned when a calendar document fails to load.
	ErrBadCalendar = errors.New("facts: invalid calendar document")
)

// Provider supplies calendar-sourced facts for a date. Implementations
// may be slow or fallible; callers decide how to degrade when Facts
// returns an error.
type Provider interface {
	Facts(ctx context.Context, date Date) (CalendarFacts, error)
}

// calendarEntry is one dated block in a calendar YAML document. Either
// Date or a Start/Stop window selects the days it applies to; a window
// is inclusive on both ends.
type calendarEntry struct {
	Date    Date              `yaml:"date"`
	Start   Date              `yaml:"start"`
	Stop    Date              `yaml:"stop"`
	Tags    []string          `yaml:"tags"`
	Bools   map[string]bool   `yaml:"bools"`
	Strings map[string]string `yaml:"strings"`
}

func (e *calendarEntry) matches(date Date) bool {
	if !e.Date.IsZero() {
		return e.Date == date
	}
	if !e.Start.IsZero() && date.Before(e.Start) {
		return false
	}
	if !e.Stop.IsZero() && date.After(e.Stop) {
		return false
	}
	return !e.Start.IsZero() || !e.Stop.IsZero()
}

func (e *calendarEntry) validate(index int) error {
	hasDate := !e.Date.IsZero()
	hasWindow := !e.Start.IsZero() || !e.Stop.IsZero()
	if hasDate == hasWindow {
		return fmt.Errorf("%w: entry %d needs either date or start/stop", ErrBadCalendar, index)
	}
	if !e.Start.IsZero() && !e.Stop.IsZero() && e.Stop.Before(e.Start) {
		return fmt.Errorf("%w: entry %d stop precedes start", ErrBadCalendar, index)
	}
	return nil
}

// CalendarProvider serves facts from a static YAML document. It is the
// built-in Provider used when no external calendar source is wired in.
type CalendarProvider struct {
	entries []calendarEntry
}

// LoadCalendar reads a calendar YAML file.
//
// Document shape:
//
//	- date: 2026-12-25
//	  tags: [holiday]
//	  bools: {is_public_holiday: true}
//	- start: 2026-07-20
//	  stop: 2026-09-01
//	  tags: [school_break]
//
// Parameters:
//   - path: Filesystem path of the calendar document
//
// Returns:
//   - *CalendarProvider: Provider serving the loaded entries
//   - error: ErrBadCalendar-wrapped error on malformed documents
func LoadCalendar(path string) (*CalendarProvider, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from validated config
	if err != nil {
		return nil, fmt.Errorf("reading calendar file: %w", err)
	}

	var entries []calendarEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCalendar, err)
	}
	for i := range entries {
		if err := entries[i].validate(i); err != nil {
			return nil, err
		}
	}
	return &CalendarProvider{entries: entries}, nil
}

// EmptyCalendar returns a provider with no entries. Every date yields
// empty facts.
func EmptyCalendar() *CalendarProvider {
	return &CalendarProvider{}
}

// Facts merges every entry matching date. Later entries win on
// conflicting bool or string facts; tags accumulate.
func (p *CalendarProvider) Facts(_ context.Context, date Date) (CalendarFacts, error) {
	merged := EmptyCalendarFacts()
	for i := range p.entries {
		e := &p.entries[i]
		if !e.matches(date) {
			continue
		}
		for _, tag := range e.Tags {
			merged.Tags[tag] = struct{}{}
		}
		for name, v := range e.Bools {
			merged.Bools[name] = v
		}
		for name, v := range e.Strings {
			merged.Strings[name] = v
		}
	}
	return merged, nil
}
