// Package facts builds the per-day evaluation context shared by the
// classifier and the scheduler.
//
// A DayFacts value bundles everything a condition may reference for one
// calendar date: the date itself, the lowercase weekday name, externally
// supplied calendar facts, and (for scheduler conditions) the
// classification tags already computed for today and tomorrow.
//
// The calendar collaborator is abstracted behind Provider. The built-in
// implementation reads a YAML document of dated entries; richer sources
// (recurring events, remote calendars) plug in behind the same interface.
package facts
