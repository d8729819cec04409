// Package classifier turns a calendar date into a set of classification
// tags by applying condition-gated rules to that date's facts.
//
// Rules are mutually independent predicates: each one sees the same
// immutable DayFacts, no rule can observe another's tag, and the result
// is the union of matching tags. Permuting the rule list never changes
// the outcome.
package classifier

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hearthward/conductor/internal/conditions"
	"github.com/hearthward/conductor/internal/scheduling/facts"
)

// Domain errors for the classifier package.
var (
	// ErrInvalidRule is returned when a rule fails validation or its
	// conditions fail to compile.
	ErrInvalidRule = errors.New("classifier: invalid rule")
)

// Logger is the minimal logging interface the classifier needs.
// Satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is set.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Rule is one classification rule as authored in configuration.
type Rule struct {
	// Title identifies the rule in logs and error messages.
	Title string `yaml:"title"`

	// Tag is the classification contributed when the rule matches.
	Tag string `yaml:"tag"`

	// If lists condition expressions. The rule matches when any of
	// them evaluates true; an empty list always matches.
	If []string `yaml:"if"`

	// Start and Stop bound the dates the rule applies to, inclusive.
	// A zero date leaves that end open.
	Start facts.Date `yaml:"start"`
	Stop  facts.Date `yaml:"stop"`
}

// compiledRule is a Rule with its conditions parsed.
type compiledRule struct {
	title       string
	tag         string
	conds       []*conditions.Expr[*facts.DayFacts]
	start, stop facts.Date
}

func (r *compiledRule) inWindow(date facts.Date) bool {
	if !r.start.IsZero() && date.Before(r.start) {
		return false
	}
	if !r.stop.IsZero() && date.After(r.stop) {
		return false
	}
	return true
}

// Classifier applies a compiled rule set to day facts. Safe for
// concurrent use after construction.
type Classifier struct {
	rules []compiledRule
	log   Logger
}

// New compiles rules against the given field registry.
//
// Every condition is parsed here, so a constructed Classifier can no
// longer hit unknown-field or type errors. Any compile failure aborts
// construction; callers must refuse to run with a partial rule set.
//
// Parameters:
//   - rules: Rule definitions from configuration
//   - fields: Field registry for classifier conditions
//
// Returns:
//   - *Classifier: Ready-to-use classifier
//   - error: ErrInvalidRule-wrapped error naming the offending rule
func New(rules []Rule, fields *conditions.Fields[*facts.DayFacts]) (*Classifier, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.Tag == "" {
			return nil, fmt.Errorf("%w: rule %d (%s) has no tag", ErrInvalidRule, i, rule.Title)
		}
		if !rule.Start.IsZero() && !rule.Stop.IsZero() && rule.Stop.Before(rule.Start) {
			return nil, fmt.Errorf("%w: rule %d (%s) stop precedes start", ErrInvalidRule, i, rule.Title)
		}

		cr := compiledRule{
			title: rule.Title,
			tag:   rule.Tag,
			start: rule.Start,
			stop:  rule.Stop,
		}
		for _, src := range rule.If {
			expr, err := conditions.Parse(src, fields)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %d (%s): %w", ErrInvalidRule, i, rule.Title, err)
			}
			cr.conds = append(cr.conds, expr)
		}
		compiled = append(compiled, cr)
	}
	return &Classifier{rules: compiled, log: noopLogger{}}, nil
}

// SetLogger configures logging. Call before first use.
func (c *Classifier) SetLogger(log Logger) {
	if log != nil {
		c.log = log
	}
}

// Classify returns the classification set for one day.
//
// A rule contributes its tag when the date falls inside its window and
// any of its conditions evaluates true (a rule with no conditions always
// matches inside its window). A condition that fails to evaluate is
// logged and skipped; it never aborts classification of the day.
func (c *Classifier) Classify(day *facts.DayFacts) map[string]struct{} {
	set := make(map[string]struct{})
	for i := range c.rules {
		rule := &c.rules[i]
		if !rule.inWindow(day.Date) {
			continue
		}
		if c.ruleMatches(rule, day) {
			set[rule.tag] = struct{}{}
		}
	}
	return set
}

func (c *Classifier) ruleMatches(rule *compiledRule, day *facts.DayFacts) bool {
	if len(rule.conds) == 0 {
		return true
	}
	for _, cond := range rule.conds {
		ok, err := cond.Eval(day)
		if err != nil {
			c.log.Warn("skipping unevaluable condition",
				"rule", rule.title,
				"condition", cond.String(),
				"date", day.Date.String(),
				"error", err,
			)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// SortedTags returns the tags of a classification set in ascending
// order, for logging and deterministic output.
func SortedTags(set map[string]struct{}) []string {
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// LoadRules reads a rule list from a YAML document.
//
// Parameters:
//   - path: Filesystem path of the rules document
//
// Returns:
//   - []Rule: Parsed rule definitions, not yet compiled
//   - error: If the file is unreadable or malformed
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from validated config
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return rules, nil
}
