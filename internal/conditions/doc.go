// Package conditions implements the typed boolean expression language used
// to gate classifier rules and sequence applicability.
//
// Expressions are written against a caller-declared field set and compiled
// once with Parse. The resulting Expr is immutable and safe for concurrent
// evaluation against many contexts.
//
// # Grammar
//
// Operators from loosest to tightest binding:
//
//	or
//	and
//	not
//	==  !=  <  <=  >  >=  in  not in
//	+  -
//	*  /  %
//
// Parentheses override precedence. Literals are unsigned integers, decimal
// floats, true/false, and single- or double-quoted strings. Bare
// identifiers refer to declared fields and are bound at parse time.
//
// # Type Checking
//
// Parse rejects expressions that could not evaluate cleanly:
// comparison operands must share a type, equality on floats is rejected
// (use ordering), ordering on booleans is rejected, and in / not in
// require a string-valued left side and a declared set on the right.
// Evaluation itself can only fail on integer division or modulo by zero.
//
// # Usage
//
//	fields := conditions.NewFields[*Day]().
//	    Int("days_since_epoch", func(d *Day) int64 { return d.Epoch }).
//	    String("day_of_week", func(d *Day) string { return d.Weekday }).
//	    Set("today", func(d *Day) map[string]struct{} { return d.Today })
//
//	expr, err := conditions.Parse("'workday' in today and days_since_epoch % 2 == 0", fields)
//	if err != nil {
//	    return err
//	}
//	ok, err := expr.Eval(day)
package conditions
