package conditions

import (
	"fmt"
	"math"
)

// Expr is a compiled condition. It is immutable after Parse and safe for
// concurrent use.
type Expr[T any] struct {
	root boolNode[T]
	src  string
}

// Eval evaluates the condition against ctx. It has no side effects.
//
// Parameters:
//   - ctx: The evaluation context whose fields the expression references
//
// Returns:
//   - bool: The expression result
//   - error: ErrEvaluation-wrapped error on integer division or modulo by zero
func (e *Expr[T]) Eval(ctx T) (bool, error) {
	return e.root.eval(ctx)
}

// String returns the original source text of the expression.
func (e *Expr[T]) String() string {
	return e.src
}

// boolNode is a boolean-valued AST node.
type boolNode[T any] interface {
	eval(ctx T) (bool, error)
}

// valNode is a scalar-valued AST node. Its kind is fixed at parse time.
type valNode[T any] interface {
	eval(ctx T) (value, error)
	kind() Kind
}

// ─── Boolean nodes ───

type orNode[T any] struct {
	left, right boolNode[T]
}

func (n *orNode[T]) eval(ctx T) (bool, error) {
	l, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return n.right.eval(ctx)
}

type andNode[T any] struct {
	left, right boolNode[T]
}

func (n *andNode[T]) eval(ctx T) (bool, error) {
	l, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	if !l {
		return false, nil
	}
	return n.right.eval(ctx)
}

type notNode[T any] struct {
	inner boolNode[T]
}

func (n *notNode[T]) eval(ctx T) (bool, error) {
	v, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !v, nil
}

type compareNode[T any] struct {
	op          string
	left, right valNode[T]
}

func (n *compareNode[T]) eval(ctx T) (bool, error) {
	l, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	r, err := n.right.eval(ctx)
	if err != nil {
		return false, err
	}
	// Operand kinds match; enforced at parse time.
	switch l.kind {
	case KindInt:
		return compareOrdered(n.op, l.i, r.i), nil
	case KindFloat:
		return compareOrdered(n.op, l.f, r.f), nil
	case KindString:
		return compareOrdered(n.op, l.s, r.s), nil
	case KindBool:
		if n.op == "==" {
			return l.b == r.b, nil
		}
		return l.b != r.b, nil
	default:
		return false, fmt.Errorf("%w: unsupported comparison kind %v", ErrEvaluation, l.kind)
	}
}

func compareOrdered[V int64 | float64 | string](op string, l, r V) bool {
	switch op {
	case "==":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	default: // ">="
		return l >= r
	}
}

type inNode[T any] struct {
	member valNode[T] // string-valued
	set    func(T) map[string]struct{}
	negate bool
}

func (n *inNode[T]) eval(ctx T) (bool, error) {
	m, err := n.member.eval(ctx)
	if err != nil {
		return false, err
	}
	_, ok := n.set(ctx)[m.s]
	if n.negate {
		return !ok, nil
	}
	return ok, nil
}

// ─── Scalar nodes ───

type litNode[T any] struct {
	v value
}

func (n *litNode[T]) eval(T) (value, error) { return n.v, nil }
func (n *litNode[T]) kind() Kind            { return n.v.kind }

type fieldNode[T any] struct {
	name string
	k    Kind
	get  func(T) value
}

func (n *fieldNode[T]) eval(ctx T) (value, error) { return n.get(ctx), nil }
func (n *fieldNode[T]) kind() Kind                { return n.k }

type arithNode[T any] struct {
	op          string
	left, right valNode[T]
	k           Kind
}

func (n *arithNode[T]) kind() Kind { return n.k }

func (n *arithNode[T]) eval(ctx T) (value, error) {
	l, err := n.left.eval(ctx)
	if err != nil {
		return value{}, err
	}
	r, err := n.right.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if n.k == KindInt {
		return n.evalInt(l.i, r.i)
	}
	return n.evalFloat(l.f, r.f)
}

func (n *arithNode[T]) evalInt(l, r int64) (value, error) {
	switch n.op {
	case "+":
		return intValue(l + r), nil
	case "-":
		return intValue(l - r), nil
	case "*":
		return intValue(l * r), nil
	case "/":
		if r == 0 {
			return value{}, fmt.Errorf("%w: division by zero", ErrEvaluation)
		}
		return intValue(l / r), nil
	default: // "%"
		if r == 0 {
			return value{}, fmt.Errorf("%w: modulo by zero", ErrEvaluation)
		}
		return intValue(l % r), nil
	}
}

// evalFloat follows IEEE 754 semantics; division by zero yields an
// infinity rather than an error.
func (n *arithNode[T]) evalFloat(l, r float64) (value, error) {
	switch n.op {
	case "+":
		return floatValue(l + r), nil
	case "-":
		return floatValue(l - r), nil
	case "*":
		return floatValue(l * r), nil
	case "/":
		return floatValue(l / r), nil
	default: // "%"
		return floatValue(math.Mod(l, r)), nil
	}
}
