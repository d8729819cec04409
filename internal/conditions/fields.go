package conditions

// Kind identifies the static type of a scalar expression.
type Kind int

// Scalar kinds supported by the expression language.
const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
)

// String returns the kind name as it appears in error messages.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// value is the runtime representation of a scalar. Exactly one member is
// meaningful, selected by kind.
type value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

func intValue(i int64) value     { return value{kind: KindInt, i: i} }
func floatValue(f float64) value { return value{kind: KindFloat, f: f} }
func boolValue(b bool) value     { return value{kind: KindBool, b: b} }
func stringValue(s string) value { return value{kind: KindString, s: s} }

// Fields declares the identifiers an expression may reference, each backed
// by an accessor over the evaluation context T.
//
// A Fields value is built once at startup and shared by every Parse call
// for that context type. It must not be modified after first use.
type Fields[T any] struct {
	scalars map[string]scalarField[T]
	sets    map[string]func(T) map[string]struct{}
}

type scalarField[T any] struct {
	kind Kind
	get  func(T) value
}

// NewFields creates an empty field registry for context type T.
func NewFields[T any]() *Fields[T] {
	return &Fields[T]{
		scalars: make(map[string]scalarField[T]),
		sets:    make(map[string]func(T) map[string]struct{}),
	}
}

// Int declares an integer-valued field. Returns the registry for chaining.
func (f *Fields[T]) Int(name string, get func(T) int64) *Fields[T] {
	f.scalars[name] = scalarField[T]{
		kind: KindInt,
		get:  func(ctx T) value { return intValue(get(ctx)) },
	}
	return f
}

// Float declares a float-valued field. Returns the registry for chaining.
func (f *Fields[T]) Float(name string, get func(T) float64) *Fields[T] {
	f.scalars[name] = scalarField[T]{
		kind: KindFloat,
		get:  func(ctx T) value { return floatValue(get(ctx)) },
	}
	return f
}

// Bool declares a boolean-valued field. Returns the registry for chaining.
func (f *Fields[T]) Bool(name string, get func(T) bool) *Fields[T] {
	f.scalars[name] = scalarField[T]{
		kind: KindBool,
		get:  func(ctx T) value { return boolValue(get(ctx)) },
	}
	return f
}

// String declares a string-valued field. Returns the registry for chaining.
func (f *Fields[T]) String(name string, get func(T) string) *Fields[T] {
	f.scalars[name] = scalarField[T]{
		kind: KindString,
		get:  func(ctx T) value { return stringValue(get(ctx)) },
	}
	return f
}

// Set declares a string-set field usable on the right side of in / not in.
// Returns the registry for chaining.
func (f *Fields[T]) Set(name string, get func(T) map[string]struct{}) *Fields[T] {
	f.sets[name] = get
	return f
}
