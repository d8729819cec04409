package conditions

// Parse compiles input against the declared fields.
//
// All field references are resolved and all operand types are checked
// during parsing, so a successfully parsed expression can only fail at
// evaluation time on integer division or modulo by zero.
//
// Parameters:
//   - input: The expression source text
//   - fields: Field declarations for context type T
//
// Returns:
//   - *Expr[T]: The compiled expression
//   - error: A *ParseError wrapping ErrParse, ErrUnknownField or ErrTypeMismatch
func Parse[T any](input string, fields *Fields[T]) (*Expr[T], error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser[T]{input: input, toks: toks, fields: fields}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokEOF {
		return nil, newParseError(ErrParse, input, tok.pos, "unexpected %q after expression", tok.lit)
	}
	return &Expr[T]{root: root, src: input}, nil
}

// parser is a recursive-descent parser over a pre-lexed token slice.
// Saving and restoring pos gives cheap backtracking, needed only to
// disambiguate "(" opening a nested boolean expression from "(" opening
// a parenthesised arithmetic operand.
type parser[T any] struct {
	input  string
	toks   []token
	pos    int
	fields *Fields[T]
}

func (p *parser[T]) peek() token {
	return p.toks[p.pos]
}

func (p *parser[T]) next() token {
	tok := p.toks[p.pos]
	if tok.typ != tokEOF {
		p.pos++
	}
	return tok
}

// accept consumes the next token if it is the given keyword.
func (p *parser[T]) accept(keyword string) bool {
	if tok := p.peek(); tok.typ == tokIdent && tok.lit == keyword {
		p.pos++
		return true
	}
	return false
}

// parseOr handles the loosest binding level: a or b or c.
func (p *parser[T]) parseOr() (boolNode[T], error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(kwOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode[T]{left: left, right: right}
	}
	return left, nil
}

func (p *parser[T]) parseAnd() (boolNode[T], error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept(kwAnd) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &andNode[T]{left: left, right: right}
	}
	return left, nil
}

func (p *parser[T]) parseNot() (boolNode[T], error) {
	if p.accept(kwNot) {
		// "not in" belongs to the condition level, never here: a bare
		// "not" keyword in operand position is always prefix negation.
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode[T]{inner: inner}, nil
	}
	return p.parseCondition()
}

// parseCondition parses the comparison level: a nested parenthesised
// boolean expression, a comparison, or a set membership test.
func (p *parser[T]) parseCondition() (boolNode[T], error) {
	if p.peek().typ == tokLParen {
		if node, ok := p.tryNestedBool(); ok {
			return node, nil
		}
		// Fall through: the parentheses group an arithmetic operand,
		// as in (a + 1) * 2 == 4.
	}

	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if p.accept(kwIn) {
		return p.finishMembership(left, false)
	}
	if p.peek().typ == tokIdent && p.peek().lit == kwNot {
		// Must be "not in"; a prefix "not" cannot follow an operand.
		notTok := p.next()
		if !p.accept(kwIn) {
			return nil, newParseError(ErrParse, p.input, notTok.pos, "expected \"in\" after \"not\"")
		}
		return p.finishMembership(left, true)
	}

	opTok := p.peek()
	if opTok.typ != tokOp || !isCompareOp(opTok.lit) {
		return nil, newParseError(ErrParse, p.input, opTok.pos, "expected comparison operator, got %q", opTok.lit)
	}
	p.next()

	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return p.checkComparison(opTok, left, right)
}

// tryNestedBool attempts to parse "(" boolean-expr ")" and keeps the
// result only when the closing parenthesis is followed by a boolean
// context (or / and / ")" / end of input). Otherwise the parser position
// is restored and the caller treats the parenthesis as arithmetic.
func (p *parser[T]) tryNestedBool() (boolNode[T], bool) {
	save := p.pos
	p.next() // consume "("
	node, err := p.parseOr()
	if err != nil || p.peek().typ != tokRParen {
		p.pos = save
		return nil, false
	}
	p.next() // consume ")"
	if tok := p.peek(); tok.typ == tokEOF || tok.typ == tokRParen ||
		(tok.typ == tokIdent && (tok.lit == kwOr || tok.lit == kwAnd)) {
		return node, true
	}
	p.pos = save
	return nil, false
}

func (p *parser[T]) finishMembership(member valNode[T], negate bool) (boolNode[T], error) {
	setTok := p.next()
	if setTok.typ != tokIdent {
		return nil, newParseError(ErrParse, p.input, setTok.pos, "expected set name, got %q", setTok.lit)
	}
	get, ok := p.fields.sets[setTok.lit]
	if !ok {
		return nil, newParseError(ErrUnknownField, p.input, setTok.pos, "no set field %q declared", setTok.lit)
	}
	if k := member.kind(); k != KindString {
		return nil, newParseError(ErrTypeMismatch, p.input, setTok.pos, "membership test requires a string, got %v", k)
	}
	return &inNode[T]{member: member, set: get, negate: negate}, nil
}

// checkComparison enforces the static comparison rules: matching operand
// kinds, no equality on floats, no ordering on booleans.
func (p *parser[T]) checkComparison(opTok token, left, right valNode[T]) (boolNode[T], error) {
	lk, rk := left.kind(), right.kind()
	if lk != rk {
		return nil, newParseError(ErrTypeMismatch, p.input, opTok.pos, "cannot compare %v with %v", lk, rk)
	}
	equality := opTok.lit == "==" || opTok.lit == "!="
	if equality && lk == KindFloat {
		return nil, newParseError(ErrTypeMismatch, p.input, opTok.pos, "floats do not support %s, use ordering", opTok.lit)
	}
	if !equality && lk == KindBool {
		return nil, newParseError(ErrTypeMismatch, p.input, opTok.pos, "booleans do not support %s", opTok.lit)
	}
	return &compareNode[T]{op: opTok.lit, left: left, right: right}, nil
}

func (p *parser[T]) parseAdditive() (valNode[T], error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.peek()
		if opTok.typ != tokOp || (opTok.lit != "+" && opTok.lit != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left, err = p.makeArith(opTok, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser[T]) parseMultiplicative() (valNode[T], error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.peek()
		if opTok.typ != tokOp || (opTok.lit != "*" && opTok.lit != "/" && opTok.lit != "%") {
			return left, nil
		}
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left, err = p.makeArith(opTok, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser[T]) makeArith(opTok token, left, right valNode[T]) (valNode[T], error) {
	lk, rk := left.kind(), right.kind()
	if lk != rk {
		return nil, newParseError(ErrTypeMismatch, p.input, opTok.pos, "cannot apply %s to %v and %v", opTok.lit, lk, rk)
	}
	if lk != KindInt && lk != KindFloat {
		return nil, newParseError(ErrTypeMismatch, p.input, opTok.pos, "cannot apply %s to %v operands", opTok.lit, lk)
	}
	return &arithNode[T]{op: opTok.lit, left: left, right: right, k: lk}, nil
}

func (p *parser[T]) parsePrimary() (valNode[T], error) {
	tok := p.next()
	switch tok.typ {
	case tokInt:
		return &litNode[T]{v: intValue(tok.intVal)}, nil
	case tokFloat:
		return &litNode[T]{v: floatValue(tok.floatVal)}, nil
	case tokString:
		return &litNode[T]{v: stringValue(tok.lit)}, nil

	case tokIdent:
		switch tok.lit {
		case kwTrue:
			return &litNode[T]{v: boolValue(true)}, nil
		case kwFalse:
			return &litNode[T]{v: boolValue(false)}, nil
		case kwOr, kwAnd, kwNot, kwIn:
			return nil, newParseError(ErrParse, p.input, tok.pos, "unexpected keyword %q", tok.lit)
		}
		f, ok := p.fields.scalars[tok.lit]
		if !ok {
			return nil, newParseError(ErrUnknownField, p.input, tok.pos, "no scalar field %q declared", tok.lit)
		}
		return &fieldNode[T]{name: tok.lit, k: f.kind, get: f.get}, nil

	case tokLParen:
		inner, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.typ != tokRParen {
			return nil, newParseError(ErrParse, p.input, closing.pos, "expected \")\", got %q", closing.lit)
		}
		return inner, nil

	case tokEOF:
		return nil, newParseError(ErrParse, p.input, tok.pos, "unexpected end of expression")
	default:
		return nil, newParseError(ErrParse, p.input, tok.pos, "unexpected %q", tok.lit)
	}
}

func isCompareOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}
