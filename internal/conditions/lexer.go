package conditions

import (
	"strconv"
	"strings"
	"unicode"
)

// tokenType discriminates lexical tokens.
type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokOp     // == != < <= > >= + - * / %
	tokLParen
	tokRParen
)

// Keyword identifiers with grammatical meaning. Everything else that
// lexes as an identifier is a field reference.
const (
	kwOr    = "or"
	kwAnd   = "and"
	kwNot   = "not"
	kwIn    = "in"
	kwTrue  = "true"
	kwFalse = "false"
)

// token is a single lexical unit with its byte offset in the input.
type token struct {
	typ tokenType
	lit string
	pos int

	// Decoded literal payloads, valid per typ.
	intVal   int64
	floatVal float64
}

// lex splits input into tokens. It returns a *ParseError wrapping
// ErrParse on any malformed token.
func lex(input string) ([]token, error) {
	toks := make([]token, 0, 16)
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			toks = append(toks, token{typ: tokLParen, lit: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{typ: tokRParen, lit: ")", pos: i})
			i++

		case c == '\'' || c == '"':
			end := strings.IndexByte(input[i+1:], c)
			if end < 0 {
				return nil, newParseError(ErrParse, input, i, "unterminated string")
			}
			toks = append(toks, token{typ: tokString, lit: input[i+1 : i+1+end], pos: i})
			i += end + 2

		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && input[i] >= '0' && input[i] <= '9' {
				i++
			}
			isFloat := false
			if i < len(input) && input[i] == '.' {
				isFloat = true
				i++
				digits := 0
				for i < len(input) && input[i] >= '0' && input[i] <= '9' {
					i++
					digits++
				}
				if digits == 0 {
					return nil, newParseError(ErrParse, input, start, "malformed number %q", input[start:i])
				}
			}
			lit := input[start:i]
			tok := token{lit: lit, pos: start}
			if isFloat {
				f, err := strconv.ParseFloat(lit, 64)
				if err != nil {
					return nil, newParseError(ErrParse, input, start, "malformed number %q", lit)
				}
				tok.typ = tokFloat
				tok.floatVal = f
			} else {
				n, err := strconv.ParseInt(lit, 10, 64)
				if err != nil {
					return nil, newParseError(ErrParse, input, start, "integer out of range %q", lit)
				}
				tok.typ = tokInt
				tok.intVal = n
			}
			toks = append(toks, tok)

		case isIdentStart(rune(c)):
			start := i
			for i < len(input) && isIdentPart(rune(input[i])) {
				i++
			}
			toks = append(toks, token{typ: tokIdent, lit: input[start:i], pos: start})

		case c == '=' || c == '!' || c == '<' || c == '>':
			start := i
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{typ: tokOp, lit: input[i : i+2], pos: start})
				i += 2
				break
			}
			if c == '<' || c == '>' {
				toks = append(toks, token{typ: tokOp, lit: string(c), pos: start})
				i++
				break
			}
			return nil, newParseError(ErrParse, input, start, "unexpected character %q", string(c))

		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			toks = append(toks, token{typ: tokOp, lit: string(c), pos: i})
			i++

		default:
			return nil, newParseError(ErrParse, input, i, "unexpected character %q", string(c))
		}
	}
	toks = append(toks, token{typ: tokEOF, pos: len(input)})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
