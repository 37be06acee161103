package parser

import (
	"strconv"
	"strings"

	"github.com/hugr-lab/cql-go/ast"
)

// tokenType classifies scanned tokens of the CQL text encoding.
type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokNumber
	tokString
	tokDatetime
	tokOperator // = <> < <= > >=
	tokLParen
	tokRParen
	tokComma
	tokSlash
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokDatetime:
		return "timestamp"
	case tokOperator:
		return "operator"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokSlash:
		return "'/'"
	default:
		return "token"
	}
}

// token is a single lexical unit with its byte offset in the input.
type token struct {
	Type tokenType
	Text string
	Pos  int

	// Number carries the parsed value for tokNumber.
	Number float64

	// Quoted is set for double-quoted identifiers, which never match
	// keywords.
	Quoted bool
}

// scanner is a hand-rolled lexer over the CQL text encoding.
type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

// seek repositions the scanner, used after a raw WKT capture.
func (s *scanner) seek(pos int) {
	s.pos = pos
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// next scans the following token.
func (s *scanner) next() (token, error) {
	s.skipSpace()
	if s.pos >= len(s.src) {
		return token{Type: tokEOF, Pos: s.pos}, nil
	}

	start := s.pos
	c := s.src[s.pos]
	switch {
	case c == '(':
		s.pos++
		return token{Type: tokLParen, Text: "(", Pos: start}, nil
	case c == ')':
		s.pos++
		return token{Type: tokRParen, Text: ")", Pos: start}, nil
	case c == ',':
		s.pos++
		return token{Type: tokComma, Text: ",", Pos: start}, nil
	case c == '/':
		s.pos++
		return token{Type: tokSlash, Text: "/", Pos: start}, nil
	case c == '=':
		s.pos++
		return token{Type: tokOperator, Text: "=", Pos: start}, nil
	case c == '<':
		s.pos++
		if s.pos < len(s.src) {
			switch s.src[s.pos] {
			case '>':
				s.pos++
				return token{Type: tokOperator, Text: "<>", Pos: start}, nil
			case '=':
				s.pos++
				return token{Type: tokOperator, Text: "<=", Pos: start}, nil
			}
		}
		return token{Type: tokOperator, Text: "<", Pos: start}, nil
	case c == '>':
		s.pos++
		if s.pos < len(s.src) && s.src[s.pos] == '=' {
			s.pos++
			return token{Type: tokOperator, Text: ">=", Pos: start}, nil
		}
		return token{Type: tokOperator, Text: ">", Pos: start}, nil
	case c == '\'':
		return s.scanString()
	case c == '"':
		return s.scanQuotedIdent()
	case isIdentStart(c):
		return s.scanIdent()
	case isDigit(c) || (c == '-' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1])):
		return s.scanNumeric()
	default:
		return token{}, &ParseError{
			Pos:     start,
			Token:   string(c),
			Message: "unexpected character",
		}
	}
}

// scanString scans a single-quoted string literal with '' escaping.
func (s *scanner) scanString() (token, error) {
	start := s.pos
	s.pos++ // opening quote
	var sb strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\'' {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\'' {
				sb.WriteByte('\'')
				s.pos += 2
				continue
			}
			s.pos++
			return token{Type: tokString, Text: sb.String(), Pos: start}, nil
		}
		sb.WriteByte(c)
		s.pos++
	}
	return token{}, &ParseError{Pos: start, Token: "'", Message: "unterminated string literal"}
}

// scanQuotedIdent scans a double-quoted identifier with "" escaping.
func (s *scanner) scanQuotedIdent() (token, error) {
	start := s.pos
	s.pos++
	var sb strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '"' {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '"' {
				sb.WriteByte('"')
				s.pos += 2
				continue
			}
			s.pos++
			return token{Type: tokIdent, Text: sb.String(), Pos: start, Quoted: true}, nil
		}
		sb.WriteByte(c)
		s.pos++
	}
	return token{}, &ParseError{Pos: start, Token: `"`, Message: "unterminated quoted identifier"}
}

func (s *scanner) scanIdent() (token, error) {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	return token{Type: tokIdent, Text: s.src[start:s.pos], Pos: start}, nil
}

// scanNumeric scans a maximal numeric-or-timestamp run and classifies it:
// a parseable number is tokNumber, a parseable ISO-8601 instant is
// tokDatetime. Intervals are split on '/' by the parser, so the slash is
// not part of the run.
func (s *scanner) scanNumeric() (token, error) {
	start := s.pos
	for s.pos < len(s.src) && isNumericPart(s.src[s.pos]) {
		s.pos++
	}
	text := s.src[start:s.pos]

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return token{Type: tokNumber, Text: text, Pos: start, Number: f}, nil
	}
	if _, err := ast.ParseTimestamp(text); err == nil {
		return token{Type: tokDatetime, Text: text, Pos: start}, nil
	}
	return token{}, &ParseError{Pos: start, Token: text, Message: "invalid numeric or timestamp literal"}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isNumericPart covers number and ISO-8601 instant characters.
func isNumericPart(c byte) bool {
	return isDigit(c) || c == '.' || c == '-' || c == '+' || c == ':' ||
		c == 'T' || c == 'Z' || c == 'e' || c == 'E'
}
