package parser

import (
	"fmt"
	"strings"

	"github.com/hugr-lab/cql-go/ast"

	"github.com/paulmach/orb"
)

// ParseError describes a syntax error in a filter expression. Pos is the
// byte offset of the offending token in the input.
type ParseError struct {
	Pos     int
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("parse error at position %d near %q: %s", e.Pos, e.Token, e.Message)
}

// Parse converts a CQL text expression into a predicate tree. The grammar
// supports infix comparisons, AND/OR/NOT with OR binding loosest, keyword
// predicates (BETWEEN..AND, [NOT] LIKE/ILIKE, [NOT] IN, IS [NOT] NULL),
// function-style spatial predicates with WKT literals, and temporal keyword
// predicates with ISO-8601 instants and start/end intervals. Keywords are
// case-insensitive. Parsing is pure: it touches no shared state.
func Parse(input string) (*ast.Filter, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return &ast.Filter{}, nil
	}

	p := &parser{s: newScanner(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != tokEOF {
		return nil, p.errorf("expected end of input")
	}
	return &ast.Filter{Root: root}, nil
}

type parser struct {
	s   *scanner
	tok token
}

func (p *parser) advance() error {
	tok, err := p.s.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// keyword reports whether the current token is the given bare keyword.
func (p *parser) keyword(kw string) bool {
	return p.tok.Type == tokIdent && !p.tok.Quoted && strings.EqualFold(p.tok.Text, kw)
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Pos: p.tok.Pos, Token: p.tok.Text, Message: fmt.Sprintf(format, args...)}
}

// parseOr parses a disjunction; consecutive ORs flatten into one
// combination to preserve the written evaluation order.
func (p *parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []ast.Node{left}
	for p.keyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &ast.Combination{Op: ast.OpOr, Children: children}, nil
}

func (p *parser) parseAnd() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []ast.Node{left}
	for p.keyword("AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &ast.Combination{Op: ast.OpAnd, Children: children}, nil
}

func (p *parser) parseUnary() (ast.Node, error) {
	if p.keyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Node, error) {
	switch p.tok.Type {
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.Type != tokRParen {
			return nil, p.errorf("expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil

	case tokIdent:
		name := p.tok.Text
		quoted := p.tok.Quoted
		pos := p.tok.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Type == tokLParen && !quoted {
			return p.parseFunction(name, pos)
		}
		return p.parsePropertyPredicate(ast.PropertyRef{Name: name})

	default:
		return nil, p.errorf("expected a predicate")
	}
}

// parsePropertyPredicate parses the predicate forms that follow a property
// reference.
func (p *parser) parsePropertyPredicate(prop ast.PropertyRef) (ast.Node, error) {
	switch {
	case p.tok.Type == tokOperator:
		op := ast.CompareOp(p.tok.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Comparison{Op: op, Property: prop, Literal: lit}, nil

	case p.keyword("BETWEEN"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		lower, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if !p.keyword("AND") {
			return nil, p.errorf("expected AND in BETWEEN predicate")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		upper, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Between{Property: prop, Lower: lower, Upper: upper}, nil

	case p.keyword("NOT"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.keyword("LIKE"), p.keyword("ILIKE"):
			return p.parseLike(prop, true)
		case p.keyword("IN"):
			return p.parseIn(prop, true)
		default:
			return nil, p.errorf("expected LIKE, ILIKE or IN after NOT")
		}

	case p.keyword("LIKE"), p.keyword("ILIKE"):
		return p.parseLike(prop, false)

	case p.keyword("IN"):
		return p.parseIn(prop, false)

	case p.keyword("IS"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		negate := false
		if p.keyword("NOT") {
			negate = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if !p.keyword("NULL") {
			return nil, p.errorf("expected NULL")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Null{Property: prop, Negate: negate}, nil

	case p.keyword("BEFORE"), p.keyword("AFTER"), p.keyword("DURING"):
		return p.parseTemporal(prop)

	default:
		return nil, p.errorf("expected a predicate operator after property %q", prop.Name)
	}
}

func (p *parser) parseLike(prop ast.PropertyRef, negate bool) (ast.Node, error) {
	nocase := p.keyword("ILIKE")
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type != tokString {
		return nil, p.errorf("expected a string pattern")
	}
	pattern := p.tok.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Like{Property: prop, Pattern: pattern, CaseInsensitive: nocase, Negate: negate}, nil
}

func (p *parser) parseIn(prop ast.PropertyRef, negate bool) (ast.Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type != tokLParen {
		return nil, p.errorf("expected '(' after IN")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var values []ast.Value
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, lit)
		if p.tok.Type == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.Type != tokRParen {
		return nil, p.errorf("expected ')' after IN list")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.In{Property: prop, Values: values, Negate: negate}, nil
}

func (p *parser) parseTemporal(prop ast.PropertyRef) (ast.Node, error) {
	var op ast.TemporalOp
	switch {
	case p.keyword("BEFORE"):
		op = ast.OpBefore
	case p.keyword("AFTER"):
		op = ast.OpAfter
	default:
		op = ast.OpDuring
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if op == ast.OpDuring && p.keyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.keyword("AFTER"):
			op = ast.OpDuringOrAfter
		case p.keyword("BEFORE"):
			op = ast.OpDuringOrBefore
		default:
			return nil, p.errorf("expected AFTER or BEFORE after DURING OR")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.tok.Type != tokDatetime {
		return nil, p.errorf("expected an ISO-8601 instant")
	}
	start, err := ast.ParseTimestamp(p.tok.Text)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if op == ast.OpBefore || op == ast.OpAfter {
		return &ast.Temporal{Op: op, Property: prop, Start: start}, nil
	}

	if p.tok.Type != tokSlash {
		return nil, p.errorf("%s requires a start/end interval", op)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type != tokDatetime {
		return nil, p.errorf("expected interval end instant")
	}
	end, err := ast.ParseTimestamp(p.tok.Text)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Temporal{Op: op, Property: prop, Start: start, End: end, Interval: true}, nil
}

func (p *parser) parseLiteral() (ast.Value, error) {
	switch p.tok.Type {
	case tokNumber:
		v := ast.Number(p.tok.Number)
		return v, p.advance()
	case tokString:
		v := ast.String(p.tok.Text)
		return v, p.advance()
	case tokDatetime:
		t, err := ast.ParseTimestamp(p.tok.Text)
		if err != nil {
			return ast.Value{}, p.errorf("%v", err)
		}
		return ast.Timestamp(t), p.advance()
	case tokIdent:
		if p.keyword("TRUE") {
			return ast.Bool(true), p.advance()
		}
		if p.keyword("FALSE") {
			return ast.Bool(false), p.advance()
		}
		return ast.Value{}, p.errorf("expected a literal value")
	default:
		return ast.Value{}, p.errorf("expected a literal value")
	}
}

// parseFunction parses a function-style predicate. The current token is
// the '(' following the name. Unknown names are parse errors naming the
// operator.
func (p *parser) parseFunction(name string, pos int) (ast.Node, error) {
	spec, ok := ast.Lookup(name)
	if !ok || (spec.Kind != ast.KindBBox && spec.Kind != ast.KindSpatial) {
		return nil, &ParseError{Pos: pos, Token: name, Message: "unknown operator"}
	}
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	if p.tok.Type != tokIdent {
		return nil, p.errorf("expected a geometry property reference")
	}
	prop := ast.PropertyRef{Name: p.tok.Text}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if spec.Kind == ast.KindBBox {
		return p.parseBBoxTail(spec, prop)
	}
	return p.parseSpatialTail(ast.SpatialOp(strings.ToUpper(name)), spec, prop)
}

func (p *parser) parseBBoxTail(spec ast.OpSpec, prop ast.PropertyRef) (ast.Node, error) {
	var extent []float64
	for p.tok.Type == tokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Type != tokNumber {
			return nil, p.errorf("expected a BBOX ordinate")
		}
		extent = append(extent, p.tok.Number)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.Type != tokRParen {
		return nil, p.errorf("expected ')'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	// The registry bounds count the property reference as an argument;
	// within the bounds only even ordinate lists are meaningful.
	args := 1 + len(extent)
	if args < spec.MinArgs || args > spec.MaxArgs || len(extent)%2 != 0 {
		return nil, &ParseError{Pos: p.tok.Pos, Token: "BBOX", Message: fmt.Sprintf("requires 4 or 6 ordinates, got %d", len(extent))}
	}
	return &ast.BBox{Property: prop, Extent: extent}, nil
}

func (p *parser) parseSpatialTail(op ast.SpatialOp, spec ast.OpSpec, prop ast.PropertyRef) (ast.Node, error) {
	if p.tok.Type != tokComma {
		return nil, p.errorf("expected ',' before geometry literal")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	geom, err := p.parseWKT()
	if err != nil {
		return nil, err
	}

	// Scalar arguments past the geometry: distance and units for DWITHIN
	// and BEYOND, a DE-9IM pattern for RELATE.
	var extras []token
	for p.tok.Type == tokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Type != tokNumber && p.tok.Type != tokIdent && p.tok.Type != tokString {
			return nil, p.errorf("expected a predicate argument")
		}
		extras = append(extras, p.tok)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.Type != tokRParen {
		return nil, p.errorf("expected ')'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	// The registry bounds count the property reference and the geometry.
	if args := 2 + len(extras); args < spec.MinArgs || args > spec.MaxArgs {
		return nil, &ParseError{Pos: p.tok.Pos, Token: string(op), Message: fmt.Sprintf("requires %d arguments, got %d", spec.MinArgs, args)}
	}

	node := &ast.Spatial{Op: op, Property: prop, Geometry: geom}
	switch op {
	case ast.OpSpatialDWithin, ast.OpSpatialBeyond:
		if extras[0].Type != tokNumber {
			return nil, &ParseError{Pos: extras[0].Pos, Token: extras[0].Text, Message: "expected a distance"}
		}
		node.Distance = extras[0].Number
		if extras[1].Type == tokNumber {
			return nil, &ParseError{Pos: extras[1].Pos, Token: extras[1].Text, Message: "expected distance units"}
		}
		node.Units = extras[1].Text
	case ast.OpSpatialRelate:
		if extras[0].Type != tokString {
			return nil, &ParseError{Pos: extras[0].Pos, Token: extras[0].Text, Message: "expected a DE-9IM pattern string"}
		}
		node.Pattern = extras[0].Text
	}
	return node, nil
}

// parseWKT captures a raw WKT literal from the source. The scanner has
// produced the leading geometry-type identifier; the balance of the
// literal is taken verbatim up to the matching closing parenthesis and
// handed to the geometry decoder, then the scanner is re-synced.
func (p *parser) parseWKT() (orb.Geometry, error) {
	if p.tok.Type != tokIdent {
		return nil, p.errorf("expected a WKT geometry literal")
	}
	start := p.tok.Pos
	src := p.s.src

	i := start
	for i < len(src) && isIdentPart(src[i]) {
		i++
	}
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	// POINT EMPTY and friends have no coordinate list.
	if strings.HasPrefix(strings.ToUpper(src[i:]), "EMPTY") {
		i += len("EMPTY")
	} else {
		if i >= len(src) || src[i] != '(' {
			return nil, &ParseError{Pos: start, Token: p.tok.Text, Message: "malformed WKT geometry"}
		}
		depth := 0
		for ; i < len(src); i++ {
			switch src[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				i++
				break
			}
		}
		if depth != 0 {
			return nil, &ParseError{Pos: start, Token: p.tok.Text, Message: "unbalanced parentheses in WKT geometry"}
		}
	}

	geom, err := ast.ParseWKT(src[start:i])
	if err != nil {
		return nil, &ParseError{Pos: start, Token: p.tok.Text, Message: err.Error()}
	}
	p.s.seek(i)
	return geom, p.advance()
}
