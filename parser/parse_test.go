package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/hugr-lab/cql-go/ast"

	"github.com/paulmach/orb"
)

func TestParseComparison(t *testing.T) {
	f, err := Parse(`depth > 100`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	comp, ok := f.Root.(*ast.Comparison)
	if !ok {
		t.Fatalf("expected Comparison, got %T", f.Root)
	}
	if comp.Op != ast.OpGreater {
		t.Errorf("expected >, got %s", comp.Op)
	}
	if comp.Property.Name != "depth" {
		t.Errorf("expected property depth, got %s", comp.Property.Name)
	}
	if n, _ := comp.Literal.AsNumber(); n != 100 {
		t.Errorf("expected literal 100, got %v", comp.Literal.Data)
	}
}

func TestParseStringLiteralEscaping(t *testing.T) {
	f, err := Parse(`name = 'O''Hare'`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	comp := f.Root.(*ast.Comparison)
	if s, _ := comp.Literal.AsString(); s != "O'Hare" {
		t.Errorf("expected O'Hare, got %q", s)
	}
}

func TestParseQuotedIdentifier(t *testing.T) {
	f, err := Parse(`"max depth" <= 10.5`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	comp := f.Root.(*ast.Comparison)
	if comp.Property.Name != "max depth" {
		t.Errorf("expected property %q, got %q", "max depth", comp.Property.Name)
	}
}

func TestParsePrecedence(t *testing.T) {
	// AND binds tighter than OR.
	f, err := Parse(`a = 1 OR b = 2 AND c = 3`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	or, ok := f.Root.(*ast.Combination)
	if !ok || or.Op != ast.OpOr {
		t.Fatalf("expected OR at root, got %T", f.Root)
	}
	if len(or.Children) != 2 {
		t.Fatalf("expected 2 OR children, got %d", len(or.Children))
	}
	and, ok := or.Children[1].(*ast.Combination)
	if !ok || and.Op != ast.OpAnd {
		t.Fatalf("expected AND as second child, got %T", or.Children[1])
	}
	if len(and.Children) != 2 {
		t.Errorf("expected 2 AND children, got %d", len(and.Children))
	}
}

func TestParseFlattensSameOperator(t *testing.T) {
	f, err := Parse(`a = 1 AND b = 2 AND c = 3`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	and := f.Root.(*ast.Combination)
	if len(and.Children) != 3 {
		t.Errorf("expected 3 flattened children, got %d", len(and.Children))
	}
}

func TestParseParenthesesOverridePrecedence(t *testing.T) {
	f, err := Parse(`(a = 1 OR b = 2) AND c = 3`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	and, ok := f.Root.(*ast.Combination)
	if !ok || and.Op != ast.OpAnd {
		t.Fatalf("expected AND at root, got %T", f.Root)
	}
	if _, ok := and.Children[0].(*ast.Combination); !ok {
		t.Errorf("expected nested OR as first child, got %T", and.Children[0])
	}
}

func TestParseNot(t *testing.T) {
	f, err := Parse(`NOT (status = 'closed')`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	not, ok := f.Root.(*ast.Not)
	if !ok {
		t.Fatalf("expected Not, got %T", f.Root)
	}
	if _, ok := not.Child.(*ast.Comparison); !ok {
		t.Errorf("expected Comparison child, got %T", not.Child)
	}
}

func TestParseBetween(t *testing.T) {
	f, err := Parse(`depth BETWEEN 100 AND 150`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	between, ok := f.Root.(*ast.Between)
	if !ok {
		t.Fatalf("expected Between, got %T", f.Root)
	}
	lower, _ := between.Lower.AsNumber()
	upper, _ := between.Upper.AsNumber()
	if lower != 100 || upper != 150 {
		t.Errorf("expected bounds 100..150, got %v..%v", lower, upper)
	}
}

func TestParseBetweenBindsBeforeAnd(t *testing.T) {
	f, err := Parse(`depth BETWEEN 100 AND 150 AND name = 'x'`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	and, ok := f.Root.(*ast.Combination)
	if !ok || and.Op != ast.OpAnd {
		t.Fatalf("expected AND at root, got %T", f.Root)
	}
	if _, ok := and.Children[0].(*ast.Between); !ok {
		t.Errorf("expected Between as first child, got %T", and.Children[0])
	}
}

func TestParseLikeVariants(t *testing.T) {
	tests := []struct {
		input           string
		caseInsensitive bool
		negate          bool
	}{
		{`name LIKE 'Lake%'`, false, false},
		{`name ILIKE '%lake%'`, true, false},
		{`name NOT LIKE 'Lake%'`, false, true},
		{`name NOT ILIKE '%lake%'`, true, true},
	}
	for _, tc := range tests {
		f, err := Parse(tc.input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tc.input, err)
		}
		like, ok := f.Root.(*ast.Like)
		if !ok {
			t.Fatalf("Parse(%q): expected Like, got %T", tc.input, f.Root)
		}
		if like.CaseInsensitive != tc.caseInsensitive || like.Negate != tc.negate {
			t.Errorf("Parse(%q): got insensitive=%v negate=%v", tc.input, like.CaseInsensitive, like.Negate)
		}
	}
}

func TestParseIn(t *testing.T) {
	f, err := Parse(`code IN ('A', 'B', 'C')`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	in, ok := f.Root.(*ast.In)
	if !ok {
		t.Fatalf("expected In, got %T", f.Root)
	}
	if len(in.Values) != 3 {
		t.Errorf("expected 3 values, got %d", len(in.Values))
	}
	if in.Negate {
		t.Error("expected Negate false")
	}
}

func TestParseInRejectsBrackets(t *testing.T) {
	_, err := Parse(`id IN ['A', 'B']`)
	if err == nil {
		t.Fatal("expected parse error for bracket list")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if perr.Token != "[" {
		t.Errorf("expected offending token [, got %q", perr.Token)
	}
}

func TestParseIsNull(t *testing.T) {
	f, err := Parse(`name IS NULL`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	null := f.Root.(*ast.Null)
	if null.Negate {
		t.Error("expected Negate false")
	}

	f, err = Parse(`name IS NOT NULL`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	null = f.Root.(*ast.Null)
	if !null.Negate {
		t.Error("expected Negate true")
	}
}

func TestParseBBox(t *testing.T) {
	f, err := Parse(`BBOX(geom, -90, 40, -60, 45)`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	bbox, ok := f.Root.(*ast.BBox)
	if !ok {
		t.Fatalf("expected BBox, got %T", f.Root)
	}
	if bbox.Property.Name != "geom" {
		t.Errorf("expected property geom, got %s", bbox.Property.Name)
	}
	want := []float64{-90, 40, -60, 45}
	if len(bbox.Extent) != len(want) {
		t.Fatalf("expected %d ordinates, got %d", len(want), len(bbox.Extent))
	}
	for i, ord := range want {
		if bbox.Extent[i] != ord {
			t.Errorf("extent[%d]: expected %v, got %v", i, ord, bbox.Extent[i])
		}
	}
}

func TestParseSpatialWithWKT(t *testing.T) {
	f, err := Parse(`INTERSECTS(geom, POLYGON((0 0, 10 0, 10 10, 0 10, 0 0)))`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sp, ok := f.Root.(*ast.Spatial)
	if !ok {
		t.Fatalf("expected Spatial, got %T", f.Root)
	}
	if sp.Op != ast.OpSpatialIntersects {
		t.Errorf("expected INTERSECTS, got %s", sp.Op)
	}
	poly, ok := sp.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("expected Polygon geometry, got %T", sp.Geometry)
	}
	if len(poly[0]) != 5 {
		t.Errorf("expected 5 ring points, got %d", len(poly[0]))
	}
}

func TestParseSpatialFollowedByPredicate(t *testing.T) {
	// The WKT argument must not swallow the rest of the expression.
	f, err := Parse(`WITHIN(geom, POLYGON((0 0, 4 0, 4 4, 0 4, 0 0))) AND depth > 5`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	and, ok := f.Root.(*ast.Combination)
	if !ok || len(and.Children) != 2 {
		t.Fatalf("expected 2-child AND, got %T", f.Root)
	}
	if _, ok := and.Children[0].(*ast.Spatial); !ok {
		t.Errorf("expected Spatial first child, got %T", and.Children[0])
	}
}

func TestParseDWithin(t *testing.T) {
	f, err := Parse(`DWITHIN(geom, POINT(1 2), 10, 'kilometers')`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sp := f.Root.(*ast.Spatial)
	if sp.Op != ast.OpSpatialDWithin {
		t.Errorf("expected DWITHIN, got %s", sp.Op)
	}
	if sp.Distance != 10 || sp.Units != "kilometers" {
		t.Errorf("expected 10 kilometers, got %v %s", sp.Distance, sp.Units)
	}
}

func TestParseRelate(t *testing.T) {
	f, err := Parse(`RELATE(geom, POINT(1 2), 'T*****FF*')`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sp := f.Root.(*ast.Spatial)
	if sp.Op != ast.OpSpatialRelate {
		t.Errorf("expected RELATE, got %s", sp.Op)
	}
	if sp.Pattern != "T*****FF*" {
		t.Errorf("unexpected pattern %q", sp.Pattern)
	}
}

func TestParseUnknownFunction(t *testing.T) {
	_, err := Parse(`INTERSECTION(geom, POINT(1 2))`)
	if err == nil {
		t.Fatal("expected parse error for unknown function")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if perr.Token != "INTERSECTION" {
		t.Errorf("expected offending token INTERSECTION, got %q", perr.Token)
	}
	if !strings.Contains(perr.Error(), "INTERSECTION") {
		t.Errorf("error message should name the token: %s", perr.Error())
	}
}

func TestParseTemporal(t *testing.T) {
	f, err := Parse(`updated DURING 2003-01-01T00:00:00Z/2005-01-01T00:00:00Z`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tp, ok := f.Root.(*ast.Temporal)
	if !ok {
		t.Fatalf("expected Temporal, got %T", f.Root)
	}
	if tp.Op != ast.OpDuring {
		t.Errorf("expected DURING, got %s", tp.Op)
	}
	if !tp.Interval {
		t.Error("expected interval form")
	}
	if tp.Start.Year() != 2003 || tp.End.Year() != 2005 {
		t.Errorf("unexpected interval %v/%v", tp.Start, tp.End)
	}
}

func TestParseTemporalCompound(t *testing.T) {
	f, err := Parse(`updated DURING OR AFTER 2003-01-01T00:00:00Z/2005-01-01T00:00:00Z`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tp := f.Root.(*ast.Temporal)
	if tp.Op != ast.OpDuringOrAfter {
		t.Errorf("expected DURING OR AFTER, got %s", tp.Op)
	}
}

func TestParseBeforeInstant(t *testing.T) {
	f, err := Parse(`updated BEFORE 2006-01-01T00:00:00Z`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tp := f.Root.(*ast.Temporal)
	if tp.Op != ast.OpBefore || tp.Interval {
		t.Errorf("expected BEFORE instant, got %s interval=%v", tp.Op, tp.Interval)
	}
}

func TestParseEmptyInput(t *testing.T) {
	f, err := Parse("  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.Root != nil {
		t.Errorf("expected empty filter, got %T", f.Root)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`depth >`,
		`depth 100`,
		`(a = 1`,
		`name = 'unterminated`,
		`depth BETWEEN 1`,
		`BBOX(geom, 1, 2, 3)`,
		`DWITHIN(geom, POINT(1 2), 10)`,
	}
	for _, input := range tests {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}

func TestParsePredicateArity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`INTERSECTS(geom, POINT(1 2), 5)`, "requires 2 arguments, got 3"},
		{`RELATE(geom, POINT(1 2))`, "requires 3 arguments, got 2"},
		{`DWITHIN(geom, POINT(1 2), 10)`, "requires 4 arguments, got 3"},
		{`DWITHIN(geom, POINT(1 2), 10, 'm', 7)`, "requires 4 arguments, got 5"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tt.input)
			continue
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Parse(%q): expected *ParseError, got %T", tt.input, err)
			continue
		}
		if !strings.Contains(perr.Message, tt.want) {
			t.Errorf("Parse(%q): message %q does not mention %q", tt.input, perr.Message, tt.want)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	inputs := []string{
		`depth > 100 AND name LIKE 'Lake%'`,
		`a = 1 OR (b = 2 AND c = 3)`,
		`NOT (status IN ('a', 'b'))`,
		`depth BETWEEN 10 AND 20`,
		`name IS NOT NULL`,
		`BBOX(geom, -90, 40, -60, 45)`,
		`INTERSECTS(geom, POLYGON((0 0, 10 0, 10 10, 0 10, 0 0)))`,
		`DWITHIN(geom, POINT(1 2), 10, 'kilometers')`,
		`updated DURING 2003-01-01T00:00:00Z/2005-01-01T00:00:00Z`,
		`name NOT ILIKE '%x%'`,
	}
	for _, input := range inputs {
		f, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		text := f.String()
		again, err := Parse(text)
		if err != nil {
			t.Fatalf("reparse of %q failed: %v", text, err)
		}
		if again.String() != text {
			t.Errorf("round trip diverged:\n first: %s\nsecond: %s", text, again.String())
		}
	}
}
