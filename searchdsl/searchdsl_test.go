package searchdsl

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hugr-lab/cql-go/ast"
	"github.com/hugr-lab/cql-go/parser"
)

var searchSchema = ast.Schema{
	"name":    ast.TypeString,
	"depth":   ast.TypeNumber,
	"updated": ast.TypeDate,
	"geom":    ast.TypeGeometry,
}

func compile(t *testing.T, input string) *ast.Filter {
	t.Helper()
	f, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	validated, err := ast.Validate(f, searchSchema)
	if err != nil {
		t.Fatalf("Validate(%q) failed: %v", input, err)
	}
	return validated
}

// translateJSON runs Translate and normalizes the result through the
// JSON encoder, so expectations can be written as plain JSON.
func translateJSON(t *testing.T, input string) string {
	t.Helper()
	q, err := Translate(compile(t, input))
	if err != nil {
		t.Fatalf("Translate(%q) failed: %v", input, err)
	}
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(data)
}

func TestTranslateQueries(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{
			`depth > 100`,
			`{"range":{"depth":{"gt":100}}}`,
		},
		{
			`name = 'Lake Baikal'`,
			`{"term":{"name":{"value":"Lake Baikal"}}}`,
		},
		{
			`name <> 'x'`,
			`{"bool":{"must_not":[{"term":{"name":{"value":"x"}}}]}}`,
		},
		{
			`depth BETWEEN 100 AND 150`,
			`{"range":{"depth":{"gte":100,"lte":150}}}`,
		},
		{
			`name IN ('A', 'B')`,
			`{"terms":{"name":["A","B"]}}`,
		},
		{
			`name IS NOT NULL`,
			`{"exists":{"field":"name"}}`,
		},
		{
			`name IS NULL`,
			`{"bool":{"must_not":[{"exists":{"field":"name"}}]}}`,
		},
		{
			`updated BEFORE 2006-01-01T00:00:00Z`,
			`{"range":{"updated":{"lt":"2006-01-01T00:00:00Z"}}}`,
		},
		{
			`updated DURING 2003-01-01T00:00:00Z/2005-01-01T00:00:00Z`,
			`{"range":{"updated":{"gte":"2003-01-01T00:00:00Z","lte":"2005-01-01T00:00:00Z"}}}`,
		},
	}
	for _, tc := range tests {
		if got := translateJSON(t, tc.input); got != tc.want {
			t.Errorf("Translate(%q):\n got %s\nwant %s", tc.input, got, tc.want)
		}
	}
}

func TestTranslateCombinations(t *testing.T) {
	got := translateJSON(t, `depth > 1 AND name = 'x'`)
	want := `{"bool":{"must":[{"range":{"depth":{"gt":1}}},{"term":{"name":{"value":"x"}}}]}}`
	if got != want {
		t.Errorf("AND:\n got %s\nwant %s", got, want)
	}

	got = translateJSON(t, `depth > 1 OR name = 'x'`)
	want = `{"bool":{"minimum_should_match":1,"should":[{"range":{"depth":{"gt":1}}},{"term":{"name":{"value":"x"}}}]}}`
	if got != want {
		t.Errorf("OR:\n got %s\nwant %s", got, want)
	}

	got = translateJSON(t, `NOT (name = 'x')`)
	want = `{"bool":{"must_not":[{"term":{"name":{"value":"x"}}}]}}`
	if got != want {
		t.Errorf("NOT:\n got %s\nwant %s", got, want)
	}
}

func TestTranslateWildcard(t *testing.T) {
	got := translateJSON(t, `name ILIKE '%lake_'`)
	want := `{"wildcard":{"name":{"case_insensitive":true,"value":"*lake?"}}}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	// A negated pattern wraps in must_not.
	got = translateJSON(t, `name NOT LIKE 'x%'`)
	want = `{"bool":{"must_not":[{"wildcard":{"name":{"case_insensitive":false,"value":"x*"}}}]}}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWildcardPattern(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"%lake%", "*lake*"},
		{"l_ke", "l?ke"},
		{`100\%`, "100%"},
		{`a\_b`, "a_b"},
		{"a*b?c", `a\*b\?c`},
		{`back\\slash`, `back\\slash`},
		{`share\`, `share\\`},
	}
	for _, tc := range tests {
		if got := wildcardPattern(tc.in); got != tc.out {
			t.Errorf("wildcardPattern(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestTranslateBBox(t *testing.T) {
	got := translateJSON(t, `BBOX(geom, -90, 40, -60, 45)`)
	want := `{"geo_shape":{"geom":{"relation":"intersects","shape":{"coordinates":[[-90,45],[-60,40]],"type":"envelope"}}}}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestTranslateGeoShape(t *testing.T) {
	q, err := Translate(compile(t, `INTERSECTS(geom, POLYGON((0 0, 10 0, 10 10, 0 10, 0 0)))`))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	shape := q["geo_shape"].(map[string]any)["geom"].(map[string]any)
	if shape["relation"] != "intersects" {
		t.Errorf("expected intersects relation, got %v", shape["relation"])
	}
	data, err := json.Marshal(shape["shape"])
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != "Polygon" {
		t.Errorf("expected GeoJSON Polygon, got %s", decoded.Type)
	}
}

func TestTranslateGeoDistance(t *testing.T) {
	got := translateJSON(t, `DWITHIN(geom, POINT(1 2), 2, 'kilometers')`)
	want := `{"geo_distance":{"distance":"2000m","geom":[1,2]}}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestTranslateUnsupported(t *testing.T) {
	inputs := []string{
		`RELATE(geom, POINT(1 2), 'T*****FF*')`,
		`BEYOND(geom, POINT(1 2), 10, 'm')`,
		`TOUCHES(geom, POINT(1 2))`,
		`EQUALS(geom, POINT(1 2))`,
		`DWITHIN(geom, POLYGON((0 0, 1 0, 1 1, 0 1, 0 0)), 10, 'm')`,
	}
	for _, input := range inputs {
		_, err := Translate(compile(t, input))
		var uerr *ast.UnsupportedPredicateError
		if !errors.As(err, &uerr) {
			t.Errorf("Translate(%q): expected UnsupportedPredicateError, got %v", input, err)
		}
	}
}

func TestTranslateEmptyFilter(t *testing.T) {
	q, err := Translate(nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if _, ok := q["match_all"]; !ok {
		t.Errorf("expected match_all, got %v", q)
	}
}
