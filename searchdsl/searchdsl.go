// Package searchdsl translates validated predicate trees to the JSON
// query DSL of Elasticsearch-compatible search engines. The result is a
// plain map ready for json.Marshal into a query body.
package searchdsl

import (
	"strconv"
	"strings"

	"github.com/hugr-lab/cql-go/ast"

	"github.com/paulmach/orb"
)

// Query is one clause of the search DSL.
type Query = map[string]any

// Translate converts a filter to a search query clause. An empty filter
// becomes match_all. Predicates outside the search target's capability
// set return UnsupportedPredicateError.
func Translate(f *ast.Filter) (Query, error) {
	if f == nil || f.Root == nil {
		return Query{"match_all": map[string]any{}}, nil
	}
	return translate(f.Root)
}

func translate(n ast.Node) (Query, error) {
	switch node := n.(type) {
	case *ast.Comparison:
		return translateComparison(node)

	case *ast.Combination:
		clauses := make([]Query, 0, len(node.Children))
		for _, child := range node.Children {
			q, err := translate(child)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, q)
		}
		if node.Op == ast.OpAnd {
			return Query{"bool": map[string]any{"must": clauses}}, nil
		}
		return Query{"bool": map[string]any{
			"should":               clauses,
			"minimum_should_match": 1,
		}}, nil

	case *ast.Not:
		q, err := translate(node.Child)
		if err != nil {
			return nil, err
		}
		return mustNot(q), nil

	case *ast.Between:
		return Query{"range": map[string]any{
			node.Property.Name: map[string]any{
				"gte": jsonValue(node.Lower),
				"lte": jsonValue(node.Upper),
			},
		}}, nil

	case *ast.Like:
		q := Query{"wildcard": map[string]any{
			node.Property.Name: map[string]any{
				"value":            wildcardPattern(node.Pattern),
				"case_insensitive": node.CaseInsensitive,
			},
		}}
		if node.Negate {
			return mustNot(q), nil
		}
		return q, nil

	case *ast.In:
		values := make([]any, 0, len(node.Values))
		for _, v := range node.Values {
			values = append(values, jsonValue(v))
		}
		q := Query{"terms": map[string]any{node.Property.Name: values}}
		if node.Negate {
			return mustNot(q), nil
		}
		return q, nil

	case *ast.Null:
		q := Query{"exists": map[string]any{"field": node.Property.Name}}
		if node.Negate {
			// IS NOT NULL is the field existing.
			return q, nil
		}
		return mustNot(q), nil

	case *ast.BBox:
		bound, err := ast.BoundFromExtent(node.Extent)
		if err != nil {
			return nil, err
		}
		return geoShape(node.Property.Name, envelope(bound), "intersects"), nil

	case *ast.Spatial:
		return translateSpatial(node)

	case *ast.Temporal:
		return translateTemporal(node)

	default:
		return nil, &ast.TranslationError{Op: "search", Reason: "unexpected node type"}
	}
}

func translateComparison(n *ast.Comparison) (Query, error) {
	field := n.Property.Name
	value := jsonValue(n.Literal)

	switch n.Op {
	case ast.OpEqual:
		return Query{"term": map[string]any{field: map[string]any{"value": value}}}, nil
	case ast.OpNotEqual:
		return mustNot(Query{"term": map[string]any{field: map[string]any{"value": value}}}), nil
	case ast.OpLess:
		return rangeQuery(field, "lt", value), nil
	case ast.OpLessEqual:
		return rangeQuery(field, "lte", value), nil
	case ast.OpGreater:
		return rangeQuery(field, "gt", value), nil
	case ast.OpGreaterEqual:
		return rangeQuery(field, "gte", value), nil
	default:
		return nil, &ast.TranslationError{Op: string(n.Op), Reason: "unknown comparison operator"}
	}
}

func translateSpatial(n *ast.Spatial) (Query, error) {
	if !ast.Supports(string(n.Op), ast.TargetSearch) {
		return nil, &ast.UnsupportedPredicateError{Predicate: string(n.Op), Target: "search"}
	}

	switch n.Op {
	case ast.OpSpatialIntersects:
		return geoShape(n.Property.Name, ast.GeoJSON(n.Geometry), "intersects"), nil
	case ast.OpSpatialWithin:
		return geoShape(n.Property.Name, ast.GeoJSON(n.Geometry), "within"), nil
	case ast.OpSpatialDisjoint:
		return geoShape(n.Property.Name, ast.GeoJSON(n.Geometry), "disjoint"), nil
	case ast.OpSpatialContains:
		return geoShape(n.Property.Name, ast.GeoJSON(n.Geometry), "contains"), nil

	case ast.OpSpatialDWithin:
		// geo_distance takes a center point only.
		point, ok := n.Geometry.(orb.Point)
		if !ok {
			return nil, &ast.UnsupportedPredicateError{Predicate: "DWITHIN over non-point geometry", Target: "search"}
		}
		meters, err := ast.DistanceInMeters(n.Distance, n.Units)
		if err != nil {
			return nil, err
		}
		return Query{"geo_distance": map[string]any{
			"distance":      strconv.FormatFloat(meters, 'f', -1, 64) + "m",
			n.Property.Name: []float64{point[0], point[1]},
		}}, nil

	default:
		return nil, &ast.UnsupportedPredicateError{Predicate: string(n.Op), Target: "search"}
	}
}

func translateTemporal(n *ast.Temporal) (Query, error) {
	field := n.Property.Name
	switch n.Op {
	case ast.OpBefore:
		return rangeQuery(field, "lt", ast.FormatTimestamp(n.Start)), nil
	case ast.OpAfter:
		return rangeQuery(field, "gt", ast.FormatTimestamp(n.Start)), nil
	case ast.OpDuring:
		return Query{"range": map[string]any{field: map[string]any{
			"gte": ast.FormatTimestamp(n.Start),
			"lte": ast.FormatTimestamp(n.End),
		}}}, nil
	case ast.OpDuringOrAfter:
		return rangeQuery(field, "gte", ast.FormatTimestamp(n.Start)), nil
	case ast.OpDuringOrBefore:
		return rangeQuery(field, "lte", ast.FormatTimestamp(n.End)), nil
	default:
		return nil, &ast.TranslationError{Op: string(n.Op), Reason: "unknown temporal operator"}
	}
}

func mustNot(q Query) Query {
	return Query{"bool": map[string]any{"must_not": []Query{q}}}
}

func rangeQuery(field, bound string, value any) Query {
	return Query{"range": map[string]any{field: map[string]any{bound: value}}}
}

func geoShape(field string, shape any, relation string) Query {
	return Query{"geo_shape": map[string]any{field: map[string]any{
		"shape":    shape,
		"relation": relation,
	}}}
}

// envelope renders a bound in the DSL's envelope form, upper-left then
// lower-right corner.
func envelope(b orb.Bound) map[string]any {
	return map[string]any{
		"type": "envelope",
		"coordinates": [][]float64{
			{b.Min[0], b.Max[1]},
			{b.Max[0], b.Min[1]},
		},
	}
}

// jsonValue renders a literal for the query body. Instants become
// ISO-8601 strings, which the date field type indexes natively.
func jsonValue(v ast.Value) any {
	switch v.Type {
	case ast.TypeDate:
		t, _ := v.AsTime()
		return ast.FormatTimestamp(t)
	case ast.TypeNumber:
		n, _ := v.AsNumber()
		return n
	case ast.TypeString:
		s, _ := v.AsString()
		return s
	default:
		return v.Data
	}
}

// wildcardPattern rewrites an SQL LIKE pattern to the wildcard query
// syntax: % becomes *, _ becomes ?, and literal metacharacters are
// escaped with a backslash. A backslash at the end of the pattern
// stands for itself, matching the evaluator's LIKE matcher.
func wildcardPattern(pattern string) string {
	var sb strings.Builder
	escaped := false
	for _, c := range pattern {
		if escaped {
			switch c {
			case '*', '?', '\\':
				sb.WriteByte('\\')
				sb.WriteRune(c)
			default:
				sb.WriteRune(c)
			}
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '%':
			sb.WriteByte('*')
		case '_':
			sb.WriteByte('?')
		case '*', '?':
			sb.WriteByte('\\')
			sb.WriteRune(c)
		default:
			sb.WriteRune(c)
		}
	}
	if escaped {
		sb.WriteString(`\\`)
	}
	return sb.String()
}
