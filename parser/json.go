package parser

import (
	"encoding/json"
	"fmt"

	"github.com/hugr-lab/cql-go/ast"
)

// ParseJSON converts the CQL JSON encoding into a predicate tree. Each
// predicate is an object with a single operator key; property references
// are {"property": name} or a bare "property" field, geometry literals are
// GeoJSON, instants are ISO-8601 strings. The predicate set mirrors the
// text encoding one to one.
func ParseJSON(data []byte) (*ast.Filter, error) {
	if len(data) == 0 || string(data) == "null" {
		return &ast.Filter{}, nil
	}
	root, err := parseJSONNode(data)
	if err != nil {
		return nil, err
	}
	return &ast.Filter{Root: root}, nil
}

// comparisonOps maps JSON operator keys to comparison operators.
var comparisonOps = map[string]ast.CompareOp{
	"eq":  ast.OpEqual,
	"ne":  ast.OpNotEqual,
	"lt":  ast.OpLess,
	"lte": ast.OpLessEqual,
	"gt":  ast.OpGreater,
	"gte": ast.OpGreaterEqual,
}

// spatialOps maps JSON operator keys to spatial operators.
var spatialOps = map[string]ast.SpatialOp{
	"equals":     ast.OpSpatialEquals,
	"disjoint":   ast.OpSpatialDisjoint,
	"intersects": ast.OpSpatialIntersects,
	"touches":    ast.OpSpatialTouches,
	"crosses":    ast.OpSpatialCrosses,
	"within":     ast.OpSpatialWithin,
	"contains":   ast.OpSpatialContains,
	"overlaps":   ast.OpSpatialOverlaps,
	"relate":     ast.OpSpatialRelate,
	"dwithin":    ast.OpSpatialDWithin,
	"beyond":     ast.OpSpatialBeyond,
}

// temporalOps maps JSON operator keys to temporal operators.
var temporalOps = map[string]ast.TemporalOp{
	"before":         ast.OpBefore,
	"after":          ast.OpAfter,
	"during":         ast.OpDuring,
	"duringOrAfter":  ast.OpDuringOrAfter,
	"duringOrBefore": ast.OpDuringOrBefore,
}

func parseJSONNode(data json.RawMessage) (ast.Node, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &ParseError{Token: "", Message: fmt.Sprintf("invalid JSON predicate: %v", err)}
	}
	if len(obj) != 1 {
		return nil, &ParseError{Message: fmt.Sprintf("predicate object must have exactly one operator key, got %d", len(obj))}
	}

	var op string
	var body json.RawMessage
	for k, v := range obj {
		op, body = k, v
	}

	switch {
	case op == "and" || op == "or":
		return parseJSONCombination(op, body)
	case op == "not":
		child, err := parseJSONNode(body)
		if err != nil {
			return nil, err
		}
		return &ast.Not{Child: child}, nil
	case comparisonOps[op] != "":
		return parseJSONComparison(comparisonOps[op], body)
	case op == "between":
		return parseJSONBetween(body)
	case op == "like" || op == "notLike" || op == "ilike" || op == "notIlike":
		return parseJSONLike(op, body)
	case op == "in" || op == "notIn":
		return parseJSONIn(op, body)
	case op == "isNull" || op == "isNotNull":
		prop, err := parseJSONProperty(body)
		if err != nil {
			return nil, err
		}
		return &ast.Null{Property: prop, Negate: op == "isNotNull"}, nil
	case op == "bbox":
		return parseJSONBBox(body)
	case spatialOps[op] != "":
		return parseJSONSpatial(spatialOps[op], body)
	case temporalOps[op] != "":
		return parseJSONTemporal(temporalOps[op], body)
	default:
		return nil, &ParseError{Token: op, Message: "unknown operator"}
	}
}

func parseJSONCombination(op string, body json.RawMessage) (ast.Node, error) {
	var children []json.RawMessage
	if err := json.Unmarshal(body, &children); err != nil {
		return nil, &ParseError{Token: op, Message: "operands must be an array of predicates"}
	}
	if len(children) < 2 {
		return nil, &ParseError{Token: op, Message: fmt.Sprintf("requires at least 2 operands, got %d", len(children))}
	}
	nodes := make([]ast.Node, len(children))
	for i, child := range children {
		node, err := parseJSONNode(child)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	logic := ast.OpAnd
	if op == "or" {
		logic = ast.OpOr
	}
	return &ast.Combination{Op: logic, Children: nodes}, nil
}

func parseJSONComparison(op ast.CompareOp, body json.RawMessage) (ast.Node, error) {
	var raw struct {
		Property string          `json:"property"`
		Value    json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Property == "" {
		return nil, &ParseError{Token: string(op), Message: "comparison requires property and value"}
	}
	lit, err := parseJSONLiteral(raw.Value)
	if err != nil {
		return nil, err
	}
	return &ast.Comparison{Op: op, Property: ast.PropertyRef{Name: raw.Property}, Literal: lit}, nil
}

func parseJSONBetween(body json.RawMessage) (ast.Node, error) {
	var raw struct {
		Value struct {
			Property string `json:"property"`
		} `json:"value"`
		Lower json.RawMessage `json:"lower"`
		Upper json.RawMessage `json:"upper"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Value.Property == "" {
		return nil, &ParseError{Token: "between", Message: "requires value property, lower and upper"}
	}
	lower, err := parseJSONLiteral(raw.Lower)
	if err != nil {
		return nil, err
	}
	upper, err := parseJSONLiteral(raw.Upper)
	if err != nil {
		return nil, err
	}
	return &ast.Between{Property: ast.PropertyRef{Name: raw.Value.Property}, Lower: lower, Upper: upper}, nil
}

func parseJSONLike(op string, body json.RawMessage) (ast.Node, error) {
	var raw struct {
		Property string `json:"property"`
		Pattern  string `json:"pattern"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Property == "" {
		return nil, &ParseError{Token: op, Message: "requires property and pattern"}
	}
	return &ast.Like{
		Property:        ast.PropertyRef{Name: raw.Property},
		Pattern:         raw.Pattern,
		CaseInsensitive: op == "ilike" || op == "notIlike",
		Negate:          op == "notLike" || op == "notIlike",
	}, nil
}

func parseJSONIn(op string, body json.RawMessage) (ast.Node, error) {
	var raw struct {
		Property string            `json:"property"`
		Values   []json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Property == "" {
		return nil, &ParseError{Token: op, Message: "requires property and values"}
	}
	if len(raw.Values) == 0 {
		return nil, &ParseError{Token: op, Message: "values list is empty"}
	}
	values := make([]ast.Value, len(raw.Values))
	for i, v := range raw.Values {
		lit, err := parseJSONLiteral(v)
		if err != nil {
			return nil, err
		}
		values[i] = lit
	}
	return &ast.In{Property: ast.PropertyRef{Name: raw.Property}, Values: values, Negate: op == "notIn"}, nil
}

func parseJSONProperty(body json.RawMessage) (ast.PropertyRef, error) {
	var raw struct {
		Property string `json:"property"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Property == "" {
		return ast.PropertyRef{}, &ParseError{Message: "expected a property reference"}
	}
	return ast.PropertyRef{Name: raw.Property}, nil
}

func parseJSONBBox(body json.RawMessage) (ast.Node, error) {
	var raw struct {
		Property string    `json:"property"`
		Extent   []float64 `json:"extent"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Property == "" {
		return nil, &ParseError{Token: "bbox", Message: "requires property and extent"}
	}
	if len(raw.Extent) != 4 && len(raw.Extent) != 6 {
		return nil, &ParseError{Token: "bbox", Message: fmt.Sprintf("requires 4 or 6 ordinates, got %d", len(raw.Extent))}
	}
	return &ast.BBox{Property: ast.PropertyRef{Name: raw.Property}, Extent: raw.Extent}, nil
}

func parseJSONSpatial(op ast.SpatialOp, body json.RawMessage) (ast.Node, error) {
	var raw struct {
		Property string          `json:"property"`
		Geometry json.RawMessage `json:"geometry"`
		Distance float64         `json:"distance"`
		Units    string          `json:"units"`
		Pattern  string          `json:"pattern"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Property == "" || len(raw.Geometry) == 0 {
		return nil, &ParseError{Token: string(op), Message: "requires property and geometry"}
	}
	geom, err := ast.ParseGeoJSON(raw.Geometry)
	if err != nil {
		return nil, &ParseError{Token: string(op), Message: err.Error()}
	}
	node := &ast.Spatial{Op: op, Property: ast.PropertyRef{Name: raw.Property}, Geometry: geom}
	switch op {
	case ast.OpSpatialDWithin, ast.OpSpatialBeyond:
		if raw.Units == "" {
			return nil, &ParseError{Token: string(op), Message: "requires distance and units"}
		}
		node.Distance = raw.Distance
		node.Units = raw.Units
	case ast.OpSpatialRelate:
		if raw.Pattern == "" {
			return nil, &ParseError{Token: string(op), Message: "requires a DE-9IM pattern"}
		}
		node.Pattern = raw.Pattern
	}
	return node, nil
}

func parseJSONTemporal(op ast.TemporalOp, body json.RawMessage) (ast.Node, error) {
	var raw struct {
		Property string   `json:"property"`
		Instant  string   `json:"instant"`
		Interval []string `json:"interval"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Property == "" {
		return nil, &ParseError{Token: string(op), Message: "requires a property reference"}
	}
	node := &ast.Temporal{Op: op, Property: ast.PropertyRef{Name: raw.Property}}

	if op == ast.OpBefore || op == ast.OpAfter {
		if raw.Instant == "" {
			return nil, &ParseError{Token: string(op), Message: "requires an instant"}
		}
		t, err := ast.ParseTimestamp(raw.Instant)
		if err != nil {
			return nil, &ParseError{Token: string(op), Message: err.Error()}
		}
		node.Start = t
		return node, nil
	}

	if len(raw.Interval) != 2 {
		return nil, &ParseError{Token: string(op), Message: "requires a [start, end] interval"}
	}
	start, err := ast.ParseTimestamp(raw.Interval[0])
	if err != nil {
		return nil, &ParseError{Token: string(op), Message: err.Error()}
	}
	end, err := ast.ParseTimestamp(raw.Interval[1])
	if err != nil {
		return nil, &ParseError{Token: string(op), Message: err.Error()}
	}
	node.Start, node.End, node.Interval = start, end, true
	return node, nil
}

// parseJSONLiteral decodes a JSON scalar into a typed value. Strings that
// carry an ISO-8601 instant become date values, since JSON has no native
// timestamp literal; everything else keeps its JSON type.
func parseJSONLiteral(data json.RawMessage) (ast.Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return ast.Value{}, &ParseError{Message: fmt.Sprintf("invalid literal: %v", err)}
	}
	switch value := v.(type) {
	case bool:
		return ast.Bool(value), nil
	case float64:
		return ast.Number(value), nil
	case string:
		if t, err := ast.ParseTimestamp(value); err == nil {
			return ast.Timestamp(t), nil
		}
		return ast.String(value), nil
	default:
		return ast.Value{}, &ParseError{Message: fmt.Sprintf("unsupported literal %s", string(data))}
	}
}
