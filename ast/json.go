package ast

import (
	"encoding/json"
	"strings"
)

// MarshalJSON renders the filter in the CQL JSON encoding: nested objects
// with explicit operator keys mirroring the text predicate set. The output
// re-parses to a structurally equal tree.
func (f *Filter) MarshalJSON() ([]byte, error) {
	if f == nil || f.Root == nil {
		return []byte("null"), nil
	}
	return json.Marshal(nodeJSON(f.Root))
}

// comparisonKeys maps comparison operators to their JSON operator keys.
var comparisonKeys = map[CompareOp]string{
	OpEqual:        "eq",
	OpNotEqual:     "ne",
	OpLess:         "lt",
	OpLessEqual:    "lte",
	OpGreater:      "gt",
	OpGreaterEqual: "gte",
}

// temporalKeys maps temporal operators to their JSON operator keys.
var temporalKeys = map[TemporalOp]string{
	OpBefore:         "before",
	OpAfter:          "after",
	OpDuring:         "during",
	OpDuringOrAfter:  "duringOrAfter",
	OpDuringOrBefore: "duringOrBefore",
}

func nodeJSON(n Node) map[string]any {
	switch node := n.(type) {
	case *Comparison:
		return map[string]any{comparisonKeys[node.Op]: map[string]any{
			"property": node.Property.Name,
			"value":    node.Literal.jsonValue(),
		}}

	case *Combination:
		children := make([]any, len(node.Children))
		for i, child := range node.Children {
			children[i] = nodeJSON(child)
		}
		return map[string]any{strings.ToLower(string(node.Op)): children}

	case *Not:
		return map[string]any{"not": nodeJSON(node.Child)}

	case *Between:
		return map[string]any{"between": map[string]any{
			"value": map[string]any{"property": node.Property.Name},
			"lower": node.Lower.jsonValue(),
			"upper": node.Upper.jsonValue(),
		}}

	case *Like:
		key := "like"
		if node.CaseInsensitive {
			key = "ilike"
		}
		if node.Negate {
			key = "not" + strings.ToUpper(key[:1]) + key[1:]
		}
		return map[string]any{key: map[string]any{
			"property": node.Property.Name,
			"pattern":  node.Pattern,
		}}

	case *In:
		key := "in"
		if node.Negate {
			key = "notIn"
		}
		values := make([]any, len(node.Values))
		for i, v := range node.Values {
			values[i] = v.jsonValue()
		}
		return map[string]any{key: map[string]any{
			"property": node.Property.Name,
			"values":   values,
		}}

	case *Null:
		key := "isNull"
		if node.Negate {
			key = "isNotNull"
		}
		return map[string]any{key: map[string]any{"property": node.Property.Name}}

	case *BBox:
		return map[string]any{"bbox": map[string]any{
			"property": node.Property.Name,
			"extent":   node.Extent,
		}}

	case *Spatial:
		body := map[string]any{
			"property": node.Property.Name,
			"geometry": GeoJSON(node.Geometry),
		}
		switch node.Op {
		case OpSpatialDWithin, OpSpatialBeyond:
			body["distance"] = node.Distance
			body["units"] = node.Units
		case OpSpatialRelate:
			body["pattern"] = node.Pattern
		}
		return map[string]any{strings.ToLower(string(node.Op)): body}

	case *Temporal:
		body := map[string]any{"property": node.Property.Name}
		if node.Interval {
			body["interval"] = []string{FormatTimestamp(node.Start), FormatTimestamp(node.End)}
		} else {
			body["instant"] = FormatTimestamp(node.Start)
		}
		return map[string]any{temporalKeys[node.Op]: body}

	default:
		return nil
	}
}

// jsonValue renders a literal as a JSON scalar. Dates serialize as RFC 3339
// strings; the JSON decoder restores them by shape.
func (v Value) jsonValue() any {
	switch v.Type {
	case TypeDate:
		t, _ := v.AsTime()
		return FormatTimestamp(t)
	default:
		return v.Data
	}
}
