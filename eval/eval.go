// Package eval implements the in-memory execution target: a pure,
// recursive-descent evaluation of a predicate tree against a single
// record. Missing or null property values make every predicate except
// IS NULL / IS NOT NULL evaluate to false, matching SQL behavior for
// filtered result sets.
package eval

import (
	"strings"
	"time"

	"github.com/hugr-lab/cql-go/ast"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// Record is the evaluator's view of a single data record.
type Record interface {
	// Property returns the named property value and whether the record
	// carries it. A nil value is treated as SQL NULL.
	Property(name string) (any, bool)
}

// MapRecord adapts a plain map to the Record interface.
type MapRecord map[string]any

// Property implements Record.
func (r MapRecord) Property(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Evaluator walks validated predicate trees against records. It holds no
// per-request state: one evaluator may serve concurrent evaluations.
type Evaluator struct {
	topo     Topology
	geodesic bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTopology replaces the built-in planar topology with an external
// geometry library collaborator.
func WithTopology(t Topology) Option {
	return func(e *Evaluator) { e.topo = t }
}

// WithGeodesic switches DWITHIN/BEYOND to great-circle distances in
// meters, for properties declared in a geographic CRS. The default is
// planar distance in CRS units.
func WithGeodesic(on bool) Option {
	return func(e *Evaluator) { e.geodesic = on }
}

// New creates an evaluator with the built-in planar topology.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{topo: PlanarTopology{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// defaultEvaluator backs the package-level Evaluate.
var defaultEvaluator = New()

// Evaluate runs a predicate tree against a record with the default
// evaluator configuration.
func Evaluate(n ast.Node, r Record) (bool, error) {
	return defaultEvaluator.Evaluate(n, r)
}

// Match evaluates a whole filter; an empty filter matches every record.
func (e *Evaluator) Match(f *ast.Filter, r Record) (bool, error) {
	if f == nil || f.Root == nil {
		return true, nil
	}
	return e.Evaluate(f.Root, r)
}

// Evaluate runs a predicate tree node against a record. It is a pure
// function of (node, record).
func (e *Evaluator) Evaluate(n ast.Node, r Record) (bool, error) {
	switch node := n.(type) {
	case *ast.Comparison:
		return evalComparison(node, r), nil

	case *ast.Combination:
		// Short-circuit in the literal order of children.
		for _, child := range node.Children {
			ok, err := e.Evaluate(child, r)
			if err != nil {
				return false, err
			}
			if node.Op == ast.OpAnd && !ok {
				return false, nil
			}
			if node.Op == ast.OpOr && ok {
				return true, nil
			}
		}
		return node.Op == ast.OpAnd, nil

	case *ast.Not:
		ok, err := e.Evaluate(node.Child, r)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case *ast.Between:
		v, ok := r.Property(node.Property.Name)
		if !ok || v == nil {
			return false, nil
		}
		lower, okLower := compare(v, node.Lower)
		upper, okUpper := compare(v, node.Upper)
		// lower > upper yields false here for every record, by the
		// documented edge case; it is not an error.
		return okLower && okUpper && lower >= 0 && upper <= 0, nil

	case *ast.Like:
		v, ok := r.Property(node.Property.Name)
		if !ok || v == nil {
			return false, nil
		}
		s, ok := v.(string)
		if !ok {
			return false, nil
		}
		matched := Match(node.Pattern, s, node.CaseInsensitive)
		return matched != node.Negate, nil

	case *ast.In:
		v, ok := r.Property(node.Property.Name)
		if !ok || v == nil {
			return false, nil
		}
		for _, candidate := range node.Values {
			if cmp, ok := compare(v, candidate); ok && cmp == 0 {
				return !node.Negate, nil
			}
		}
		return node.Negate, nil

	case *ast.Null:
		v, ok := r.Property(node.Property.Name)
		isNull := !ok || v == nil
		return isNull != node.Negate, nil

	case *ast.BBox:
		g, ok := geometryValue(r, node.Property.Name)
		if !ok {
			return false, nil
		}
		bound, err := ast.BoundFromExtent(node.Extent)
		if err != nil {
			return false, err
		}
		return g.Bound().Intersects(bound), nil

	case *ast.Spatial:
		return e.evalSpatial(node, r)

	case *ast.Temporal:
		v, ok := r.Property(node.Property.Name)
		if !ok || v == nil {
			return false, nil
		}
		t, ok := timeValue(v)
		if !ok {
			return false, nil
		}
		return evalTemporal(node, t), nil

	default:
		return false, &ast.TranslationError{Op: "evaluate", Reason: "unexpected node type"}
	}
}

func evalComparison(n *ast.Comparison, r Record) bool {
	v, ok := r.Property(n.Property.Name)
	if !ok || v == nil {
		// False on null: IS NULL / IS NOT NULL are the only absence tests.
		return false
	}
	cmp, ok := compare(v, n.Literal)
	if !ok {
		return false
	}
	switch n.Op {
	case ast.OpEqual:
		return cmp == 0
	case ast.OpNotEqual:
		return cmp != 0
	case ast.OpLess:
		return cmp < 0
	case ast.OpLessEqual:
		return cmp <= 0
	case ast.OpGreater:
		return cmp > 0
	case ast.OpGreaterEqual:
		return cmp >= 0
	default:
		return false
	}
}

func (e *Evaluator) evalSpatial(n *ast.Spatial, r Record) (bool, error) {
	g, ok := geometryValue(r, n.Property.Name)
	if !ok {
		return false, nil
	}

	switch n.Op {
	case ast.OpSpatialDWithin, ast.OpSpatialBeyond:
		var dist, threshold float64
		if e.geodesic {
			dist = GeodesicDistance(g, n.Geometry)
			m, err := ast.DistanceInMeters(n.Distance, n.Units)
			if err != nil {
				return false, err
			}
			threshold = m
		} else {
			// Planar mode compares in CRS units; the supplied units are
			// assumed to match the CRS.
			dist = PlanarDistance(g, n.Geometry)
			threshold = n.Distance
		}
		if n.Op == ast.OpSpatialDWithin {
			return dist <= threshold, nil
		}
		return dist > threshold, nil

	default:
		return e.topo.Relate(n.Op, g, n.Geometry, n.Pattern)
	}
}

func evalTemporal(n *ast.Temporal, t time.Time) bool {
	switch n.Op {
	case ast.OpBefore:
		return t.Before(n.Start)
	case ast.OpAfter:
		return t.After(n.Start)
	case ast.OpDuring:
		return !t.Before(n.Start) && !t.After(n.End)
	case ast.OpDuringOrAfter:
		return !t.Before(n.Start)
	case ast.OpDuringOrBefore:
		return !t.After(n.End)
	default:
		return false
	}
}

// compare orders a record value against a literal. The second result is
// false when the two are not comparable; incomparable values behave like
// null and fail the predicate.
func compare(v any, lit ast.Value) (int, bool) {
	switch lit.Type {
	case ast.TypeNumber:
		f, ok := numberValue(v)
		if !ok {
			return 0, false
		}
		want, _ := lit.AsNumber()
		switch {
		case f < want:
			return -1, true
		case f > want:
			return 1, true
		default:
			return 0, true
		}

	case ast.TypeString:
		s, ok := v.(string)
		if !ok {
			return 0, false
		}
		want, _ := lit.AsString()
		return strings.Compare(s, want), true

	case ast.TypeDate:
		t, ok := timeValue(v)
		if !ok {
			return 0, false
		}
		want, _ := lit.AsTime()
		return t.Compare(want), true

	case ast.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return 0, false
		}
		want, _ := lit.Data.(bool)
		if b == want {
			return 0, true
		}
		return 1, true

	default:
		return 0, false
	}
}

// numberValue coerces the numeric types a record may carry to float64.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// timeValue coerces a record value to an instant. Strings are accepted in
// ISO-8601 form, matching how file-backed providers carry timestamps.
func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		parsed, err := ast.ParseTimestamp(t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// geometryValue coerces a record value to a geometry. Records may carry
// orb geometries directly, WKB bytes, or WKT strings.
func geometryValue(r Record, name string) (orb.Geometry, bool) {
	v, ok := r.Property(name)
	if !ok || v == nil {
		return nil, false
	}
	switch g := v.(type) {
	case orb.Geometry:
		return g, true
	case []byte:
		decoded, err := wkb.Unmarshal(g)
		if err != nil {
			return nil, false
		}
		return decoded, true
	case string:
		decoded, err := ast.ParseWKT(g)
		if err != nil {
			return nil, false
		}
		return decoded, true
	default:
		return nil, false
	}
}
