package eval

import (
	"math"

	"github.com/hugr-lab/cql-go/ast"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Topology decides binary spatial relationships between geometries.
// The built-in planar implementation covers the common relationships for
// points, lines and polygons; a full DE-9IM engine can be plugged in
// through WithTopology.
type Topology interface {
	// Relate tests the named relationship between the record geometry a
	// and the filter geometry b. For RELATE, pattern carries the DE-9IM
	// intersection matrix pattern.
	Relate(op ast.SpatialOp, a, b orb.Geometry, pattern string) (bool, error)
}

// PlanarTopology is the built-in Topology over planar coordinates.
type PlanarTopology struct{}

// Relate implements Topology.
func (PlanarTopology) Relate(op ast.SpatialOp, a, b orb.Geometry, pattern string) (bool, error) {
	switch op {
	case ast.OpSpatialEquals:
		return orb.Equal(a, b), nil
	case ast.OpSpatialIntersects:
		return intersects(a, b), nil
	case ast.OpSpatialDisjoint:
		return !intersects(a, b), nil
	case ast.OpSpatialWithin:
		return within(a, b), nil
	case ast.OpSpatialContains:
		return within(b, a), nil
	default:
		// TOUCHES, CROSSES, OVERLAPS and RELATE need boundary/interior
		// dimension tracking that the planar helpers do not provide.
		return false, &ast.UnsupportedPredicateError{Predicate: string(op), Target: "built-in topology"}
	}
}

// segment is a directed edge of a line or ring.
type segment struct {
	a, b orb.Point
}

// intersects reports whether the two geometries share at least one point.
func intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	// Any crossing edge pair settles it.
	for _, sa := range segments(a) {
		for _, sb := range segments(b) {
			if segmentsIntersect(sa, sb) {
				return true
			}
		}
	}

	// No crossing edges: one geometry may still lie inside the other.
	for _, p := range vertices(a) {
		if containsPoint(b, p) {
			return true
		}
	}
	for _, p := range vertices(b) {
		if containsPoint(a, p) {
			return true
		}
	}
	return false
}

// within reports whether a lies entirely inside b. It holds when every
// vertex of a is inside b and no edge of a crosses an edge of b.
func within(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !b.Bound().Contains(a.Bound().Min) || !b.Bound().Contains(a.Bound().Max) {
		return false
	}
	for _, p := range vertices(a) {
		if !containsPoint(b, p) {
			return false
		}
	}
	for _, sa := range segments(a) {
		for _, sb := range segments(b) {
			if segmentsCross(sa, sb) {
				return false
			}
		}
	}
	return true
}

// containsPoint reports whether g covers the point p, boundary included.
func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Point:
		return geom.Equal(p)
	case orb.MultiPoint:
		for _, q := range geom {
			if q.Equal(p) {
				return true
			}
		}
		return false
	case orb.LineString:
		return pointOnLine(geom, p)
	case orb.MultiLineString:
		for _, ls := range geom {
			if pointOnLine(ls, p) {
				return true
			}
		}
		return false
	case orb.Ring:
		return planar.RingContains(geom, p)
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	case orb.Bound:
		return geom.Contains(p)
	case orb.Collection:
		for _, member := range geom {
			if containsPoint(member, p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func pointOnLine(ls orb.LineString, p orb.Point) bool {
	for i := 0; i+1 < len(ls); i++ {
		if planar.DistanceFromSegment(ls[i], ls[i+1], p) == 0 {
			return true
		}
	}
	return false
}

// segmentsIntersect reports whether the two segments share any point,
// touching endpoints included.
func segmentsIntersect(s, t segment) bool {
	d1 := cross(t.a, t.b, s.a)
	d2 := cross(t.a, t.b, s.b)
	d3 := cross(s.a, s.b, t.a)
	d4 := cross(s.a, s.b, t.b)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(t.a, t.b, s.a) {
		return true
	}
	if d2 == 0 && onSegment(t.a, t.b, s.b) {
		return true
	}
	if d3 == 0 && onSegment(s.a, s.b, t.a) {
		return true
	}
	if d4 == 0 && onSegment(s.a, s.b, t.b) {
		return true
	}
	return false
}

// segmentsCross is like segmentsIntersect but ignores shared endpoints
// and collinear touches, detecting only proper interior crossings.
func segmentsCross(s, t segment) bool {
	d1 := cross(t.a, t.b, s.a)
	d2 := cross(t.a, t.b, s.b)
	d3 := cross(s.a, s.b, t.a)
	d4 := cross(s.a, s.b, t.b)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// PlanarDistance returns the minimum planar distance between two
// geometries in CRS units. Geometries that intersect are at distance 0.
func PlanarDistance(a, b orb.Geometry) float64 {
	if intersects(a, b) {
		return 0
	}
	min := math.Inf(1)
	segsA, segsB := segments(a), segments(b)
	for _, p := range vertices(a) {
		if len(segsB) == 0 {
			for _, q := range vertices(b) {
				min = math.Min(min, planar.Distance(p, q))
			}
			continue
		}
		for _, s := range segsB {
			min = math.Min(min, planar.DistanceFromSegment(s.a, s.b, p))
		}
	}
	for _, p := range vertices(b) {
		for _, s := range segsA {
			min = math.Min(min, planar.DistanceFromSegment(s.a, s.b, p))
		}
	}
	return min
}

// GeodesicDistance returns the minimum great-circle distance between two
// geometries in meters. Segment interiors are approximated by their
// vertices, which is adequate for the short edges of typical features.
func GeodesicDistance(a, b orb.Geometry) float64 {
	if intersects(a, b) {
		return 0
	}
	min := math.Inf(1)
	for _, p := range vertices(a) {
		for _, q := range vertices(b) {
			min = math.Min(min, geo.Distance(p, q))
		}
	}
	return min
}

// vertices flattens a geometry to its defining points.
func vertices(g orb.Geometry) []orb.Point {
	switch geom := g.(type) {
	case orb.Point:
		return []orb.Point{geom}
	case orb.MultiPoint:
		return []orb.Point(geom)
	case orb.LineString:
		return []orb.Point(geom)
	case orb.MultiLineString:
		var pts []orb.Point
		for _, ls := range geom {
			pts = append(pts, ls...)
		}
		return pts
	case orb.Ring:
		return []orb.Point(geom)
	case orb.Polygon:
		var pts []orb.Point
		for _, r := range geom {
			pts = append(pts, r...)
		}
		return pts
	case orb.MultiPolygon:
		var pts []orb.Point
		for _, poly := range geom {
			pts = append(pts, vertices(poly)...)
		}
		return pts
	case orb.Bound:
		return vertices(geom.ToPolygon())
	case orb.Collection:
		var pts []orb.Point
		for _, member := range geom {
			pts = append(pts, vertices(member)...)
		}
		return pts
	default:
		return nil
	}
}

// segments flattens a geometry to its edges. Points contribute none.
func segments(g orb.Geometry) []segment {
	switch geom := g.(type) {
	case orb.LineString:
		return lineSegments(geom)
	case orb.MultiLineString:
		var segs []segment
		for _, ls := range geom {
			segs = append(segs, lineSegments(ls)...)
		}
		return segs
	case orb.Ring:
		return lineSegments(orb.LineString(geom))
	case orb.Polygon:
		var segs []segment
		for _, r := range geom {
			segs = append(segs, lineSegments(orb.LineString(r))...)
		}
		return segs
	case orb.MultiPolygon:
		var segs []segment
		for _, poly := range geom {
			segs = append(segs, segments(poly)...)
		}
		return segs
	case orb.Bound:
		return segments(geom.ToPolygon())
	case orb.Collection:
		var segs []segment
		for _, member := range geom {
			segs = append(segs, segments(member)...)
		}
		return segs
	default:
		return nil
	}
}

func lineSegments(ls orb.LineString) []segment {
	if len(ls) < 2 {
		return nil
	}
	segs := make([]segment, 0, len(ls)-1)
	for i := 0; i+1 < len(ls); i++ {
		segs = append(segs, segment{ls[i], ls[i+1]})
	}
	return segs
}
