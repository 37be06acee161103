package ast

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// ParseWKT parses a Well-Known Text geometry literal.
func ParseWKT(s string) (orb.Geometry, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid WKT geometry: %w", err)
	}
	return g, nil
}

// FormatWKT renders a geometry as Well-Known Text.
func FormatWKT(g orb.Geometry) string {
	return wkt.MarshalString(g)
}

// ParseGeoJSON parses a GeoJSON geometry object.
func ParseGeoJSON(data []byte) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("invalid GeoJSON geometry: %w", err)
	}
	return g.Geometry(), nil
}

// GeoJSON wraps a geometry for JSON serialization.
func GeoJSON(g orb.Geometry) *geojson.Geometry {
	return geojson.NewGeometry(g)
}

// BoundFromExtent converts 4 or 6 BBOX ordinates to a planar bound.
// The height range of a 6-ordinate extent does not participate in the
// 2D bound.
func BoundFromExtent(extent []float64) (orb.Bound, error) {
	if len(extent) != 4 && len(extent) != 6 {
		return orb.Bound{}, fmt.Errorf("bbox requires 4 or 6 ordinates, got %d", len(extent))
	}
	x1, y1, x2, y2 := extent[0], extent[1], extent[2], extent[3]
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return orb.Bound{Min: orb.Point{x1, y1}, Max: orb.Point{x2, y2}}, nil
}
