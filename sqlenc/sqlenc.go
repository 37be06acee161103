package sqlenc

import (
	"strings"

	"github.com/hugr-lab/cql-go/ast"
)

// spatialFuncs maps spatial operators to their ST_* function names.
var spatialFuncs = map[ast.SpatialOp]string{
	ast.OpSpatialEquals:     "ST_Equals",
	ast.OpSpatialDisjoint:   "ST_Disjoint",
	ast.OpSpatialTouches:    "ST_Touches",
	ast.OpSpatialWithin:     "ST_Within",
	ast.OpSpatialOverlaps:   "ST_Overlaps",
	ast.OpSpatialCrosses:    "ST_Crosses",
	ast.OpSpatialIntersects: "ST_Intersects",
	ast.OpSpatialContains:   "ST_Contains",
}

// Translate converts a validated filter to a WHERE clause body for the
// given dialect. It returns the fragment without the WHERE keyword and
// the bind arguments in placeholder order. The fragment for an empty
// filter is "TRUE".
func Translate(f *ast.Filter, d Dialect) (string, []any, error) {
	if f == nil || f.Root == nil {
		return "TRUE", nil, nil
	}
	enc := &encoder{d: d}
	if err := enc.encode(f.Root); err != nil {
		return "", nil, err
	}
	return enc.sb.String(), enc.args, nil
}

// encoder accumulates the SQL fragment and its bind arguments.
type encoder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

// bind appends a bind argument and writes its placeholder.
func (e *encoder) bind(v any) {
	e.args = append(e.args, v)
	e.sb.WriteString(e.d.Placeholder(len(e.args)))
}

func (e *encoder) bindValue(v ast.Value) error {
	switch v.Type {
	case ast.TypeBoolean:
		e.bind(v.Data)
	case ast.TypeNumber:
		n, _ := v.AsNumber()
		e.bind(n)
	case ast.TypeString:
		s, _ := v.AsString()
		e.bind(s)
	case ast.TypeDate:
		t, _ := v.AsTime()
		e.bind(t)
	default:
		return &ast.TranslationError{Op: "bind", Reason: "unsupported literal type"}
	}
	return nil
}

// bindGeometry writes a WKT constructor call with the geometry bound as
// a WKT string argument.
func (e *encoder) bindGeometry(wkt string) {
	e.sb.WriteString(e.d.GeomFromText)
	e.sb.WriteByte('(')
	e.bind(wkt)
	e.sb.WriteByte(')')
}

func (e *encoder) column(p ast.PropertyRef) {
	e.sb.WriteString(quoteIdentifier(p.Name))
}

func (e *encoder) encode(n ast.Node) error {
	switch node := n.(type) {
	case *ast.Comparison:
		e.column(node.Property)
		e.sb.WriteByte(' ')
		e.sb.WriteString(string(node.Op))
		e.sb.WriteByte(' ')
		return e.bindValue(node.Literal)

	case *ast.Combination:
		for i, child := range node.Children {
			if i > 0 {
				e.sb.WriteByte(' ')
				e.sb.WriteString(string(node.Op))
				e.sb.WriteByte(' ')
			}
			if err := e.encodeChild(child); err != nil {
				return err
			}
		}
		return nil

	case *ast.Not:
		e.sb.WriteString("NOT (")
		if err := e.encode(node.Child); err != nil {
			return err
		}
		e.sb.WriteByte(')')
		return nil

	case *ast.Between:
		e.column(node.Property)
		e.sb.WriteString(" BETWEEN ")
		if err := e.bindValue(node.Lower); err != nil {
			return err
		}
		e.sb.WriteString(" AND ")
		return e.bindValue(node.Upper)

	case *ast.Like:
		return e.encodeLike(node)

	case *ast.In:
		e.column(node.Property)
		if node.Negate {
			e.sb.WriteString(" NOT")
		}
		e.sb.WriteString(" IN (")
		for i, v := range node.Values {
			if i > 0 {
				e.sb.WriteString(", ")
			}
			if err := e.bindValue(v); err != nil {
				return err
			}
		}
		e.sb.WriteByte(')')
		return nil

	case *ast.Null:
		e.column(node.Property)
		if node.Negate {
			e.sb.WriteString(" IS NOT NULL")
		} else {
			e.sb.WriteString(" IS NULL")
		}
		return nil

	case *ast.BBox:
		if !e.d.Spatial {
			return &ast.UnsupportedPredicateError{Predicate: "BBOX", Target: e.d.Name}
		}
		bound, err := ast.BoundFromExtent(node.Extent)
		if err != nil {
			return err
		}
		e.sb.WriteString("ST_Intersects(")
		e.column(node.Property)
		e.sb.WriteString(", ")
		e.bindGeometry(ast.FormatWKT(bound.ToPolygon()))
		e.sb.WriteByte(')')
		return nil

	case *ast.Spatial:
		return e.encodeSpatial(node)

	case *ast.Temporal:
		return e.encodeTemporal(node)

	default:
		return &ast.TranslationError{Op: "sql", Reason: "unexpected node type"}
	}
}

// encodeChild parenthesizes nested combinations so operator precedence
// in the generated SQL matches the tree structure.
func (e *encoder) encodeChild(n ast.Node) error {
	if _, ok := n.(*ast.Combination); ok {
		e.sb.WriteByte('(')
		if err := e.encode(n); err != nil {
			return err
		}
		e.sb.WriteByte(')')
		return nil
	}
	return e.encode(n)
}

func (e *encoder) encodeLike(n *ast.Like) error {
	pattern := n.Pattern
	if n.CaseInsensitive && !e.d.ILike {
		// Lower both sides when the dialect has no ILIKE.
		e.sb.WriteString("lower(")
		e.column(n.Property)
		e.sb.WriteByte(')')
		pattern = strings.ToLower(pattern)
	} else {
		e.column(n.Property)
	}
	if n.Negate {
		e.sb.WriteString(" NOT")
	}
	if n.CaseInsensitive && e.d.ILike {
		e.sb.WriteString(" ILIKE ")
	} else {
		e.sb.WriteString(" LIKE ")
	}
	e.bind(pattern)
	e.sb.WriteString(` ESCAPE '\'`)
	return nil
}

func (e *encoder) encodeSpatial(n *ast.Spatial) error {
	if !e.d.Spatial {
		return &ast.UnsupportedPredicateError{Predicate: string(n.Op), Target: e.d.Name}
	}
	wkt := ast.FormatWKT(n.Geometry)

	switch n.Op {
	case ast.OpSpatialDWithin, ast.OpSpatialBeyond:
		meters, err := ast.DistanceInMeters(n.Distance, n.Units)
		if err != nil {
			return err
		}
		if n.Op == ast.OpSpatialBeyond {
			e.sb.WriteString("NOT ")
		}
		e.sb.WriteString("ST_DWithin(")
		e.column(n.Property)
		e.sb.WriteString(", ")
		e.bindGeometry(wkt)
		e.sb.WriteString(", ")
		e.bind(meters)
		e.sb.WriteByte(')')
		return nil

	case ast.OpSpatialRelate:
		if !e.d.Relate {
			return &ast.UnsupportedPredicateError{Predicate: "RELATE", Target: e.d.Name}
		}
		e.sb.WriteString("ST_Relate(")
		e.column(n.Property)
		e.sb.WriteString(", ")
		e.bindGeometry(wkt)
		e.sb.WriteString(", ")
		e.bind(n.Pattern)
		e.sb.WriteByte(')')
		return nil

	default:
		fn, ok := spatialFuncs[n.Op]
		if !ok {
			return &ast.UnsupportedPredicateError{Predicate: string(n.Op), Target: e.d.Name}
		}
		e.sb.WriteString(fn)
		e.sb.WriteByte('(')
		e.column(n.Property)
		e.sb.WriteString(", ")
		e.bindGeometry(wkt)
		e.sb.WriteByte(')')
		return nil
	}
}

func (e *encoder) encodeTemporal(n *ast.Temporal) error {
	switch n.Op {
	case ast.OpBefore:
		e.column(n.Property)
		e.sb.WriteString(" < ")
		e.bind(n.Start)
	case ast.OpAfter:
		e.column(n.Property)
		e.sb.WriteString(" > ")
		e.bind(n.Start)
	case ast.OpDuring:
		e.sb.WriteByte('(')
		e.column(n.Property)
		e.sb.WriteString(" >= ")
		e.bind(n.Start)
		e.sb.WriteString(" AND ")
		e.column(n.Property)
		e.sb.WriteString(" <= ")
		e.bind(n.End)
		e.sb.WriteByte(')')
	case ast.OpDuringOrAfter:
		e.column(n.Property)
		e.sb.WriteString(" >= ")
		e.bind(n.Start)
	case ast.OpDuringOrBefore:
		e.column(n.Property)
		e.sb.WriteString(" <= ")
		e.bind(n.End)
	default:
		return &ast.TranslationError{Op: string(n.Op), Reason: "unknown temporal operator"}
	}
	return nil
}
