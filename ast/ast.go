package ast

import (
	"time"

	"github.com/paulmach/orb"
)

// Kind identifies the predicate variant of a Node.
type Kind string

const (
	KindComparison  Kind = "comparison"
	KindCombination Kind = "combination"
	KindNot         Kind = "not"
	KindBetween     Kind = "between"
	KindLike        Kind = "like"
	KindIn          Kind = "in"
	KindNull        Kind = "null"
	KindBBox        Kind = "bbox"
	KindSpatial     Kind = "spatial"
	KindTemporal    Kind = "temporal"
)

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEqual        CompareOp = "="
	OpNotEqual     CompareOp = "<>"
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// LogicOp combines child predicates.
type LogicOp string

const (
	OpAnd LogicOp = "AND"
	OpOr  LogicOp = "OR"
)

// SpatialOp is a named spatial relation predicate.
type SpatialOp string

const (
	OpSpatialEquals     SpatialOp = "EQUALS"
	OpSpatialDisjoint   SpatialOp = "DISJOINT"
	OpSpatialIntersects SpatialOp = "INTERSECTS"
	OpSpatialTouches    SpatialOp = "TOUCHES"
	OpSpatialCrosses    SpatialOp = "CROSSES"
	OpSpatialWithin     SpatialOp = "WITHIN"
	OpSpatialContains   SpatialOp = "CONTAINS"
	OpSpatialOverlaps   SpatialOp = "OVERLAPS"
	OpSpatialRelate     SpatialOp = "RELATE"
	OpSpatialDWithin    SpatialOp = "DWITHIN"
	OpSpatialBeyond     SpatialOp = "BEYOND"
)

// TemporalOp is a named temporal predicate.
type TemporalOp string

const (
	OpBefore         TemporalOp = "BEFORE"
	OpAfter          TemporalOp = "AFTER"
	OpDuring         TemporalOp = "DURING"
	OpDuringOrAfter  TemporalOp = "DURING OR AFTER"
	OpDuringOrBefore TemporalOp = "DURING OR BEFORE"
)

// Node is the interface implemented by all predicate tree variants.
// The set of implementations is closed; use type switches for dispatch.
// Nodes are built once by the parser and never mutated afterwards.
type Node interface {
	// Kind returns the predicate variant.
	Kind() Kind

	// String renders the node in CQL text form.
	String() string

	// node is a marker method to keep the variant set closed.
	node()
}

// PropertyRef references a named collection property.
// Type is TypeUnknown until the tree passes validation.
type PropertyRef struct {
	Name string
	Type FieldType
}

// Comparison is a binary comparison between a property and a literal.
type Comparison struct {
	Op       CompareOp
	Property PropertyRef
	Literal  Value
}

// Combination is an AND/OR over two or more child predicates.
// Child order is preserved; evaluation is left to right.
type Combination struct {
	Op       LogicOp
	Children []Node
}

// Not negates a single child predicate.
type Not struct {
	Child Node
}

// Between tests lower <= property <= upper. Both bounds are inclusive.
// A tree with lower > upper is valid and evaluates false for every record.
type Between struct {
	Property     PropertyRef
	Lower, Upper Value
}

// Like is a SQL-style wildcard pattern match. The pattern uses % for any
// sequence and _ for a single character; a backslash escapes either.
type Like struct {
	Property        PropertyRef
	Pattern         string
	CaseInsensitive bool
	Negate          bool
}

// In tests membership of a property value in a literal list.
type In struct {
	Property PropertyRef
	Values   []Value
	Negate   bool
}

// Null tests property absence (IS NULL) or presence (IS NOT NULL).
type Null struct {
	Property PropertyRef
	Negate   bool
}

// BBox tests whether a geometry's bounding box intersects a rectangle.
// Extent holds 4 ordinates (x1,y1,x2,y2) or 6 with a height range
// (x1,y1,x2,y2,z1,z2), in the property's declared CRS.
type BBox struct {
	Property PropertyRef
	Extent   []float64
}

// Spatial is a named spatial relation between a geometry property and a
// geometry literal. Distance and Units are set for DWITHIN/BEYOND;
// Pattern carries the DE-9IM matrix for RELATE.
type Spatial struct {
	Op       SpatialOp
	Property PropertyRef
	Geometry orb.Geometry
	Distance float64
	Units    string
	Pattern  string
}

// Temporal compares a date property against an instant or interval.
// BEFORE/AFTER use Start as the instant; interval predicates use [Start, End].
type Temporal struct {
	Op       TemporalOp
	Property PropertyRef
	Start    time.Time
	End      time.Time
	Interval bool
}

func (*Comparison) Kind() Kind  { return KindComparison }
func (*Combination) Kind() Kind { return KindCombination }
func (*Not) Kind() Kind         { return KindNot }
func (*Between) Kind() Kind     { return KindBetween }
func (*Like) Kind() Kind        { return KindLike }
func (*In) Kind() Kind          { return KindIn }
func (*Null) Kind() Kind        { return KindNull }
func (*BBox) Kind() Kind        { return KindBBox }
func (*Spatial) Kind() Kind     { return KindSpatial }
func (*Temporal) Kind() Kind    { return KindTemporal }

func (*Comparison) node()  {}
func (*Combination) node() {}
func (*Not) node()         {}
func (*Between) node()     {}
func (*Like) node()        {}
func (*In) node()          {}
func (*Null) node()        {}
func (*BBox) node()        {}
func (*Spatial) node()     {}
func (*Temporal) node()    {}

// Filter is the top-level container for a parsed predicate tree.
type Filter struct {
	Root Node

	validated bool
}

// Validated reports whether the tree carries resolved type tags,
// i.e. it has passed Validate against a schema.
func (f *Filter) Validated() bool { return f != nil && f.validated }
