package ast

import (
	"strconv"
	"time"

	"github.com/paulmach/orb"
)

// FieldType is the declared type of a collection property or literal value.
type FieldType string

const (
	TypeUnknown  FieldType = ""
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeGeometry FieldType = "geometry"
)

// Schema maps property names to their declared types.
// Providers expose it through their field listing.
type Schema map[string]FieldType

// Value is a typed literal operand.
// Data holds the Go representation per type:
// bool, float64, string, time.Time, or orb.Geometry.
type Value struct {
	Type FieldType
	Data any
}

// Bool returns a boolean literal.
func Bool(b bool) Value { return Value{Type: TypeBoolean, Data: b} }

// Number returns a numeric literal. Integers are carried as float64;
// all targets agree on float64 comparison semantics.
func Number(f float64) Value { return Value{Type: TypeNumber, Data: f} }

// String returns a string literal.
func String(s string) Value { return Value{Type: TypeString, Data: s} }

// Timestamp returns a date/time literal, normalized to UTC.
func Timestamp(t time.Time) Value { return Value{Type: TypeDate, Data: t.UTC()} }

// Geometry returns a geometry literal.
func Geometry(g orb.Geometry) Value { return Value{Type: TypeGeometry, Data: g} }

// AsNumber returns the numeric value, if the literal is numeric.
func (v Value) AsNumber() (float64, bool) {
	f, ok := v.Data.(float64)
	return f, ok && v.Type == TypeNumber
}

// AsString returns the string value, if the literal is a string.
func (v Value) AsString() (string, bool) {
	s, ok := v.Data.(string)
	return s, ok && v.Type == TypeString
}

// AsTime returns the time value, if the literal is a date.
func (v Value) AsTime() (time.Time, bool) {
	t, ok := v.Data.(time.Time)
	return t, ok && v.Type == TypeDate
}

// AsGeometry returns the geometry value, if the literal is a geometry.
func (v Value) AsGeometry() (orb.Geometry, bool) {
	g, ok := v.Data.(orb.Geometry)
	return g, ok && v.Type == TypeGeometry
}

// ConvertTo coerces the literal to the given field type.
// Beyond identity, the only supported widening is string to date for
// string literals that carry an ISO-8601 timestamp; JSON encodings have
// no native timestamp literal.
func (v Value) ConvertTo(ft FieldType) (Value, bool) {
	if v.Type == ft {
		return v, true
	}
	if v.Type == TypeString && ft == TypeDate {
		if s, ok := v.AsString(); ok {
			if t, err := ParseTimestamp(s); err == nil {
				return Timestamp(t), true
			}
		}
	}
	return v, false
}

// formatNumber renders a float64 the way it was most likely written.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
