package ast

import (
	"errors"
	"testing"
	"time"
)

var testSchema = Schema{
	"name":    TypeString,
	"depth":   TypeNumber,
	"active":  TypeBoolean,
	"updated": TypeDate,
	"geom":    TypeGeometry,
}

func TestValidateResolvesTypes(t *testing.T) {
	f := &Filter{Root: &Comparison{
		Op:       OpGreater,
		Property: PropertyRef{Name: "depth"},
		Literal:  Number(100),
	}}

	validated, err := Validate(f, testSchema)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !validated.Validated() {
		t.Error("expected validated flag set")
	}

	comp := validated.Root.(*Comparison)
	if comp.Property.Type != TypeNumber {
		t.Errorf("expected resolved type number, got %s", comp.Property.Type)
	}

	// The input tree keeps its unresolved property reference.
	if f.Root.(*Comparison).Property.Type != TypeUnknown {
		t.Error("input tree was modified")
	}
}

func TestValidateUnknownProperty(t *testing.T) {
	f := &Filter{Root: &Comparison{
		Op:       OpEqual,
		Property: PropertyRef{Name: "nope"},
		Literal:  Number(1),
	}}

	_, err := Validate(f, testSchema)
	var uerr *UnknownPropertyError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnknownPropertyError, got %v", err)
	}
	if uerr.Property != "nope" {
		t.Errorf("expected property nope, got %s", uerr.Property)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	f := &Filter{Root: &Comparison{
		Op:       OpEqual,
		Property: PropertyRef{Name: "depth"},
		Literal:  String("deep"),
	}}

	_, err := Validate(f, testSchema)
	var merr *TypeMismatchError
	if !errors.As(err, &merr) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if merr.Expected != TypeNumber || merr.Got != TypeString {
		t.Errorf("unexpected mismatch %s vs %s", merr.Expected, merr.Got)
	}
}

func TestValidateStringLiteralWidensToDate(t *testing.T) {
	f := &Filter{Root: &Comparison{
		Op:       OpGreaterEqual,
		Property: PropertyRef{Name: "updated"},
		Literal:  String("2004-06-01T00:00:00Z"),
	}}

	validated, err := Validate(f, testSchema)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	comp := validated.Root.(*Comparison)
	if comp.Literal.Type != TypeDate {
		t.Errorf("expected widened date literal, got %s", comp.Literal.Type)
	}
	want := time.Date(2004, 6, 1, 0, 0, 0, 0, time.UTC)
	if got, _ := comp.Literal.AsTime(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestValidateOrderingOnBoolean(t *testing.T) {
	f := &Filter{Root: &Comparison{
		Op:       OpLess,
		Property: PropertyRef{Name: "active"},
		Literal:  Bool(true),
	}}

	_, err := Validate(f, testSchema)
	var perr *PredicateTypeError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PredicateTypeError, got %v", err)
	}
}

func TestValidateComparisonOnGeometry(t *testing.T) {
	f := &Filter{Root: &Comparison{
		Op:       OpEqual,
		Property: PropertyRef{Name: "geom"},
		Literal:  String("x"),
	}}
	if _, err := Validate(f, testSchema); err == nil {
		t.Fatal("expected error for comparison over geometry property")
	}
}

func TestValidateLikeRequiresString(t *testing.T) {
	f := &Filter{Root: &Like{
		Property: PropertyRef{Name: "depth"},
		Pattern:  "1%",
	}}
	_, err := Validate(f, testSchema)
	var perr *PredicateTypeError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PredicateTypeError, got %v", err)
	}
	if perr.Need != TypeString {
		t.Errorf("expected need string, got %s", perr.Need)
	}
}

func TestValidateInHomogeneity(t *testing.T) {
	f := &Filter{Root: &In{
		Property: PropertyRef{Name: "depth"},
		Values:   []Value{Number(1), String("two")},
	}}
	var merr *TypeMismatchError
	if _, err := Validate(f, testSchema); !errors.As(err, &merr) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestValidateEmptyInList(t *testing.T) {
	f := &Filter{Root: &In{Property: PropertyRef{Name: "depth"}}}
	if _, err := Validate(f, testSchema); err == nil {
		t.Fatal("expected error for empty IN list")
	}
}

func TestValidateBetweenOnBoolean(t *testing.T) {
	f := &Filter{Root: &Between{
		Property: PropertyRef{Name: "active"},
		Lower:    Bool(false),
		Upper:    Bool(true),
	}}
	if _, err := Validate(f, testSchema); err == nil {
		t.Fatal("expected error for BETWEEN over boolean property")
	}
}

func TestValidateBBoxRequiresGeometry(t *testing.T) {
	f := &Filter{Root: &BBox{
		Property: PropertyRef{Name: "depth"},
		Extent:   []float64{0, 0, 1, 1},
	}}
	if _, err := Validate(f, testSchema); err == nil {
		t.Fatal("expected error for BBOX over numeric property")
	}
}

func TestValidateRelatePattern(t *testing.T) {
	point, err := ParseWKT("POINT(1 2)")
	if err != nil {
		t.Fatalf("ParseWKT failed: %v", err)
	}

	good := &Filter{Root: &Spatial{
		Op:       OpSpatialRelate,
		Property: PropertyRef{Name: "geom"},
		Geometry: point,
		Pattern:  "T*****FF*",
	}}
	if _, err := Validate(good, testSchema); err != nil {
		t.Errorf("expected valid pattern, got %v", err)
	}

	bad := &Filter{Root: &Spatial{
		Op:       OpSpatialRelate,
		Property: PropertyRef{Name: "geom"},
		Geometry: point,
		Pattern:  "T*****FFX",
	}}
	if _, err := Validate(bad, testSchema); err == nil {
		t.Error("expected error for invalid DE-9IM character")
	}
}

func TestValidateDWithinUnits(t *testing.T) {
	point, _ := ParseWKT("POINT(1 2)")
	f := &Filter{Root: &Spatial{
		Op:       OpSpatialDWithin,
		Property: PropertyRef{Name: "geom"},
		Geometry: point,
		Distance: 10,
		Units:    "parsecs",
	}}
	if _, err := Validate(f, testSchema); err == nil {
		t.Fatal("expected error for unknown distance units")
	}
}

func TestValidateTemporalRequiresDate(t *testing.T) {
	f := &Filter{Root: &Temporal{
		Op:       OpBefore,
		Property: PropertyRef{Name: "name"},
		Start:    time.Now(),
	}}
	if _, err := Validate(f, testSchema); err == nil {
		t.Fatal("expected error for temporal predicate over string property")
	}
}

func TestValidateEmptyFilter(t *testing.T) {
	validated, err := Validate(&Filter{}, testSchema)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !validated.Validated() {
		t.Error("expected validated flag set")
	}
}
