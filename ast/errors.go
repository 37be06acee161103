package ast

import "fmt"

// UnknownPropertyError indicates a filter references a property that does
// not exist in the collection schema.
type UnknownPropertyError struct {
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property %q", e.Property)
}

// TypeMismatchError indicates a literal cannot be coerced to the declared
// type of the property it is compared against.
type TypeMismatchError struct {
	Property string
	Expected FieldType
	Got      FieldType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("property %q is %s, literal is %s", e.Property, e.Expected, e.Got)
}

// PredicateTypeError indicates a predicate was applied to a property of the
// wrong kind (e.g. a spatial predicate on a non-geometry property).
type PredicateTypeError struct {
	Predicate string
	Property  string
	Need      FieldType
}

func (e *PredicateTypeError) Error() string {
	return fmt.Sprintf("%s requires a %s property, %q is not", e.Predicate, e.Need, e.Property)
}

// UnsupportedPredicateError indicates the execution target has no
// equivalent for a predicate. It is reported to the caller, never
// silently dropped.
type UnsupportedPredicateError struct {
	Predicate string
	Target    string
}

func (e *UnsupportedPredicateError) Error() string {
	return fmt.Sprintf("predicate %s is not supported by %s", e.Predicate, e.Target)
}

// TranslationError indicates an internal invariant violation during a tree
// walk. It should be unreachable given a validated tree and indicates the
// validator and a translator have drifted out of sync.
type TranslationError struct {
	Op     string
	Reason string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation invariant violated in %s: %s", e.Op, e.Reason)
}
