package ast

import "strings"

// Target identifies an execution target for capability checks.
type Target uint8

const (
	// TargetMemory is the in-memory record evaluator.
	TargetMemory Target = 1 << iota
	// TargetSQL is the parameterized SQL fragment builder.
	TargetSQL
	// TargetSearch is the search-index query-DSL builder.
	TargetSearch
)

// TargetAll marks predicates every execution target can serve.
const TargetAll = TargetMemory | TargetSQL | TargetSearch

// String returns the target name used in error messages.
func (t Target) String() string {
	switch t {
	case TargetMemory:
		return "in-memory evaluator"
	case TargetSQL:
		return "SQL translator"
	case TargetSearch:
		return "search-DSL translator"
	default:
		return "unknown target"
	}
}

// OpSpec describes one predicate keyword: its tree variant, the argument
// count for function-style predicates (0 for keyword/infix forms), and
// the execution targets that can serve it.
type OpSpec struct {
	Kind             Kind
	MinArgs, MaxArgs int
	Targets          Target
}

// registry is the canonical operator table, built once at init and
// read-only thereafter. It is consulted by the parser to recognize
// keywords and check argument counts, and by translators to detect
// unsupported predicates before emitting malformed output.
var registry = map[string]OpSpec{
	// Infix comparison operators.
	"=":  {Kind: KindComparison, Targets: TargetAll},
	"<>": {Kind: KindComparison, Targets: TargetAll},
	"<":  {Kind: KindComparison, Targets: TargetAll},
	"<=": {Kind: KindComparison, Targets: TargetAll},
	">":  {Kind: KindComparison, Targets: TargetAll},
	">=": {Kind: KindComparison, Targets: TargetAll},

	// Combinators and keyword predicates.
	"AND":     {Kind: KindCombination, Targets: TargetAll},
	"OR":      {Kind: KindCombination, Targets: TargetAll},
	"NOT":     {Kind: KindNot, Targets: TargetAll},
	"BETWEEN": {Kind: KindBetween, Targets: TargetAll},
	"LIKE":    {Kind: KindLike, Targets: TargetAll},
	"ILIKE":   {Kind: KindLike, Targets: TargetAll},
	"IN":      {Kind: KindIn, Targets: TargetAll},
	"IS NULL": {Kind: KindNull, Targets: TargetAll},

	// Function-style spatial predicates. Argument counts include the
	// geometry property reference.
	"BBOX":       {Kind: KindBBox, MinArgs: 5, MaxArgs: 7, Targets: TargetAll},
	"EQUALS":     {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetMemory | TargetSQL},
	"DISJOINT":   {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetAll},
	"INTERSECTS": {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetAll},
	"TOUCHES":    {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetMemory | TargetSQL},
	"CROSSES":    {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetMemory | TargetSQL},
	"WITHIN":     {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetAll},
	"CONTAINS":   {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetAll},
	"OVERLAPS":   {Kind: KindSpatial, MinArgs: 2, MaxArgs: 2, Targets: TargetMemory | TargetSQL},
	"RELATE":     {Kind: KindSpatial, MinArgs: 3, MaxArgs: 3, Targets: TargetMemory | TargetSQL},
	"DWITHIN":    {Kind: KindSpatial, MinArgs: 4, MaxArgs: 4, Targets: TargetAll},
	"BEYOND":     {Kind: KindSpatial, MinArgs: 4, MaxArgs: 4, Targets: TargetMemory | TargetSQL},

	// Temporal keyword predicates.
	"BEFORE":           {Kind: KindTemporal, Targets: TargetAll},
	"AFTER":            {Kind: KindTemporal, Targets: TargetAll},
	"DURING":           {Kind: KindTemporal, Targets: TargetAll},
	"DURING OR AFTER":  {Kind: KindTemporal, Targets: TargetAll},
	"DURING OR BEFORE": {Kind: KindTemporal, Targets: TargetAll},
}

// Lookup returns the registry entry for a predicate keyword. Matching is
// case-insensitive.
func Lookup(name string) (OpSpec, bool) {
	spec, ok := registry[strings.ToUpper(name)]
	return spec, ok
}

// Supports reports whether the given execution target can serve the
// predicate keyword. Unknown keywords are unsupported everywhere.
func Supports(name string, target Target) bool {
	spec, ok := Lookup(name)
	return ok && spec.Targets&target != 0
}
