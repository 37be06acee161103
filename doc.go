// Package cql compiles serialized filter expressions into validated
// predicate trees and runs them on three execution targets.
//
// The package accepts two filter encodings:
//   - Text: `depth > 100 AND INTERSECTS(geom, POLYGON((...)))`
//   - JSON: `{"and": [{"gt": {"property": "depth", "value": 100}}, ...]}`
//
// Both parse to the same in-memory tree. Validation binds every property
// reference against a declared schema and type-checks every predicate,
// so the execution targets operate on trees that cannot name unknown
// properties or mix incompatible types.
//
// # Quick Start
//
// Compile a filter once and run it against records:
//
//	engine, err := cql.New(cql.Config{
//	    Schema: ast.Schema{
//	        "name":  ast.TypeString,
//	        "depth": ast.TypeNumber,
//	        "geom":  ast.TypeGeometry,
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	filter, err := engine.Compile(`depth > 100 AND name LIKE 'Lake%'`, cql.EncodingText)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ok, err := engine.Match(filter, eval.MapRecord{"name": "Lake Baikal", "depth": 1642.0})
//
// # Execution Targets
//
// A compiled filter runs on any of three backends:
//
//   - Engine.Match / Engine.Filter evaluate records in memory.
//   - Engine.SQL produces a WHERE clause body with bind parameters for
//     PostgreSQL, DuckDB or SQLite.
//   - Engine.SearchQuery produces an Elasticsearch-compatible bool
//     query clause.
//
// Targets differ in capability: RELATE has no search-DSL form, and
// plain SQLite has no spatial functions. Translators report these as
// UnsupportedPredicateError instead of emitting malformed output.
//
// # Null Handling
//
// A predicate over a missing or null property value evaluates to false,
// matching SQL WHERE semantics. IS NULL and IS NOT NULL are the only
// predicates that test absence itself.
//
// # Logging
//
// Diagnostic logging of rejected filters goes through the Config.Logger
// slog handle, or slog.Default() when unset.
package cql
