package cql

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/cql-go/ast"
	"github.com/hugr-lab/cql-go/eval"
	"github.com/hugr-lab/cql-go/parser"
	"github.com/hugr-lab/cql-go/searchdsl"
	"github.com/hugr-lab/cql-go/sqlenc"
)

// Encoding selects the serialized filter form accepted by Compile.
type Encoding string

const (
	// EncodingText is the textual filter encoding.
	EncodingText Encoding = "cql-text"
	// EncodingJSON is the JSON filter encoding.
	EncodingJSON Encoding = "cql-json"
)

// Config contains configuration for a filter engine.
type Config struct {
	// Schema maps queryable property names to their declared types.
	// REQUIRED: MUST NOT be empty.
	Schema ast.Schema

	// Logger for diagnostic logging of rejected filters.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// Evaluator used by Match and Filter.
	// OPTIONAL: Uses a planar-topology evaluator if nil.
	Evaluator *eval.Evaluator

	// Workers bounds the concurrency of FilterParallel.
	// OPTIONAL: If 0, uses runtime.NumCPU().
	Workers int
}

// Standard errors returned by the cql package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid engine config")

	// ErrUnknownEncoding indicates Compile was given an encoding it
	// does not recognize.
	ErrUnknownEncoding = errors.New("unknown filter encoding")
)

// Engine compiles serialized filters against a fixed schema and runs
// them on the bundled execution targets. An Engine is safe for
// concurrent use.
type Engine struct {
	schema  ast.Schema
	log     *slog.Logger
	eval    *eval.Evaluator
	workers int
}

// New creates an engine for the given configuration.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Schema) == 0 {
		return nil, fmt.Errorf("%w: schema is required", ErrInvalidConfig)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	ev := cfg.Evaluator
	if ev == nil {
		ev = eval.New()
	}
	return &Engine{
		schema:  cfg.Schema,
		log:     log,
		eval:    ev,
		workers: cfg.Workers,
	}, nil
}

// Compile parses a serialized filter and validates it against the
// engine schema. The returned filter is ready for any execution target.
func (e *Engine) Compile(input string, enc Encoding) (*ast.Filter, error) {
	var (
		f   *ast.Filter
		err error
	)
	switch enc {
	case EncodingText:
		f, err = parser.Parse(input)
	case EncodingJSON:
		f, err = parser.ParseJSON([]byte(input))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
	}
	if err != nil {
		e.log.Debug("filter rejected by parser", "encoding", string(enc), "error", err)
		return nil, err
	}

	validated, err := ast.Validate(f, e.schema)
	if err != nil {
		e.log.Debug("filter rejected by validator", "filter", f.Root.String(), "error", err)
		return nil, err
	}
	return validated, nil
}

// Match evaluates a compiled filter against a single record.
func (e *Engine) Match(f *ast.Filter, r eval.Record) (bool, error) {
	return e.eval.Match(f, r)
}

// SQL translates a compiled filter to a WHERE clause body with bind
// arguments for the given dialect.
func (e *Engine) SQL(f *ast.Filter, d sqlenc.Dialect) (string, []any, error) {
	return sqlenc.Translate(f, d)
}

// SearchQuery translates a compiled filter to a search-engine query
// clause ready for json.Marshal.
func (e *Engine) SearchQuery(f *ast.Filter) (map[string]any, error) {
	return searchdsl.Translate(f)
}
