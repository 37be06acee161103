package cql

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hugr-lab/cql-go/ast"
	"github.com/hugr-lab/cql-go/eval"
)

// Provider exposes a filterable record collection: its queryable fields
// and a way to iterate records. File- or memory-backed feature sources
// implement it to get filtering without their own predicate code.
type Provider interface {
	// Fields returns the queryable properties and their types.
	Fields() ast.Schema

	// Records returns the records to filter.
	Records(ctx context.Context) ([]eval.Record, error)
}

// Filter returns the records matching a compiled filter, preserving the
// input order. A nil filter matches everything.
func (e *Engine) Filter(f *ast.Filter, records []eval.Record) ([]eval.Record, error) {
	out := make([]eval.Record, 0, len(records))
	for _, r := range records {
		ok, err := e.eval.Match(f, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// FilterParallel is Filter with a bounded worker pool. The result order
// matches the input order regardless of worker scheduling. Evaluation
// stops early when ctx is canceled.
func (e *Engine) FilterParallel(ctx context.Context, f *ast.Filter, records []eval.Record) ([]eval.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(records) {
		workers = len(records)
	}
	if workers <= 1 {
		return e.filterCtx(ctx, f, records)
	}

	mask := make([]bool, len(records))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		failed   atomic.Bool
	)
	next := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Keep draining after a failure so the feeder never blocks.
			for i := range next {
				if failed.Load() {
					continue
				}
				ok, err := e.eval.Match(f, records[i])
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					failed.Store(true)
					continue
				}
				mask[i] = ok
			}
		}()
	}

feed:
	for i := range records {
		if failed.Load() {
			break
		}
		select {
		case next <- i:
		case <-ctx.Done():
			errOnce.Do(func() { firstErr = ctx.Err() })
			break feed
		}
	}
	close(next)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	out := make([]eval.Record, 0, len(records))
	for i, ok := range mask {
		if ok {
			out = append(out, records[i])
		}
	}
	return out, nil
}

// filterCtx is the degenerate-pool path of FilterParallel. It checks for
// cancellation between records so the early-stop contract holds at every
// worker count.
func (e *Engine) filterCtx(ctx context.Context, f *ast.Filter, records []eval.Record) ([]eval.Record, error) {
	out := make([]eval.Record, 0, len(records))
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := e.eval.Match(f, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Query runs a compiled filter over a provider's records.
func (e *Engine) Query(ctx context.Context, f *ast.Filter, p Provider) ([]eval.Record, error) {
	records, err := p.Records(ctx)
	if err != nil {
		return nil, err
	}
	return e.FilterParallel(ctx, f, records)
}
