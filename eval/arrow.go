package eval

import (
	"github.com/hugr-lab/cql-go/ast"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// BatchRow adapts one row of an Arrow record batch to the Record
// interface, so filters can run over columnar data without materializing
// per-row maps. Geometry columns are expected to carry WKB bytes, as in
// GeoArrow and GeoParquet.
type BatchRow struct {
	batch arrow.RecordBatch
	cols  map[string]int
	row   int
}

// NewBatchRow wraps a record batch, positioned at row 0.
func NewBatchRow(batch arrow.RecordBatch) *BatchRow {
	cols := make(map[string]int, len(batch.Schema().Fields()))
	for i, f := range batch.Schema().Fields() {
		cols[f.Name] = i
	}
	return &BatchRow{batch: batch, cols: cols}
}

// Seek positions the adapter at the given row.
func (b *BatchRow) Seek(row int) { b.row = row }

// Property implements Record.
func (b *BatchRow) Property(name string) (any, bool) {
	idx, ok := b.cols[name]
	if !ok {
		return nil, false
	}
	col := b.batch.Column(idx)
	if col.IsNull(b.row) {
		return nil, true
	}
	return columnValue(col, b.row), true
}

// MaskBatch evaluates a filter over every row of a record batch and
// returns the per-row selection mask.
func (e *Evaluator) MaskBatch(f *ast.Filter, batch arrow.RecordBatch) ([]bool, error) {
	mask := make([]bool, batch.NumRows())
	row := NewBatchRow(batch)
	for i := range mask {
		row.Seek(i)
		ok, err := e.Match(f, row)
		if err != nil {
			return nil, err
		}
		mask[i] = ok
	}
	return mask, nil
}

// columnValue extracts a Go value from an Arrow column at the given row.
// Unsupported column types read as nil and behave like null values.
func columnValue(col arrow.Array, row int) any {
	switch a := col.(type) {
	case *array.Boolean:
		return a.Value(row)
	case *array.Int8:
		return a.Value(row)
	case *array.Int16:
		return a.Value(row)
	case *array.Int32:
		return a.Value(row)
	case *array.Int64:
		return a.Value(row)
	case *array.Uint8:
		return a.Value(row)
	case *array.Uint16:
		return a.Value(row)
	case *array.Uint32:
		return a.Value(row)
	case *array.Uint64:
		return a.Value(row)
	case *array.Float32:
		return a.Value(row)
	case *array.Float64:
		return a.Value(row)
	case *array.String:
		return a.Value(row)
	case *array.LargeString:
		return a.Value(row)
	case *array.Binary:
		return a.Value(row)
	case *array.LargeBinary:
		return a.Value(row)
	case *array.Timestamp:
		dt := a.DataType().(*arrow.TimestampType)
		return a.Value(row).ToTime(dt.Unit).UTC()
	case *array.Date32:
		return a.Value(row).ToTime().UTC()
	case *array.Date64:
		return a.Value(row).ToTime().UTC()
	case array.ExtensionArray:
		// Geometry extension columns store WKB in a binary array.
		return columnValue(a.Storage(), row)
	default:
		return nil
	}
}
