package sqlenc

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/cql-go/ast"
	"github.com/hugr-lab/cql-go/eval"
	"github.com/hugr-lab/cql-go/parser"

	_ "github.com/duckdb/duckdb-go/v2"
)

// lakeRow is one row of the equivalence fixture. Records and table rows
// carry the same data so the evaluator and the database can be compared
// filter by filter.
type lakeRow struct {
	id      int64
	name    any
	depth   any
	updated time.Time
}

var lakeRows = []lakeRow{
	{1, "Lake Baikal", 1642.0, time.Date(2004, 6, 1, 0, 0, 0, 0, time.UTC)},
	{2, "lakeside", 3.5, time.Date(2006, 3, 1, 0, 0, 0, 0, time.UTC)},
	{3, "River", 12.0, time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)},
	{4, nil, nil, time.Date(2003, 7, 15, 0, 0, 0, 0, time.UTC)},
	{5, "Crater Lake", 594.0, time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)},
}

func (r lakeRow) record() eval.MapRecord {
	return eval.MapRecord{
		"id":      r.id,
		"name":    r.name,
		"depth":   r.depth,
		"updated": r.updated,
	}
}

func openFixtureDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE lakes (id BIGINT, name VARCHAR, depth DOUBLE, updated TIMESTAMP)`)
	require.NoError(t, err)

	for _, r := range lakeRows {
		_, err = db.Exec(`INSERT INTO lakes VALUES (?, ?, ?, ?)`, r.id, r.name, r.depth, r.updated)
		require.NoError(t, err)
	}
	return db
}

// TestTranslateMatchesEvaluator runs the same filters through the
// in-memory evaluator and through DuckDB and requires identical row sets.
func TestTranslateMatchesEvaluator(t *testing.T) {
	db := openFixtureDB(t)

	schema := ast.Schema{
		"id":      ast.TypeNumber,
		"name":    ast.TypeString,
		"depth":   ast.TypeNumber,
		"updated": ast.TypeDate,
	}

	filters := []string{
		`depth > 100`,
		`depth BETWEEN 100 AND 2000`,
		`depth BETWEEN 2000 AND 100`,
		`name LIKE 'Lake%'`,
		`name ILIKE '%lake%'`,
		`name NOT LIKE '%side'`,
		`name IN ('River', 'lakeside')`,
		`name NOT IN ('River')`,
		`name IS NULL`,
		`name IS NOT NULL`,
		`id <> 3 AND depth > 10`,
		`depth < 10 OR name = 'River'`,
		`NOT (id > 3)`,
		`updated DURING 2003-01-01T00:00:00Z/2005-01-01T00:00:00Z`,
		`updated BEFORE 2004-01-01T00:00:00Z`,
		`updated AFTER 2004-01-01T00:00:00Z`,
		`updated DURING OR AFTER 2003-01-01T00:00:00Z/2005-01-01T00:00:00Z`,
	}

	evaluator := eval.New()
	for _, input := range filters {
		t.Run(input, func(t *testing.T) {
			f, err := parser.Parse(input)
			require.NoError(t, err)
			validated, err := ast.Validate(f, schema)
			require.NoError(t, err)

			var want []int64
			for _, r := range lakeRows {
				ok, err := evaluator.Match(validated, r.record())
				require.NoError(t, err)
				if ok {
					want = append(want, r.id)
				}
			}

			frag, args, err := Translate(validated, DuckDB)
			require.NoError(t, err)

			rows, err := db.Query(fmt.Sprintf(`SELECT id FROM lakes WHERE %s ORDER BY id`, frag), args...)
			require.NoError(t, err)
			defer rows.Close()

			var got []int64
			for rows.Next() {
				var id int64
				require.NoError(t, rows.Scan(&id))
				got = append(got, id)
			}
			require.NoError(t, rows.Err())

			require.Equal(t, want, got, "evaluator and SQL target disagree for %q", input)
		})
	}
}
