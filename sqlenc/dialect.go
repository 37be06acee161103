// Package sqlenc translates validated predicate trees to SQL WHERE
// fragments with bind parameters. Literal values never appear inline in
// the generated SQL; they travel through the argument slice.
package sqlenc

import (
	"fmt"
	"strings"
)

// Dialect describes the SQL surface of a target database.
type Dialect struct {
	// Name identifies the dialect in error messages.
	Name string

	// Placeholder renders the n-th bind parameter, 1-based.
	Placeholder func(n int) string

	// ILike is true when the dialect has a native ILIKE operator.
	// Without it, case-insensitive matching lowers both sides.
	ILike bool

	// Spatial is true when the ST_* function family is available.
	Spatial bool

	// Relate is true when ST_Relate with a DE-9IM pattern is available.
	Relate bool

	// GeomFromText names the WKT constructor function.
	GeomFromText string
}

// Postgres targets PostgreSQL with PostGIS.
var Postgres = Dialect{
	Name:         "postgres",
	Placeholder:  func(n int) string { return fmt.Sprintf("$%d", n) },
	ILike:        true,
	Spatial:      true,
	Relate:       true,
	GeomFromText: "ST_GeomFromText",
}

// DuckDB targets DuckDB with the spatial extension loaded.
var DuckDB = Dialect{
	Name:         "duckdb",
	Placeholder:  func(n int) string { return "?" },
	ILike:        true,
	Spatial:      true,
	Relate:       false,
	GeomFromText: "ST_GeomFromText",
}

// SQLite targets plain SQLite without a spatial extension.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(n int) string { return "?" },
}

// quoteIdentifier returns a quoted identifier if needed.
func quoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// needsQuoting returns true if the identifier needs quoting.
func needsQuoting(name string) bool {
	if len(name) == 0 {
		return true
	}

	c := name[0]
	if !isLetter(c) && c != '_' {
		return true
	}
	for i := 1; i < len(name); i++ {
		c = name[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return true
		}
	}

	// Reserved words (simplified list)
	upper := strings.ToUpper(name)
	switch upper {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "TABLE", "INDEX",
		"JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "ON", "AS", "IN", "IS", "LIKE",
		"BETWEEN", "EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END", "ORDER", "BY",
		"GROUP", "HAVING", "LIMIT", "OFFSET", "UNION", "EXCEPT", "INTERSECT",
		"ALL", "DISTINCT", "VALUES", "SET", "INTO", "PRIMARY", "KEY", "FOREIGN",
		"REFERENCES", "CONSTRAINT", "DEFAULT", "CHECK", "UNIQUE", "ASC", "DESC",
		"NULLS", "FIRST", "LAST", "CAST", "INTERVAL", "DATE", "TIME", "TIMESTAMP":
		return true
	}

	return false
}

// isLetter returns true if c is an ASCII letter.
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isDigit returns true if c is an ASCII digit.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
