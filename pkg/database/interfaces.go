// Package database provides the SQL Server collaborator used for schema
// introspection and query execution.
package database

import "context"

// Querier executes SQL against the database and returns rows as maps.
// It is the seam the resolver and schema cache depend on; tests substitute
// a mock. The credential behind the real implementation is expected to be
// read-only.
type Querier interface {
	// Query runs a statement and returns the result set. Named parameters
	// use sql.Named values.
	Query(ctx context.Context, query string, args ...any) (*Result, error)
}

// Result contains the rows of a query execution. Columns preserves the
// select-list order, which map iteration would lose.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}
