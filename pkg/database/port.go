// Package database defines the store port consumed by the loader and the
// report queries, together with its database/sql adapter and SQL dialects.
package database

import "context"

// Execer runs statements. It is implemented by a DB and by the handle passed
// to a Transaction callback.
type Execer interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) error
	// ExecMany runs one statement once per argument row.
	ExecMany(ctx context.Context, query string, rows [][]any) error
	// Query runs a statement and returns every row in result order.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// DB is a single store connection.
type DB interface {
	Execer
	Connect(ctx context.Context) error
	Close() error
	// Transaction runs fn inside a transaction. It commits when fn returns nil
	// and rolls back when fn returns an error or panics.
	Transaction(ctx context.Context, fn func(tx Execer) error) error
	Dialect() Dialect
}

// Column is one named value of a result row. Type is the driver reported
// database type name, upper case, and may be empty.
type Column struct {
	Name  string
	Type  string
	Value any
}

// Row is a result row with columns in select-list order.
type Row []Column

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}
