package database

import "context"

// Adapter defines the operations every engine backend implements.
// All implementations must be safe for concurrent use; each call acquires
// its own connection and releases it before returning.
type Adapter interface {
	// Backend reports which engine the adapter talks to.
	Backend() Backend

	// Ping checks if the engine is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error

	// DatabaseName returns the file path or database name in use.
	DatabaseName() string

	// ListTables returns all user table names.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableSchema returns all columns for a table in declaration order.
	GetTableSchema(ctx context.Context, table string) ([]Column, error)

	// CreateTable creates a table if it does not already exist.
	CreateTable(ctx context.Context, table string, columns []ColumnDef) error

	// DropTable drops a table if it exists.
	DropTable(ctx context.Context, table string) error

	// AddColumn appends a column to an existing table. A nil defaultValue
	// omits the DEFAULT clause.
	AddColumn(ctx context.Context, table, column, columnType string, defaultValue any) error

	// GetTableData returns one page of rows plus the table's total row count.
	GetTableData(ctx context.Context, table string, limit, offset int) (*QueryResult, error)

	// InsertRow inserts a single row.
	InsertRow(ctx context.Context, table string, data Row) error

	// UpdateRow updates the row whose idColumn equals id. It reports whether
	// any row matched.
	UpdateRow(ctx context.Context, table string, id any, data Row, idColumn string) (bool, error)

	// DeleteRow deletes the row whose idColumn equals id. It reports whether
	// any row matched.
	DeleteRow(ctx context.Context, table string, id any, idColumn string) (bool, error)

	// ExecuteQuery runs a read-only SELECT and returns the full result set.
	ExecuteQuery(ctx context.Context, query string) (*QueryResult, error)
}
