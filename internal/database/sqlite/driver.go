// Package sqlite implements database.Adapter on top of an embedded SQLite
// file, using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joacominatel/dashtools/internal/database"
	_ "modernc.org/sqlite"
)

// Driver implements the database.Adapter interface for SQLite.
type Driver struct {
	db      *sql.DB
	ro      *sql.DB // opened with mode=ro; serves ExecuteQuery
	path    string
	dialect database.Dialect
}

// New creates a new SQLite driver.
func New() *Driver {
	return &Driver{dialect: database.SQLiteDialect()}
}

// Connect opens the database file, creating it (and its directory) when absent.
func (d *Driver) Connect(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(8)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping: %w", err)
	}

	ro, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		db.Close()
		return fmt.Errorf("open read-only: %w", err)
	}
	ro.SetMaxOpenConns(4)

	if err := ro.PingContext(ctx); err != nil {
		ro.Close()
		db.Close()
		return fmt.Errorf("ping read-only: %w", err)
	}

	d.db = db
	d.ro = ro
	d.path = path
	return nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// readOnlyDSN opens the file with SQLITE_OPEN_READONLY. No statement run on
// such a connection can write, including PRAGMA query_only = OFF.
func readOnlyDSN(path string) string {
	return "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)&_pragma=query_only(1)"
}

// Backend reports the embedded engine.
func (d *Driver) Backend() database.Backend {
	return database.BackendSQLite
}

// Close closes both connection pools.
func (d *Driver) Close() error {
	var err error
	if d.ro != nil {
		err = d.ro.Close()
	}
	if d.db != nil {
		if cerr := d.db.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

// Ping checks if the database file can be reached.
func (d *Driver) Ping(ctx context.Context) error {
	if d.db == nil {
		return fmt.Errorf("not connected")
	}
	return d.db.PingContext(ctx)
}

// DatabaseName returns the database file path.
func (d *Driver) DatabaseName() string {
	return d.path
}

// ListTables returns all user table names.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, queryListTables)
	if err != nil {
		return nil, &database.EngineError{Op: "list tables", Err: err}
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &database.EngineError{Op: "list tables", Err: err}
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &database.EngineError{Op: "list tables", Err: err}
	}
	return tables, nil
}

// GetTableSchema returns column metadata from pragma_table_info.
func (d *Driver) GetTableSchema(ctx context.Context, table string) ([]database.Column, error) {
	rows, err := d.db.QueryContext(ctx, queryGetColumns, table)
	if err != nil {
		return nil, &database.EngineError{Op: "get columns", Err: err}
	}
	defer rows.Close()

	columns := []database.Column{}
	for rows.Next() {
		var (
			col     database.Column
			cid     int
			notNull int
			pk      int
			dflt    sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &dflt, &pk); err != nil {
			return nil, &database.EngineError{Op: "get columns", Err: err}
		}
		col.Position = cid + 1
		col.NotNull = notNull != 0
		col.IsPrimary = pk > 0
		if dflt.Valid {
			col.DefaultValue = &dflt.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, &database.EngineError{Op: "get columns", Err: err}
	}
	return columns, nil
}

// CreateTable creates a table if it does not already exist.
func (d *Driver) CreateTable(ctx context.Context, table string, columns []database.ColumnDef) error {
	ddl, err := d.dialect.CreateTable(table, columns)
	if err != nil {
		return err
	}
	return d.inTx(ctx, "create table", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, ddl)
		return err
	})
}

// DropTable drops a table if it exists.
func (d *Driver) DropTable(ctx context.Context, table string) error {
	ddl, err := d.dialect.DropTable(table)
	if err != nil {
		return err
	}
	return d.inTx(ctx, "drop table", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, ddl)
		return err
	})
}

// AddColumn appends a column to an existing table.
func (d *Driver) AddColumn(ctx context.Context, table, column, columnType string, defaultValue any) error {
	ddl, err := d.dialect.AddColumn(table, column, columnType, defaultValue)
	if err != nil {
		return err
	}
	return d.inTx(ctx, "add column", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, ddl)
		return err
	})
}

// GetTableData returns one page of rows and the table's total row count.
func (d *Driver) GetTableData(ctx context.Context, table string, limit, offset int) (*database.QueryResult, error) {
	count, err := d.dialect.CountRows(table)
	if err != nil {
		return nil, err
	}
	page, err := d.dialect.SelectPage(table, limit, offset)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var total int64
	if err := d.db.QueryRowContext(ctx, count).Scan(&total); err != nil {
		return nil, &database.EngineError{Op: "count rows", Err: err}
	}

	rows, err := d.db.QueryContext(ctx, page.SQL, page.Args...)
	if err != nil {
		return nil, &database.EngineError{Op: "select page", Err: err}
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, &database.EngineError{Op: "select page", Err: err}
	}
	result.Total = total
	result.Duration = time.Since(start)
	return result, nil
}

// InsertRow inserts a single row.
func (d *Driver) InsertRow(ctx context.Context, table string, data database.Row) error {
	stmt, err := d.dialect.Insert(table, data)
	if err != nil {
		return err
	}
	return d.inTx(ctx, "insert row", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
		return err
	})
}

// UpdateRow updates the row matching idColumn = id.
func (d *Driver) UpdateRow(ctx context.Context, table string, id any, data database.Row, idColumn string) (bool, error) {
	stmt, err := d.dialect.Update(table, id, data, idColumn)
	if err != nil {
		return false, err
	}
	return d.execAffecting(ctx, "update row", stmt)
}

// DeleteRow deletes the row matching idColumn = id.
func (d *Driver) DeleteRow(ctx context.Context, table string, id any, idColumn string) (bool, error) {
	stmt, err := d.dialect.Delete(table, id, idColumn)
	if err != nil {
		return false, err
	}
	return d.execAffecting(ctx, "delete row", stmt)
}

// ExecuteQuery runs a single SELECT on the read-only pool.
func (d *Driver) ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error) {
	if err := database.CheckReadOnly(query); err != nil {
		return nil, err
	}

	start := time.Now()

	rows, err := d.ro.QueryContext(ctx, query)
	if err != nil {
		return nil, &database.EngineError{Op: "execute", Err: err}
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, &database.EngineError{Op: "execute", Err: err}
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (d *Driver) execAffecting(ctx context.Context, op string, stmt database.Statement) (bool, error) {
	var affected int64
	err := d.inTx(ctx, op, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// inTx runs fn inside a transaction on a dedicated connection. The
// transaction is rolled back when fn fails and the connection is always
// returned to the pool.
func (d *Driver) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return &database.EngineError{Op: op, Err: err}
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &database.EngineError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return &database.EngineError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &database.EngineError{Op: op, Err: err}
	}
	return nil
}

func collectRows(rows *sql.Rows) (*database.QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &database.QueryResult{Columns: columns, Rows: []database.Row{}}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(database.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
