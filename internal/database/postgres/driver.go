package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/dashtools/internal/database"
)

// Driver implements the database.Adapter interface for PostgreSQL.
type Driver struct {
	pool    *pgxpool.Pool
	dbName  string
	schema  string
	dialect database.Dialect
}

// New creates a new PostgreSQL driver working inside schema.
func New(schema string) *Driver {
	if schema == "" {
		schema = database.DefaultPostgresSchema
	}
	return &Driver{
		schema:  schema,
		dialect: database.PostgresDialect(schema),
	}
}

// Connect establishes a connection pool to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 5
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}

	d.pool = pool
	d.dbName = cfg.ConnConfig.Database
	return nil
}

// Backend reports the client-server engine.
func (d *Driver) Backend() database.Backend {
	return database.BackendPostgres
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.pool == nil {
		return fmt.Errorf("not connected")
	}
	return d.pool.Ping(ctx)
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

// ListTables returns all base tables in the configured schema.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx, queryListTables, d.schema)
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

// GetTableSchema returns column metadata for a table.
func (d *Driver) GetTableSchema(ctx context.Context, table string) ([]database.Column, error) {
	rows, err := d.pool.Query(ctx, queryGetColumns, d.schema, table)
	if err != nil {
		return nil, &database.EngineError{Op: "get columns", Err: err}
	}
	defer rows.Close()

	columns := []database.Column{}
	for rows.Next() {
		var col database.Column
		if err := rows.Scan(&col.Position, &col.Name, &col.DataType, &col.NotNull, &col.DefaultValue, &col.IsPrimary); err != nil {
			return nil, &database.EngineError{Op: "get columns", Err: err}
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
	return d.inTx(ctx, "create table", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, ddl)
		return err
	})
}

// DropTable drops a table if it exists.
func (d *Driver) DropTable(ctx context.Context, table string) error {
	ddl, err := d.dialect.DropTable(table)
	if err != nil {
		return err
	}
	return d.inTx(ctx, "drop table", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, ddl)
		return err
	})
}

// AddColumn appends a column to an existing table.
func (d *Driver) AddColumn(ctx context.Context, table, column, columnType string, defaultValue any) error {
	ddl, err := d.dialect.AddColumn(table, column, columnType, defaultValue)
	if err != nil {
		return err
	}
	return d.inTx(ctx, "add column", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, ddl)
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

	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, &database.EngineError{Op: "select page", Err: err}
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, count).Scan(&total); err != nil {
		return nil, &database.EngineError{Op: "count rows", Err: err}
	}

	rows, err := conn.Query(ctx, page.SQL, page.Args...)
	if err != nil {
		return nil, &database.EngineError{Op: "select page", Err: err}
	}
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
	return d.inTx(ctx, "insert row", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt.SQL, textArgs(stmt.Args)...)
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

// ExecuteQuery runs a SELECT inside a read-only transaction and returns
// the results.
func (d *Driver) ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error) {
	if err := database.CheckReadOnly(query); err != nil {
		return nil, err
	}

	start := time.Now()

	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, &database.EngineError{Op: "execute", Err: err}
	}
	defer conn.Release()

	var result *database.QueryResult
	err = pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return err
		}
		result, err = collectRows(rows)
		return err
	})
	if err != nil {
		return nil, &database.EngineError{Op: "execute", Err: err}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (d *Driver) execAffecting(ctx context.Context, op string, stmt database.Statement) (bool, error) {
	var affected int64
	err := d.inTx(ctx, op, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, stmt.SQL, textArgs(stmt.Args)...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// inTx runs fn inside a transaction on a connection acquired for this call
// only. pgx.BeginFunc commits on success and rolls back otherwise.
func (d *Driver) inTx(ctx context.Context, op string, fn func(pgx.Tx) error) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return &database.EngineError{Op: op, Err: err}
	}
	defer conn.Release()

	if err := pgx.BeginFunc(ctx, conn, fn); err != nil {
		return &database.EngineError{Op: op, Err: err}
	}
	return nil
}

// textArgs converts row values to text. pgx sends strings in text format
// and the server casts them to each parameter's column type, so 5 can be
// written to a TEXT column and "7" matched against an INTEGER key, as on
// SQLite. Booleans become 1 and 0, which both INTEGER and BOOLEAN accept.
func textArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case nil, string, []byte:
			out[i] = v
		case bool:
			if v {
				out[i] = "1"
			} else {
				out[i] = "0"
			}
		case int64:
			out[i] = strconv.FormatInt(v, 10)
		case int:
			out[i] = strconv.Itoa(v)
		case float64:
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

// collectRows drains rows into a QueryResult and closes them.
func collectRows(rows pgx.Rows) (*database.QueryResult, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	result := &database.QueryResult{Columns: columns, Rows: []database.Row{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(database.Row, len(columns))
		for i, v := range values {
			row[columns[i]] = plainValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// plainValue turns pgtype wrappers such as Numeric into their driver value
// so rows serialize the same way on every backend.
func plainValue(v any) any {
	if valuer, ok := v.(driver.Valuer); ok {
		if pv, err := valuer.Value(); err == nil {
			return pv
		}
	}
	return v
}
