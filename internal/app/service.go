package app

import (
	"context"

	"github.com/joacominatel/dashtools/internal/database"
)

// DefaultPageSize is the number of rows returned when no limit is given.
const DefaultPageSize = 100

// Service coordinates application-level operations between the HTTP API,
// the TUI and the database adapter.
type Service struct {
	adapter database.Adapter
}

// NewService creates a new application service around an adapter that has
// already been connected.
func NewService(adapter database.Adapter) *Service {
	return &Service{adapter: adapter}
}

// Backend returns the engine behind the service.
func (s *Service) Backend() database.Backend {
	return s.adapter.Backend()
}

// DatabaseName returns the current database name or file.
func (s *Service) DatabaseName() string {
	return s.adapter.DatabaseName()
}

// Ping checks that the engine is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.adapter.Ping(ctx); err != nil {
		return &ErrConnection{Backend: s.adapter.Backend().String(), Cause: err}
	}
	return nil
}

// Close closes the underlying adapter.
func (s *Service) Close() error {
	return s.adapter.Close()
}

// ListTables returns all table names.
func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	return s.adapter.ListTables(ctx)
}

// TableSchema fetches column metadata for a table.
func (s *Service) TableSchema(ctx context.Context, table string) ([]database.Column, error) {
	return s.adapter.GetTableSchema(ctx, table)
}

// CreateTable creates a table from column definitions.
func (s *Service) CreateTable(ctx context.Context, table string, columns []database.ColumnDef) error {
	return s.adapter.CreateTable(ctx, table, columns)
}

// DropTable drops a table; dropping a missing table succeeds.
func (s *Service) DropTable(ctx context.Context, table string) error {
	return s.adapter.DropTable(ctx, table)
}

// AddColumn adds a column to a table.
func (s *Service) AddColumn(ctx context.Context, table, column, columnType string, defaultValue any) error {
	return s.adapter.AddColumn(ctx, table, column, columnType, defaultValue)
}

// TableData returns a page of rows. A zero limit means DefaultPageSize.
func (s *Service) TableData(ctx context.Context, table string, limit, offset int) (*database.QueryResult, error) {
	if limit == 0 {
		limit = DefaultPageSize
	}
	return s.adapter.GetTableData(ctx, table, limit, offset)
}

// InsertRow inserts a row.
func (s *Service) InsertRow(ctx context.Context, table string, data database.Row) error {
	return s.adapter.InsertRow(ctx, table, data)
}

// UpdateRow updates the row identified by id in idColumn (default "id").
func (s *Service) UpdateRow(ctx context.Context, table string, id any, data database.Row, idColumn string) (bool, error) {
	if idColumn == "" {
		idColumn = database.DefaultIDColumn
	}
	return s.adapter.UpdateRow(ctx, table, id, data, idColumn)
}

// DeleteRow deletes the row identified by id in idColumn (default "id").
func (s *Service) DeleteRow(ctx context.Context, table string, id any, idColumn string) (bool, error) {
	if idColumn == "" {
		idColumn = database.DefaultIDColumn
	}
	return s.adapter.DeleteRow(ctx, table, id, idColumn)
}

// ExecuteQuery runs a read-only SQL query and returns the results.
func (s *Service) ExecuteQuery(ctx context.Context, query string) (*database.QueryResult, error) {
	result, err := s.adapter.ExecuteQuery(ctx, query)
	if err != nil {
		if database.IsValidation(err) {
			return nil, err
		}
		return nil, &ErrQuery{Query: query, Cause: err}
	}
	return result, nil
}
