package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/joacominatel/dashtools/internal/database"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	d := New()
	path := filepath.Join(t.TempDir(), "data", "test.db")
	if err := d.Connect(context.Background(), path); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

var t1Columns = []database.ColumnDef{
	{Name: "id", Type: "INTEGER", PrimaryKey: true},
	{Name: "label", Type: "TEXT"},
}

func createT1(t *testing.T, d *Driver) {
	t.Helper()
	if err := d.CreateTable(context.Background(), "t1", t1Columns); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
}

func TestCreateTableValidation(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	if err := d.CreateTable(ctx, "t", nil); err == nil || err.Error() == "" {
		t.Fatalf("expected error for empty column list, got %v", err)
	}
	if err := d.CreateTable(ctx, "", []database.ColumnDef{{Name: "a"}}); err == nil {
		t.Fatal("expected error for empty table name")
	}

	tables, err := d.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 0 {
		t.Fatalf("expected no tables, got %v", tables)
	}
}

func TestCreateTableIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	createT1(t, d)
	createT1(t, d)

	tables, err := d.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0] != "t1" {
		t.Fatalf("tables = %v, want [t1]", tables)
	}

	schema, err := d.GetTableSchema(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(schema) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(schema))
	}
	if !schema[0].IsPrimary || schema[0].Name != "id" || schema[0].Position != 1 {
		t.Errorf("first column = %+v, want primary key id at position 1", schema[0])
	}
	if schema[1].IsPrimary || schema[1].Name != "label" || schema[1].DataType != "TEXT" {
		t.Errorf("second column = %+v", schema[1])
	}
}

func TestSchemaOfMissingTable(t *testing.T) {
	d := newTestDriver(t)
	schema, err := d.GetTableSchema(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(schema) != 0 {
		t.Fatalf("expected empty schema, got %+v", schema)
	}
}

func TestRowLifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)
	createT1(t, d)

	if err := d.InsertRow(ctx, "t1", database.Row{"label": "x"}); err != nil {
		t.Fatalf("InsertRow: %v", err)
	}

	result, err := d.GetTableData(ctx, "t1", 10, 0)
	if err != nil {
		t.Fatalf("GetTableData: %v", err)
	}
	if result.Total != 1 || len(result.Rows) != 1 {
		t.Fatalf("total = %d, rows = %d, want 1 and 1", result.Total, len(result.Rows))
	}
	if got := result.Rows[0]["label"]; got != "x" {
		t.Errorf("label = %#v, want x", got)
	}
	id := result.Rows[0]["id"]
	if id != int64(1) {
		t.Errorf("id = %#v, want 1", id)
	}

	ok, err := d.UpdateRow(ctx, "t1", int64(999), database.Row{"label": "y"}, "id")
	if err != nil || ok {
		t.Errorf("update missing row = %v, %v; want false, nil", ok, err)
	}
	ok, err = d.DeleteRow(ctx, "t1", int64(999), "id")
	if err != nil || ok {
		t.Errorf("delete missing row = %v, %v; want false, nil", ok, err)
	}

	ok, err = d.UpdateRow(ctx, "t1", id, database.Row{"label": "y"}, "")
	if err != nil || !ok {
		t.Fatalf("update = %v, %v; want true, nil", ok, err)
	}
	result, err = d.GetTableData(ctx, "t1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Rows[0]["label"]; got != "y" {
		t.Errorf("label after update = %#v, want y", got)
	}

	ok, err = d.DeleteRow(ctx, "t1", id, "id")
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v; want true, nil", ok, err)
	}
	result, err = d.GetTableData(ctx, "t1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 0 || len(result.Rows) != 0 {
		t.Errorf("expected empty table, got total %d", result.Total)
	}
}

func TestPagination(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)
	createT1(t, d)

	for _, label := range []string{"a", "b", "c", "d", "e"} {
		if err := d.InsertRow(ctx, "t1", database.Row{"label": label}); err != nil {
			t.Fatal(err)
		}
	}

	result, err := d.GetTableData(ctx, "t1", 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 5 {
		t.Errorf("total = %d, want 5", result.Total)
	}
	if len(result.Rows) != 2 || result.Rows[0]["label"] != "d" || result.Rows[1]["label"] != "e" {
		t.Errorf("page = %v", result.Rows)
	}

	if _, err := d.GetTableData(ctx, "t1", -1, 0); !database.IsValidation(err) {
		t.Errorf("negative limit: expected validation error, got %v", err)
	}
}

func TestEngineErrorsAreVerbatim(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)
	err := d.CreateTable(ctx, "people", []database.ColumnDef{
		{Name: "id", Type: "INTEGER", PrimaryKey: true},
		{Name: "email", Type: "TEXT", NotNull: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	err = d.InsertRow(ctx, "people", database.Row{"id": int64(1)})
	var engineErr *database.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if err.Error() != engineErr.Err.Error() {
		t.Errorf("message %q differs from engine text %q", err.Error(), engineErr.Err.Error())
	}

	if err := d.InsertRow(ctx, "missing", database.Row{"a": 1}); !errors.As(err, &engineErr) {
		t.Errorf("insert into missing table: expected engine error, got %v", err)
	}

	// The failed insert was rolled back.
	result, err := d.GetTableData(ctx, "people", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 0 {
		t.Errorf("total = %d after failed insert, want 0", result.Total)
	}
}

func TestAddColumn(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)
	createT1(t, d)

	if err := d.AddColumn(ctx, "t1", "note", "nonsense", "it's"); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := d.AddColumn(ctx, "t1", "qty", "INTEGER", nil); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := d.InsertRow(ctx, "t1", database.Row{"label": "z"}); err != nil {
		t.Fatal(err)
	}

	schema, err := d.GetTableSchema(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(schema) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(schema))
	}
	note := schema[2]
	if note.Name != "note" || note.DataType != "TEXT" {
		t.Errorf("note column = %+v", note)
	}
	if note.DefaultValue == nil || *note.DefaultValue != "'it''s'" {
		t.Errorf("note default = %v", note.DefaultValue)
	}

	result, err := d.GetTableData(ctx, "t1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Rows[0]["note"]; got != "it's" {
		t.Errorf("note = %#v, want it's", got)
	}
	if got := result.Rows[0]["qty"]; got != nil {
		t.Errorf("qty = %#v, want nil", got)
	}

	if err := d.AddColumn(ctx, "t1", "bad name", "TEXT", nil); !database.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExecuteQueryIsReadOnly(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)
	createT1(t, d)
	if err := d.InsertRow(ctx, "t1", database.Row{"label": "x"}); err != nil {
		t.Fatal(err)
	}

	if _, err := d.ExecuteQuery(ctx, "DELETE FROM t1"); !errors.Is(err, database.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}

	for _, q := range []string{
		"SELECT 1; DELETE FROM t1",
		"SELECT 1; PRAGMA query_only = OFF; DELETE FROM t1",
	} {
		if _, err := d.ExecuteQuery(ctx, q); !database.IsValidation(err) {
			t.Errorf("ExecuteQuery(%q) = %v, want validation error", q, err)
		}
	}

	// Even a statement that reaches the engine cannot write through the
	// read-only pool.
	if _, err := d.ro.ExecContext(ctx, "PRAGMA query_only = OFF"); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if _, err := d.ro.ExecContext(ctx, "DELETE FROM t1"); err == nil {
		t.Error("expected the read-only pool to refuse the DELETE")
	}

	result, err := d.ExecuteQuery(ctx, "SELECT * FROM t1")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if result.RowCount != 1 || result.Rows[0]["label"] != "x" {
		t.Fatalf("rows = %v", result.Rows)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "id" || result.Columns[1] != "label" {
		t.Errorf("columns = %v", result.Columns)
	}

	if err := d.InsertRow(ctx, "t1", database.Row{"label": "w"}); err != nil {
		t.Fatalf("insert after query: %v", err)
	}
	result, err = d.GetTableData(ctx, "t1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 2 {
		t.Errorf("total = %d, want 2", result.Total)
	}

	if _, err := d.ExecuteQuery(ctx, "SELECT * FROM nope"); err == nil {
		t.Error("expected engine error for missing table")
	}
}

func TestDropTable(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	if err := d.DropTable(ctx, "nonexistent"); err != nil {
		t.Fatalf("drop missing table: %v", err)
	}

	createT1(t, d)
	if err := d.DropTable(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	tables, err := d.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 0 {
		t.Errorf("tables = %v after drop", tables)
	}

	if err := d.DropTable(ctx, "t1; DROP TABLE x"); !database.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestConnectCreatesFile(t *testing.T) {
	d := newTestDriver(t)
	if err := d.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.Backend() != database.BackendSQLite {
		t.Errorf("backend = %s", d.Backend())
	}
	if filepath.Base(d.DatabaseName()) != "test.db" {
		t.Errorf("database name = %s", d.DatabaseName())
	}
}
