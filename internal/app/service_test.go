package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/joacominatel/dashtools/internal/config"
	"github.com/joacominatel/dashtools/internal/database"
	"github.com/zalando/go-keyring"
)

func newSQLiteService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{Database: config.Database{Type: "sqlite", Path: filepath.Join(t.TempDir(), "app.db")}}
	adapter, err := OpenAdapter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenAdapter: %v", err)
	}
	s := NewService(adapter)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAdapter(t *testing.T) {
	s := newSQLiteService(t)
	if s.Backend() != database.BackendSQLite {
		t.Errorf("backend = %s", s.Backend())
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	var cfgErr *ErrConfig
	_, err := OpenAdapter(context.Background(), &config.Config{Database: config.Database{Type: "oracle", Path: "x"}})
	if !errors.As(err, &cfgErr) {
		t.Errorf("unknown engine: got %v, want ErrConfig", err)
	}

	var connErr *ErrConnection
	_, err = OpenAdapter(context.Background(), &config.Config{
		Database: config.Database{Type: "postgresql"},
		Postgres: config.Postgres{Host: "127.0.0.1", Port: 1, Database: "none", SSLMode: "disable"},
	})
	if !errors.As(err, &connErr) {
		t.Errorf("unreachable server: got %v, want ErrConnection", err)
	}
}

func TestOpenAdapterKeyring(t *testing.T) {
	keyring.MockInit()

	cfg := &config.Config{
		Database: config.Database{Type: "sqlite", Path: filepath.Join(t.TempDir(), "app.db")},
		Postgres: config.Postgres{User: "nobody", Keyring: true},
	}
	adapter, err := OpenAdapter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("sqlite with keyring flag: %v", err)
	}
	adapter.Close()

	var cfgErr *ErrConfig
	_, err = OpenAdapter(context.Background(), &config.Config{
		Database: config.Database{Type: "postgresql"},
		Postgres: config.Postgres{Host: "127.0.0.1", Port: 1, User: "nobody", Database: "none", Keyring: true},
	})
	if !errors.As(err, &cfgErr) {
		t.Errorf("missing keyring entry: got %v, want ErrConfig", err)
	}
}

func TestServiceDefaults(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteService(t)

	err := s.CreateTable(ctx, "items", []database.ColumnDef{
		{Name: "id", Type: "INTEGER", PrimaryKey: true},
		{Name: "name"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < DefaultPageSize+5; i++ {
		if err := s.InsertRow(ctx, "items", database.Row{"name": "n"}); err != nil {
			t.Fatal(err)
		}
	}

	result, err := s.TableData(ctx, "items", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != DefaultPageSize || result.Total != DefaultPageSize+5 {
		t.Errorf("rows = %d, total = %d", len(result.Rows), result.Total)
	}

	ok, err := s.UpdateRow(ctx, "items", int64(1), database.Row{"name": "first"}, "")
	if err != nil || !ok {
		t.Errorf("UpdateRow = %v, %v", ok, err)
	}
	ok, err = s.DeleteRow(ctx, "items", int64(2), "")
	if err != nil || !ok {
		t.Errorf("DeleteRow = %v, %v", ok, err)
	}
}

func TestExecuteQueryErrors(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteService(t)

	_, err := s.ExecuteQuery(ctx, "DROP TABLE x")
	if !errors.Is(err, database.ErrReadOnly) {
		t.Errorf("got %v, want ErrReadOnly", err)
	}

	_, err = s.ExecuteQuery(ctx, "SELECT * FROM missing")
	var qerr *ErrQuery
	if !errors.As(err, &qerr) {
		t.Fatalf("got %v, want ErrQuery", err)
	}
	var engineErr *database.EngineError
	if !errors.As(err, &engineErr) || err.Error() != engineErr.Error() {
		t.Errorf("query error should carry the engine text, got %q", err)
	}
}
