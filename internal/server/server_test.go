package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/joacominatel/dashtools/internal/app"
	"github.com/joacominatel/dashtools/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{Database: config.Database{Type: "sqlite", Path: filepath.Join(t.TempDir(), "api.db")}}
	adapter, err := app.OpenAdapter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenAdapter: %v", err)
	}
	service := app.NewService(adapter)
	t.Cleanup(func() { service.Close() })

	srv := New(service, log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func createT1(t *testing.T, ts *httptest.Server) {
	t.Helper()
	status, body := do(t, ts, http.MethodPost, "/api/db/tables", map[string]any{
		"name": "t1",
		"columns": []map[string]any{
			{"name": "id", "type": "INTEGER", "primary_key": true},
			{"name": "label", "type": "TEXT"},
		},
	})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("create table: %d %v", status, body)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	status, body := do(t, ts, http.MethodGet, "/api/health", nil)
	if status != http.StatusOK || body["status"] != "ok" || body["backend"] != "sqlite" {
		t.Errorf("health = %d %v", status, body)
	}
}

func TestPlugins(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/plugins")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list []Plugin
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("plugins = %v", list)
	}

	status, body := do(t, ts, http.MethodGet, "/api/plugins/database-admin", nil)
	if status != http.StatusOK || body["id"] != "database-admin" {
		t.Errorf("plugin = %d %v", status, body)
	}
	status, _ = do(t, ts, http.MethodGet, "/api/plugins/nope", nil)
	if status != http.StatusNotFound {
		t.Errorf("missing plugin status = %d", status)
	}
}

func TestTableLifecycle(t *testing.T) {
	ts := newTestServer(t)
	createT1(t, ts)

	status, body := do(t, ts, http.MethodGet, "/api/db/tables", nil)
	if status != http.StatusOK {
		t.Fatalf("list: %d", status)
	}
	if tables, _ := body["tables"].([]any); len(tables) != 1 || tables[0] != "t1" {
		t.Errorf("tables = %v", body["tables"])
	}

	status, body = do(t, ts, http.MethodGet, "/api/db/tables/t1/schema", nil)
	schema, _ := body["schema"].([]any)
	if status != http.StatusOK || len(schema) != 2 {
		t.Fatalf("schema: %d %v", status, body)
	}
	first := schema[0].(map[string]any)
	if first["name"] != "id" || first["pk"] != true {
		t.Errorf("first column = %v", first)
	}

	status, body = do(t, ts, http.MethodPost, "/api/db/tables/t1/columns", map[string]any{
		"name": "qty", "type": "INTEGER", "default_value": 0,
	})
	if status != http.StatusOK {
		t.Fatalf("add column: %d %v", status, body)
	}

	status, body = do(t, ts, http.MethodPost, "/api/db/tables/t1/rows", map[string]any{"label": "x"})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("insert: %d %v", status, body)
	}

	status, body = do(t, ts, http.MethodGet, "/api/db/tables/t1/data?limit=10", nil)
	if status != http.StatusOK {
		t.Fatalf("data: %d %v", status, body)
	}
	rows, _ := body["data"].([]any)
	if len(rows) != 1 || body["total"] != float64(1) || body["limit"] != float64(10) || body["offset"] != float64(0) {
		t.Fatalf("data = %v", body)
	}
	row := rows[0].(map[string]any)
	if row["label"] != "x" || row["qty"] != float64(0) {
		t.Errorf("row = %v", row)
	}

	status, _ = do(t, ts, http.MethodPut, "/api/db/tables/t1/rows/999", map[string]any{"label": "y"})
	if status != http.StatusNotFound {
		t.Errorf("update missing: %d", status)
	}
	status, body = do(t, ts, http.MethodPut, "/api/db/tables/t1/rows/1", map[string]any{"label": "y", "id_column": "id"})
	if status != http.StatusOK {
		t.Errorf("update: %d %v", status, body)
	}

	status, body = do(t, ts, http.MethodPost, "/api/db/query", map[string]any{"query": "SELECT label FROM t1"})
	if status != http.StatusOK {
		t.Fatalf("query: %d %v", status, body)
	}
	if data, _ := body["data"].([]any); len(data) != 1 || data[0].(map[string]any)["label"] != "y" {
		t.Errorf("query data = %v", body["data"])
	}

	status, _ = do(t, ts, http.MethodDelete, "/api/db/tables/t1/rows/999", nil)
	if status != http.StatusNotFound {
		t.Errorf("delete missing: %d", status)
	}
	status, _ = do(t, ts, http.MethodDelete, "/api/db/tables/t1/rows/1?id_column=id", nil)
	if status != http.StatusOK {
		t.Errorf("delete: %d", status)
	}

	status, _ = do(t, ts, http.MethodDelete, "/api/db/tables/t1", nil)
	if status != http.StatusOK {
		t.Errorf("drop: %d", status)
	}
	status, _ = do(t, ts, http.MethodDelete, "/api/db/tables/nonexistent", nil)
	if status != http.StatusOK {
		t.Errorf("drop missing: %d", status)
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)
	createT1(t, ts)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"no columns", http.MethodPost, "/api/db/tables", map[string]any{"name": "t2", "columns": []any{}}, http.StatusBadRequest},
		{"no name", http.MethodPost, "/api/db/tables", map[string]any{"columns": []any{map[string]any{"name": "a"}}}, http.StatusBadRequest},
		{"bad table name", http.MethodPost, "/api/db/tables", map[string]any{"name": "t;2", "columns": []any{map[string]any{"name": "a"}}}, http.StatusBadRequest},
		{"bad type", http.MethodPost, "/api/db/tables", map[string]any{"name": "t2", "columns": []any{map[string]any{"name": "a", "type": "DATE"}}}, http.StatusBadRequest},
		{"bad column name", http.MethodPost, "/api/db/tables/t1/columns", map[string]any{"name": "a b"}, http.StatusBadRequest},
		{"missing column name", http.MethodPost, "/api/db/tables/t1/columns", map[string]any{"type": "TEXT"}, http.StatusBadRequest},
		{"nested value", http.MethodPost, "/api/db/tables/t1/rows", map[string]any{"label": []any{1}}, http.StatusBadRequest},
		{"unknown column", http.MethodPost, "/api/db/tables/t1/rows", map[string]any{"nope": 1}, http.StatusBadRequest},
		{"empty update", http.MethodPut, "/api/db/tables/t1/rows/1", map[string]any{}, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/db/tables/t1/data?limit=abc", nil, http.StatusBadRequest},
		{"negative offset", http.MethodGet, "/api/db/tables/t1/data?offset=-1", nil, http.StatusBadRequest},
		{"bad data table", http.MethodGet, "/api/db/tables/t%3B1/data", nil, http.StatusBadRequest},
		{"missing data table", http.MethodGet, "/api/db/tables/missing/data", nil, http.StatusInternalServerError},
		{"write query", http.MethodPost, "/api/db/query", map[string]any{"query": "DELETE FROM t1"}, http.StatusBadRequest},
		{"empty query", http.MethodPost, "/api/db/query", map[string]any{"query": "  "}, http.StatusBadRequest},
		{"failing query", http.MethodPost, "/api/db/query", map[string]any{"query": "SELECT * FROM missing"}, http.StatusBadRequest},
		{"multiple statements", http.MethodPost, "/api/db/query", map[string]any{"query": "SELECT 1; PRAGMA query_only = OFF; DELETE FROM t1"}, http.StatusBadRequest},
		{"nested default", http.MethodPost, "/api/db/tables/t1/columns", map[string]any{"name": "a", "default_value": map[string]any{}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, ts, tt.method, tt.path, tt.body)
			if status != tt.want {
				t.Errorf("status = %d, want %d (%v)", status, tt.want, body)
			}
			if msg, _ := body["error"].(string); msg == "" {
				t.Errorf("missing error message: %v", body)
			}
		})
	}
}

func TestTextKeysAndDefaults(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/api/db/tables", map[string]any{
		"name": "codes",
		"columns": []any{
			map[string]any{"name": "code", "type": "TEXT", "primary_key": true},
			map[string]any{"name": "flag", "type": "TEXT", "default_value": "true"},
			map[string]any{"name": "enabled", "type": "INTEGER", "default_value": true},
		},
	})
	if status != http.StatusOK {
		t.Fatalf("create: %d %v", status, body)
	}

	for _, code := range []any{"007", 8} {
		status, body = do(t, ts, http.MethodPost, "/api/db/tables/codes/rows", map[string]any{"code": code})
		if status != http.StatusOK {
			t.Fatalf("insert %v: %d %v", code, status, body)
		}
	}

	status, body = do(t, ts, http.MethodGet, "/api/db/tables/codes/data", nil)
	if status != http.StatusOK {
		t.Fatalf("data: %d %v", status, body)
	}
	rows, _ := body["data"].([]any)
	if len(rows) != 2 {
		t.Fatalf("data = %v", body)
	}
	first := rows[0].(map[string]any)
	if first["code"] != "007" || first["flag"] != "true" || first["enabled"] != float64(1) {
		t.Errorf("first row = %v", first)
	}
	if second := rows[1].(map[string]any); second["code"] != "8" {
		t.Errorf("second row = %v", second)
	}

	status, body = do(t, ts, http.MethodPut, "/api/db/tables/codes/rows/007", map[string]any{"flag": "no", "id_column": "code"})
	if status != http.StatusOK {
		t.Errorf("update 007: %d %v", status, body)
	}
	status, body = do(t, ts, http.MethodDelete, "/api/db/tables/codes/rows/007?id_column=code", nil)
	if status != http.StatusOK {
		t.Errorf("delete 007: %d %v", status, body)
	}
	status, _ = do(t, ts, http.MethodDelete, "/api/db/tables/codes/rows/7?id_column=code", nil)
	if status != http.StatusNotFound {
		t.Errorf("delete 7: %d, want 404", status)
	}
}

func TestCreateTableNeedsJSON(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/db/tables", "text/plain", bytes.NewBufferString(`{"name":"t"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestMiddleware(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/db/tables", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Errorf("missing request id")
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestStartShutdown(t *testing.T) {
	cfg := &config.Config{Database: config.Database{Type: "sqlite", Path: filepath.Join(t.TempDir(), "s.db")}}
	adapter, err := app.OpenAdapter(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	service := app.NewService(adapter)
	defer service.Close()

	srv := New(service, log.New(io.Discard, "", 0))
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := <-srv.Done(); err != nil {
		t.Errorf("serve returned %v", err)
	}
}
