package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/joacominatel/dashtools/internal/app"
	"github.com/joacominatel/dashtools/internal/database"
)

const maxBodyBytes = 4 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"backend": s.service.Backend().String(),
	}
	if err := s.service.Ping(r.Context()); err != nil {
		s.logger.Printf("[%s] health: %v", RequestID(r.Context()), err)
		resp["status"] = "unavailable"
		resp["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPlugins(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Plugins())
}

func (s *Server) handleGetPlugin(w http.ResponseWriter, r *http.Request) {
	plugin, ok := PluginByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Plugin not found")
		return
	}
	writeJSON(w, http.StatusOK, plugin)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.service.ListTables(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	columns, err := s.service.TableSchema(r.Context(), r.PathValue("table"))
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": columns})
}

type columnRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PrimaryKey   bool   `json:"primary_key"`
	NotNull      bool   `json:"not_null"`
	DefaultValue any    `json:"default_value"`
}

type createTableRequest struct {
	Name    string          `json:"name"`
	Columns []columnRequest `json:"columns"`
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	var req createTableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Table name is required")
		return
	}

	columns := make([]database.ColumnDef, 0, len(req.Columns))
	for _, c := range req.Columns {
		def, err := scalar(c.DefaultValue)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Column %q: default_value: %v", c.Name, err))
			return
		}
		columns = append(columns, database.ColumnDef{
			Name:         c.Name,
			Type:         c.Type,
			PrimaryKey:   c.PrimaryKey,
			NotNull:      c.NotNull,
			DefaultValue: def,
		})
	}

	if err := s.service.CreateTable(r.Context(), req.Name, columns); err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Table %s created", req.Name)})
}

func (s *Server) handleDropTable(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if err := s.service.DropTable(r.Context(), table); err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Table %s dropped", table)})
}

type addColumnRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	DefaultValue any    `json:"default_value"`
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req addColumnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Column name is required")
		return
	}
	if req.Type == "" {
		req.Type = string(database.TypeText)
	}
	def, err := scalar(req.DefaultValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "default_value: "+err.Error())
		return
	}

	if err := s.service.AddColumn(r.Context(), r.PathValue("table"), req.Name, req.Type, def); err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Column %s added", req.Name)})
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", app.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.TableData(r.Context(), r.PathValue("table"), limit, offset)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   result.Rows,
		"total":  result.Total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := toRow(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.InsertRow(r.Context(), r.PathValue("table"), row); err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Row inserted"})
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	idColumn := database.DefaultIDColumn
	if v, ok := body["id_column"]; ok {
		col, isString := v.(string)
		if !isString {
			writeError(w, http.StatusBadRequest, "id_column must be a string")
			return
		}
		idColumn = col
		delete(body, "id_column")
	}

	row, err := toRow(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	matched, err := s.service.UpdateRow(r.Context(), r.PathValue("table"), r.PathValue("id"), row, idColumn)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "Row not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Row updated"})
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	idColumn := r.URL.Query().Get("id_column")
	if idColumn == "" {
		idColumn = database.DefaultIDColumn
	}

	matched, err := s.service.DeleteRow(r.Context(), r.PathValue("table"), r.PathValue("id"), idColumn)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "Row not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Row deleted"})
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	result, err := s.service.ExecuteQuery(r.Context(), req.Query)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns": result.Columns,
		"data":    result.Rows,
	})
}

// fail maps err to a status code. Engine failures use engineStatus since
// read and write routes report them differently.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, engineStatus int) {
	var (
		connErr   *app.ErrConnection
		engineErr *database.EngineError
	)
	status := http.StatusInternalServerError
	switch {
	case database.IsValidation(err):
		status = http.StatusBadRequest
	case errors.As(err, &connErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &engineErr):
		status = engineStatus
	}
	if status >= http.StatusInternalServerError || engineErr != nil {
		s.logger.Printf("[%s] %s %s: %v", RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("Request body is required")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// toRow converts decoded JSON into bindable scalars.
func toRow(body map[string]any) (database.Row, error) {
	row := make(database.Row, len(body))
	for k, v := range body {
		sv, err := scalar(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		row[k] = sv
	}
	return row, nil
}

func scalar(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool:
		return t, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", t)
		}
		return f, nil
	default:
		return nil, errors.New("value must be a string, number, boolean or null")
	}
}
