// Package server exposes the application service over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/joacominatel/dashtools/internal/app"
)

// Server is the HTTP front end of the database admin API.
type Server struct {
	service  *app.Service
	logger   *log.Logger
	httpSrv  *http.Server
	listener net.Listener
	done     chan error
}

// New creates a server for service. A nil logger uses the standard logger.
func New(service *app.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		service: service,
		logger:  logger,
	}
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/plugins", s.handleListPlugins)
	mux.HandleFunc("GET /api/plugins/{id}", s.handleGetPlugin)

	mux.HandleFunc("GET /api/db/tables", s.handleListTables)
	mux.HandleFunc("POST /api/db/tables", s.handleCreateTable)
	mux.HandleFunc("DELETE /api/db/tables/{table}", s.handleDropTable)
	mux.HandleFunc("GET /api/db/tables/{table}/schema", s.handleTableSchema)
	mux.HandleFunc("POST /api/db/tables/{table}/columns", s.handleAddColumn)
	mux.HandleFunc("GET /api/db/tables/{table}/data", s.handleTableData)
	mux.HandleFunc("POST /api/db/tables/{table}/rows", s.handleInsertRow)
	mux.HandleFunc("PUT /api/db/tables/{table}/rows/{id}", s.handleUpdateRow)
	mux.HandleFunc("DELETE /api/db/tables/{table}/rows/{id}", s.handleDeleteRow)
	mux.HandleFunc("POST /api/db/query", s.handleQuery)

	return s.withRequestID(s.withLogging(s.withRecover(withCORS(mux))))
}

// Start begins listening on addr and serves in the background.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan error, 1)

	s.logger.Printf("HTTP server listening on %s", listener.Addr())

	go func() {
		err := s.httpSrv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Done reports the serve loop's exit error, nil after a clean shutdown.
func (s *Server) Done() <-chan error {
	return s.done
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
