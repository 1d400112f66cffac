package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/joacominatel/dashtools/internal/database"
)

// Config represents the application configuration.
type Config struct {
	Database Database `mapstructure:"database" yaml:"database"`
	Postgres Postgres `mapstructure:"postgres" yaml:"postgres"`
	Server   Server   `mapstructure:"server" yaml:"server"`
}

// Database selects the engine. Path is only used by the embedded engine.
type Database struct {
	Type string `mapstructure:"type" yaml:"type"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Postgres holds the client-server engine connection parameters.
type Postgres struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"db" yaml:"db"`
	Schema   string `mapstructure:"schema" yaml:"schema"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
	// Keyring reads the password from the OS keyring instead of Password.
	Keyring bool `mapstructure:"keyring" yaml:"keyring"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Backend returns the configured engine.
func (c *Config) Backend() (database.Backend, error) {
	return database.ParseBackend(c.Database.Type)
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	backend, err := c.Backend()
	if err != nil {
		return err
	}
	switch backend {
	case database.BackendSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case database.BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("postgres.host and postgres.db are required")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			return fmt.Errorf("invalid postgres.port: %d", c.Postgres.Port)
		}
		if c.Postgres.Schema != "" && !database.ValidIdentifier(c.Postgres.Schema) {
			return fmt.Errorf("invalid postgres.schema: %q", c.Postgres.Schema)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s Server) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// DSN builds a PostgreSQL connection string from the connection parameters.
func (c Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgresql",
		Host:   c.Host,
		Path:   "/" + c.Database,
	}
	if c.Port > 0 {
		u.Host += ":" + strconv.Itoa(c.Port)
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

// DisplayString returns a human-readable summary of the connection,
// without the password.
func (c Postgres) DisplayString() string {
	s := c.Host
	if c.Port > 0 {
		s += ":" + strconv.Itoa(c.Port)
	}
	s += "/" + c.Database
	if c.User != "" {
		s = c.User + "@" + s
	}
	return s
}

// ParseDSN parses a PostgreSQL connection string into connection parameters.
func ParseDSN(dsn string) (Postgres, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Postgres{}, fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Postgres{}, fmt.Errorf("invalid DSN: unsupported scheme %q", u.Scheme)
	}

	conn := Postgres{
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
		Schema:   database.DefaultPostgresSchema,
	}

	if u.User != nil {
		conn.User = u.User.Username()
		if p, ok := u.User.Password(); ok {
			conn.Password = p
		}
	}

	if portStr := u.Port(); portStr != "" {
		conn.Port, _ = strconv.Atoi(portStr)
	}
	if conn.Port == 0 {
		conn.Port = 5432
	}

	return conn, nil
}
