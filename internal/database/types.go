package database

import (
	"fmt"
	"strings"
)

// Backend identifies an engine implementation.
type Backend int

const (
	BackendSQLite Backend = iota
	BackendPostgres
)

func (b Backend) String() string {
	switch b {
	case BackendSQLite:
		return "sqlite"
	case BackendPostgres:
		return "postgresql"
	default:
		return "unknown"
	}
}

// DefaultPostgresSchema is the schema used when none is configured.
const DefaultPostgresSchema = "public"

// ParseBackend maps a configured engine name to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return BackendSQLite, nil
	case "postgres", "postgresql", "pg":
		return BackendPostgres, nil
	default:
		return 0, fmt.Errorf("unsupported database type: %s", s)
	}
}

// LogicalType is one of the engine-neutral column types.
type LogicalType string

const (
	TypeText    LogicalType = "TEXT"
	TypeInteger LogicalType = "INTEGER"
	TypeReal    LogicalType = "REAL"
	TypeBlob    LogicalType = "BLOB"
	TypeNumeric LogicalType = "NUMERIC"
)

// LogicalTypes lists the accepted logical types in display order.
var LogicalTypes = []LogicalType{TypeText, TypeInteger, TypeReal, TypeBlob, TypeNumeric}

// ParseLogicalType normalizes s and reports whether it names a logical type.
func ParseLogicalType(s string) (LogicalType, bool) {
	t := LogicalType(strings.ToUpper(strings.TrimSpace(s)))
	for _, lt := range LogicalTypes {
		if t == lt {
			return lt, true
		}
	}
	return TypeText, false
}

// MapType returns the backend's native keyword for a logical type.
// Unrecognized input falls back to TEXT.
func MapType(logical string, backend Backend) string {
	lt, _ := ParseLogicalType(logical)
	return nativeType(lt, backend)
}

func nativeType(lt LogicalType, backend Backend) string {
	if backend == BackendPostgres && lt == TypeBlob {
		return "BYTEA"
	}
	return string(lt)
}

func logicalTypeNames() string {
	names := make([]string, len(LogicalTypes))
	for i, lt := range LogicalTypes {
		names[i] = string(lt)
	}
	return strings.Join(names, ", ")
}
