package database

import "time"

// ColumnDef describes a column to create. It is only used when a table is
// created; existing tables are described by Column.
type ColumnDef struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key"`
	NotNull    bool   `json:"not_null"`

	// DefaultValue is rendered by FormatLiteral; nil omits the DEFAULT clause.
	DefaultValue any `json:"default_value,omitempty"`
}

// Column represents a table column with its metadata, as reported by the
// engine catalog.
type Column struct {
	Position     int     `json:"cid"`
	Name         string  `json:"name"`
	DataType     string  `json:"type"`
	NotNull      bool    `json:"notnull"`
	DefaultValue *string `json:"default_value"`
	IsPrimary    bool    `json:"pk"`
}

// Row maps column names to scalar values.
type Row map[string]any

// QueryResult holds rows read from a table or returned by a SELECT.
type QueryResult struct {
	Columns  []string
	Rows     []Row
	RowCount int
	// Total is the COUNT(*) of the whole table for paginated reads.
	Total    int64
	Duration time.Duration
}
