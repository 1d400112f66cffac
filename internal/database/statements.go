package database

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Statement is SQL text plus its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Dialect renders statements for one backend. Every identifier that ends up
// in SQL text passes through a Dialect method that validates it first.
type Dialect struct {
	backend Backend
	schema  string
}

// SQLiteDialect returns the dialect of the embedded engine.
func SQLiteDialect() Dialect {
	return Dialect{backend: BackendSQLite}
}

// PostgresDialect returns the dialect of the client-server engine, with
// table names qualified by schema when it is set.
func PostgresDialect(schema string) Dialect {
	return Dialect{backend: BackendPostgres, schema: schema}
}

// Backend returns the dialect's engine.
func (d Dialect) Backend() Backend {
	return d.backend
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.backend == BackendPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent double-quotes an already validated identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d Dialect) table(name string) (string, error) {
	if err := checkTable(name); err != nil {
		return "", err
	}
	if d.schema != "" {
		return QuoteIdent(d.schema) + "." + QuoteIdent(name), nil
	}
	return QuoteIdent(name), nil
}

func (d Dialect) column(name string) (string, error) {
	if err := checkColumn(name); err != nil {
		return "", err
	}
	return QuoteIdent(name), nil
}

// CreateTable builds a CREATE TABLE IF NOT EXISTS statement. Column types
// must be one of the logical types; blank column names are skipped.
func (d Dialect) CreateTable(table string, columns []ColumnDef) (string, error) {
	if strings.TrimSpace(table) == "" || len(columns) == 0 {
		return "", invalid("table", "Table name and at least one column are required")
	}
	qtable, err := d.table(table)
	if err != nil {
		return "", err
	}

	type colSpec struct {
		def ColumnDef
		typ LogicalType
	}
	var specs []colSpec
	pkCount := 0
	for _, col := range columns {
		name := strings.TrimSpace(col.Name)
		if name == "" {
			continue
		}
		if err := checkColumn(name); err != nil {
			return "", err
		}

		typ := TypeText
		if strings.TrimSpace(col.Type) != "" {
			lt, ok := ParseLogicalType(col.Type)
			if !ok {
				return "", invalid("type", fmt.Sprintf("Invalid column type %q. Must be one of: %s",
					strings.ToUpper(strings.TrimSpace(col.Type)), logicalTypeNames()))
			}
			typ = lt
		}

		col.Name = name
		if col.PrimaryKey {
			pkCount++
		}
		specs = append(specs, colSpec{def: col, typ: typ})
	}

	if len(specs) == 0 {
		return "", invalid("columns", "At least one column required")
	}

	defs := make([]string, len(specs))
	for i, s := range specs {
		var b strings.Builder
		b.WriteString(QuoteIdent(s.def.Name))
		b.WriteString(" ")
		b.WriteString(nativeType(s.typ, d.backend))
		if s.def.PrimaryKey {
			// Keep a lone INTEGER key auto-assigned on both engines, the way
			// SQLite aliases it to the rowid.
			if d.backend == BackendPostgres && s.typ == TypeInteger && pkCount == 1 {
				b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
			}
			b.WriteString(" PRIMARY KEY")
		}
		if s.def.NotNull {
			b.WriteString(" NOT NULL")
		}
		if s.def.DefaultValue != nil {
			b.WriteString(" DEFAULT ")
			b.WriteString(FormatLiteral(s.def.DefaultValue))
		}
		defs[i] = b.String()
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qtable, strings.Join(defs, ", ")), nil
}

// DropTable builds a DROP TABLE IF EXISTS statement.
func (d Dialect) DropTable(table string) (string, error) {
	qtable, err := d.table(table)
	if err != nil {
		return "", err
	}
	return "DROP TABLE IF EXISTS " + qtable, nil
}

// AddColumn builds an ALTER TABLE ... ADD COLUMN statement. Unknown types
// fall back to TEXT.
func (d Dialect) AddColumn(table, column, columnType string, defaultValue any) (string, error) {
	qtable, err := d.table(table)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(column) == "" {
		return "", invalid("column", "Column name is required")
	}
	qcol, err := d.column(column)
	if err != nil {
		return "", err
	}

	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", qtable, qcol, MapType(columnType, d.backend))
	if defaultValue != nil {
		sql += " DEFAULT " + FormatLiteral(defaultValue)
	}
	return sql, nil
}

// CountRows builds the COUNT(*) query used for pagination totals.
func (d Dialect) CountRows(table string) (string, error) {
	qtable, err := d.table(table)
	if err != nil {
		return "", err
	}
	return "SELECT COUNT(*) FROM " + qtable, nil
}

// SelectPage builds a paginated SELECT * with limit and offset bound.
func (d Dialect) SelectPage(table string, limit, offset int) (Statement, error) {
	qtable, err := d.table(table)
	if err != nil {
		return Statement{}, err
	}
	if limit < 0 || offset < 0 {
		return Statement{}, invalid("limit", "limit and offset must not be negative")
	}
	return Statement{
		SQL:  fmt.Sprintf("SELECT * FROM %s LIMIT %s OFFSET %s", qtable, d.Placeholder(1), d.Placeholder(2)),
		Args: []any{limit, offset},
	}, nil
}

// Insert builds an INSERT with one placeholder per key of data. Keys are
// sorted so the same row always produces the same statement.
func (d Dialect) Insert(table string, data Row) (Statement, error) {
	qtable, err := d.table(table)
	if err != nil {
		return Statement{}, err
	}
	if len(data) == 0 {
		return Statement{SQL: "INSERT INTO " + qtable + " DEFAULT VALUES"}, nil
	}

	keys := sortedKeys(data)
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		qcol, err := d.column(k)
		if err != nil {
			return Statement{}, err
		}
		cols[i] = qcol
		marks[i] = d.Placeholder(i + 1)
		args[i] = data[k]
	}

	return Statement{
		SQL:  fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qtable, strings.Join(cols, ", "), strings.Join(marks, ", ")),
		Args: args,
	}, nil
}

// Update builds an UPDATE matching idColumn = id.
func (d Dialect) Update(table string, id any, data Row, idColumn string) (Statement, error) {
	qtable, err := d.table(table)
	if err != nil {
		return Statement{}, err
	}
	qid, err := d.column(idColumnOrDefault(idColumn))
	if err != nil {
		return Statement{}, err
	}
	if len(data) == 0 {
		return Statement{}, invalid("data", "At least one column to update is required")
	}

	keys := sortedKeys(data)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		qcol, err := d.column(k)
		if err != nil {
			return Statement{}, err
		}
		sets[i] = qcol + " = " + d.Placeholder(i+1)
		args = append(args, data[k])
	}
	args = append(args, id)

	return Statement{
		SQL:  fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", qtable, strings.Join(sets, ", "), qid, d.Placeholder(len(keys)+1)),
		Args: args,
	}, nil
}

// Delete builds a DELETE matching idColumn = id.
func (d Dialect) Delete(table string, id any, idColumn string) (Statement, error) {
	qtable, err := d.table(table)
	if err != nil {
		return Statement{}, err
	}
	qid, err := d.column(idColumnOrDefault(idColumn))
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s = %s", qtable, qid, d.Placeholder(1)),
		Args: []any{id},
	}, nil
}

// CheckReadOnly rejects anything that does not start with SELECT, and
// text holding more than one statement. A trailing semicolon is allowed.
func CheckReadOnly(query string) error {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
		return ErrReadOnly
	}
	if end := statementEnd(query); end >= 0 && strings.Trim(query[end+1:], " \t\r\n;") != "" {
		return invalid("query", "Only one statement can be executed at a time")
	}
	return nil
}

// statementEnd returns the index of the first semicolon outside quotes and
// comments, or -1.
func statementEnd(query string) int {
	for i := 0; i < len(query); i++ {
		switch c := query[i]; {
		case c == ';':
			return i
		case c == '\'' || c == '"' || c == '`':
			j := strings.IndexByte(query[i+1:], c)
			if j < 0 {
				return -1
			}
			i += j + 1
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			j := strings.IndexByte(query[i:], '\n')
			if j < 0 {
				return -1
			}
			i += j
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			j := strings.Index(query[i+2:], "*/")
			if j < 0 {
				return -1
			}
			i += j + 3
		}
	}
	return -1
}

// DefaultIDColumn is the row identifier column used when none is given.
const DefaultIDColumn = "id"

func idColumnOrDefault(c string) string {
	if c == "" {
		return DefaultIDColumn
	}
	return c
}

func sortedKeys(data Row) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
