package database

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatLiteral renders a DEFAULT value as a SQL literal. nil becomes NULL,
// booleans TRUE or FALSE and numbers are emitted bare. Strings are always
// single-quoted with embedded quotes doubled, so "true" stays text.
func FormatLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return quoteLiteral(strconv.FormatFloat(t, 'g', -1, 64))
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return quoteLiteral(t)
	default:
		return quoteLiteral(fmt.Sprint(t))
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
