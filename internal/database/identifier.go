package database

// ValidIdentifier reports whether s is safe to interpolate into SQL text as a
// table or column name. Once underscores and dollar signs are removed, what
// remains must be non-empty and made only of ASCII letters and digits.
func ValidIdentifier(s string) bool {
	alnum := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			alnum++
		default:
			return false
		}
	}
	return alnum > 0
}

func checkTable(name string) error {
	if name == "" {
		return invalid("table", "Table name is required")
	}
	if !ValidIdentifier(name) {
		return invalid("table", "Table name must contain only alphanumeric characters, underscores, or dollar signs")
	}
	return nil
}

func checkColumn(name string) error {
	if !ValidIdentifier(name) {
		return invalid("column", `Column name "`+name+`" must contain only alphanumeric characters, underscores, or dollar signs`)
	}
	return nil
}
