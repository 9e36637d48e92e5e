package record

import "strings"

// quoteIdent quotes a table or column name for SQL. Values never pass
// through here; they are always bound as ? arguments.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// placeholders returns n comma-separated ? markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// columnList returns every attribute column, quoted, in attribute order.
func (e *EntityType) columnList() string {
	cols := make([]string, len(e.attrs))
	for i, attr := range e.attrs {
		cols[i] = quoteIdent(attr.Name)
	}
	return strings.Join(cols, ", ")
}
