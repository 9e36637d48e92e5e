package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/records/pkg/types"
)

// tableInfoQuery reads column metadata through the pragma_table_info
// table-valued function so the table name can be bound as a parameter.
const tableInfoQuery = `SELECT name, type, "notnull", dflt_value IS NOT NULL, pk
FROM pragma_table_info(?)
ORDER BY cid`

// TableInfo returns the columns of table in declaration order, with each
// declared type resolved to a value type. A missing table yields no columns.
func (p *Pool) TableInfo(ctx context.Context, table string) ([]types.Column, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, tableInfoQuery, table)
	if err != nil {
		return nil, fmt.Errorf("reading table info for %s: %w", table, err)
	}

	columns := make([]types.Column, 0, rows.Len())
	for _, row := range rows.Values {
		col, err := columnFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("reading table info for %s: %w", table, err)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// columnFromRow hydrates one pragma_table_info row.
func columnFromRow(row []any) (types.Column, error) {
	if len(row) != 5 {
		return types.Column{}, fmt.Errorf("unexpected table info row width %d", len(row))
	}
	name, ok := asString(row[0])
	if !ok {
		return types.Column{}, fmt.Errorf("unexpected column name %T", row[0])
	}
	declType, _ := asString(row[1])
	return types.Column{
		Name:       name,
		DeclType:   declType,
		Type:       ResolveType(declType),
		NotNull:    asInt(row[2]) != 0,
		HasDefault: asInt(row[3]) != 0,
		PrimaryKey: int(asInt(row[4])),
	}, nil
}

// ResolveType maps a declared SQL column type to a value type. The rules
// follow SQLite's type affinity with two additions: BOOL* declares a boolean
// and DATE/TIME declares a timestamp. Unresolvable types yield "".
func ResolveType(declType string) types.ValueType {
	d := strings.ToUpper(strings.TrimSpace(declType))
	switch {
	case d == "":
		return ""
	case strings.Contains(d, "BOOL"):
		return types.ValueTypeBoolean
	case strings.Contains(d, "INT"):
		return types.ValueTypeInteger
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return types.ValueTypeText
	case strings.Contains(d, "BLOB"):
		return types.ValueTypeBlob
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return types.ValueTypeReal
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return types.ValueTypeTime
	default:
		return ""
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case bool:
		if n {
			return 1
		}
		return 0
	case float64:
		return int64(n)
	default:
		return 0
	}
}
