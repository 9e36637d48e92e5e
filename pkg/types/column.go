package types

import "fmt"

// ValueType is the storage type of an attribute. Each value type maps to one
// Go representation held in a record's attribute store.
type ValueType string

// Attribute value types.
const (
	ValueTypeInteger ValueType = "integer" // int64
	ValueTypeReal    ValueType = "real"    // float64
	ValueTypeText    ValueType = "text"    // string
	ValueTypeBlob    ValueType = "blob"    // []byte
	ValueTypeBoolean ValueType = "boolean" // bool
	ValueTypeTime    ValueType = "time"    // time.Time, UTC
)

// validValueTypes is the set of recognized value types.
var validValueTypes = map[ValueType]bool{
	ValueTypeInteger: true,
	ValueTypeReal:    true,
	ValueTypeText:    true,
	ValueTypeBlob:    true,
	ValueTypeBoolean: true,
	ValueTypeTime:    true,
}

// Valid reports whether vt is a recognized value type.
func (vt ValueType) Valid() bool {
	return validValueTypes[vt]
}

// GoType returns the name of the Go type that holds values of vt.
func (vt ValueType) GoType() string {
	switch vt {
	case ValueTypeInteger:
		return "int64"
	case ValueTypeReal:
		return "float64"
	case ValueTypeText:
		return "string"
	case ValueTypeBlob:
		return "[]byte"
	case ValueTypeBoolean:
		return "bool"
	case ValueTypeTime:
		return "time.Time"
	default:
		return fmt.Sprintf("unknown(%s)", string(vt))
	}
}

// Column is one column of a table as reported by the database catalog.
type Column struct {
	Name       string    `json:"name" yaml:"name"`
	DeclType   string    `json:"decl_type" yaml:"decl_type"` // Declared SQL type, verbatim.
	Type       ValueType `json:"type" yaml:"type"`           // Empty when DeclType is unresolvable.
	NotNull    bool      `json:"not_null" yaml:"not_null"`
	HasDefault bool      `json:"has_default" yaml:"has_default"`
	PrimaryKey int       `json:"primary_key" yaml:"primary_key"` // 1-based position in the key, 0 if not part of it.
}
