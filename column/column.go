// Package column defines the typed column list a table is created
// with (spec.md §3, Column type / Schema).
package column

import "fmt"

// ColumnType is one of the three column types the core supports.
// There is no type coercion between them (spec.md §1, Non-goals).
type ColumnType int

const (
	ColumnTypeInt ColumnType = iota
	ColumnTypeDouble
	ColumnTypeText
)

func (t ColumnType) String() string {
	switch t {
	case ColumnTypeInt:
		return "int"
	case ColumnTypeDouble:
		return "double"
	case ColumnTypeText:
		return "text"
	default:
		return fmt.Sprintf("column.ColumnType(%d)", int(t))
	}
}

const (
	// MaxColumns is MAX_COLS (spec.md §3): the widest schema a table
	// may be created with, primary key included.
	MaxColumns = 10
	// MaxTextLength is the fixed upper bound on a TEXT column's
	// storage width (spec.md §1, Non-goals: no arbitrary-length
	// strings).
	MaxTextLength = 255
)

// Column is one entry in a table's schema. MaxLength is only
// meaningful (and required, 1..MaxTextLength) for ColumnTypeText.
type Column struct {
	Name      string
	Type      ColumnType
	MaxLength uint32
}

// Schema is a table's named, ordered column list. By convention (and
// by validation in table.BuildMeta) Schema[0] is the primary key and
// must be ColumnTypeInt.
type Schema []Column

// IndexOf returns name's position in the schema, or -1 if absent.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}
