package table

import (
	"fmt"

	"vqlite/column"
	"vqlite/pager"
)

// InternalMaxCells is the internal node's fixed cell capacity
// (spec.md §3: "Internal-node cell capacity is fixed at 3 in the
// source and is part of the on-disk contract"), independent of schema.
const InternalMaxCells = 3

const internalCellSize = 8 // child_page(4) + separator_key(4)

const leafKeySize = 4

// ColMeta is the derived, positional layout of one column within a
// row's serialised bytes.
type ColMeta struct {
	Name      string
	Type      column.ColumnType
	Offset    uint32
	Width     uint32 // serialised byte width
	MaxLength uint32 // only meaningful for ColumnTypeText
}

// Meta holds the constants §3 says must be derived from a schema and
// "recomputed identically on load": row_size, leaf_cell_size,
// leaf_max_cells, left/right_split_count.
type Meta struct {
	Columns         []ColMeta
	RowSize         uint32
	LeafCellSize    uint32
	LeafSpace       uint32
	LeafMaxCells    uint32
	LeftSplitCount  uint32
	RightSplitCount uint32
}

// columnWidth returns a column's serialised byte width: 4 for INT
// (signed 32-bit), 8 for DOUBLE (IEEE-754 64-bit), MaxLength for TEXT
// (a fixed upper bound, stored inline — spec.md §3).
func columnWidth(c column.Column) (uint32, error) {
	switch c.Type {
	case column.ColumnTypeInt:
		return 4, nil
	case column.ColumnTypeDouble:
		return 8, nil
	case column.ColumnTypeText:
		if c.MaxLength == 0 || c.MaxLength > column.MaxTextLength {
			return 0, fmt.Errorf("table: column %q: TEXT MaxLength must be in 1..%d, got %d", c.Name, column.MaxTextLength, c.MaxLength)
		}
		return c.MaxLength, nil
	default:
		return 0, fmt.Errorf("table: column %q: unknown column type %v", c.Name, c.Type)
	}
}

// BuildMeta computes the derived constants for schema. These are pure
// functions of the schema: recomputing them from the catalog sidecar's
// stored schema on load must produce identical values (spec.md §6).
func BuildMeta(schema column.Schema) (*Meta, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("table: schema must have at least one column")
	}
	if len(schema) > column.MaxColumns {
		return nil, fmt.Errorf("table: schema has %d columns, exceeds MAX_COLS=%d", len(schema), column.MaxColumns)
	}
	if schema[0].Type != column.ColumnTypeInt {
		return nil, fmt.Errorf("table: primary key column %q must be INT", schema[0].Name)
	}

	cols := make([]ColMeta, len(schema))
	var offset uint32
	for i, c := range schema {
		width, err := columnWidth(c)
		if err != nil {
			return nil, err
		}
		cols[i] = ColMeta{
			Name:      c.Name,
			Type:      c.Type,
			Offset:    offset,
			Width:     width,
			MaxLength: c.MaxLength,
		}
		offset += width
	}

	rowSize := offset
	leafCellSize := leafKeySize + rowSize
	leafSpaceForCells := uint32(pager.PageSize) - leafHeaderSize
	leafMaxCells := leafSpaceForCells / leafCellSize
	if leafMaxCells == 0 {
		return nil, fmt.Errorf("table: row_size=%d too large, no cell fits in a %d-byte page", rowSize, pager.PageSize)
	}
	// The original source computes LEFT from RIGHT, not the reverse
	// (spec.md §9's flagged likely defect is this asymmetry read the
	// wrong way round); both agree numerically with the prose
	// ⌈(leafMaxCells+1)/2⌉ since ⌈n/2⌉ == n - ⌊n/2⌋.
	rightSplit := (leafMaxCells + 1) / 2
	leftSplit := (leafMaxCells + 1) - rightSplit

	return &Meta{
		Columns:         cols,
		RowSize:         rowSize,
		LeafCellSize:    leafCellSize,
		LeafSpace:       leafSpaceForCells,
		LeafMaxCells:    leafMaxCells,
		LeftSplitCount:  leftSplit,
		RightSplitCount: rightSplit,
	}, nil
}

// Validate recomputes constants from schema and reports whether they
// match meta's stored derived fields — the catalog sidecar (spec.md §6)
// must recompute and validate these on load rather than trusting the
// bytes on disk.
func (m *Meta) Validate(schema column.Schema) error {
	fresh, err := BuildMeta(schema)
	if err != nil {
		return err
	}
	switch {
	case fresh.RowSize != m.RowSize:
		return fmt.Errorf("table: stored row_size %d does not match recomputed %d", m.RowSize, fresh.RowSize)
	case fresh.LeafCellSize != m.LeafCellSize:
		return fmt.Errorf("table: stored leaf_cell_size %d does not match recomputed %d", m.LeafCellSize, fresh.LeafCellSize)
	case fresh.LeafSpace != m.LeafSpace:
		return fmt.Errorf("table: stored leaf_space %d does not match recomputed %d", m.LeafSpace, fresh.LeafSpace)
	case fresh.LeafMaxCells != m.LeafMaxCells:
		return fmt.Errorf("table: stored leaf_max_cells %d does not match recomputed %d", m.LeafMaxCells, fresh.LeafMaxCells)
	case fresh.LeftSplitCount != m.LeftSplitCount:
		return fmt.Errorf("table: stored left_split_count %d does not match recomputed %d", m.LeftSplitCount, fresh.LeftSplitCount)
	}
	return nil
}
