// Sidecar metadata encoding (spec.md §6): the catalog's set of
// (table name, schema) pairs is persisted as a packed, little-endian
// <db_name>.meta file so it survives across runs. The record layout
// mirrors the raw-offset style table/header.go and table/node.go use
// for on-disk bytes, rather than a general-purpose serialisation
// library — this is a fixed on-disk contract, not a place a generic
// encoder would help (see DESIGN.md).
package catalog

import (
	"encoding/binary"
	"fmt"

	"vqlite/column"
	"vqlite/table"
)

const (
	nameFieldSize = 32
	// columnRecordSize is name(32) + type(4) + width(4). Spec.md §6
	// names only "32-byte column name + 4-byte column-type enum" per
	// column slot; a 4-byte width is added here so a TEXT column's
	// MaxLength survives a reload even when multiple TEXT columns in
	// one schema have different bounds (see DESIGN.md, Open Question).
	columnRecordSize = nameFieldSize + 4 + 4
	// derivedFieldCount is the five uint32s spec.md §6 names: row_size,
	// leaf_cell_size, leaf_space, leaf_max_cells, left_split_count.
	derivedFieldCount = 5
	// tableRecordSize is name(32) + column_count(4) + MAX_COLS fixed
	// column slots + the five derived uint32 fields.
	tableRecordSize = nameFieldSize + 4 + column.MaxColumns*columnRecordSize + derivedFieldCount*4
)

func putFixedString(dst []byte, s string) error {
	if len(s) > len(dst) {
		return fmt.Errorf("catalog: %q is %d bytes, exceeds the %d-byte name field", s, len(s), len(dst))
	}
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
	return nil
}

func getFixedString(src []byte) string {
	n := len(src)
	for i, b := range src {
		if b == 0 {
			n = i
			break
		}
	}
	return string(src[:n])
}

// encodeTableRecord packs name and schema, plus meta's derived fields,
// into a fixed tableRecordSize slice.
func encodeTableRecord(name string, schema column.Schema, meta *table.Meta) ([]byte, error) {
	buf := make([]byte, tableRecordSize)
	off := 0

	if err := putFixedString(buf[off:off+nameFieldSize], name); err != nil {
		return nil, err
	}
	off += nameFieldSize

	if len(schema) > column.MaxColumns {
		return nil, fmt.Errorf("catalog: schema for %q has %d columns, exceeds MAX_COLS=%d", name, len(schema), column.MaxColumns)
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(schema)))
	off += 4

	for i := 0; i < column.MaxColumns; i++ {
		slot := buf[off : off+columnRecordSize]
		if i < len(schema) {
			c := schema[i]
			if err := putFixedString(slot[:nameFieldSize], c.Name); err != nil {
				return nil, err
			}
			binary.LittleEndian.PutUint32(slot[nameFieldSize:nameFieldSize+4], uint32(c.Type))
			binary.LittleEndian.PutUint32(slot[nameFieldSize+4:nameFieldSize+8], c.MaxLength)
		}
		off += columnRecordSize
	}

	binary.LittleEndian.PutUint32(buf[off:off+4], meta.RowSize)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], meta.LeafCellSize)
	binary.LittleEndian.PutUint32(buf[off+8:off+12], meta.LeafSpace)
	binary.LittleEndian.PutUint32(buf[off+12:off+16], meta.LeafMaxCells)
	binary.LittleEndian.PutUint32(buf[off+16:off+20], meta.LeftSplitCount)

	return buf, nil
}

type decodedRecord struct {
	name   string
	schema column.Schema
	meta   *table.Meta
}

// decodeTableRecord is encodeTableRecord's inverse. It recomputes the
// derived constants from the decoded schema and validates them against
// the stored values, per spec.md §6: "The derived fields MUST be
// recomputed and validated on load."
func decodeTableRecord(buf []byte) (*decodedRecord, error) {
	if len(buf) != tableRecordSize {
		return nil, fmt.Errorf("catalog: table record is %d bytes, want %d", len(buf), tableRecordSize)
	}
	off := 0
	name := getFixedString(buf[off : off+nameFieldSize])
	off += nameFieldSize

	numCols := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	if numCols == 0 || numCols > column.MaxColumns {
		return nil, fmt.Errorf("catalog: table %q has stored column count %d outside 1..%d", name, numCols, column.MaxColumns)
	}

	schema := make(column.Schema, numCols)
	for i := 0; i < column.MaxColumns; i++ {
		slot := buf[off : off+columnRecordSize]
		if uint32(i) < numCols {
			schema[i] = column.Column{
				Name:      getFixedString(slot[:nameFieldSize]),
				Type:      column.ColumnType(binary.LittleEndian.Uint32(slot[nameFieldSize : nameFieldSize+4])),
				MaxLength: binary.LittleEndian.Uint32(slot[nameFieldSize+4 : nameFieldSize+8]),
			}
		}
		off += columnRecordSize
	}

	storedRowSize := binary.LittleEndian.Uint32(buf[off : off+4])
	storedLeafCellSize := binary.LittleEndian.Uint32(buf[off+4 : off+8])
	storedLeafSpace := binary.LittleEndian.Uint32(buf[off+8 : off+12])
	storedLeafMaxCells := binary.LittleEndian.Uint32(buf[off+12 : off+16])
	storedLeftSplit := binary.LittleEndian.Uint32(buf[off+16 : off+20])

	meta, err := table.BuildMeta(schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: recomputing constants for table %q: %w", name, err)
	}
	stored := table.Meta{
		RowSize:        storedRowSize,
		LeafCellSize:   storedLeafCellSize,
		LeafSpace:      storedLeafSpace,
		LeafMaxCells:   storedLeafMaxCells,
		LeftSplitCount: storedLeftSplit,
	}
	if err := stored.Validate(schema); err != nil {
		return nil, fmt.Errorf("catalog: table %q: sidecar constants do not match recomputed schema constants: %w", name, err)
	}

	return &decodedRecord{name: name, schema: schema, meta: meta}, nil
}
