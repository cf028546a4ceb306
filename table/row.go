package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"vqlite/column"
	"vqlite/dberr"
)

// Row is a logical row: one value per schema column, Row[0] being the
// primary key. A nil entry means "absent", which serialises as the
// column's typed zero value (spec.md §3, §4.C).
type Row []interface{}

// ID extracts the primary key, Row[0], which must be an int32.
func (r Row) ID() (int32, error) {
	if len(r) == 0 {
		return 0, fmt.Errorf("table: row has no primary key column")
	}
	v, ok := r[0].(int32)
	if !ok {
		return 0, fmt.Errorf("table: primary key column holds %T, want int32", r[0])
	}
	return v, nil
}

// SerializeRow packs row into dst per meta's per-column layout: INT as
// 4 little-endian bytes, DOUBLE as 8 (IEEE-754), TEXT padded with NUL
// bytes out to its fixed slot width so on-disk cell offsets never move
// (spec.md §4.C, §9). dst must be exactly meta.RowSize bytes.
func SerializeRow(meta *Meta, row Row, dst []byte) error {
	if uint32(len(dst)) != meta.RowSize {
		return fmt.Errorf("table: SerializeRow: dst is %d bytes, want %d", len(dst), meta.RowSize)
	}
	if len(row) != len(meta.Columns) {
		return fmt.Errorf("table: SerializeRow: row has %d columns, want %d", len(row), len(meta.Columns))
	}
	for i := range dst {
		dst[i] = 0
	}
	for i, cm := range meta.Columns {
		base := cm.Offset
		v := row[i]
		switch cm.Type {
		case column.ColumnTypeInt:
			var iv int32
			if v != nil {
				x, ok := v.(int32)
				if !ok {
					return fmt.Errorf("%w: column %q expects int32, got %T", dberr.ErrTypeMismatch, cm.Name, v)
				}
				iv = x
			}
			binary.LittleEndian.PutUint32(dst[base:base+4], uint32(iv))

		case column.ColumnTypeDouble:
			var fv float64
			if v != nil {
				x, ok := v.(float64)
				if !ok {
					return fmt.Errorf("%w: column %q expects float64, got %T", dberr.ErrTypeMismatch, cm.Name, v)
				}
				fv = x
			}
			binary.LittleEndian.PutUint64(dst[base:base+8], math.Float64bits(fv))

		case column.ColumnTypeText:
			var s string
			if v != nil {
				x, ok := v.(string)
				if !ok {
					return fmt.Errorf("%w: column %q expects string, got %T", dberr.ErrTypeMismatch, cm.Name, v)
				}
				s = x
			}
			if uint32(len(s)) > cm.MaxLength {
				return fmt.Errorf("%w: column %q: %d bytes exceeds limit %d", dberr.ErrStringTooLong, cm.Name, len(s), cm.MaxLength)
			}
			copy(dst[base:base+cm.Width], s)
		}
	}
	return nil
}

// DeserializeRow is SerializeRow's inverse: for a src of matching
// length it is the identity round-trip required by spec.md §8,
// property 5.
func DeserializeRow(meta *Meta, src []byte) (Row, error) {
	if uint32(len(src)) != meta.RowSize {
		return nil, fmt.Errorf("table: DeserializeRow: src is %d bytes, want %d", len(src), meta.RowSize)
	}
	row := make(Row, len(meta.Columns))
	for i, cm := range meta.Columns {
		base := cm.Offset
		switch cm.Type {
		case column.ColumnTypeInt:
			row[i] = int32(binary.LittleEndian.Uint32(src[base : base+4]))

		case column.ColumnTypeDouble:
			row[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[base : base+8]))

		case column.ColumnTypeText:
			raw := src[base : base+cm.Width]
			if n := bytes.IndexByte(raw, 0); n >= 0 {
				raw = raw[:n]
			}
			row[i] = string(raw)
		}
	}
	return row, nil
}
