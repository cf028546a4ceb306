package table

import (
	"encoding/binary"
	"reflect"
	"testing"

	"vqlite/column"
)

func TestBuildMeta(t *testing.T) {
	schema := column.Schema{
		{Name: "id", Type: column.ColumnTypeInt},
		{Name: "name", Type: column.ColumnTypeText, MaxLength: 16},
		{Name: "score", Type: column.ColumnTypeInt},
	}
	meta, err := BuildMeta(schema)
	if err != nil {
		t.Fatalf("BuildMeta failed: %v", err)
	}

	wantOffsets := []uint32{0, 4, 20}
	for i, cm := range meta.Columns {
		if cm.Offset != wantOffsets[i] {
			t.Errorf("column %q offset = %d; want %d", cm.Name, cm.Offset, wantOffsets[i])
		}
	}
	if meta.RowSize != 24 {
		t.Errorf("RowSize = %d; want 24", meta.RowSize)
	}
	if meta.LeafCellSize != 28 {
		t.Errorf("LeafCellSize = %d; want 28", meta.LeafCellSize)
	}
	if meta.LeftSplitCount+meta.RightSplitCount != meta.LeafMaxCells+1 {
		t.Errorf("split counts %d+%d do not sum to LeafMaxCells+1 (%d)", meta.LeftSplitCount, meta.RightSplitCount, meta.LeafMaxCells+1)
	}
}

func TestBuildMetaRejectsNonIntPrimaryKey(t *testing.T) {
	schema := column.Schema{
		{Name: "id", Type: column.ColumnTypeText, MaxLength: 8},
	}
	if _, err := BuildMeta(schema); err == nil {
		t.Fatal("expected error: primary key column must be INT")
	}
}

func TestBuildMetaRejectsTooManyColumns(t *testing.T) {
	schema := make(column.Schema, column.MaxColumns+1)
	schema[0] = column.Column{Name: "id", Type: column.ColumnTypeInt}
	for i := 1; i < len(schema); i++ {
		schema[i] = column.Column{Name: "c", Type: column.ColumnTypeInt}
	}
	if _, err := BuildMeta(schema); err == nil {
		t.Fatal("expected error: schema exceeds MAX_COLS")
	}
}

func TestMetaValidateDetectsMismatch(t *testing.T) {
	schema := column.Schema{
		{Name: "id", Type: column.ColumnTypeInt},
		{Name: "name", Type: column.ColumnTypeText, MaxLength: 16},
	}
	meta, err := BuildMeta(schema)
	if err != nil {
		t.Fatalf("BuildMeta: %v", err)
	}
	if err := meta.Validate(schema); err != nil {
		t.Errorf("Validate of matching schema: %v", err)
	}

	tampered := *meta
	tampered.RowSize++
	if err := tampered.Validate(schema); err == nil {
		t.Error("expected Validate to reject a tampered row_size")
	}
}

func TestSerializeDeserializeRowRoundTrip(t *testing.T) {
	schema := column.Schema{
		{Name: "id", Type: column.ColumnTypeInt},
		{Name: "text", Type: column.ColumnTypeText, MaxLength: 8},
		{Name: "price", Type: column.ColumnTypeDouble},
	}
	meta, err := BuildMeta(schema)
	if err != nil {
		t.Fatalf("BuildMeta: %v", err)
	}

	orig := Row{int32(0x1eadbeef), "hello", 3.5}
	buf := make([]byte, meta.RowSize)
	if err := SerializeRow(meta, orig, buf); err != nil {
		t.Fatalf("SerializeRow: %v", err)
	}
	if got := binary.LittleEndian.Uint32(buf[:4]); got != uint32(0x1eadbeef) {
		t.Errorf("int bytes: got 0x%x", got)
	}
	if string(buf[4:12]) != "hello\x00\x00\x00" {
		t.Errorf("text bytes: %q, want NUL-padded to the 8-byte slot", buf[4:12])
	}

	got, err := DeserializeRow(meta, buf)
	if err != nil {
		t.Fatalf("DeserializeRow: %v", err)
	}
	if !reflect.DeepEqual(orig, got) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, orig)
	}
}

func TestSerializeRowAbsentValuesAreTypedZeros(t *testing.T) {
	schema := column.Schema{
		{Name: "id", Type: column.ColumnTypeInt},
		{Name: "name", Type: column.ColumnTypeText, MaxLength: 8},
		{Name: "score", Type: column.ColumnTypeDouble},
	}
	meta, err := BuildMeta(schema)
	if err != nil {
		t.Fatalf("BuildMeta: %v", err)
	}

	row := Row{int32(1), nil, nil}
	buf := make([]byte, meta.RowSize)
	if err := SerializeRow(meta, row, buf); err != nil {
		t.Fatalf("SerializeRow: %v", err)
	}
	got, err := DeserializeRow(meta, buf)
	if err != nil {
		t.Fatalf("DeserializeRow: %v", err)
	}
	if got[1] != "" {
		t.Errorf("absent TEXT column = %q, want empty string", got[1])
	}
	if got[2] != 0.0 {
		t.Errorf("absent DOUBLE column = %v, want 0.0", got[2])
	}
}

func TestSerializeRowRejectsStringTooLong(t *testing.T) {
	schema := column.Schema{
		{Name: "id", Type: column.ColumnTypeInt},
		{Name: "name", Type: column.ColumnTypeText, MaxLength: 4},
	}
	meta, err := BuildMeta(schema)
	if err != nil {
		t.Fatalf("BuildMeta: %v", err)
	}
	buf := make([]byte, meta.RowSize)
	err = SerializeRow(meta, Row{int32(1), "toolong"}, buf)
	if err == nil {
		t.Fatal("expected string-too-long error")
	}
}
