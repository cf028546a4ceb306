package catalog

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vqlite/column"
	"vqlite/dberr"
	"vqlite/table"
)

func userSchema() column.Schema {
	return column.Schema{
		{Name: "id", Type: column.ColumnTypeInt},
		{Name: "name", Type: column.ColumnTypeText, MaxLength: 32},
	}
}

func TestCreateFindDrop(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "testdb")
	require.NoError(t, err)

	tbl, err := c.Create("users", userSchema())
	require.NoError(t, err)
	require.NotNil(t, tbl)

	found, schema, ok := c.Find("users")
	require.True(t, ok)
	assert.Same(t, tbl, found)
	assert.Len(t, schema, 2)

	assert.Equal(t, []string{"users"}, c.Tables())

	require.NoError(t, c.Drop("users"))
	_, _, ok = c.Find("users")
	assert.False(t, ok)
	assert.Empty(t, c.Tables())
}

func TestCreateDuplicateNameRejected(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "testdb")
	require.NoError(t, err)

	_, err = c.Create("users", userSchema())
	require.NoError(t, err)

	_, err = c.Create("users", userSchema())
	require.ErrorIs(t, err, dberr.ErrTableExists)
}

func TestDropUnknownTableReportsNotFound(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "testdb")
	require.NoError(t, err)

	err = c.Drop("ghost")
	require.ErrorIs(t, err, dberr.ErrTableNotFound)
}

func TestCreateRejectsBeyondMaxTables(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "testdb")
	require.NoError(t, err)

	for i := 0; i < MaxTables; i++ {
		_, err := c.Create(fmt.Sprintf("t%d", i), userSchema())
		require.NoError(t, err)
	}
	_, err = c.Create("onemore", userSchema())
	require.ErrorIs(t, err, dberr.ErrTableFull)
}

// TestPersistenceAcrossReopen checks spec.md §8 scenario 6: after a
// clean close, reopening the catalog lists the same tables with the
// same columns and the same rows.
func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	func() {
		c, err := Open(dir, "testdb")
		require.NoError(t, err)

		tbl, err := c.Create("users", userSchema())
		require.NoError(t, err)
		require.NoError(t, tbl.Insert(table.Row{int32(1), "alice"}))
		require.NoError(t, tbl.Insert(table.Row{int32(2), "bob"}))

		require.NoError(t, c.Close())
	}()

	c, err := Open(dir, "testdb")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{"users"}, c.Tables())

	tbl, schema, ok := c.Find("users")
	require.True(t, ok)
	require.Len(t, schema, 2)
	assert.Equal(t, "id", schema[0].Name)
	assert.Equal(t, "name", schema[1].Name)

	row, ok, err := tbl.Find(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", row[1])

	var scanned []table.Row
	require.NoError(t, tbl.Scan(func(r table.Row) error {
		scanned = append(scanned, r)
		return nil
	}))
	assert.Len(t, scanned, 2)
}

func TestMetaFileAbsentOnFirstOpen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "freshdb")
	require.NoError(t, err)
	assert.Empty(t, c.Tables())
	require.NoError(t, c.Close())

	_, err = os.Stat(c.metaPath)
	require.NoError(t, err, "Close should have written the sidecar even with zero tables")
}
