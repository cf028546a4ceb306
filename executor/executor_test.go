package executor

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vqlite/catalog"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.Open(dir, "testdb")
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return New(cat)
}

func mustPrepare(t *testing.T, line string) *Statement {
	t.Helper()
	stmt, result, err := Prepare(line)
	require.NoError(t, err, "prepare %q", line)
	require.Equal(t, PrepareSuccess, result, "prepare %q", line)
	return stmt
}

func TestCreateInsertSelect(t *testing.T) {
	e := newTestExecutor(t)

	_, status, err := e.Execute(mustPrepare(t, `CREATE TABLE users (id int, name text(32), age int)`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)

	_, status, err = e.Execute(mustPrepare(t, `INSERT INTO users (id, name, age) VALUES (1, 'alice', 30)`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)

	_, status, err = e.Execute(mustPrepare(t, `INSERT INTO users (id, name, age) VALUES (2, 'bob', 25)`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)

	res, status, err := e.Execute(mustPrepare(t, `SELECT * FROM users`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, int32(1), res.Rows[0][0])
	assert.Equal(t, int32(2), res.Rows[1][0])
}

func TestInsertDuplicateKey(t *testing.T) {
	e := newTestExecutor(t)
	e.Execute(mustPrepare(t, `CREATE TABLE t (id int)`))
	_, status, err := e.Execute(mustPrepare(t, `INSERT INTO t (id) VALUES (7)`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)

	_, status, err = e.Execute(mustPrepare(t, `INSERT INTO t (id) VALUES (7)`))
	require.Error(t, err)
	assert.Equal(t, ExecuteDuplicateKey, status)
}

func TestSelectWithWhereEqualsUsesIndex(t *testing.T) {
	e := newTestExecutor(t)
	e.Execute(mustPrepare(t, `CREATE TABLE t (id int, v int)`))
	for i := 1; i <= 5; i++ {
		stmt := mustPrepare(t, insertStmt(i))
		_, _, err := e.Execute(stmt)
		require.NoError(t, err)
	}

	res, status, err := e.Execute(mustPrepare(t, `SELECT * FROM t WHERE id = 3`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int32(3), res.Rows[0][0])

	res, _, err = e.Execute(mustPrepare(t, `SELECT * FROM t WHERE id = 99`))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestSelectWithWhereLessThan(t *testing.T) {
	e := newTestExecutor(t)
	e.Execute(mustPrepare(t, `CREATE TABLE t (id int, v int)`))
	for i := 1; i <= 5; i++ {
		_, _, err := e.Execute(mustPrepare(t, insertStmt(i)))
		require.NoError(t, err)
	}

	res, status, err := e.Execute(mustPrepare(t, `SELECT * FROM t WHERE id < 3`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)
	assert.Len(t, res.Rows, 2)
}

func TestUpdateIgnoresWhereAndRewritesEveryRow(t *testing.T) {
	e := newTestExecutor(t)
	e.Execute(mustPrepare(t, `CREATE TABLE t (id int, v int)`))
	for i := 1; i <= 3; i++ {
		_, _, err := e.Execute(mustPrepare(t, insertStmt(i)))
		require.NoError(t, err)
	}

	_, status, err := e.Execute(mustPrepare(t, `UPDATE t SET v=99 WHERE id=1`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)

	res, _, err := e.Execute(mustPrepare(t, `SELECT * FROM t`))
	require.NoError(t, err)
	for _, row := range res.Rows {
		assert.Equal(t, int32(99), row[1], "UPDATE with no real WHERE pushdown touches every row")
	}
}

func TestDeleteByID(t *testing.T) {
	e := newTestExecutor(t)
	e.Execute(mustPrepare(t, `CREATE TABLE t (id int)`))
	_, _, err := e.Execute(mustPrepare(t, `INSERT INTO t (id) VALUES (1)`))
	require.NoError(t, err)

	_, status, err := e.Execute(mustPrepare(t, `DELETE FROM t WHERE id = 1`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)

	res, _, err := e.Execute(mustPrepare(t, `SELECT * FROM t`))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	_, status, err = e.Execute(mustPrepare(t, `DELETE FROM t WHERE id = 1`))
	require.Error(t, err)
	assert.Equal(t, ExecuteRowNotFound, status)
}

func TestShowTablesAndDesc(t *testing.T) {
	e := newTestExecutor(t)
	e.Execute(mustPrepare(t, `CREATE TABLE t (id int, name text(8))`))

	res, _, err := e.Execute(mustPrepare(t, `SHOW TABLES`))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "t", res.Rows[0][0])

	res, _, err = e.Execute(mustPrepare(t, `DESC t`))
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "id", res.Rows[0][0])
	assert.Equal(t, "int", res.Rows[0][1])
	assert.Equal(t, "name", res.Rows[1][0])
	assert.Equal(t, "text", res.Rows[1][1])
}

func TestDropTable(t *testing.T) {
	e := newTestExecutor(t)
	e.Execute(mustPrepare(t, `CREATE TABLE t (id int)`))

	_, status, err := e.Execute(mustPrepare(t, `DROP TABLE t`))
	require.NoError(t, err)
	require.Equal(t, ExecuteSuccess, status)

	_, status, err = e.Execute(mustPrepare(t, `SELECT * FROM t`))
	require.Error(t, err)
	assert.Equal(t, ExecuteTableNotFound, status)
}

func insertStmt(id int) string {
	return "INSERT INTO t (id, v) VALUES (" + strconv.Itoa(id) + ", " + strconv.Itoa(id*10) + ")"
}
