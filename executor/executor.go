package executor

import (
	"github.com/sirupsen/logrus"

	"vqlite/catalog"
	"vqlite/column"
	"vqlite/table"
)

// Result is what Execute hands back for the caller to present: rows
// (for SELECT / SHOW TABLES / DESC), a header, and a status message.
// This replaces the original source's module-wide output buffer
// (spec.md §9, "Global output sink") with a value the caller owns.
type Result struct {
	Columns []string
	Rows    []table.Row
	Message string
}

// Executor is the facade from spec.md §4.G: given a parsed Statement,
// it dispatches to the catalog and the B+tree.
type Executor struct {
	cat *catalog.Catalog
}

// New builds an Executor over an already-open catalog.
func New(cat *catalog.Catalog) *Executor {
	return &Executor{cat: cat}
}

// Execute dispatches stmt and returns its result alongside a status
// code a caller can map to user-visible text (spec.md §7).
func (e *Executor) Execute(stmt *Statement) (*Result, ExecuteResult, error) {
	switch stmt.Type {
	case StatementCreateTable:
		return e.execCreateTable(stmt)
	case StatementDropTable:
		return e.execDropTable(stmt)
	case StatementShowTables:
		return e.execShowTables()
	case StatementDescTable:
		return e.execDescTable(stmt)
	case StatementInsert:
		return e.execInsert(stmt)
	case StatementSelect:
		return e.execSelect(stmt)
	case StatementUpdate:
		return e.execUpdate(stmt)
	case StatementDelete:
		return e.execDelete(stmt)
	default:
		return nil, ExecuteFailure, errSyntax
	}
}

func (e *Executor) execCreateTable(stmt *Statement) (*Result, ExecuteResult, error) {
	if _, err := e.cat.Create(stmt.Table, stmt.Schema); err != nil {
		return nil, classifyExecuteErr(err), err
	}
	logrus.WithField("table", stmt.Table).Debug("executor: created table")
	return &Result{Message: "table " + stmt.Table + " created"}, ExecuteSuccess, nil
}

func (e *Executor) execDropTable(stmt *Statement) (*Result, ExecuteResult, error) {
	if err := e.cat.Drop(stmt.Table); err != nil {
		return nil, classifyExecuteErr(err), err
	}
	logrus.WithField("table", stmt.Table).Debug("executor: dropped table")
	return &Result{Message: "table " + stmt.Table + " dropped"}, ExecuteSuccess, nil
}

func (e *Executor) execShowTables() (*Result, ExecuteResult, error) {
	names := e.cat.Tables()
	rows := make([]table.Row, len(names))
	for i, n := range names {
		rows[i] = table.Row{n}
	}
	return &Result{Columns: []string{"table"}, Rows: rows}, ExecuteSuccess, nil
}

func (e *Executor) execDescTable(stmt *Statement) (*Result, ExecuteResult, error) {
	_, schema, ok := e.cat.Find(stmt.Table)
	if !ok {
		return nil, ExecuteTableNotFound, errTableNotFound(stmt.Table)
	}
	rows := make([]table.Row, len(schema))
	for i, c := range schema {
		rows[i] = table.Row{c.Name, c.Type.String()}
	}
	return &Result{Columns: []string{"column", "type"}, Rows: rows}, ExecuteSuccess, nil
}

func (e *Executor) execInsert(stmt *Statement) (*Result, ExecuteResult, error) {
	tbl, schema, ok := e.cat.Find(stmt.Table)
	if !ok {
		return nil, ExecuteTableNotFound, errTableNotFound(stmt.Table)
	}
	row, err := buildInsertRow(schema, stmt.Columns, stmt.Values)
	if err != nil {
		return nil, ExecuteFailure, err
	}
	if err := tbl.Insert(row); err != nil {
		return nil, classifyExecuteErr(err), err
	}
	return &Result{Message: "1 row inserted"}, ExecuteSuccess, nil
}

// buildInsertRow expands a (possibly partial) column/value list into a
// full-width Row in schema order; columns not named take the typed
// zero value the row codec fills in for a nil entry (spec.md §3).
func buildInsertRow(schema column.Schema, cols []string, vals []interface{}) (table.Row, error) {
	row := make(table.Row, len(schema))
	if cols == nil {
		if len(vals) != len(schema) {
			return nil, errColumnValueCountMismatch
		}
		copy(row, vals)
		return row, nil
	}
	for i, name := range cols {
		idx := schema.IndexOf(name)
		if idx < 0 {
			return nil, errUnknownColumn(name)
		}
		row[idx] = vals[i]
	}
	return row, nil
}

func (e *Executor) execSelect(stmt *Statement) (*Result, ExecuteResult, error) {
	tbl, schema, ok := e.cat.Find(stmt.Table)
	if !ok {
		return nil, ExecuteTableNotFound, errTableNotFound(stmt.Table)
	}

	var rows []table.Row
	if stmt.Where != nil && stmt.Where.Column == schema[0].Name && stmt.Where.Op == OpEQ {
		id, ok := stmt.Where.Value.(int32)
		if !ok {
			return nil, ExecuteFailure, errSyntax
		}
		row, found, err := tbl.Find(id)
		if err != nil {
			return nil, classifyExecuteErr(err), err
		}
		if found {
			rows = append(rows, row)
		}
	} else {
		match, err := whereMatcher(schema, stmt.Where)
		if err != nil {
			return nil, ExecuteFailure, err
		}
		if err := tbl.Scan(func(r table.Row) error {
			if match(r) {
				rows = append(rows, r)
			}
			return nil
		}); err != nil {
			return nil, classifyExecuteErr(err), err
		}
	}

	cols := stmt.Select
	if len(cols) == 0 {
		cols = schemaColumnNames(schema)
	} else {
		rows = projectRows(schema, cols, rows)
	}
	return &Result{Columns: cols, Rows: rows}, ExecuteSuccess, nil
}

func schemaColumnNames(schema column.Schema) []string {
	names := make([]string, len(schema))
	for i, c := range schema {
		names[i] = c.Name
	}
	return names
}

func projectRows(schema column.Schema, cols []string, rows []table.Row) []table.Row {
	idxs := make([]int, len(cols))
	for i, c := range cols {
		idxs[i] = schema.IndexOf(c)
	}
	out := make([]table.Row, len(rows))
	for r, row := range rows {
		projected := make(table.Row, len(cols))
		for i, idx := range idxs {
			if idx >= 0 {
				projected[i] = row[idx]
			}
		}
		out[r] = projected
	}
	return out
}

// whereMatcher builds a row predicate from cond, supporting =, <, > on
// INT columns (spec.md §4.G). Any comparison, equality included, on a
// DOUBLE or TEXT column is rejected rather than guessed at — see
// DESIGN.md.
func whereMatcher(schema column.Schema, cond *Condition) (func(table.Row) bool, error) {
	if cond == nil {
		return func(table.Row) bool { return true }, nil
	}
	idx := schema.IndexOf(cond.Column)
	if idx < 0 {
		return nil, errUnknownColumn(cond.Column)
	}
	if schema[idx].Type != column.ColumnTypeInt {
		return nil, errUnsupportedComparison(cond.Column)
	}
	want, ok := cond.Value.(int32)
	if !ok {
		return nil, errSyntax
	}
	op := cond.Op
	return func(r table.Row) bool {
		got, ok := r[idx].(int32)
		if !ok {
			return false
		}
		switch op {
		case OpEQ:
			return got == want
		case OpLT:
			return got < want
		case OpGT:
			return got > want
		default:
			return false
		}
	}, nil
}

// execUpdate rewrites every row's assigned columns, ignoring Where —
// the source's UPDATE never consulted its WHERE clause, and spec.md §4.D
// / §9 preserve that as a documented limitation rather than fix it.
func (e *Executor) execUpdate(stmt *Statement) (*Result, ExecuteResult, error) {
	tbl, schema, ok := e.cat.Find(stmt.Table)
	if !ok {
		return nil, ExecuteTableNotFound, errTableNotFound(stmt.Table)
	}
	idxs := make([]int, len(stmt.Assignments))
	for i, a := range stmt.Assignments {
		idx := schema.IndexOf(a.Column)
		if idx < 0 {
			return nil, ExecuteFailure, errUnknownColumn(a.Column)
		}
		idxs[i] = idx
	}
	count := 0
	err := tbl.UpdateAll(func(r table.Row) (table.Row, error) {
		count++
		for i, a := range stmt.Assignments {
			r[idxs[i]] = a.Value
		}
		return r, nil
	})
	if err != nil {
		return nil, classifyExecuteErr(err), err
	}
	return &Result{Message: "rows updated"}, ExecuteSuccess, nil
}

func (e *Executor) execDelete(stmt *Statement) (*Result, ExecuteResult, error) {
	tbl, schema, ok := e.cat.Find(stmt.Table)
	if !ok {
		return nil, ExecuteTableNotFound, errTableNotFound(stmt.Table)
	}
	if stmt.Where == nil || stmt.Where.Column != schema[0].Name || stmt.Where.Op != OpEQ {
		return nil, ExecuteFailure, errDeleteRequiresWhere
	}
	id, ok := stmt.Where.Value.(int32)
	if !ok {
		return nil, ExecuteFailure, errSyntax
	}
	found, err := tbl.Delete(id)
	if err != nil {
		return nil, classifyExecuteErr(err), err
	}
	if !found {
		return nil, ExecuteRowNotFound, errRowNotFound(id)
	}
	return &Result{Message: "1 row deleted"}, ExecuteSuccess, nil
}
