// Package table implements the on-disk B+tree storage component
// (spec.md §3, §4): schema-derived row layout, the paged node codec,
// and the B+tree/cursor pair that give a table ordered, keyed access
// over its rows.
package table

import (
	"strconv"

	"vqlite/column"
	"vqlite/pager"
)

// Table binds one schema to one table file: its derived Meta, the
// pager backing it, and the B+tree rooted at that file's page 0.
type Table struct {
	Name string
	Meta *Meta
	tree *BTree

	pager *pager.Pager
}

// Open attaches schema to the table file at path, creating it (and
// its page-0 leaf root) if it does not already exist.
func Open(path string, name string, schema column.Schema) (*Table, error) {
	meta, err := BuildMeta(schema)
	if err != nil {
		return nil, err
	}
	p, err := pager.Open(path)
	if err != nil {
		return nil, err
	}
	tree, err := OpenBTree(p, meta)
	if err != nil {
		return nil, err
	}
	return &Table{Name: name, Meta: meta, tree: tree, pager: p}, nil
}

// Insert adds row under its primary key.
func (t *Table) Insert(row Row) error {
	key, err := row.ID()
	if err != nil {
		return err
	}
	return t.tree.Insert(uint32(key), row)
}

// Find looks up a single row by primary key.
func (t *Table) Find(key int32) (Row, bool, error) {
	return t.tree.Search(uint32(key))
}

// Delete removes the row with the given primary key, reporting
// whether it was present.
func (t *Table) Delete(key int32) (bool, error) {
	return t.tree.Delete(uint32(key))
}

// UpdateAll rewrites every row via fn, in key order, regardless of any
// filter the caller might otherwise have applied (spec.md §4.D, §9).
func (t *Table) UpdateAll(fn func(Row) (Row, error)) error {
	return t.tree.UpdateAll(fn)
}

// Start returns a cursor over every row in primary-key order.
func (t *Table) Start() (*Cursor, error) {
	return t.tree.Start()
}

// Scan visits every row in key order, stopping at the first error fn
// returns.
func (t *Table) Scan(fn func(Row) error) error {
	c, err := t.tree.Start()
	if err != nil {
		return err
	}
	for !c.EndOfTable() {
		row, err := c.Value()
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
		if err := c.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes a recursive structural dump of the tree's pages,
// mirroring the source's ".btree" meta-command.
func (t *Table) Dump() ([]string, error) {
	var lines []string
	err := t.dumpNode(0, 0, &lines)
	return lines, err
}

func (t *Table) dumpNode(pageNum, level uint32, lines *[]string) error {
	p, err := t.pager.GetPage(pageNum)
	if err != nil {
		return err
	}
	indent := func(extra uint32) string {
		s := ""
		for i := uint32(0); i < level+extra; i++ {
			s += "  "
		}
		return s
	}
	if nodeType(p) == NodeTypeLeaf {
		numCells := leafNumCells(p)
		*lines = append(*lines, indent(0)+"- leaf (size "+strconv.FormatUint(uint64(numCells), 10)+")")
		for i := uint32(0); i < numCells; i++ {
			*lines = append(*lines, indent(1)+"- "+strconv.FormatUint(uint64(leafKey(p, i, t.Meta)), 10))
		}
		return nil
	}
	numKeys := internalNumKeys(p)
	*lines = append(*lines, indent(0)+"- internal (size "+strconv.FormatUint(uint64(numKeys), 10)+")")
	for i := uint32(0); i < numKeys; i++ {
		child, err := internalChild(p, i)
		if err != nil {
			return err
		}
		if err := t.dumpNode(child, level+1, lines); err != nil {
			return err
		}
		*lines = append(*lines, indent(1)+"- key "+strconv.FormatUint(uint64(internalKey(p, i)), 10))
	}
	rightChild, err := internalChild(p, numKeys)
	if err != nil {
		return err
	}
	return t.dumpNode(rightChild, level+1, lines)
}

// Close flushes every resident page and closes the backing file.
func (t *Table) Close() error {
	return t.pager.Close()
}
