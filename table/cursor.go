package table

// Cursor is a linearised position over a table's leaf chain
// (spec.md §4.E): a leaf page, a cell within it, and whether the
// cursor has run past every row.
type Cursor struct {
	tree       *BTree
	pageNum    uint32
	cellNum    uint32
	endOfTable bool
}

// EndOfTable reports whether the cursor has advanced past the last row.
func (c *Cursor) EndOfTable() bool {
	return c.endOfTable
}

// Key returns the primary key at the cursor's current position.
func (c *Cursor) Key() (uint32, error) {
	p, err := c.tree.pager.GetPage(c.pageNum)
	if err != nil {
		return 0, err
	}
	return leafKey(p, c.cellNum, c.tree.meta), nil
}

// Value deserialises the row at the cursor's current position.
func (c *Cursor) Value() (Row, error) {
	p, err := c.tree.pager.GetPage(c.pageNum)
	if err != nil {
		return nil, err
	}
	return DeserializeRow(c.tree.meta, leafValue(p, c.cellNum, c.tree.meta))
}

// Advance moves the cursor to the next row, following next_leaf links
// across leaf boundaries and skipping over any empty leaf it lands on.
func (c *Cursor) Advance() error {
	if c.endOfTable {
		return nil
	}
	c.cellNum++
	return c.seekForward()
}

// seekForward walks next_leaf links until the cursor lands on a valid
// cell, or the chain ends (the 0 sentinel), marking end-of-table.
func (c *Cursor) seekForward() error {
	for {
		p, err := c.tree.pager.GetPage(c.pageNum)
		if err != nil {
			return err
		}
		if c.cellNum < leafNumCells(p) {
			c.endOfTable = false
			return nil
		}
		next := leafNextLeaf(p)
		if next == 0 {
			c.endOfTable = true
			return nil
		}
		c.pageNum = next
		c.cellNum = 0
	}
}
