// BTree implements the B+tree component (spec.md §4.D): Insert, Search,
// Delete and the split/promote mechanics that keep page 0 the tree's
// root at all times. The algorithms here are a direct translation of
// the original source's recursive split/insert call graph rather than
// an iterative rebalance loop, including its quirks (update_internal_node_key
// writes unconditionally into the slot internalFindChildIndex returns,
// even when that slot is one past the last real separator).
package table

import (
	"encoding/binary"

	"vqlite/dberr"
	"vqlite/pager"
)

// BTree binds a schema's derived Meta to a pager, with the tree root
// fixed at page 0 (spec.md §3: "page 0 of each table file is its
// B+tree root" — always, never relocated by an indirection record).
type BTree struct {
	pager *pager.Pager
	meta  *Meta
}

// OpenBTree attaches to an existing or brand-new table file. A
// zero-page file is initialised with page 0 as an empty leaf root.
func OpenBTree(p *pager.Pager, meta *Meta) (*BTree, error) {
	t := &BTree{pager: p, meta: meta}
	if p.NumPages() == 0 {
		root, err := p.GetPage(0)
		if err != nil {
			return nil, err
		}
		initializeLeaf(root)
		setIsRoot(root, true)
	}
	return t, nil
}

// ---- descent ----

func leafSearch(p *pager.Page, key uint32, meta *Meta) uint32 {
	numCells := leafNumCells(p)
	lo, hi := uint32(0), numCells
	for lo < hi {
		mid := lo + (hi-lo)/2
		if leafKey(p, mid, meta) >= key {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// internalFindChildIndex returns the smallest i such that
// separator[i] >= key, or numKeys if every separator is smaller (the
// key belongs under the right child).
func internalFindChildIndex(p *pager.Page, key uint32) uint32 {
	numKeys := internalNumKeys(p)
	lo, hi := uint32(0), numKeys
	for lo < hi {
		mid := lo + (hi-lo)/2
		if internalKey(p, mid) >= key {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

type leafPos struct {
	pageNum uint32
	cellNum uint32
}

// findLeaf descends from the root to the leaf that holds key, or the
// leaf where key would be inserted.
func (t *BTree) findLeaf(key uint32) (leafPos, error) {
	pageNum := uint32(0)
	for {
		p, err := t.pager.GetPage(pageNum)
		if err != nil {
			return leafPos{}, err
		}
		if nodeType(p) == NodeTypeLeaf {
			return leafPos{pageNum, leafSearch(p, key, t.meta)}, nil
		}
		idx := internalFindChildIndex(p, key)
		child, err := internalChild(p, idx)
		if err != nil {
			return leafPos{}, err
		}
		pageNum = child
	}
}

func (t *BTree) leftmostLeaf() (uint32, error) {
	pageNum := uint32(0)
	for {
		p, err := t.pager.GetPage(pageNum)
		if err != nil {
			return 0, err
		}
		if nodeType(p) == NodeTypeLeaf {
			return pageNum, nil
		}
		child, err := internalChild(p, 0)
		if err != nil {
			return 0, err
		}
		pageNum = child
	}
}

// maxKey returns the largest key reachable under pageNum, recursing
// down the rightmost path for an internal node.
func (t *BTree) maxKey(pageNum uint32) (uint32, error) {
	p, err := t.pager.GetPage(pageNum)
	if err != nil {
		return 0, err
	}
	if nodeType(p) == NodeTypeLeaf {
		n := leafNumCells(p)
		if n == 0 {
			return 0, dberr.Fatalf("table: maxKey of empty leaf page %d", pageNum)
		}
		return leafKey(p, n-1, t.meta), nil
	}
	rc, err := internalChild(p, internalNumKeys(p))
	if err != nil {
		return 0, err
	}
	return t.maxKey(rc)
}

// ---- cursor construction ----

// Find descends to the leaf position matching key: either the cell
// holding it, or the insertion point where it would go. It never
// skips forward across the next_leaf chain — callers needing point
// identity (Insert, Delete, Search) must check the landed cell's key
// themselves.
func (t *BTree) Find(key uint32) (*Cursor, error) {
	pos, err := t.findLeaf(key)
	if err != nil {
		return nil, err
	}
	p, err := t.pager.GetPage(pos.pageNum)
	if err != nil {
		return nil, err
	}
	return &Cursor{tree: t, pageNum: pos.pageNum, cellNum: pos.cellNum, endOfTable: pos.cellNum >= leafNumCells(p)}, nil
}

// Start returns a cursor positioned at the first row in key order,
// skipping forward over any empty orphaned leaves it lands on
// (spec.md §9: a scan may traverse zero-celled leaves left behind by
// Delete).
func (t *BTree) Start() (*Cursor, error) {
	pos, err := t.findLeaf(0)
	if err != nil {
		return nil, err
	}
	c := &Cursor{tree: t, pageNum: pos.pageNum, cellNum: pos.cellNum}
	if err := c.seekForward(); err != nil {
		return nil, err
	}
	return c, nil
}

// Search is a point lookup by primary key.
func (t *BTree) Search(key uint32) (Row, bool, error) {
	c, err := t.Find(key)
	if err != nil {
		return nil, false, err
	}
	p, err := t.pager.GetPage(c.pageNum)
	if err != nil {
		return nil, false, err
	}
	if c.endOfTable || leafKey(p, c.cellNum, t.meta) != key {
		return nil, false, nil
	}
	row, err := DeserializeRow(t.meta, leafValue(p, c.cellNum, t.meta))
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// ---- insert ----

// Insert adds row under key, returning dberr.ErrDuplicateKey if key
// already exists.
func (t *BTree) Insert(key uint32, row Row) error {
	c, err := t.Find(key)
	if err != nil {
		return err
	}
	p, err := t.pager.GetPage(c.pageNum)
	if err != nil {
		return err
	}
	if !c.endOfTable && leafKey(p, c.cellNum, t.meta) == key {
		return dberr.ErrDuplicateKey
	}
	return t.leafInsert(c.pageNum, c.cellNum, key, row)
}

func (t *BTree) leafInsert(pageNum, cellNum, key uint32, row Row) error {
	p, err := t.pager.GetPage(pageNum)
	if err != nil {
		return err
	}
	numCells := leafNumCells(p)
	if numCells >= t.meta.LeafMaxCells {
		return t.leafSplitAndInsert(pageNum, cellNum, key, row)
	}
	for i := numCells; i > cellNum; i-- {
		copy(leafCellBytes(p, i, t.meta), leafCellBytes(p, i-1, t.meta))
	}
	setLeafKey(p, cellNum, key, t.meta)
	if err := SerializeRow(t.meta, row, leafValue(p, cellNum, t.meta)); err != nil {
		return err
	}
	setLeafNumCells(p, numCells+1)
	return nil
}

// leafSplitAndInsert redistributes a full leaf's LeafMaxCells cells
// plus the one being inserted across the old page and a newly
// allocated one, LeftSplitCount going to the (lower-keyed) old page
// and RightSplitCount to the new page, then links the new page into
// the next_leaf chain and propagates the split upward.
func (t *BTree) leafSplitAndInsert(oldPageNum, cellNum, key uint32, row Row) error {
	old, err := t.pager.GetPage(oldPageNum)
	if err != nil {
		return err
	}
	oldMax, err := t.maxKey(oldPageNum)
	if err != nil {
		return err
	}

	newPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}
	newPage, err := t.pager.GetPage(newPageNum)
	if err != nil {
		return err
	}
	initializeLeaf(newPage)
	setParentPage(newPage, parentPage(old))
	setLeafNextLeaf(newPage, leafNextLeaf(old))
	setLeafNextLeaf(old, newPageNum)

	oldCells := make([][]byte, t.meta.LeafMaxCells)
	for i := uint32(0); i < t.meta.LeafMaxCells; i++ {
		buf := make([]byte, t.meta.LeafCellSize)
		copy(buf, leafCellBytes(old, i, t.meta))
		oldCells[i] = buf
	}
	insertedBuf := make([]byte, t.meta.LeafCellSize)
	binary.LittleEndian.PutUint32(insertedBuf[:leafKeySize], key)
	if err := SerializeRow(t.meta, row, insertedBuf[leafKeySize:]); err != nil {
		return err
	}

	total := t.meta.LeafMaxCells + 1
	for i := int(total) - 1; i >= 0; i-- {
		ii := uint32(i)
		var cellBuf []byte
		switch {
		case ii == cellNum:
			cellBuf = insertedBuf
		case ii > cellNum:
			cellBuf = oldCells[ii-1]
		default:
			cellBuf = oldCells[ii]
		}
		dest, idxWithin := old, ii
		if ii >= t.meta.LeftSplitCount {
			dest, idxWithin = newPage, ii-t.meta.LeftSplitCount
		}
		copy(leafCellBytes(dest, idxWithin, t.meta), cellBuf)
	}
	setLeafNumCells(old, t.meta.LeftSplitCount)
	setLeafNumCells(newPage, t.meta.RightSplitCount)

	if isRoot(old) {
		return t.createNewRoot(newPageNum)
	}

	parentPageNum := parentPage(old)
	newMax, err := t.maxKey(oldPageNum)
	if err != nil {
		return err
	}
	if err := t.updateInternalNodeKey(parentPageNum, oldMax, newMax); err != nil {
		return err
	}
	return t.internalNodeInsert(parentPageNum, newPageNum)
}

// createNewRoot is called exactly once per tree growth in height: the
// old root's entire contents move into a freshly allocated left
// child, page 0 is reinitialised as an internal node with that left
// child and rightChildPageNum as its two children (spec.md §4.D).
func (t *BTree) createNewRoot(rightChildPageNum uint32) error {
	root, err := t.pager.GetPage(0)
	if err != nil {
		return err
	}
	rightChild, err := t.pager.GetPage(rightChildPageNum)
	if err != nil {
		return err
	}

	leftChildPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}
	leftChild, err := t.pager.GetPage(leftChildPageNum)
	if err != nil {
		return err
	}

	leftChild.Data = root.Data
	setIsRoot(leftChild, false)

	if nodeType(leftChild) == NodeTypeInternal {
		numKeys := internalNumKeys(leftChild)
		for i := uint32(0); i <= numKeys; i++ {
			childPageNum, err := internalChild(leftChild, i)
			if err != nil {
				return err
			}
			child, err := t.pager.GetPage(childPageNum)
			if err != nil {
				return err
			}
			setParentPage(child, leftChildPageNum)
		}
	}

	initializeInternal(root)
	setIsRoot(root, true)
	setInternalNumKeys(root, 1)
	setInternalChildRaw(root, 0, leftChildPageNum)
	leftMax, err := t.maxKey(leftChildPageNum)
	if err != nil {
		return err
	}
	setInternalKey(root, 0, leftMax)
	setInternalRightChild(root, rightChildPageNum)
	setParentPage(leftChild, 0)
	setParentPage(rightChild, 0)
	return nil
}

func internalCellBytes(p *pager.Page, i uint32) []byte {
	off := internalCellOffset(i)
	return p.Data[off : off+internalCellSize]
}

// internalNodeInsert inserts a new child (keyed by its own max) into
// parent, splitting parent first if it is already at InternalMaxCells.
func (t *BTree) internalNodeInsert(parentPageNum, childPageNum uint32) error {
	parent, err := t.pager.GetPage(parentPageNum)
	if err != nil {
		return err
	}
	child, err := t.pager.GetPage(childPageNum)
	if err != nil {
		return err
	}
	childMax, err := t.maxKey(childPageNum)
	if err != nil {
		return err
	}
	index := internalFindChildIndex(parent, childMax)

	origNumKeys := internalNumKeys(parent)
	if origNumKeys >= InternalMaxCells {
		return t.internalSplitAndInsert(parentPageNum, childPageNum)
	}

	rightChildPageNum := internalRightChildRaw(parent)
	if rightChildPageNum == InvalidPage {
		setInternalRightChild(parent, childPageNum)
		_ = child
		return nil
	}
	rightChildMax, err := t.maxKey(rightChildPageNum)
	if err != nil {
		return err
	}

	setInternalNumKeys(parent, origNumKeys+1)

	if childMax > rightChildMax {
		setInternalChildRaw(parent, origNumKeys, rightChildPageNum)
		setInternalKey(parent, origNumKeys, rightChildMax)
		setInternalRightChild(parent, childPageNum)
	} else {
		for i := origNumKeys; i > index; i-- {
			copy(internalCellBytes(parent, i), internalCellBytes(parent, i-1))
		}
		setInternalChildRaw(parent, index, childPageNum)
		setInternalKey(parent, index, childMax)
	}
	return nil
}

// internalSplitAndInsert splits a full internal node: its right half
// (everything strictly after the middle key) moves to a new sibling,
// the child being inserted lands in whichever half its key belongs to,
// and the split propagates one level up (or triggers createNewRoot if
// the node being split was the root).
func (t *BTree) internalSplitAndInsert(parentPageNum, childPageNum uint32) error {
	oldPageNum := parentPageNum
	old, err := t.pager.GetPage(oldPageNum)
	if err != nil {
		return err
	}
	oldMax, err := t.maxKey(oldPageNum)
	if err != nil {
		return err
	}

	child, err := t.pager.GetPage(childPageNum)
	if err != nil {
		return err
	}
	childMax, err := t.maxKey(childPageNum)
	if err != nil {
		return err
	}

	newPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}

	splittingRoot := isRoot(old)

	newNode, err := t.pager.GetPage(newPageNum)
	if err != nil {
		return err
	}
	initializeInternal(newNode)

	var parent *pager.Page
	var grandParentPageNum uint32
	if splittingRoot {
		if err := t.createNewRoot(newPageNum); err != nil {
			return err
		}
		root, err := t.pager.GetPage(0)
		if err != nil {
			return err
		}
		parent = root
		oldPageNum, err = internalChild(root, 0)
		if err != nil {
			return err
		}
		old, err = t.pager.GetPage(oldPageNum)
		if err != nil {
			return err
		}
	} else {
		grandParentPageNum = parentPage(old)
		parent, err = t.pager.GetPage(grandParentPageNum)
		if err != nil {
			return err
		}
	}

	curPageNum, err := internalChild(old, internalNumKeys(old))
	if err != nil {
		return err
	}
	cur, err := t.pager.GetPage(curPageNum)
	if err != nil {
		return err
	}
	if err := t.internalNodeInsert(newPageNum, curPageNum); err != nil {
		return err
	}
	setParentPage(cur, newPageNum)
	setInternalRightChild(old, InvalidPage)

	oldNumKeys := internalNumKeys(old)
	for i := InternalMaxCells - 1; i > InternalMaxCells/2; i-- {
		curPageNum, err = internalChild(old, uint32(i))
		if err != nil {
			return err
		}
		cur, err = t.pager.GetPage(curPageNum)
		if err != nil {
			return err
		}
		if err := t.internalNodeInsert(newPageNum, curPageNum); err != nil {
			return err
		}
		setParentPage(cur, newPageNum)
		oldNumKeys--
		setInternalNumKeys(old, oldNumKeys)
	}

	newRightChildPageNum, err := internalChild(old, oldNumKeys-1)
	if err != nil {
		return err
	}
	setInternalRightChild(old, newRightChildPageNum)
	oldNumKeys--
	setInternalNumKeys(old, oldNumKeys)

	maxAfterSplit, err := t.maxKey(oldPageNum)
	if err != nil {
		return err
	}

	destPageNum := newPageNum
	if childMax < maxAfterSplit {
		destPageNum = oldPageNum
	}
	if err := t.internalNodeInsert(destPageNum, childPageNum); err != nil {
		return err
	}
	setParentPage(child, destPageNum)

	newOldMax, err := t.maxKey(oldPageNum)
	if err != nil {
		return err
	}
	if err := t.updateInternalNodeKeyOnPage(parent, oldMax, newOldMax); err != nil {
		return err
	}

	if !splittingRoot {
		if err := t.internalNodeInsert(grandParentPageNum, newPageNum); err != nil {
			return err
		}
		setParentPage(newNode, grandParentPageNum)
	}
	return nil
}

// updateInternalNodeKeyOnPage rewrites the separator that used to read
// oldKey to newKey. If oldKey is not less than every separator, the
// search lands on the right-child slot, which has no separator cell
// of its own; the write still lands harmlessly in the node's spare
// cell capacity, matching the original's behaviour.
func (t *BTree) updateInternalNodeKeyOnPage(parent *pager.Page, oldKey, newKey uint32) error {
	idx := internalFindChildIndex(parent, oldKey)
	setInternalKey(parent, idx, newKey)
	return nil
}

func (t *BTree) updateInternalNodeKey(parentPageNum, oldKey, newKey uint32) error {
	parent, err := t.pager.GetPage(parentPageNum)
	if err != nil {
		return err
	}
	return t.updateInternalNodeKeyOnPage(parent, oldKey, newKey)
}

// ---- delete ----

// Delete removes key if present, returning whether it was found. No
// rebalancing or leaf reclamation is performed: an emptied leaf stays
// linked into the chain (spec.md §4.D, §9).
func (t *BTree) Delete(key uint32) (bool, error) {
	c, err := t.Find(key)
	if err != nil {
		return false, err
	}
	p, err := t.pager.GetPage(c.pageNum)
	if err != nil {
		return false, err
	}
	numCells := leafNumCells(p)
	if c.endOfTable || c.cellNum >= numCells || leafKey(p, c.cellNum, t.meta) != key {
		return false, nil
	}

	maxBefore := leafKey(p, numCells-1, t.meta)

	for i := c.cellNum; i < numCells-1; i++ {
		copy(leafCellBytes(p, i, t.meta), leafCellBytes(p, i+1, t.meta))
	}
	setLeafNumCells(p, numCells-1)

	if !isRoot(p) && numCells-1 > 0 {
		maxAfter := leafKey(p, numCells-2, t.meta)
		if maxAfter != maxBefore {
			if err := t.updateInternalNodeKey(parentPage(p), maxBefore, maxAfter); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// ---- bulk update ----

// UpdateAll rewrites every row in key order via fn, ignoring any
// filter — the source's UPDATE statement never consulted its WHERE
// clause, and this preserves that behaviour rather than fixing it
// (spec.md §4.D, §9).
func (t *BTree) UpdateAll(fn func(Row) (Row, error)) error {
	pageNum, err := t.leftmostLeaf()
	if err != nil {
		return err
	}
	for {
		p, err := t.pager.GetPage(pageNum)
		if err != nil {
			return err
		}
		numCells := leafNumCells(p)
		for i := uint32(0); i < numCells; i++ {
			row, err := DeserializeRow(t.meta, leafValue(p, i, t.meta))
			if err != nil {
				return err
			}
			newRow, err := fn(row)
			if err != nil {
				return err
			}
			if err := SerializeRow(t.meta, newRow, leafValue(p, i, t.meta)); err != nil {
				return err
			}
		}
		next := leafNextLeaf(p)
		if next == 0 {
			return nil
		}
		pageNum = next
	}
}
