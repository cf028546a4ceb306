// Node codec: pure positional accessors over a page's raw bytes, given
// a schema's derived Meta for leaf-cell stride (spec.md §4.B). These
// operate directly on the *pager.Page buffer rather than deserialising
// into a Go struct and writing it back later — the B+tree relies on
// every accessor reading and writing the one resident buffer so splits
// propagate without an explicit write-back step (spec.md §5, §9).
package table

import (
	"encoding/binary"

	"vqlite/dberr"
	"vqlite/pager"
)

// ---- common header ----

func initZero(p *pager.Page) {
	for i := range p.Data {
		p.Data[i] = 0
	}
}

// ---- leaf node ----

func initializeLeaf(p *pager.Page) {
	initZero(p)
	setNodeType(p, NodeTypeLeaf)
	setIsRoot(p, false)
	setLeafNumCells(p, 0)
	setLeafNextLeaf(p, 0)
}

func leafNumCells(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[offNumCellsOrKeys : offNumCellsOrKeys+4])
}

func setLeafNumCells(p *pager.Page, v uint32) {
	binary.LittleEndian.PutUint32(p.Data[offNumCellsOrKeys:offNumCellsOrKeys+4], v)
}

// leafNextLeaf is the 0-sentinel link to the next leaf in key order.
// Only a leaf that is not the rightmost may have a non-zero value here
// — page 0 (the root, when it is a leaf) is never itself linked into
// the chain by a predecessor, since there is none (spec.md §9).
func leafNextLeaf(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[offNextLeafOrRight : offNextLeafOrRight+4])
}

func setLeafNextLeaf(p *pager.Page, v uint32) {
	binary.LittleEndian.PutUint32(p.Data[offNextLeafOrRight:offNextLeafOrRight+4], v)
}

func leafCellOffset(i uint32, meta *Meta) uint32 {
	return leafHeaderSize + i*meta.LeafCellSize
}

func leafKey(p *pager.Page, i uint32, meta *Meta) uint32 {
	off := leafCellOffset(i, meta)
	return binary.LittleEndian.Uint32(p.Data[off : off+leafKeySize])
}

func setLeafKey(p *pager.Page, i uint32, key uint32, meta *Meta) {
	off := leafCellOffset(i, meta)
	binary.LittleEndian.PutUint32(p.Data[off:off+leafKeySize], key)
}

// leafValue returns the raw row-payload bytes for cell i: a slice
// aliasing the page buffer, not a copy, so the row codec writes
// straight into the resident page.
func leafValue(p *pager.Page, i uint32, meta *Meta) []byte {
	off := leafCellOffset(i, meta) + leafKeySize
	return p.Data[off : off+meta.RowSize]
}

// leafCellBytes returns the whole cell (key + value) for cell i, used
// to shift cells during insert/delete/split.
func leafCellBytes(p *pager.Page, i uint32, meta *Meta) []byte {
	off := leafCellOffset(i, meta)
	return p.Data[off : off+meta.LeafCellSize]
}

// ---- internal node ----

func initializeInternal(p *pager.Page) {
	initZero(p)
	setNodeType(p, NodeTypeInternal)
	setIsRoot(p, false)
	setInternalNumKeys(p, 0)
	setInternalRightChild(p, InvalidPage)
}

func internalNumKeys(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[offNumCellsOrKeys : offNumCellsOrKeys+4])
}

func setInternalNumKeys(p *pager.Page, v uint32) {
	binary.LittleEndian.PutUint32(p.Data[offNumCellsOrKeys:offNumCellsOrKeys+4], v)
}

func internalRightChildRaw(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[offNextLeafOrRight : offNextLeafOrRight+4])
}

func setInternalRightChild(p *pager.Page, v uint32) {
	binary.LittleEndian.PutUint32(p.Data[offNextLeafOrRight:offNextLeafOrRight+4], v)
}

func internalCellOffset(i uint32) uint32 {
	return internalHeaderSize + i*internalCellSize
}

func internalChildRaw(p *pager.Page, i uint32) uint32 {
	off := internalCellOffset(i)
	return binary.LittleEndian.Uint32(p.Data[off : off+4])
}

func setInternalChildRaw(p *pager.Page, i uint32, v uint32) {
	off := internalCellOffset(i)
	binary.LittleEndian.PutUint32(p.Data[off:off+4], v)
}

func internalKey(p *pager.Page, i uint32) uint32 {
	off := internalCellOffset(i) + 4
	return binary.LittleEndian.Uint32(p.Data[off : off+4])
}

func setInternalKey(p *pager.Page, i uint32, key uint32) {
	off := internalCellOffset(i) + 4
	binary.LittleEndian.PutUint32(p.Data[off:off+4], key)
}

// internalChild is the composite child(i) accessor from spec.md §4.B:
// for i == numKeys it is the right child; i > numKeys, or an
// unexpected InvalidPage sentinel at a slot that should hold a real
// page, is a fatal invariant violation (it means we walked off the end
// of a partially-initialised node instead of hitting a real "no
// child" marker deliberately).
func internalChild(p *pager.Page, i uint32) (uint32, error) {
	numKeys := internalNumKeys(p)
	if i > numKeys {
		return 0, dberr.Fatalf("table: internal node child(%d) requested, but node only has %d keys", i, numKeys)
	}
	var child uint32
	if i == numKeys {
		child = internalRightChildRaw(p)
	} else {
		child = internalChildRaw(p, i)
	}
	if child == InvalidPage {
		return 0, dberr.Fatalf("table: internal node child(%d) is the INVALID_PAGE sentinel", i)
	}
	return child, nil
}
