package table

import (
	"encoding/binary"

	"vqlite/pager"
)

// NodeType is the node-kind tag stored in the first header byte
// (spec.md §3, Node).
type NodeType byte

const (
	NodeTypeInternal NodeType = 0
	NodeTypeLeaf     NodeType = 1
)

// InvalidPage is the UINT32_MAX sentinel meaning "no child"
// (spec.md §3, §9).
const InvalidPage uint32 = ^uint32(0)

// Common node header layout (spec.md §3): node_type(1) is_root(1)
// parent_page_num(4).
const (
	offNodeType      = 0
	offIsRoot        = 1
	offParentPage    = 2
	commonHeaderSize = 6
)

// Leaf adds num_cells(4) next_leaf_page_num(4); internal adds
// num_keys(4) right_child_page_num(4). Both land at the same offsets
// since a page is only ever interpreted as one node type at a time.
const (
	offNumCellsOrKeys  = commonHeaderSize
	offNextLeafOrRight = commonHeaderSize + 4
	leafHeaderSize     = commonHeaderSize + 8
	internalHeaderSize = commonHeaderSize + 8
)

func nodeType(p *pager.Page) NodeType { return NodeType(p.Data[offNodeType]) }

func setNodeType(p *pager.Page, t NodeType) { p.Data[offNodeType] = byte(t) }

func isRoot(p *pager.Page) bool { return p.Data[offIsRoot] != 0 }

func setIsRoot(p *pager.Page, v bool) {
	if v {
		p.Data[offIsRoot] = 1
	} else {
		p.Data[offIsRoot] = 0
	}
}

func parentPage(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[offParentPage : offParentPage+4])
}

func setParentPage(p *pager.Page, v uint32) {
	binary.LittleEndian.PutUint32(p.Data[offParentPage:offParentPage+4], v)
}
