package shamap

import (
	"sync/atomic"
)

// cowidCounter issues unique copy-on-write generation tags. A node may only
// be mutated by the map whose cowid matches its own; every other map must
// clone it first. Tag zero means "flushed to storage, shared forever".
var cowidCounter atomic.Uint32

func newCowID() uint32 {
	return cowidCounter.Add(1)
}

// TreeNode is implemented by inner and leaf nodes.
type TreeNode interface {
	IsLeaf() bool
	IsInner() bool
	Hash() [32]byte
	Kind() NodeKind

	// cowID returns the copy-on-write generation this node belongs to.
	cowID() uint32
	// clone returns a shallow copy owned by the given generation. Children
	// of an inner node are shared by reference with the original.
	clone(cowid uint32) TreeNode
}

// baseNode carries the cached hash and ownership tag common to all nodes.
type baseNode struct {
	hash  [32]byte
	cowid uint32
}

func (b *baseNode) Hash() [32]byte {
	return b.hash
}

func (b *baseNode) cowID() uint32 {
	return b.cowid
}
