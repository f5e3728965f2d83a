package shamap

import (
	"encoding/hex"
	"fmt"
	"math/bits"

	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/protocol"
)

// InnerNode is a radix-16 branch node. The hash covers all sixteen child
// hashes in order, with the zero hash standing in for empty branches, so the
// root digest depends only on the stored (key, value) set.
type InnerNode struct {
	baseNode
	children [BranchFactor]TreeNode
	hashes   [BranchFactor][32]byte
	isBranch uint16
}

// NewInnerNode creates an empty inner node owned by the given generation.
func NewInnerNode(cowid uint32) *InnerNode {
	n := &InnerNode{}
	n.cowid = cowid
	return n
}

func (n *InnerNode) IsLeaf() bool  { return false }
func (n *InnerNode) IsInner() bool { return true }

// Kind returns the serialized node kind.
func (n *InnerNode) Kind() NodeKind {
	return KindInner
}

// IsEmpty returns true if the node has no active branches.
func (n *InnerNode) IsEmpty() bool {
	return n.isBranch == 0
}

// IsEmptyBranch returns true if the given branch index is empty.
func (n *InnerNode) IsEmptyBranch(index int) bool {
	return (n.isBranch & (1 << index)) == 0
}

// BranchCount returns the number of active branches.
func (n *InnerNode) BranchCount() int {
	return bits.OnesCount16(n.isBranch)
}

// Child returns the child node at the given branch index, or nil.
func (n *InnerNode) Child(index int) TreeNode {
	return n.children[index]
}

// ChildHash returns the hash at a given branch index.
func (n *InnerNode) ChildHash(index int) [32]byte {
	return n.hashes[index]
}

// SetChild sets the child node at the given branch index and rehashes.
// The caller must own this node (its cowid must match the mutating map's).
func (n *InnerNode) SetChild(index int, child TreeNode) {
	n.children[index] = child
	if child != nil {
		n.hashes[index] = child.Hash()
		n.isBranch |= 1 << index
	} else {
		n.hashes[index] = [32]byte{}
		n.isBranch &= ^(uint16(1) << index)
	}
	n.updateHash()
}

// updateHash recalculates the node's hash from its child hashes. All sixteen
// slots participate; empty branches contribute 32 zero bytes.
func (n *InnerNode) updateHash() {
	if n.isBranch == 0 {
		n.hash = [32]byte{}
		return
	}
	data := make([][]byte, 0, BranchFactor+1)
	data = append(data, protocol.HashPrefixInnerNode.Bytes())
	for i := 0; i < BranchFactor; i++ {
		h := n.hashes[i]
		data = append(data, h[:])
	}
	n.hash = crypto.Sha512Half(data...)
}

// serialize renders the node for the nodestore: sixteen child hashes.
func (n *InnerNode) serialize() []byte {
	out := make([]byte, 0, BranchFactor*32)
	for i := 0; i < BranchFactor; i++ {
		out = append(out, n.hashes[i][:]...)
	}
	return out
}

// clone returns a copy owned by cowid. Children are shared by reference;
// they get cloned themselves only if a later write descends into them.
func (n *InnerNode) clone(cowid uint32) TreeNode {
	c := &InnerNode{isBranch: n.isBranch}
	c.hash = n.hash
	c.cowid = cowid
	c.children = n.children
	c.hashes = n.hashes
	return c
}

// Invariants performs internal consistency checks.
func (n *InnerNode) Invariants(isRoot bool) error {
	count := 0
	for i := 0; i < BranchFactor; i++ {
		hasChild := n.children[i] != nil
		hasBit := (n.isBranch & (1 << i)) != 0
		if hasChild && !hasBit {
			return fmt.Errorf("branch %d has child without bit", i)
		}
		if hasBit {
			count++
		}
	}
	if count == 0 && !isRoot {
		return fmt.Errorf("non-root inner node is empty")
	}
	return nil
}

// String returns a human-readable representation of the node.
func (n *InnerNode) String() string {
	s := fmt.Sprintf("InnerNode hash=%s branches:\n", hex.EncodeToString(n.hash[:]))
	for i := 0; i < BranchFactor; i++ {
		if n.isBranch&(1<<i) != 0 {
			s += fmt.Sprintf("  %x: %s\n", i, hex.EncodeToString(n.hashes[i][:]))
		}
	}
	return s
}
