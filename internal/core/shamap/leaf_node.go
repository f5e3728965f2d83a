package shamap

import (
	"encoding/hex"
	"fmt"

	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/protocol"
)

// LeafNode holds one item. Account-state and transaction+metadata leaves
// include the item key in the hash (the payload alone does not determine the
// index); plain transaction leaves hash the payload only, since a
// transaction's key is derived from its contents.
type LeafNode struct {
	baseNode
	item *Item
	kind NodeKind
}

// NewLeafNode creates a leaf of the given kind owned by cowid.
func NewLeafNode(kind NodeKind, item *Item, cowid uint32) (*LeafNode, error) {
	if item == nil {
		return nil, ErrNilItem
	}
	switch kind {
	case KindAccountState, KindTransaction, KindTransactionMeta:
	default:
		return nil, ErrInvalidType
	}
	n := &LeafNode{item: item, kind: kind}
	n.cowid = cowid
	n.updateHash()
	return n, nil
}

func (n *LeafNode) IsLeaf() bool  { return true }
func (n *LeafNode) IsInner() bool { return false }

// Kind returns the serialized node kind.
func (n *LeafNode) Kind() NodeKind {
	return n.kind
}

// Item returns the stored item.
func (n *LeafNode) Item() *Item {
	return n.item
}

// setItem replaces the stored item and reports whether the hash changed.
func (n *LeafNode) setItem(item *Item) bool {
	old := n.hash
	n.item = item
	n.updateHash()
	return n.hash != old
}

func (n *LeafNode) updateHash() {
	key := n.item.Key()
	switch n.kind {
	case KindTransaction:
		n.hash = crypto.Sha512Half(protocol.HashPrefixLeafNode.Bytes(), n.item.Data())
	case KindTransactionMeta:
		n.hash = crypto.Sha512Half(protocol.HashPrefixTxNode.Bytes(), n.item.Data(), key[:])
	default:
		n.hash = crypto.Sha512Half(protocol.HashPrefixLeafNode.Bytes(), n.item.Data(), key[:])
	}
}

// serialize renders the leaf for the nodestore: item key then payload.
func (n *LeafNode) serialize() []byte {
	key := n.item.Key()
	out := make([]byte, 0, 32+n.item.Size())
	out = append(out, key[:]...)
	out = append(out, n.item.Data()...)
	return out
}

func (n *LeafNode) clone(cowid uint32) TreeNode {
	c := &LeafNode{item: n.item, kind: n.kind}
	c.hash = n.hash
	c.cowid = cowid
	return c
}

// String returns a human-readable representation of the node.
func (n *LeafNode) String() string {
	key := n.item.Key()
	return fmt.Sprintf("LeafNode kind=%d hash=%s key=%s",
		n.kind, hex.EncodeToString(n.hash[:]), hex.EncodeToString(key[:]))
}
