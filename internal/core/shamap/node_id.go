package shamap

// NodeID identifies a node's position in the trie: a depth and the key
// prefix that leads to it.
type NodeID struct {
	Depth uint8
	ID    [32]byte
}

// NewRootNodeID returns the ID of the root node.
func NewRootNodeID() NodeID {
	return NodeID{}
}

// IsRoot returns true if this is the root position.
func (n NodeID) IsRoot() bool {
	return n.Depth == 0
}

// ChildNodeID returns the position of the child reached via branch (0-15).
func (n NodeID) ChildNodeID(branch int) NodeID {
	newID := n.ID
	byteIndex := n.Depth / 2
	if n.Depth%2 == 0 {
		newID[byteIndex] = (newID[byteIndex] & 0x0F) | (byte(branch) << 4)
	} else {
		newID[byteIndex] = (newID[byteIndex] & 0xF0) | byte(branch)
	}
	return NodeID{Depth: n.Depth + 1, ID: newID}
}

// SelectBranch returns which branch of the node at this position would
// contain the given key.
func (n NodeID) SelectBranch(key [32]byte) int {
	return branchAtDepth(key, int(n.Depth))
}

// branchAtDepth extracts the nibble of the key used at the given depth.
func branchAtDepth(key [32]byte, depth int) int {
	if depth >= MaxDepth {
		return 0
	}
	b := key[depth/2]
	if depth%2 == 0 {
		return int(b >> 4)
	}
	return int(b & 0x0F)
}
