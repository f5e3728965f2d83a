package shamap

import (
	"fmt"
	"sync"
)

// SHAMap is one Merkle trie: the account-state tree or a per-ledger
// transaction tree. A map owns the nodes whose cowid matches its own and
// must clone any other node before mutating it, which is what makes
// Snapshot cheap and closed ledgers safely shareable.
type SHAMap struct {
	mu        sync.RWMutex
	root      *InnerNode
	mapType   Type
	state     State
	cowid     uint32
	ledgerSeq uint32
}

// New creates a new empty, mutable SHAMap of the given type.
func New(mapType Type) *SHAMap {
	cowid := newCowID()
	return &SHAMap{
		root:    NewInnerNode(cowid),
		mapType: mapType,
		state:   StateModifying,
		cowid:   cowid,
	}
}

// Type returns the map type.
func (sm *SHAMap) Type() Type {
	return sm.mapType
}

// State returns the current lifecycle state.
func (sm *SHAMap) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// SetImmutable freezes the map. Further mutation returns ErrImmutable.
func (sm *SHAMap) SetImmutable() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state = StateImmutable
}

// LedgerSeq returns the ledger sequence this map is associated with.
func (sm *SHAMap) LedgerSeq() uint32 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.ledgerSeq
}

// SetLedgerSeq records the ledger sequence this map is being built for.
func (sm *SHAMap) SetLedgerSeq(seq uint32) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.ledgerSeq = seq
}

// Hash returns the root digest. An empty map hashes to all zeroes.
func (sm *SHAMap) Hash() [32]byte {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.root.Hash()
}

// pathEntry is one step of a root-to-leaf traversal.
type pathEntry struct {
	node   *InnerNode
	nodeID NodeID
}

// walkToKey descends toward key, recording traversed inner nodes. Returns
// the leaf occupying the key's slot (which may hold a different key) or nil
// if the slot is empty.
func (sm *SHAMap) walkToKey(key [32]byte, stack *[]pathEntry) *LeafNode {
	inner := sm.root
	nodeID := NewRootNodeID()
	for {
		if stack != nil {
			*stack = append(*stack, pathEntry{inner, nodeID})
		}
		branch := nodeID.SelectBranch(key)
		child := inner.Child(branch)
		if child == nil {
			return nil
		}
		if child.IsLeaf() {
			return child.(*LeafNode)
		}
		inner = child.(*InnerNode)
		nodeID = nodeID.ChildNodeID(branch)
	}
}

// Has checks if an item with the given key exists.
func (sm *SHAMap) Has(key [32]byte) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	leaf := sm.walkToKey(key, nil)
	return leaf != nil && leaf.Item().Key() == key
}

// Get returns the item associated with the key.
func (sm *SHAMap) Get(key [32]byte) (*Item, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	leaf := sm.walkToKey(key, nil)
	if leaf == nil || leaf.Item().Key() != key {
		return nil, false
	}
	return leaf.Item(), true
}

// Put adds or updates an item using the map's default leaf kind.
func (sm *SHAMap) Put(key [32]byte, data []byte) error {
	return sm.PutKind(key, data, sm.defaultLeafKind())
}

// PutKind adds or updates an item with an explicit leaf kind. The
// transaction tree of a closing ledger uses KindTransactionMeta leaves.
func (sm *SHAMap) PutKind(key [32]byte, data []byte, kind NodeKind) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state != StateModifying {
		return ErrImmutable
	}
	return sm.putItem(NewItem(key, data), kind)
}

func (sm *SHAMap) putItem(item *Item, kind NodeKind) error {
	key := item.Key()
	stack := make([]pathEntry, 0, MaxDepth)
	leaf := sm.walkToKey(key, &stack)

	newLeaf, err := NewLeafNode(kind, item, sm.cowid)
	if err != nil {
		return err
	}

	if leaf == nil {
		// Empty slot: hang the new leaf off the deepest traversed inner.
		return sm.dirtyUp(stack, key, newLeaf)
	}

	existingKey := leaf.Item().Key()
	if existingKey == key {
		// Same key: replace in place.
		return sm.dirtyUp(stack, key, newLeaf)
	}

	// Different key sharing a prefix: grow inner nodes down to the first
	// nibble where the two keys diverge, then place both leaves.
	splitDepth := len(stack)
	for splitDepth < MaxDepth &&
		branchAtDepth(key, splitDepth) == branchAtDepth(existingKey, splitDepth) {
		splitDepth++
	}
	if splitDepth >= MaxDepth {
		return ErrMaxDepth
	}

	deepest := NewInnerNode(sm.cowid)
	deepest.SetChild(branchAtDepth(key, splitDepth), newLeaf)
	deepest.SetChild(branchAtDepth(existingKey, splitDepth), leaf)

	node := TreeNode(deepest)
	for d := splitDepth - 1; d >= len(stack); d-- {
		inner := NewInnerNode(sm.cowid)
		inner.SetChild(branchAtDepth(key, d), node)
		node = inner
	}
	return sm.dirtyUp(stack, key, node)
}

// dirtyUp rewrites the path from the deepest traversed node back to the
// root, cloning every inner node not owned by this map. This is the
// copy-on-write step: siblings hang off the clones by reference.
func (sm *SHAMap) dirtyUp(stack []pathEntry, key [32]byte, child TreeNode) error {
	current := child
	for i := len(stack) - 1; i >= 0; i-- {
		inner := stack[i].node
		if inner.cowID() != sm.cowid {
			inner = inner.clone(sm.cowid).(*InnerNode)
		}
		inner.SetChild(stack[i].nodeID.SelectBranch(key), current)
		current = inner
	}
	root, ok := current.(*InnerNode)
	if !ok {
		return fmt.Errorf("shamap: root must be an inner node, got %T", current)
	}
	sm.root = root
	return nil
}

// Delete removes the item with the given key, collapsing inner nodes left
// with a single leaf below them.
func (sm *SHAMap) Delete(key [32]byte) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state != StateModifying {
		return ErrImmutable
	}

	stack := make([]pathEntry, 0, MaxDepth)
	leaf := sm.walkToKey(key, &stack)
	if leaf == nil || leaf.Item().Key() != key {
		return ErrItemNotFound
	}

	var current TreeNode // nil: the branch becomes empty
	for i := len(stack) - 1; i >= 0; i-- {
		inner := stack[i].node
		if inner.cowID() != sm.cowid {
			inner = inner.clone(sm.cowid).(*InnerNode)
		}
		inner.SetChild(stack[i].nodeID.SelectBranch(key), current)

		if stack[i].nodeID.IsRoot() {
			sm.root = inner
			return nil
		}

		switch inner.BranchCount() {
		case 0:
			current = nil
		case 1:
			if only := onlyBelow(inner); only != nil {
				// A lone leaf moves up to replace the chain of inners.
				lifted, err := NewLeafNode(only.Kind(), only.Item(), sm.cowid)
				if err != nil {
					return err
				}
				current = lifted
			} else {
				current = inner
			}
		default:
			current = inner
		}
	}
	return nil
}

// onlyBelow returns the single leaf under node, or nil if there are zero or
// multiple leaves.
func onlyBelow(node TreeNode) *LeafNode {
	for node != nil && !node.IsLeaf() {
		inner := node.(*InnerNode)
		var next TreeNode
		for i := 0; i < BranchFactor; i++ {
			if child := inner.Child(i); child != nil {
				if next != nil {
					return nil
				}
				next = child
			}
		}
		node = next
	}
	if node == nil {
		return nil
	}
	return node.(*LeafNode)
}

// Snapshot returns a copy of the map sharing all nodes with the original.
// Both maps receive fresh copy-on-write generations, so subsequent writes on
// either side clone only the paths they touch.
func (sm *SHAMap) Snapshot(mutable bool) *SHAMap {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state := StateImmutable
	if mutable {
		state = StateModifying
	}
	snap := &SHAMap{
		root:      sm.root,
		mapType:   sm.mapType,
		state:     state,
		cowid:     newCowID(),
		ledgerSeq: sm.ledgerSeq,
	}
	if sm.state == StateModifying {
		sm.cowid = newCowID()
	}
	return snap
}

// ForEach calls fn for every item in key order. Returning false stops early.
func (sm *SHAMap) ForEach(fn func(*Item) bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.visit(sm.root, fn)
}

func (sm *SHAMap) visit(node TreeNode, fn func(*Item) bool) bool {
	if node == nil {
		return true
	}
	if node.IsLeaf() {
		return fn(node.(*LeafNode).Item())
	}
	inner := node.(*InnerNode)
	for i := 0; i < BranchFactor; i++ {
		if child := inner.Child(i); child != nil {
			if !sm.visit(child, fn) {
				return false
			}
		}
	}
	return true
}

// Count returns the number of stored items.
func (sm *SHAMap) Count() int {
	n := 0
	sm.ForEach(func(*Item) bool {
		n++
		return true
	})
	return n
}

// FlushDirty writes every node owned by this map to w, tagging it with the
// given ledger sequence, and releases ownership so the nodes become shared.
// Called once when a ledger closes, never per mutation. Returns the number
// of nodes written.
func (sm *SHAMap) FlushDirty(w NodeWriter, ledgerSeq uint32) (int, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.flush(sm.root, w, ledgerSeq)
}

func (sm *SHAMap) flush(node TreeNode, w NodeWriter, ledgerSeq uint32) (int, error) {
	// A clean node cannot have dirty descendants: mutation path-copies
	// every ancestor of the touched leaf.
	if node == nil || node.cowID() != sm.cowid {
		return 0, nil
	}
	flushed := 0
	if inner, ok := node.(*InnerNode); ok {
		for i := 0; i < BranchFactor; i++ {
			n, err := sm.flush(inner.Child(i), w, ledgerSeq)
			if err != nil {
				return flushed, err
			}
			flushed += n
		}
		if err := w.PutNode(inner.Hash(), KindInner, inner.serialize(), ledgerSeq); err != nil {
			return flushed, err
		}
	} else {
		leaf := node.(*LeafNode)
		if err := w.PutNode(leaf.Hash(), leaf.Kind(), leaf.serialize(), ledgerSeq); err != nil {
			return flushed, err
		}
	}
	setShared(node)
	return flushed + 1, nil
}

// setShared releases a node's ownership. Generation zero is never issued to
// a map, so the node can no longer be mutated in place by anyone.
func setShared(node TreeNode) {
	switch n := node.(type) {
	case *InnerNode:
		n.cowid = 0
	case *LeafNode:
		n.cowid = 0
	}
}

func (sm *SHAMap) defaultLeafKind() NodeKind {
	if sm.mapType == TypeTransaction {
		return KindTransaction
	}
	return KindAccountState
}
