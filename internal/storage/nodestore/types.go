// Package nodestore provides content-addressed persistent storage for
// Merkle-tree nodes. Dirty nodes are flushed here once per closed ledger;
// the store never sees per-mutation traffic.
package nodestore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a node is not present in the backend.
	ErrNotFound = errors.New("nodestore: node not found")
	// ErrClosed is returned when operating on a closed backend.
	ErrClosed = errors.New("nodestore: backend closed")
	// ErrCorrupt is returned when a stored value fails to decode or its
	// content hash does not match its key. This is fatal for the caller:
	// state loaded from a corrupt node would diverge between nodes.
	ErrCorrupt = errors.New("nodestore: corrupt node")
)

// Kind mirrors the tree node kinds so a node can be rebuilt without
// guessing its role.
type Kind uint32

const (
	KindUnknown Kind = iota
	KindInner
	KindTransaction
	KindTransactionMeta
	KindAccountState
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindInner:
		return "inner"
	case KindTransaction:
		return "transaction"
	case KindTransactionMeta:
		return "transaction+meta"
	case KindAccountState:
		return "account-state"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Node is one stored tree node.
type Node struct {
	Kind      Kind
	Hash      [32]byte
	Data      []byte
	LedgerSeq uint32
}

// Backend is a physical key-value store for nodes.
type Backend interface {
	// Name identifies the backend implementation.
	Name() string

	// Store persists one node.
	Store(n *Node) error

	// StoreBatch persists several nodes atomically where the backend
	// supports it.
	StoreBatch(nodes []*Node) error

	// Fetch retrieves a node by content hash.
	Fetch(hash [32]byte) (*Node, error)

	// Close releases backend resources.
	Close() error
}
