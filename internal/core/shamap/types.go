// Package shamap implements the content-addressed Merkle map backing the
// ledger's account-state and transaction trees. It is a radix-16 trie over
// 256-bit keys with copy-on-write snapshots: a snapshot shares every node
// with its parent, and a mutation reallocates only the path from the root to
// the touched leaf.
package shamap

import "errors"

// MaxDepth is the maximum trie depth: 64 nibbles of a 256-bit key.
const MaxDepth = 64

// BranchFactor is the fan-out of inner nodes (one branch per nibble value).
const BranchFactor = 16

var (
	ErrImmutable    = errors.New("cannot modify immutable SHAMap")
	ErrNilItem      = errors.New("cannot add nil item")
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidType  = errors.New("invalid node type")
	ErrMaxDepth     = errors.New("maximum tree depth reached")
	ErrInvalidState = errors.New("invalid state for operation")
)

// State defines the lifecycle state of a SHAMap.
type State int

const (
	StateModifying State = iota
	StateImmutable
	StateInvalid
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateModifying:
		return "modifying"
	case StateImmutable:
		return "immutable"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Type defines which tree a SHAMap represents.
type Type int

const (
	TypeTransaction Type = iota
	TypeState
)

// String returns a string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeTransaction:
		return "transaction"
	case TypeState:
		return "state"
	default:
		return "unknown"
	}
}

// NodeKind identifies the serialized form of a tree node.
type NodeKind int

const (
	KindInner NodeKind = iota + 1
	KindTransaction
	KindTransactionMeta
	KindAccountState
)

// NodeWriter receives dirty nodes during a flush. Implemented by the
// nodestore batch writer.
type NodeWriter interface {
	PutNode(hash [32]byte, kind NodeKind, data []byte, ledgerSeq uint32) error
}
