package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/arcledger/arcd/internal/core/ledger/keylet"
	"github.com/arcledger/arcd/internal/core/shamap"
	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/storage/nodestore"
)

// ErrNoAncestor is returned when a sequence is not an ancestor of the
// ledger, or its hash is no longer reachable.
var ErrNoAncestor = errors.New("ledger: ancestor not resolvable")

// NodeSource supplies stored tree nodes by content hash.
type NodeSource interface {
	Fetch(hash [32]byte) (*nodestore.Node, error)
}

// HeaderSource supplies the state root of a stored ledger header.
type HeaderSource interface {
	StateRootByHash(hash [32]byte) ([32]byte, error)
}

// Resolver answers ancestor lookups beyond the windows a ledger carries in
// its own skip list entries. A ledger by itself reaches its last 256
// ancestors plus the flag ledgers on the 256 stride; for anything older the
// resolver hops to the nearest flag ledger above the target, loads that
// ledger's short skip list out of the node store and reads the hash there.
// Two skip list reads suffice for any depth.
type Resolver struct {
	nodes   NodeSource
	headers HeaderSource
}

// NewResolver builds a resolver over a node store and a header index.
func NewResolver(nodes NodeSource, headers HeaderSource) *Resolver {
	return &Resolver{nodes: nodes, headers: headers}
}

// AncestorHash resolves the hash of ledger seq in l's chain.
func (r *Resolver) AncestorHash(l *Ledger, seq uint32) ([32]byte, error) {
	if hash, ok := l.AncestorHash(seq); ok {
		return hash, nil
	}
	if seq == 0 || seq >= l.Sequence() {
		return [32]byte{}, ErrNoAncestor
	}

	// The nearest flag ledger above seq still covers it in its short list.
	flagSeq := (seq/flagLedgerInterval + 1) * flagLedgerInterval
	flagHash, ok := l.AncestorHash(flagSeq)
	if !ok {
		return [32]byte{}, ErrNoAncestor
	}
	stateRoot, err := r.headers.StateRootByHash(flagHash)
	if err != nil {
		return [32]byte{}, fmt.Errorf("ledger: flag ledger %d header: %w", flagSeq, err)
	}
	data, err := fetchLeaf(r.nodes, stateRoot, keylet.SkipList().Key)
	if err != nil {
		return [32]byte{}, err
	}
	lh, err := sle.DecodeLedgerHashes(data)
	if err != nil {
		return [32]byte{}, err
	}
	if seq > lh.LastLedgerSequence {
		return [32]byte{}, ErrNoAncestor
	}
	idx := len(lh.Hashes) - 1 - int(lh.LastLedgerSequence-seq)
	if idx < 0 {
		return [32]byte{}, ErrNoAncestor
	}
	return lh.Hashes[idx], nil
}

// fetchLeaf walks a stored state tree from its root down to the leaf
// holding key, one node fetch per nibble of shared prefix.
func fetchLeaf(nodes NodeSource, root [32]byte, key [32]byte) ([]byte, error) {
	hash := root
	for depth := 0; depth < shamap.MaxDepth; depth++ {
		n, err := nodes.Fetch(hash)
		if err != nil {
			return nil, err
		}
		if n.Kind != nodestore.KindInner {
			if len(n.Data) < 32 || !bytes.Equal(n.Data[:32], key[:]) {
				return nil, ErrNoAncestor
			}
			return n.Data[32:], nil
		}
		if len(n.Data) != shamap.BranchFactor*32 {
			return nil, nodestore.ErrCorrupt
		}
		branch := branchNibble(key, depth)
		next := [32]byte{}
		copy(next[:], n.Data[branch*32:(branch+1)*32])
		if next == ([32]byte{}) {
			return nil, ErrNoAncestor
		}
		hash = next
	}
	return nil, ErrNoAncestor
}

func branchNibble(key [32]byte, depth int) int {
	b := key[depth/2]
	if depth%2 == 0 {
		return int(b >> 4)
	}
	return int(b & 0x0F)
}
