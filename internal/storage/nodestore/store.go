package nodestore

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arcledger/arcd/internal/core/shamap"
)

// Store wraps a Backend with an LRU read cache and batched flush sessions.
type Store struct {
	backend Backend
	cache   *lru.Cache[[32]byte, *Node]
}

// NewStore creates a store over the given backend with a cache of the given
// capacity (in nodes).
func NewStore(backend Backend, cacheSize int) (*Store, error) {
	cache, err := lru.New[[32]byte, *Node](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("nodestore: cache: %w", err)
	}
	return &Store{backend: backend, cache: cache}, nil
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Fetch retrieves a node, consulting the cache first.
func (s *Store) Fetch(hash [32]byte) (*Node, error) {
	if n, ok := s.cache.Get(hash); ok {
		return n, nil
	}
	n, err := s.backend.Fetch(hash)
	if err != nil {
		return nil, err
	}
	s.cache.Add(hash, n)
	return n, nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// NewBatch opens a flush session. The batch implements shamap.NodeWriter so
// a tree can flush its dirty nodes straight into it; nothing reaches the
// backend until Commit.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Batch accumulates nodes for one atomic write.
type Batch struct {
	mu    sync.Mutex
	store *Store
	nodes []*Node
}

// PutNode implements shamap.NodeWriter.
func (b *Batch) PutNode(hash [32]byte, kind shamap.NodeKind, data []byte, ledgerSeq uint32) error {
	n := &Node{
		Kind:      kindFromTree(kind),
		Hash:      hash,
		Data:      data,
		LedgerSeq: ledgerSeq,
	}
	b.mu.Lock()
	b.nodes = append(b.nodes, n)
	b.mu.Unlock()
	return nil
}

// Len returns the number of buffered nodes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// Commit writes all buffered nodes to the backend and populates the cache.
func (b *Batch) Commit() error {
	b.mu.Lock()
	nodes := b.nodes
	b.nodes = nil
	b.mu.Unlock()

	if len(nodes) == 0 {
		return nil
	}
	if err := b.store.backend.StoreBatch(nodes); err != nil {
		return err
	}
	for _, n := range nodes {
		b.store.cache.Add(n.Hash, n)
	}
	return nil
}

func kindFromTree(kind shamap.NodeKind) Kind {
	switch kind {
	case shamap.KindInner:
		return KindInner
	case shamap.KindTransaction:
		return KindTransaction
	case shamap.KindTransactionMeta:
		return KindTransactionMeta
	case shamap.KindAccountState:
		return KindAccountState
	default:
		return KindUnknown
	}
}
