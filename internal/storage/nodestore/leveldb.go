package nodestore

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBBackend stores nodes in a goleveldb instance. Kept alongside the
// pebble backend so deployments can pick either engine from config.
type LevelDBBackend struct {
	db     *leveldb.DB
	closed atomic.Bool
}

// NewLevelDBBackend opens (or creates) a leveldb database at path.
func NewLevelDBBackend(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("nodestore: open leveldb at %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

// Name returns the name of this backend.
func (l *LevelDBBackend) Name() string {
	return "leveldb"
}

// Store persists one node.
func (l *LevelDBBackend) Store(n *Node) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if err := l.db.Put(n.Hash[:], encodeNode(n), nil); err != nil {
		return fmt.Errorf("nodestore: leveldb put: %w", err)
	}
	return nil
}

// StoreBatch persists several nodes in one write batch.
func (l *LevelDBBackend) StoreBatch(nodes []*Node) error {
	if l.closed.Load() {
		return ErrClosed
	}
	batch := new(leveldb.Batch)
	for _, n := range nodes {
		batch.Put(n.Hash[:], encodeNode(n))
	}
	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("nodestore: leveldb write: %w", err)
	}
	return nil
}

// Fetch retrieves a node by content hash.
func (l *LevelDBBackend) Fetch(hash [32]byte) (*Node, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	value, err := l.db.Get(hash[:], nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("nodestore: leveldb get: %w", err)
	}
	return decodeNode(hash, value)
}

// Close closes the database.
func (l *LevelDBBackend) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.db.Close()
}
