package nodestore

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend stores nodes in a PebbleDB instance. This is the default
// durable backend.
type PebbleBackend struct {
	db     *pebble.DB
	closed atomic.Bool
}

// NewPebbleBackend opens (or creates) a pebble database at path.
func NewPebbleBackend(path string) (*PebbleBackend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("nodestore: open pebble at %s: %w", path, err)
	}
	return &PebbleBackend{db: db}, nil
}

// Name returns the name of this backend.
func (p *PebbleBackend) Name() string {
	return "pebble"
}

// Store persists one node.
func (p *PebbleBackend) Store(n *Node) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := p.db.Set(n.Hash[:], encodeNode(n), pebble.Sync); err != nil {
		return fmt.Errorf("nodestore: pebble set: %w", err)
	}
	return nil
}

// StoreBatch persists several nodes in one atomic batch.
func (p *PebbleBackend) StoreBatch(nodes []*Node) error {
	if p.closed.Load() {
		return ErrClosed
	}
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, n := range nodes {
		if err := batch.Set(n.Hash[:], encodeNode(n), nil); err != nil {
			return fmt.Errorf("nodestore: pebble batch set: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("nodestore: pebble commit: %w", err)
	}
	return nil
}

// Fetch retrieves a node by content hash.
func (p *PebbleBackend) Fetch(hash [32]byte) (*Node, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	value, closer, err := p.db.Get(hash[:])
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("nodestore: pebble get: %w", err)
	}
	defer closer.Close()

	// decodeNode copies the payload, so the pebble buffer can be released.
	return decodeNode(hash, value)
}

// Close closes the database.
func (p *PebbleBackend) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.db.Close()
}
