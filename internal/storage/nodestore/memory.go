package nodestore

import "sync"

// MemoryBackend is an in-memory Backend for tests and standalone mode.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   map[[32]byte][]byte
	closed bool
}

// NewMemoryBackend creates a new in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[[32]byte][]byte)}
}

// Name returns the name of this backend.
func (m *MemoryBackend) Name() string {
	return "memory"
}

// Store persists one node.
func (m *MemoryBackend) Store(n *Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[n.Hash] = encodeNode(n)
	return nil
}

// StoreBatch persists several nodes.
func (m *MemoryBackend) StoreBatch(nodes []*Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, n := range nodes {
		m.data[n.Hash] = encodeNode(n)
	}
	return nil
}

// Fetch retrieves a node by content hash.
func (m *MemoryBackend) Fetch(hash [32]byte) (*Node, error) {
	m.mu.RLock()
	value, found := m.data[hash]
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !found {
		return nil, ErrNotFound
	}
	return decodeNode(hash, value)
}

// Count returns the number of stored nodes.
func (m *MemoryBackend) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close clears the backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
