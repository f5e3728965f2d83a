package nodestore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcledger/arcd/internal/core/shamap"
	"github.com/arcledger/arcd/internal/crypto"
)

func makeNode(tag byte, size int) *Node {
	data := bytes.Repeat([]byte{tag}, size)
	return &Node{
		Kind:      KindAccountState,
		Hash:      crypto.Sha512Half(data),
		Data:      data,
		LedgerSeq: 7,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	tt := []struct {
		name string
		node *Node
	}{
		{"small uncompressed", makeNode(0x11, 16)},
		{"large compressible", makeNode(0x22, 4096)},
		{"empty", makeNode(0x33, 0)},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeNode(tc.node.Hash, encodeNode(tc.node))
			require.NoError(t, err)
			require.Equal(t, tc.node.Kind, got.Kind)
			require.Equal(t, tc.node.LedgerSeq, got.LedgerSeq)
			require.Equal(t, tc.node.Data, got.Data)
		})
	}
}

func TestCodecRejectsTruncated(t *testing.T) {
	_, err := decodeNode([32]byte{}, []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCorrupt)
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	pb, err := NewPebbleBackend(t.TempDir())
	require.NoError(t, err)
	ldb, err := NewLevelDBBackend(t.TempDir())
	require.NoError(t, err)
	return map[string]Backend{
		"memory":  NewMemoryBackend(),
		"pebble":  pb,
		"leveldb": ldb,
	}
}

func TestBackends(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer backend.Close()

			n := makeNode(0x42, 512)
			require.NoError(t, backend.Store(n))

			got, err := backend.Fetch(n.Hash)
			require.NoError(t, err)
			require.Equal(t, n.Data, got.Data)
			require.Equal(t, n.Kind, got.Kind)

			_, err = backend.Fetch(crypto.Sha512Half([]byte("missing")))
			require.ErrorIs(t, err, ErrNotFound)

			batch := []*Node{makeNode(0x01, 64), makeNode(0x02, 64)}
			require.NoError(t, backend.StoreBatch(batch))
			for _, bn := range batch {
				got, err := backend.Fetch(bn.Hash)
				require.NoError(t, err)
				require.Equal(t, bn.Data, got.Data)
			}
		})
	}
}

func TestStoreBatchFlushFromTree(t *testing.T) {
	store, err := NewStore(NewMemoryBackend(), 128)
	require.NoError(t, err)
	defer store.Close()

	sm := shamap.New(shamap.TypeState)
	for i := 0; i < 30; i++ {
		key := crypto.Sha512Half([]byte{byte(i)})
		require.NoError(t, sm.Put(key, []byte{byte(i), 0xFF}))
	}

	batch := store.NewBatch()
	flushed, err := sm.FlushDirty(batch, 2)
	require.NoError(t, err)
	require.Equal(t, flushed, batch.Len())
	require.NoError(t, batch.Commit())

	// The root must now be fetchable by its digest.
	root, err := store.Fetch(sm.Hash())
	require.NoError(t, err)
	require.Equal(t, KindInner, root.Kind)
	require.Equal(t, uint32(2), root.LedgerSeq)

	// Committing an empty batch is a no-op.
	require.NoError(t, store.NewBatch().Commit())
}

func TestStoreCache(t *testing.T) {
	backend := NewMemoryBackend()
	store, err := NewStore(backend, 16)
	require.NoError(t, err)

	n := makeNode(0x55, 256)
	require.NoError(t, backend.Store(n))

	got, err := store.Fetch(n.Hash)
	require.NoError(t, err)

	// Remove from the backend; the cached copy must still be served.
	require.NoError(t, backend.Close())
	cached, err := store.Fetch(n.Hash)
	require.NoError(t, err)
	require.Equal(t, got, cached)
}
