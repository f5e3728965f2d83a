package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcledger/arcd/internal/core/ledger/keylet"
	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/storage/nodestore"
)

func testGenesisConfig() GenesisConfig {
	return GenesisConfig{
		MasterSeed:          "masterpassphrase",
		TotalDrops:          100_000_000_000,
		BaseFee:             10,
		ReserveBase:         20_000_000,
		ReserveIncrement:    5_000_000,
		CloseTimeResolution: 10,
	}
}

func TestGenesisIsDeterministic(t *testing.T) {
	a, err := Genesis(testGenesisConfig(), nil)
	require.NoError(t, err)
	b, err := Genesis(testGenesisConfig(), nil)
	require.NoError(t, err)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.NotEqual(t, [32]byte{}, ha)

	// A different supply is a different ledger.
	cfg := testGenesisConfig()
	cfg.TotalDrops = 1
	c, err := Genesis(cfg, nil)
	require.NoError(t, err)
	hc, err := c.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestGenesisState(t *testing.T) {
	l, err := Genesis(testGenesisConfig(), nil)
	require.NoError(t, err)
	assert.False(t, l.IsOpen())
	assert.Equal(t, uint32(1), l.Sequence())

	master := crypto.NewKeyPairFromSeed([]byte("masterpassphrase"))
	data, ok := l.Read(keylet.Account(master.ID()).Key)
	require.True(t, ok)
	acct, err := sle.DecodeAccountRoot(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000_000), acct.Balance)
	assert.Equal(t, uint32(1), acct.Sequence)

	feeData, ok := l.Read(keylet.Fees().Key)
	require.True(t, ok)
	fees, err := sle.DecodeFeeSettings(feeData)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000_000), fees.ReserveBase)
}

func TestOpenLedgerIsolation(t *testing.T) {
	parent, err := Genesis(testGenesisConfig(), nil)
	require.NoError(t, err)
	parentState := parent.StateMap().Hash()

	child, err := NewOpen(parent)
	require.NoError(t, err)
	assert.True(t, child.IsOpen())
	assert.Equal(t, parent.Sequence()+1, child.Sequence())

	key := crypto.Sha512Half([]byte("scratch"))
	require.NoError(t, child.Write(key, []byte("data")))
	require.NoError(t, child.Erase(key))
	require.NoError(t, child.Write(key, []byte("data2")))

	// The parent's tree is unaffected by anything done to the child.
	assert.Equal(t, parentState, parent.StateMap().Hash())

	_, err = child.Hash()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestAcceptSealsLedger(t *testing.T) {
	parent, err := Genesis(testGenesisConfig(), nil)
	require.NoError(t, err)
	parentHash, err := parent.Hash()
	require.NoError(t, err)

	child, err := NewOpen(parent)
	require.NoError(t, err)
	require.NoError(t, child.Accept(nil, 12345, 0))

	info := child.Info()
	assert.Equal(t, parentHash, info.ParentHash)
	assert.Equal(t, uint32(12345), info.CloseTime)
	assert.Equal(t, child.StateMap().Hash(), info.AccountHash)
	assert.Equal(t, child.TxMap().Hash(), info.TxHash)
	assert.Equal(t, CalculateHash(&info), info.Hash)

	// Sealed means sealed.
	assert.ErrorIs(t, child.Write([32]byte{1}, []byte("x")), ErrClosed)
	assert.ErrorIs(t, child.Accept(nil, 99999, 0), ErrClosed)

	// Opening on an open ledger is rejected.
	open, err := NewOpen(child)
	require.NoError(t, err)
	_, err = NewOpen(open)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestRecordedTransactionsChangeTxHash(t *testing.T) {
	parent, err := Genesis(testGenesisConfig(), nil)
	require.NoError(t, err)

	a, err := NewOpen(parent)
	require.NoError(t, err)
	require.NoError(t, a.Accept(nil, 100, 0))

	b, err := NewOpen(parent)
	require.NoError(t, err)
	txID := crypto.Sha512Half([]byte("some tx"))
	require.NoError(t, b.RecordTransaction(txID, []byte("tx with meta")))
	require.NoError(t, b.Accept(nil, 100, 0))

	assert.NotEqual(t, a.Info().TxHash, b.Info().TxHash)
	assert.Equal(t, a.Info().AccountHash, b.Info().AccountHash)
	assert.NotEqual(t, a.Info().Hash, b.Info().Hash)
}

func buildChain(t *testing.T, length int) []*Ledger {
	t.Helper()
	genesis, err := Genesis(testGenesisConfig(), nil)
	require.NoError(t, err)
	chain := []*Ledger{genesis}
	for i := 1; i < length; i++ {
		next, err := NewOpen(chain[len(chain)-1])
		require.NoError(t, err)
		require.NoError(t, next.Accept(nil, uint32(1000+i*10), 0))
		chain = append(chain, next)
	}
	return chain
}

func TestAncestorHash(t *testing.T) {
	chain := buildChain(t, 12)
	tip := chain[len(chain)-1]

	for _, anc := range chain[:len(chain)-1] {
		want, err := anc.Hash()
		require.NoError(t, err)
		got, ok := tip.AncestorHash(anc.Sequence())
		require.True(t, ok, "sequence %d not resolvable", anc.Sequence())
		assert.Equal(t, want, got)
	}

	_, ok := tip.AncestorHash(tip.Sequence())
	assert.False(t, ok)
	_, ok = tip.AncestorHash(tip.Sequence() + 1)
	assert.False(t, ok)
	_, ok = tip.AncestorHash(0)
	assert.False(t, ok)
}

// headerIndex is an in-memory stand-in for the ledger index: it maps ledger
// hashes to state roots the way the relational store does.
type headerIndex map[[32]byte][32]byte

func (h headerIndex) StateRootByHash(hash [32]byte) ([32]byte, error) {
	root, ok := h[hash]
	if !ok {
		return [32]byte{}, fmt.Errorf("no header for %x", hash[:4])
	}
	return root, nil
}

// buildStoredChain closes length ledgers through a node store, returning the
// tip, the hash of every ledger by sequence and a header index over them.
func buildStoredChain(t *testing.T, store *nodestore.Store, length int) (*Ledger, map[uint32][32]byte, headerIndex) {
	t.Helper()

	batch := store.NewBatch()
	current, err := Genesis(testGenesisConfig(), batch)
	require.NoError(t, err)
	require.NoError(t, batch.Commit())

	hashes := map[uint32][32]byte{current.Sequence(): current.Info().Hash}
	headers := headerIndex{current.Info().Hash: current.Info().AccountHash}

	for i := 1; i < length; i++ {
		next, err := NewOpen(current)
		require.NoError(t, err)
		batch := store.NewBatch()
		require.NoError(t, next.Accept(batch, uint32(1000+i*10), 0))
		require.NoError(t, batch.Commit())
		current = next
		hashes[current.Sequence()] = current.Info().Hash
		headers[current.Info().Hash] = current.Info().AccountHash
	}
	return current, hashes, headers
}

func TestResolverDeepAncestors(t *testing.T) {
	store, err := nodestore.NewStore(nodestore.NewMemoryBackend(), 1024)
	require.NoError(t, err)
	defer store.Close()

	tip, hashes, headers := buildStoredChain(t, store, 300)
	require.Equal(t, uint32(300), tip.Sequence())

	// On its own the tip cannot see past its short window except at the
	// 256 stride.
	_, ok := tip.AncestorHash(20)
	require.False(t, ok)

	r := NewResolver(store, headers)
	for seq := uint32(1); seq < tip.Sequence(); seq++ {
		got, err := r.AncestorHash(tip, seq)
		require.NoError(t, err, "sequence %d", seq)
		assert.Equal(t, hashes[seq], got, "sequence %d", seq)
	}

	_, err = r.AncestorHash(tip, 0)
	assert.ErrorIs(t, err, ErrNoAncestor)
	_, err = r.AncestorHash(tip, tip.Sequence())
	assert.ErrorIs(t, err, ErrNoAncestor)
}

func TestLoadFromStoreRoundTrip(t *testing.T) {
	store, err := nodestore.NewStore(nodestore.NewMemoryBackend(), 1024)
	require.NoError(t, err)
	defer store.Close()

	batch := store.NewBatch()
	original, err := Genesis(testGenesisConfig(), batch)
	require.NoError(t, err)
	require.NoError(t, batch.Commit())

	next, err := NewOpen(original)
	require.NoError(t, err)
	txID := crypto.Sha512Half([]byte("recorded"))
	require.NoError(t, next.RecordTransaction(txID, []byte("tx with meta")))
	batch = store.NewBatch()
	require.NoError(t, next.Accept(batch, 2000, 0))
	require.NoError(t, batch.Commit())

	loaded, err := LoadFromStore(store, next.Info())
	require.NoError(t, err)
	assert.Equal(t, next.Info(), loaded.Info())
	assert.False(t, loaded.IsOpen())
	assert.Equal(t, next.StateMap().Hash(), loaded.StateMap().Hash())
	assert.Equal(t, next.TxMap().Hash(), loaded.TxMap().Hash())

	// The recorded transaction is back in the rebuilt tree.
	_, found := loaded.TxMap().Get(txID)
	assert.True(t, found)

	// The rebuilt tip chains forward like the one it replaced.
	cont, err := NewOpen(loaded)
	require.NoError(t, err)
	require.NoError(t, cont.Accept(nil, 3000, 0))
	assert.Equal(t, next.Info().Hash, cont.Info().ParentHash)

	// A tampered header is refused.
	bad := next.Info()
	bad.TotalDrops++
	_, err = LoadFromStore(store, bad)
	assert.ErrorIs(t, err, nodestore.ErrCorrupt)
}

func TestHashChain(t *testing.T) {
	chain := buildChain(t, 5)
	for i := 1; i < len(chain); i++ {
		parentHash, err := chain[i-1].Hash()
		require.NoError(t, err)
		assert.Equal(t, parentHash, chain[i].Info().ParentHash)
		assert.Equal(t, chain[i-1].Info().CloseTime, chain[i].Info().ParentCloseTime)
	}
}
