package close

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcledger/arcd/internal/core/ledger"
	"github.com/arcledger/arcd/internal/core/ledger/keylet"
	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/core/tx"
	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/storage/nodestore"
)

const (
	testFee     = 10
	testReserve = 20_000_000
)

func genesis(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Genesis(ledger.GenesisConfig{
		MasterSeed:          "masterpassphrase",
		TotalDrops:          100_000_000_000,
		BaseFee:             testFee,
		ReserveBase:         testReserve,
		ReserveIncrement:    5_000_000,
		CloseTimeResolution: 10,
	}, nil)
	require.NoError(t, err)
	return l
}

func master() *crypto.KeyPair {
	return crypto.NewKeyPairFromSeed([]byte("masterpassphrase"))
}

func signed(t *testing.T, kp *crypto.KeyPair, txn *tx.Transaction) *tx.Transaction {
	t.Helper()
	require.NoError(t, txn.Sign(kp))
	return txn
}

func balanceOf(t *testing.T, l *ledger.Ledger, id crypto.AccountID) uint64 {
	t.Helper()
	data, ok := l.Read(keylet.Account(id).Key)
	require.True(t, ok, "account not found")
	acct, err := sle.DecodeAccountRoot(data)
	require.NoError(t, err)
	return acct.Balance
}

func TestCloseEmptyBatch(t *testing.T) {
	parent := genesis(t)
	res, err := NewCloser(nil).Close(parent, nil, 5000)
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.False(t, res.Ledger.IsOpen())
	assert.Equal(t, parent.Info().AccountHash, res.Ledger.Info().AccountHash)
}

func TestClosePayment(t *testing.T) {
	parent := genesis(t)
	m := master()
	alice := crypto.NewKeyPairFromSeed([]byte("alice"))

	pay := signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(5_000_000_000), testFee, 1))
	res, err := NewCloser(nil).Close(parent, []*tx.Transaction{pay}, 5000)
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Passes)
	assert.Empty(t, res.Dropped)

	closed := res.Ledger
	assert.Equal(t, uint64(5_000_000_000), balanceOf(t, closed, alice.ID()))
	assert.Equal(t, uint64(100_000_000_000-5_000_000_000-testFee), balanceOf(t, closed, m.ID()))

	// The transaction is recoverable from the transaction tree with its
	// metadata.
	id, err := pay.ID()
	require.NoError(t, err)
	item, found := closed.TxMap().Get(id)
	require.True(t, found)
	gotTx, meta, err := tx.DecodeWithMeta(item.Data())
	require.NoError(t, err)
	assert.Equal(t, m.ID(), gotTx.Account)
	assert.Equal(t, tx.TesSUCCESS, meta.TransactionResult)
	assert.Equal(t, sle.NativeAmount(5_000_000_000), meta.DeliveredAmount)
}

func TestCloseIsDeterministic(t *testing.T) {
	m := master()
	accounts := make([]*crypto.KeyPair, 6)
	for i := range accounts {
		accounts[i] = crypto.NewKeyPairFromSeed([]byte{byte('a' + i)})
	}

	batch := func() []*tx.Transaction {
		var txs []*tx.Transaction
		for i, kp := range accounts {
			txs = append(txs, signed(t, m,
				tx.NewPayment(m.ID(), kp.ID(), sle.NativeAmount(uint64(30_000_000+i)), testFee, uint32(i+1))))
		}
		return txs
	}

	res1, err := NewCloser(nil).Close(genesis(t), batch(), 5000)
	require.NoError(t, err)

	// Shuffled submission order must produce the identical ledger.
	shuffled := batch()
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	res2, err := NewCloser(nil).Close(genesis(t), shuffled, 5000)
	require.NoError(t, err)

	h1 := res1.Ledger.Info().Hash
	h2 := res2.Ledger.Info().Hash
	assert.Equal(t, h1, h2)
	assert.Equal(t, res1.Results, res2.Results)
}

func TestCloseRepeatedRunsIdentical(t *testing.T) {
	m := master()
	var batch []*tx.Transaction
	for i := 0; i < 6; i++ {
		kp := crypto.NewKeyPairFromSeed([]byte{byte('p' + i)})
		batch = append(batch, signed(t, m,
			tx.NewPayment(m.ID(), kp.ID(), sle.NativeAmount(uint64(30_000_000+i)), testFee, uint32(i+1))))
	}

	// The same batch against the same parent must produce byte-identical
	// ledgers on every run, transaction tree included.
	base, err := NewCloser(nil).Close(genesis(t), batch, 5000)
	require.NoError(t, err)
	for run := 0; run < 7; run++ {
		res, err := NewCloser(nil).Close(genesis(t), batch, 5000)
		require.NoError(t, err)
		assert.Equal(t, base.Ledger.Info().TxHash, res.Ledger.Info().TxHash, "run %d", run)
		assert.Equal(t, base.Ledger.Info().Hash, res.Ledger.Info().Hash, "run %d", run)
		assert.Equal(t, base.AppliedIDs, res.AppliedIDs, "run %d", run)
	}
}

func TestCloseRetryConvergence(t *testing.T) {
	parent := genesis(t)
	m := master()
	alice := crypto.NewKeyPairFromSeed([]byte("alice"))
	bob := crypto.NewKeyPairFromSeed([]byte("bob"))

	// Alice does not exist until the master's payment applies; her own
	// payment retries until the funding lands, whatever the salted order
	// says.
	fund := signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(50_000_000_000), testFee, 1))
	fundBob := signed(t, m, tx.NewPayment(m.ID(), bob.ID(), sle.NativeAmount(30_000_000), testFee, 2))
	spend := signed(t, alice, tx.NewPayment(alice.ID(), bob.ID(), sle.NativeAmount(1_000_000_000), testFee, 1))

	res, err := NewCloser(nil).Close(parent, []*tx.Transaction{spend, fund, fundBob}, 5000)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Empty(t, res.Dropped)

	closed := res.Ledger
	assert.Equal(t, uint64(50_000_000_000-1_000_000_000-testFee), balanceOf(t, closed, alice.ID()))
	assert.Equal(t, uint64(30_000_000+1_000_000_000), balanceOf(t, closed, bob.ID()))

	id, err := spend.ID()
	require.NoError(t, err)
	assert.Equal(t, tx.TesSUCCESS, res.Results[id])
}

func TestCloseDropsHopelessRetries(t *testing.T) {
	parent := genesis(t)
	ghost := crypto.NewKeyPairFromSeed([]byte("ghost"))
	m := master()

	orphan := signed(t, ghost, tx.NewPayment(ghost.ID(), m.ID(), sle.NativeAmount(1_000), testFee, 1))
	res, err := NewCloser(nil).Close(parent, []*tx.Transaction{orphan}, 5000)
	require.NoError(t, err)

	assert.Zero(t, res.Applied)
	require.Len(t, res.Dropped, 1)
	id, err := orphan.ID()
	require.NoError(t, err)
	assert.Equal(t, id, res.Dropped[0])
	assert.Equal(t, tx.TerNO_ACCOUNT, res.Results[id])

	// Dropped means no trace in the ledger and no fee charged anywhere.
	_, found := res.Ledger.TxMap().Get(id)
	assert.False(t, found)
	assert.Equal(t, uint64(100_000_000_000), balanceOf(t, res.Ledger, m.ID()))
}

func TestCloseDiscardsMalformed(t *testing.T) {
	parent := genesis(t)
	m := master()
	alice := crypto.NewKeyPairFromSeed([]byte("alice"))

	bad := signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(30_000_000), 0, 1))
	good := signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(30_000_000), testFee, 1))

	res, err := NewCloser(nil).Close(parent, []*tx.Transaction{bad, good}, 5000)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Empty(t, res.Dropped)

	badID, err := bad.ID()
	require.NoError(t, err)
	assert.Equal(t, tx.TemBAD_FEE, res.Results[badID])
	_, found := res.Ledger.TxMap().Get(badID)
	assert.False(t, found)
}

func TestCloseRejectsBadSignatures(t *testing.T) {
	parent := genesis(t)
	m := master()
	alice := crypto.NewKeyPairFromSeed([]byte("alice"))
	mallory := crypto.NewKeyPairFromSeed([]byte("mallory"))

	// Signed by the wrong key: excluded before the first pass.
	forged := signed(t, mallory, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(30_000_000), testFee, 1))
	good := signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(30_000_000), testFee, 1))

	res, err := NewCloser(nil).Close(parent, []*tx.Transaction{forged, good}, 5000)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	forgedID, err := forged.ID()
	require.NoError(t, err)
	assert.Equal(t, tx.TefBAD_AUTH, res.Results[forgedID])
	_, found := res.Ledger.TxMap().Get(forgedID)
	assert.False(t, found)
	assert.Equal(t, uint64(100_000_000_000-30_000_000-testFee), balanceOf(t, res.Ledger, m.ID()))
}

func TestCloseFreezeScenario(t *testing.T) {
	m := master()
	gw := crypto.NewKeyPairFromSeed([]byte("gateway"))
	alice := crypto.NewKeyPairFromSeed([]byte("alice"))
	bob := crypto.NewKeyPairFromSeed([]byte("bob"))
	usd := sle.CurrencyFromCode("USD")
	closer := NewCloser(nil)

	// Ledger 2: fund everyone.
	res, err := closer.Close(genesis(t), []*tx.Transaction{
		signed(t, m, tx.NewPayment(m.ID(), gw.ID(), sle.NativeAmount(1_000_000_000), testFee, 1)),
		signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(1_000_000_000), testFee, 2)),
		signed(t, m, tx.NewPayment(m.ID(), bob.ID(), sle.NativeAmount(1_000_000_000), testFee, 3)),
	}, 5000)
	require.NoError(t, err)
	require.Equal(t, 3, res.Applied)

	// Ledger 3: trust lines.
	res, err = closer.Close(res.Ledger, []*tx.Transaction{
		signed(t, alice, tx.NewTrustSet(alice.ID(), sle.IssuedUnits(1_000, usd, gw.ID()), testFee, 1)),
		signed(t, bob, tx.NewTrustSet(bob.ID(), sle.IssuedUnits(1_000, usd, gw.ID()), testFee, 1)),
	}, 5010)
	require.NoError(t, err)
	require.Equal(t, 2, res.Applied)

	// Ledger 4: issuance then freeze; same account, so sequence order
	// guarantees the issuance lands first.
	res, err = closer.Close(res.Ledger, []*tx.Transaction{
		signed(t, gw, tx.NewPayment(gw.ID(), alice.ID(), sle.IssuedUnits(100, usd, gw.ID()), testFee, 1)),
		signed(t, gw, tx.NewAccountSet(gw.ID(), sle.AccountSetFlagGlobalFreeze, 0, testFee, 2)),
	}, 5015)
	require.NoError(t, err)
	require.Equal(t, 2, res.Applied)

	// Ledger 5: the frozen transfer fails with a claimed fee, the redeem
	// to the issuer still clears.
	transfer := signed(t, alice, tx.NewPayment(alice.ID(), bob.ID(), sle.IssuedUnits(10, usd, gw.ID()), testFee, 2))
	redeem := signed(t, alice, tx.NewPayment(alice.ID(), gw.ID(), sle.IssuedUnits(10, usd, gw.ID()), testFee, 3))
	res, err = closer.Close(res.Ledger, []*tx.Transaction{transfer, redeem}, 5020)
	require.NoError(t, err)
	require.Equal(t, 2, res.Applied)

	transferID, err := transfer.ID()
	require.NoError(t, err)
	redeemID, err := redeem.ID()
	require.NoError(t, err)
	assert.Equal(t, tx.TecFROZEN, res.Results[transferID])
	assert.Equal(t, tx.TesSUCCESS, res.Results[redeemID])

	data, ok := res.Ledger.Read(keylet.Line(alice.ID(), gw.ID(), usd).Key)
	require.True(t, ok)
	line, err := sle.DecodeRippleState(data)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000_000), line.BalanceFor(alice.ID()))
}

func TestClosePersistsThroughStore(t *testing.T) {
	backend := nodestore.NewMemoryBackend()
	store, err := nodestore.NewStore(backend, 1024)
	require.NoError(t, err)
	m := master()
	alice := crypto.NewKeyPairFromSeed([]byte("alice"))

	pay := signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(30_000_000), testFee, 1))
	res, err := NewCloser(store).Close(genesis(t), []*tx.Transaction{pay}, 5000)
	require.NoError(t, err)

	info := res.Ledger.Info()
	stateRoot, err := store.Fetch(info.AccountHash)
	require.NoError(t, err)
	assert.Equal(t, nodestore.KindInner, stateRoot.Kind)
	assert.Equal(t, info.Sequence, stateRoot.LedgerSeq)

	txRoot, err := store.Fetch(info.TxHash)
	require.NoError(t, err)
	assert.Equal(t, nodestore.KindInner, txRoot.Kind)
}

func TestCanonicalSetOrdering(t *testing.T) {
	m := master()
	var cands []*Candidate
	var ids [][32]byte
	for i := 0; i < 8; i++ {
		alice := crypto.NewKeyPairFromSeed([]byte{byte(i)})
		txn := signed(t, m, tx.NewPayment(m.ID(), alice.ID(), sle.NativeAmount(1_000), testFee, uint32(1+i%3)))
		cand, err := NewCandidate(txn)
		require.NoError(t, err)
		cands = append(cands, cand)
		ids = append(ids, cand.ID)
	}

	set := NewCanonicalTXSet(SetHash(ids))
	for _, c := range cands {
		set.Insert(c)
	}
	order := set.Sorted()

	// Sequence is the primary key.
	for i := 1; i < len(order); i++ {
		assert.LessOrEqual(t, order[i-1].Tx.Sequence, order[i].Tx.Sequence)
	}

	// Re-salting reorders within a sequence class but keeps the class
	// boundaries.
	set.ReSalt(1)
	reordered := set.Sorted()
	for i := 1; i < len(reordered); i++ {
		assert.LessOrEqual(t, reordered[i-1].Tx.Sequence, reordered[i].Tx.Sequence)
	}

	// The set hash ignores input order.
	rev := make([][32]byte, len(ids))
	for i, id := range ids {
		rev[len(ids)-1-i] = id
	}
	assert.Equal(t, SetHash(ids), SetHash(rev))
}
