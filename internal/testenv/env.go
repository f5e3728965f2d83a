// Package testenv is a scenario harness for end-to-end ledger tests:
// named accounts, queued transactions and explicit closes.
package testenv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcledger/arcd/internal/core/close"
	"github.com/arcledger/arcd/internal/core/ledger"
	"github.com/arcledger/arcd/internal/core/ledger/keylet"
	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/core/tx"
	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/storage/nodestore"
)

const (
	// Fee paid by every harness transaction.
	Fee = 10
	// MasterSeed identifies the genesis account.
	MasterSeed = "masterpassphrase"
	// GenesisDrops is the harness's initial supply.
	GenesisDrops = 100_000_000_000_000
)

// Env drives a chain of ledgers in tests.
type Env struct {
	T       *testing.T
	Store   *nodestore.Store
	Closer  *close.Closer
	Current *ledger.Ledger
	Last    *close.Result

	keys      map[string]*crypto.KeyPair
	pending   []*tx.Transaction
	closeTime uint32
}

// New builds an environment with a fresh genesis ledger over an in-memory
// store.
func New(t *testing.T) *Env {
	t.Helper()
	store, err := nodestore.NewStore(nodestore.NewMemoryBackend(), 4096)
	require.NoError(t, err)

	genesis, err := ledger.Genesis(ledger.GenesisConfig{
		MasterSeed:          MasterSeed,
		TotalDrops:          GenesisDrops,
		BaseFee:             Fee,
		ReserveBase:         20_000_000,
		ReserveIncrement:    5_000_000,
		CloseTimeResolution: 10,
	}, nil)
	require.NoError(t, err)

	return &Env{
		T:         t,
		Store:     store,
		Closer:    close.NewCloser(store),
		Current:   genesis,
		keys:      map[string]*crypto.KeyPair{"master": crypto.NewKeyPairFromSeed([]byte(MasterSeed))},
		closeTime: 5000,
	}
}

// Account returns the named keypair, deriving it on first use.
func (e *Env) Account(name string) *crypto.KeyPair {
	kp, ok := e.keys[name]
	if !ok {
		kp = crypto.NewKeyPairFromSeed([]byte(name))
		e.keys[name] = kp
	}
	return kp
}

// Seq returns the next usable sequence for the named account, counting
// transactions already queued for this close.
func (e *Env) Seq(name string) uint32 {
	id := e.Account(name).ID()
	seq := uint32(1)
	if data, ok := e.Current.Read(keylet.Account(id).Key); ok {
		acct, err := sle.DecodeAccountRoot(data)
		require.NoError(e.T, err)
		seq = acct.Sequence
	}
	for _, queued := range e.pending {
		if queued.Account == id {
			seq++
		}
	}
	return seq
}

// Submit signs a transaction with the named account's key and queues it for
// the next close.
func (e *Env) Submit(name string, txn *tx.Transaction) {
	e.T.Helper()
	require.NoError(e.T, txn.Sign(e.Account(name)))
	e.pending = append(e.pending, txn)
}

// Fund queues a native payment from the master to the named account.
func (e *Env) Fund(name string, drops uint64) {
	e.T.Helper()
	e.Pay("master", name, sle.NativeAmount(drops))
}

// Pay queues a payment.
func (e *Env) Pay(from, to string, amount sle.Amount) {
	e.T.Helper()
	e.Submit(from, tx.NewPayment(e.Account(from).ID(), e.Account(to).ID(), amount, Fee, e.Seq(from)))
}

// Trust queues a trust line limit from the named account toward an issuer.
func (e *Env) Trust(holder, issuer string, units int64, code string) {
	e.T.Helper()
	limit := sle.IssuedUnits(units, sle.CurrencyFromCode(code), e.Account(issuer).ID())
	e.Submit(holder, tx.NewTrustSet(e.Account(holder).ID(), limit, Fee, e.Seq(holder)))
}

// Freeze queues a GlobalFreeze flag set for the named issuer.
func (e *Env) Freeze(issuer string) {
	e.T.Helper()
	e.Submit(issuer, tx.NewAccountSet(e.Account(issuer).ID(), sle.AccountSetFlagGlobalFreeze, 0, Fee, e.Seq(issuer)))
}

// CloseLedger closes the queued batch and advances the chain. The batch
// must fully apply; scenarios expecting failures assert on Last.Results.
func (e *Env) CloseLedger() *close.Result {
	e.T.Helper()
	e.closeTime += 10
	res, err := e.Closer.Close(e.Current, e.pending, e.closeTime)
	require.NoError(e.T, err)
	require.Empty(e.T, res.Dropped, "retriable transactions left behind")
	e.Current = res.Ledger
	e.Last = res
	e.pending = nil
	return res
}

// Balance returns the named account's native balance in drops.
func (e *Env) Balance(name string) uint64 {
	e.T.Helper()
	data, ok := e.Current.Read(keylet.Account(e.Account(name).ID()).Key)
	require.True(e.T, ok, "account %s does not exist", name)
	acct, err := sle.DecodeAccountRoot(data)
	require.NoError(e.T, err)
	return acct.Balance
}

// IOUBalance returns the named account's holdings of an issued asset, in
// millionths.
func (e *Env) IOUBalance(holder, issuer, code string) int64 {
	e.T.Helper()
	key := keylet.Line(e.Account(holder).ID(), e.Account(issuer).ID(), sle.CurrencyFromCode(code))
	data, ok := e.Current.Read(key.Key)
	if !ok {
		return 0
	}
	line, err := sle.DecodeRippleState(data)
	require.NoError(e.T, err)
	return line.BalanceFor(e.Account(holder).ID())
}

// Result returns the engine result of a queued-then-closed transaction.
func (e *Env) Result(txn *tx.Transaction) tx.Result {
	e.T.Helper()
	id, err := txn.ID()
	require.NoError(e.T, err)
	result, ok := e.Last.Results[id]
	require.True(e.T, ok, "transaction not part of the last close")
	return result
}
