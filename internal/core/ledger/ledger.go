// Package ledger assembles immutable ledger snapshots: a header chained to
// its parent plus the account state and transaction trees.
package ledger

import (
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/arcledger/arcd/internal/core/ledger/keylet"
	"github.com/arcledger/arcd/internal/core/shamap"
	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/log"
)

var (
	// ErrClosed is returned when mutating a ledger that has been accepted.
	ErrClosed = errors.New("ledger: already closed")
	// ErrOpen is returned when reading the hash of a still-open ledger.
	ErrOpen = errors.New("ledger: still open")
)

// Ledger is one ledger in the chain. While open it accumulates state
// changes and transactions; Accept seals it, after which every accessor is
// read-only and the hash is defined.
type Ledger struct {
	info     Info
	stateMap *shamap.SHAMap
	txMap    *shamap.SHAMap
	open     bool
}

// GenesisConfig parameterizes the first ledger.
type GenesisConfig struct {
	MasterSeed          string
	TotalDrops          uint64
	BaseFee             uint64
	ReserveBase         uint64
	ReserveIncrement    uint64
	CloseTimeResolution uint8
}

// Genesis builds and seals ledger 1: the master account holding the entire
// native supply, plus the fee settings entry. If w is non-nil the trees are
// flushed through it.
func Genesis(cfg GenesisConfig, w shamap.NodeWriter) (*Ledger, error) {
	master := crypto.NewKeyPairFromSeed([]byte(cfg.MasterSeed))

	l := &Ledger{
		info: Info{
			Sequence:            1,
			TotalDrops:          cfg.TotalDrops,
			CloseTimeResolution: cfg.CloseTimeResolution,
		},
		stateMap: shamap.New(shamap.TypeState),
		txMap:    shamap.New(shamap.TypeTransaction),
		open:     true,
	}

	root := &sle.AccountRoot{
		Account:  master.ID(),
		Balance:  cfg.TotalDrops,
		Sequence: 1,
	}
	blob, err := root.Encode()
	if err != nil {
		return nil, err
	}
	if err := l.stateMap.Put(keylet.Account(master.ID()).Key, blob); err != nil {
		return nil, err
	}

	fees := &sle.FeeSettings{
		BaseFee:          cfg.BaseFee,
		ReserveBase:      cfg.ReserveBase,
		ReserveIncrement: cfg.ReserveIncrement,
	}
	feeBlob, err := fees.Encode()
	if err != nil {
		return nil, err
	}
	if err := l.stateMap.Put(keylet.Fees().Key, feeBlob); err != nil {
		return nil, err
	}

	if err := l.Accept(w, 0, 0); err != nil {
		return nil, err
	}
	log.Info("genesis ledger created",
		"master", master.ID(), "drops", cfg.TotalDrops, "hash", l.info.Hash[:4])
	return l, nil
}

// NewOpen starts the next ledger on top of a closed parent. The trees are
// copy-on-write snapshots: the parent stays untouched no matter what is
// applied here.
func NewOpen(parent *Ledger) (*Ledger, error) {
	if parent.open {
		return nil, ErrOpen
	}
	return &Ledger{
		info: Info{
			Sequence:            parent.info.Sequence + 1,
			TotalDrops:          parent.info.TotalDrops,
			ParentHash:          parent.info.Hash,
			ParentCloseTime:     parent.info.CloseTime,
			CloseTimeResolution: parent.info.CloseTimeResolution,
		},
		stateMap: parent.stateMap.Snapshot(true),
		txMap:    shamap.New(shamap.TypeTransaction),
		open:     true,
	}, nil
}

// Info returns a copy of the header.
func (l *Ledger) Info() Info {
	return l.info
}

// Hash returns the ledger hash. Defined only once closed.
func (l *Ledger) Hash() ([32]byte, error) {
	if l.open {
		return [32]byte{}, ErrOpen
	}
	return l.info.Hash, nil
}

// IsOpen reports whether the ledger still accepts changes.
func (l *Ledger) IsOpen() bool {
	return l.open
}

// StateMap exposes the account state tree.
func (l *Ledger) StateMap() *shamap.SHAMap {
	return l.stateMap
}

// TxMap exposes the transaction tree.
func (l *Ledger) TxMap() *shamap.SHAMap {
	return l.txMap
}

// Read implements the engine's ledger view over the state tree.
func (l *Ledger) Read(key [32]byte) ([]byte, bool) {
	item, found := l.stateMap.Get(key)
	if !found {
		return nil, false
	}
	return item.Data(), true
}

// Write implements the engine's ledger view.
func (l *Ledger) Write(key [32]byte, data []byte) error {
	if !l.open {
		return ErrClosed
	}
	return l.stateMap.Put(key, data)
}

// Erase implements the engine's ledger view.
func (l *Ledger) Erase(key [32]byte) error {
	if !l.open {
		return ErrClosed
	}
	return l.stateMap.Delete(key)
}

// Sequence returns the ledger sequence number.
func (l *Ledger) Sequence() uint32 {
	return l.info.Sequence
}

// RecordTransaction stores an applied transaction with its metadata in the
// transaction tree, keyed by transaction ID.
func (l *Ledger) RecordTransaction(txID [32]byte, payload []byte) error {
	if !l.open {
		return ErrClosed
	}
	return l.txMap.PutKind(txID, payload, shamap.KindTransactionMeta)
}

// Accept seals the ledger: the skip list is brought forward, both trees are
// flushed through w (when non-nil), the tree roots land in the header and
// the hash is computed. The ledger and its trees are immutable afterwards.
func (l *Ledger) Accept(w shamap.NodeWriter, closeTime uint32, closeFlags uint8) error {
	if !l.open {
		return ErrClosed
	}

	if err := l.updateSkipList(); err != nil {
		return err
	}

	if w != nil {
		// The two trees share no nodes, so they flush in parallel into
		// the same batch.
		var g errgroup.Group
		g.Go(func() error {
			_, err := l.stateMap.FlushDirty(w, l.info.Sequence)
			return err
		})
		g.Go(func() error {
			_, err := l.txMap.FlushDirty(w, l.info.Sequence)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}
	}

	l.info.CloseTime = closeTime
	l.info.CloseFlags = closeFlags
	l.info.AccountHash = l.stateMap.Hash()
	l.info.TxHash = l.txMap.Hash()
	l.info.Hash = CalculateHash(&l.info)

	l.stateMap.SetImmutable()
	l.txMap.SetImmutable()
	l.open = false
	return nil
}
