package close

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/arcledger/arcd/internal/core/ledger"
	"github.com/arcledger/arcd/internal/core/tx"
	"github.com/arcledger/arcd/internal/log"
	"github.com/arcledger/arcd/internal/storage/nodestore"
)

// MaxPasses bounds how many times retriable transactions are reattempted
// within one close.
const MaxPasses = 10

// Closer builds closed ledgers. When constructed with a store the accepted
// trees are flushed through it.
type Closer struct {
	store *nodestore.Store
}

// NewCloser creates a closer persisting through store, which may be nil for
// in-memory operation.
func NewCloser(store *nodestore.Store) *Closer {
	return &Closer{store: store}
}

// Result describes one close.
type Result struct {
	Ledger  *ledger.Ledger
	Applied int
	Passes  int
	// AppliedIDs lists the settled transactions in application order; the
	// position matches the metadata's transaction index.
	AppliedIDs [][32]byte
	// Results holds the final engine result for every candidate, including
	// the ones that did not make it into the ledger.
	Results map[[32]byte]tx.Result
	// Dropped lists candidates still retriable when the passes ran out.
	// They are abandoned without charging a fee.
	Dropped [][32]byte
}

// Close applies the batch to a child of parent in canonical order and seals
// it at closeTime. Transactions that cannot apply yet are retried in later
// passes under a rotated ordering salt; the loop stops when a pass applies
// nothing or the pass budget is spent.
func (c *Closer) Close(parent *ledger.Ledger, txs []*tx.Transaction, closeTime uint32) (*Result, error) {
	next, err := ledger.NewOpen(parent)
	if err != nil {
		return nil, err
	}
	engine := tx.NewEngine(next)

	ids := make([][32]byte, 0, len(txs))
	candidates := make([]*Candidate, 0, len(txs))
	for _, t := range txs {
		cand, err := NewCandidate(t)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, cand)
		ids = append(ids, cand.ID)
	}

	res := &Result{
		Ledger:  next,
		Results: make(map[[32]byte]tx.Result, len(txs)),
	}

	// Signatures are pure functions of the candidates, so they verify in
	// parallel up front; the passes then skip the check entirely.
	sigResults := make([]tx.Result, len(candidates))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			sigResults[i] = cand.Tx.CheckSign()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := NewCanonicalTXSet(SetHash(ids))
	for i, cand := range candidates {
		if sigResults[i] != tx.TesSUCCESS {
			res.Results[cand.ID] = sigResults[i]
			continue
		}
		set.Insert(cand)
	}

	for pass := 0; pass < MaxPasses && set.Len() > 0; pass++ {
		applied := 0
		for _, cand := range set.Sorted() {
			result, meta := engine.Apply(cand.Tx, cand.ID, tx.ApplyOpenLedger|tx.ApplyNoCheckSign)
			res.Results[cand.ID] = result

			switch {
			case result.IsApplied():
				meta.TransactionIndex = uint32(res.Applied)
				payload, err := tx.EncodeWithMeta(cand.Blob, meta)
				if err != nil {
					return nil, err
				}
				if err := next.RecordTransaction(cand.ID, payload); err != nil {
					return nil, err
				}
				set.Remove(cand.ID)
				res.AppliedIDs = append(res.AppliedIDs, cand.ID)
				res.Applied++
				applied++
			case result.IsRetry():
				// Stays in the set for the next pass.
			default:
				// tef and tem outcomes can never succeed against this
				// ledger; drop them without charging.
				set.Remove(cand.ID)
			}
		}
		res.Passes = pass + 1
		log.Debug("close pass finished",
			"seq", next.Sequence(), "pass", pass,
			"applied", applied, "pending", set.Len())
		if applied == 0 {
			// No state change: retries would fail the same way again.
			break
		}
		set.ReSalt(uint32(pass + 1))
	}

	for _, cand := range set.Sorted() {
		res.Dropped = append(res.Dropped, cand.ID)
	}

	var batch *nodestore.Batch
	if c.store != nil {
		batch = c.store.NewBatch()
	}
	if batch != nil {
		err = next.Accept(batch, closeTime, 0)
	} else {
		err = next.Accept(nil, closeTime, 0)
	}
	if err != nil {
		return nil, err
	}
	if batch != nil {
		if err := batch.Commit(); err != nil {
			return nil, err
		}
	}

	info := next.Info()
	log.Info("ledger closed",
		"seq", info.Sequence, "hash", info.Hash[:4],
		"txns", res.Applied, "passes", res.Passes, "dropped", len(res.Dropped))
	return res, nil
}
