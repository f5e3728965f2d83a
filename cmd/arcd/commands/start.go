package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcledger/arcd/internal/core/close"
	"github.com/arcledger/arcd/internal/core/ledger"
	"github.com/arcledger/arcd/internal/log"
	"github.com/arcledger/arcd/internal/storage/ledgerdb"
	"github.com/arcledger/arcd/internal/storage/nodestore"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run a standalone node closing ledgers on a fixed interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStandalone()
	},
}

func openBackend() (nodestore.Backend, error) {
	switch cfg.NodeDB.Type {
	case "memory":
		return nodestore.NewMemoryBackend(), nil
	case "pebble":
		return nodestore.NewPebbleBackend(cfg.NodeDB.Path)
	case "leveldb":
		return nodestore.NewLevelDBBackend(cfg.NodeDB.Path)
	default:
		return nil, fmt.Errorf("unknown node_db.type %q", cfg.NodeDB.Type)
	}
}

func runStandalone() error {
	backend, err := openBackend()
	if err != nil {
		return err
	}
	store, err := nodestore.NewStore(backend, cfg.NodeDB.CacheSize)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.DatabasePath, 0o755); err != nil {
		return err
	}
	index, err := ledgerdb.Open(filepath.Join(cfg.DatabasePath, "ledger.db"))
	if err != nil {
		return err
	}
	defer index.Close()

	var current *ledger.Ledger
	maxSeq, err := index.MaxSequence()
	if err != nil {
		return err
	}
	if maxSeq > 0 {
		row, err := index.LedgerBySeq(maxSeq)
		if err != nil {
			return err
		}
		current, err = ledger.LoadFromStore(store, row.Info())
		if err != nil {
			return fmt.Errorf("resume from ledger %d: %w", maxSeq, err)
		}
		log.Info("resumed from stored chain", "seq", maxSeq, "hash", row.Hash[:4])
	} else {
		batch := store.NewBatch()
		current, err = ledger.Genesis(ledger.GenesisConfig{
			MasterSeed:          cfg.Genesis.MasterSeed,
			TotalDrops:          cfg.Genesis.TotalDrops,
			BaseFee:             cfg.Genesis.BaseFee,
			ReserveBase:         cfg.Genesis.ReserveBase,
			ReserveIncrement:    cfg.Genesis.ReserveIncrement,
			CloseTimeResolution: cfg.Genesis.CloseTimeResolution,
		}, batch)
		if err != nil {
			return err
		}
		if err := batch.Commit(); err != nil {
			return err
		}
		if err := index.SaveLedger(current.Info()); err != nil {
			return err
		}
	}

	closer := close.NewCloser(store)
	interval := time.Duration(cfg.CloseInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	log.Info("standalone node started",
		"backend", backend.Name(), "interval", interval.String())

	for {
		select {
		case <-ticker.C:
			closeTime := uint32(time.Now().Unix())
			res, err := closer.Close(current, nil, closeTime)
			if err != nil {
				return err
			}
			current = res.Ledger
			if err := index.SaveLedger(current.Info()); err != nil {
				return err
			}
			for i, id := range res.AppliedIDs {
				if err := index.SaveTransaction(id, current.Sequence(), uint32(i), res.Results[id]); err != nil {
					return err
				}
			}
		case sig := <-sigc:
			log.Info("shutting down", "signal", sig.String(), "seq", current.Sequence())
			return nil
		}
	}
}
