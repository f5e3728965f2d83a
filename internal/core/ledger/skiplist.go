package ledger

import (
	"github.com/arcledger/arcd/internal/core/ledger/keylet"
	"github.com/arcledger/arcd/internal/core/sle"
)

// Hashes of every 256th ledger also land in the long skip list, so lookups
// far back need at most one hop per list.
const flagLedgerInterval = 256

// updateSkipList records the parent's hash in the state tree's skip list
// entries before the ledger seals. The genesis ledger has no parent.
func (l *Ledger) updateSkipList() error {
	if l.info.Sequence <= 1 {
		return nil
	}
	prevSeq := l.info.Sequence - 1
	prevHash := l.info.ParentHash

	if prevSeq%flagLedgerInterval == 0 {
		if err := l.appendSkipHash(keylet.SkipListLong(prevSeq).Key, prevHash, prevSeq); err != nil {
			return err
		}
	}
	return l.appendSkipHash(keylet.SkipList().Key, prevHash, prevSeq)
}

func (l *Ledger) appendSkipHash(key [32]byte, hash [32]byte, seq uint32) error {
	lh := &sle.LedgerHashes{}
	if data, ok := l.Read(key); ok {
		decoded, err := sle.DecodeLedgerHashes(data)
		if err != nil {
			return err
		}
		lh = decoded
	}
	lh.Append(hash, seq)
	blob, err := lh.Encode()
	if err != nil {
		return err
	}
	return l.stateMap.Put(key, blob)
}

// AncestorHash resolves the hash of an earlier ledger in this chain using
// the skip lists: any of the last 256 ledgers, or any multiple of 256
// within the long list's window. Returns false when the sequence is out of
// reach.
func (l *Ledger) AncestorHash(seq uint32) ([32]byte, bool) {
	if seq == 0 || seq >= l.info.Sequence {
		return [32]byte{}, false
	}
	if seq == l.info.Sequence-1 {
		return l.info.ParentHash, true
	}

	if hash, ok := l.skipLookup(keylet.SkipList().Key, seq, 1); ok {
		return hash, true
	}
	if seq%flagLedgerInterval == 0 {
		return l.skipLookup(keylet.SkipListLong(seq).Key, seq, flagLedgerInterval)
	}
	return [32]byte{}, false
}

// skipLookup finds seq in one skip list entry, where consecutive stored
// hashes are stride ledgers apart ending at the entry's last sequence.
func (l *Ledger) skipLookup(key [32]byte, seq, stride uint32) ([32]byte, bool) {
	data, ok := l.Read(key)
	if !ok {
		return [32]byte{}, false
	}
	lh, err := sle.DecodeLedgerHashes(data)
	if err != nil {
		return [32]byte{}, false
	}
	if seq > lh.LastLedgerSequence || (lh.LastLedgerSequence-seq)%stride != 0 {
		return [32]byte{}, false
	}
	back := int((lh.LastLedgerSequence - seq) / stride)
	idx := len(lh.Hashes) - 1 - back
	if idx < 0 {
		return [32]byte{}, false
	}
	return lh.Hashes[idx], true
}
