package sle

// MaxSkipListEntries bounds each skip list entry to 256 hashes.
const MaxSkipListEntries = 256

// LedgerHashes is a skip list entry: a window of recent ledger hashes that
// lets AncestorHash resolve any past ledger in logarithmic hops.
type LedgerHashes struct {
	LastLedgerSequence uint32     `codec:"l"`
	Hashes             [][32]byte `codec:"h"`
}

// Encode serializes the skip list entry.
func (lh *LedgerHashes) Encode() ([]byte, error) {
	return encodeEntry(TypeLedgerHashes, lh)
}

// DecodeLedgerHashes decodes a serialized skip list entry.
func DecodeLedgerHashes(data []byte) (*LedgerHashes, error) {
	var lh LedgerHashes
	if err := decodeEntry(data, TypeLedgerHashes, &lh); err != nil {
		return nil, err
	}
	return &lh, nil
}

// Append records the hash of ledger seq, evicting the oldest hash once the
// window is full.
func (lh *LedgerHashes) Append(hash [32]byte, seq uint32) {
	lh.Hashes = append(lh.Hashes, hash)
	if len(lh.Hashes) > MaxSkipListEntries {
		lh.Hashes = lh.Hashes[len(lh.Hashes)-MaxSkipListEntries:]
	}
	lh.LastLedgerSequence = seq
}
