// Package close turns a batch of candidate transactions and a parent ledger
// into the next closed ledger, applying the batch in canonical order with
// bounded retry passes.
package close

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/arcledger/arcd/internal/core/tx"
	"github.com/arcledger/arcd/internal/crypto"
)

// Candidate is one transaction queued for a close, with its precomputed ID
// and serialization.
type Candidate struct {
	Tx   *tx.Transaction
	ID   [32]byte
	Blob []byte
}

// NewCandidate serializes and identifies a transaction.
func NewCandidate(t *tx.Transaction) (*Candidate, error) {
	blob, err := t.Serialize()
	if err != nil {
		return nil, err
	}
	id, err := t.ID()
	if err != nil {
		return nil, err
	}
	return &Candidate{Tx: t, ID: id, Blob: blob}, nil
}

// CanonicalTXSet holds the candidates of one close in a salted canonical
// order. The salt keeps the order deterministic across nodes while denying
// submitters control over their position; it changes every retry pass so a
// transaction set cannot be starved by an adversarial ordering.
type CanonicalTXSet struct {
	salt  [32]byte
	items []*Candidate
}

// SetHash derives the pass-zero salt: a digest over the batch's transaction
// IDs, independent of submission order.
func SetHash(ids [][32]byte) [32]byte {
	sorted := make([][32]byte, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	parts := make([][]byte, len(sorted))
	for i := range sorted {
		parts[i] = sorted[i][:]
	}
	return crypto.Sha512Half(parts...)
}

// NewCanonicalTXSet creates an empty set with the given salt.
func NewCanonicalTXSet(salt [32]byte) *CanonicalTXSet {
	return &CanonicalTXSet{salt: salt}
}

// Insert adds a candidate.
func (s *CanonicalTXSet) Insert(c *Candidate) {
	s.items = append(s.items, c)
}

// Len returns the number of candidates.
func (s *CanonicalTXSet) Len() int {
	return len(s.items)
}

// ReSalt rotates the salt for a retry pass, reshuffling the order.
func (s *CanonicalTXSet) ReSalt(pass uint32) {
	var passBytes [4]byte
	binary.BigEndian.PutUint32(passBytes[:], pass)
	s.salt = crypto.Sha512Half(s.salt[:], passBytes[:])
}

// Sorted returns the candidates in canonical order: ascending source
// sequence, then salted ID, then raw ID as the final tiebreak.
func (s *CanonicalTXSet) Sorted() []*Candidate {
	out := make([]*Candidate, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Tx.Sequence != b.Tx.Sequence {
			return a.Tx.Sequence < b.Tx.Sequence
		}
		sa, sb := s.saltedID(a.ID), s.saltedID(b.ID)
		if c := bytes.Compare(sa[:], sb[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	return out
}

// Remove drops a candidate by ID.
func (s *CanonicalTXSet) Remove(id [32]byte) {
	for i, c := range s.items {
		if c.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *CanonicalTXSet) saltedID(id [32]byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = id[i] ^ s.salt[i]
	}
	return out
}
