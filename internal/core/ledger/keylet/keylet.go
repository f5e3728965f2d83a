// Package keylet computes the deterministic 256-bit keys under which ledger
// entries live in the account state tree.
package keylet

import (
	"bytes"
	"encoding/binary"

	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/crypto"
)

// Space identifiers prefixed to each key derivation so distinct entry
// families can never collide.
const (
	spaceAccount   uint16 = 'a' // Account root
	spaceDirNode   uint16 = 'd' // Directory node
	spaceRippleDir uint16 = 'r' // Trust line
	spaceOffer     uint16 = 'o' // Offer
	spaceOwnerDir  uint16 = 'O' // Owner directory
	spaceBookDir   uint16 = 'B' // Order book directory
	spaceSkip      uint16 = 's' // Skip list
	spaceFees      uint16 = 'e' // Fee settings (singleton)
)

// Keylet is an addressable location in the ledger state: the entry type it
// should hold plus its 256-bit key.
type Keylet struct {
	Type sle.Type
	Key  [32]byte
}

// indexHash derives a key by hashing the space identifier (2 bytes, big
// endian) followed by the discriminating data.
func indexHash(space uint16, data ...[]byte) [32]byte {
	var spaceBytes [2]byte
	binary.BigEndian.PutUint16(spaceBytes[:], space)

	inputs := make([][]byte, 0, len(data)+1)
	inputs = append(inputs, spaceBytes[:])
	inputs = append(inputs, data...)
	return crypto.Sha512Half(inputs...)
}

// Account returns the keylet for an account root entry.
func Account(accountID crypto.AccountID) Keylet {
	return Keylet{
		Type: sle.TypeAccountRoot,
		Key:  indexHash(spaceAccount, accountID[:]),
	}
}

// Fees returns the keylet for the singleton fee settings entry.
func Fees() Keylet {
	return Keylet{
		Type: sle.TypeFeeSettings,
		Key:  indexHash(spaceFees),
	}
}

// SkipList returns the keylet for the short skip list entry, holding the
// most recent ledger hashes.
func SkipList() Keylet {
	return Keylet{
		Type: sle.TypeLedgerHashes,
		Key:  indexHash(spaceSkip),
	}
}

// SkipListLong returns the keylet for the long skip list entry covering the
// 65536-ledger span that contains seq. Every 256th ledger hash lands here.
func SkipListLong(seq uint32) Keylet {
	var spanBytes [4]byte
	binary.BigEndian.PutUint32(spanBytes[:], seq>>16)
	return Keylet{
		Type: sle.TypeLedgerHashes,
		Key:  indexHash(spaceSkip, spanBytes[:]),
	}
}

// Line returns the keylet for the trust line between two accounts in one
// currency. The key is symmetric in the accounts.
func Line(a, b crypto.AccountID, currency sle.Currency) Keylet {
	low, high := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		low, high = b, a
	}
	return Keylet{
		Type: sle.TypeRippleState,
		Key:  indexHash(spaceRippleDir, low[:], high[:], currency[:]),
	}
}

// Offer returns the keylet for an offer placed by the account at the given
// sequence number.
func Offer(accountID crypto.AccountID, sequence uint32) Keylet {
	var seqBytes [4]byte
	binary.BigEndian.PutUint32(seqBytes[:], sequence)
	return Keylet{
		Type: sle.TypeOffer,
		Key:  indexHash(spaceOffer, accountID[:], seqBytes[:]),
	}
}

// OwnerDir returns the keylet for an account's owner directory.
func OwnerDir(accountID crypto.AccountID) Keylet {
	return Keylet{
		Type: sle.TypeDirectoryNode,
		Key:  indexHash(spaceOwnerDir, accountID[:]),
	}
}

// BookBase returns the base keylet of the order book trading the pays asset
// against the gets asset. The low 64 bits are zero; directory pages for
// specific qualities replace them with the encoded rate.
func BookBase(paysCurrency sle.Currency, paysIssuer crypto.AccountID, getsCurrency sle.Currency, getsIssuer crypto.AccountID) Keylet {
	key := indexHash(spaceBookDir, paysCurrency[:], paysIssuer[:], getsCurrency[:], getsIssuer[:])
	for i := 24; i < 32; i++ {
		key[i] = 0
	}
	return Keylet{Type: sle.TypeDirectoryNode, Key: key}
}
