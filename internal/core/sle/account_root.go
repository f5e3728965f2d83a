package sle

import "github.com/arcledger/arcd/internal/crypto"

// AccountRoot is the state entry holding an account's native balance,
// sequence number and flags.
type AccountRoot struct {
	Account           crypto.AccountID `codec:"a"`
	Balance           uint64           `codec:"b"` // drops
	Sequence          uint32           `codec:"s"`
	OwnerCount        uint32           `codec:"o"`
	Flags             uint32           `codec:"f"`
	PreviousTxnID     [32]byte         `codec:"p"`
	PreviousTxnLgrSeq uint32           `codec:"l"`
}

// Encode serializes the account root.
func (a *AccountRoot) Encode() ([]byte, error) {
	return encodeEntry(TypeAccountRoot, a)
}

// DecodeAccountRoot decodes a serialized account root.
func DecodeAccountRoot(data []byte) (*AccountRoot, error) {
	var a AccountRoot
	if err := decodeEntry(data, TypeAccountRoot, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GlobalFreeze reports whether the account has frozen all its issued assets.
func (a *AccountRoot) GlobalFreeze() bool {
	return a.Flags&FlagGlobalFreeze != 0
}
