package sle

import (
	"bytes"

	"github.com/arcledger/arcd/internal/crypto"
)

// RippleState is a trust line between two accounts for one currency. The
// accounts are stored in ascending order; Balance is held from the low
// account's perspective, so a positive balance means the high account owes
// the low account.
type RippleState struct {
	LowAccount        crypto.AccountID `codec:"la"`
	HighAccount       crypto.AccountID `codec:"ha"`
	Currency          Currency         `codec:"c"`
	Balance           int64            `codec:"b"` // millionths
	LowLimit          int64            `codec:"ll"`
	HighLimit         int64            `codec:"hl"`
	Flags             uint32           `codec:"f"`
	PreviousTxnID     [32]byte         `codec:"p"`
	PreviousTxnLgrSeq uint32           `codec:"s"`
}

// NewRippleState builds a trust line with the accounts placed in canonical
// order regardless of argument order.
func NewRippleState(a, b crypto.AccountID, currency Currency) *RippleState {
	low, high := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		low, high = b, a
	}
	return &RippleState{LowAccount: low, HighAccount: high, Currency: currency}
}

// Encode serializes the trust line.
func (r *RippleState) Encode() ([]byte, error) {
	return encodeEntry(TypeRippleState, r)
}

// DecodeRippleState decodes a serialized trust line.
func DecodeRippleState(data []byte) (*RippleState, error) {
	var r RippleState
	if err := decodeEntry(data, TypeRippleState, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// IsLow reports whether the given account is the line's low account.
func (r *RippleState) IsLow(account crypto.AccountID) bool {
	return account == r.LowAccount
}

// BalanceFor returns the line balance from the given account's perspective:
// positive means the counterparty owes this account.
func (r *RippleState) BalanceFor(account crypto.AccountID) int64 {
	if r.IsLow(account) {
		return r.Balance
	}
	return -r.Balance
}

// Credit adjusts the balance so that the given account's holdings change by
// delta (millionths).
func (r *RippleState) Credit(account crypto.AccountID, delta int64) {
	if r.IsLow(account) {
		r.Balance += delta
	} else {
		r.Balance -= delta
	}
}

// LimitFor returns the trust limit set by the given account.
func (r *RippleState) LimitFor(account crypto.AccountID) int64 {
	if r.IsLow(account) {
		return r.LowLimit
	}
	return r.HighLimit
}

// SetLimit records the trust limit set by the given account.
func (r *RippleState) SetLimit(account crypto.AccountID, limit int64) {
	if r.IsLow(account) {
		r.LowLimit = limit
	} else {
		r.HighLimit = limit
	}
}
