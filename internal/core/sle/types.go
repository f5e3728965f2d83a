// Package sle defines the serialized ledger entry types that live in the
// account state tree, together with their canonical binary encoding.
package sle

import "errors"

var (
	// ErrBadEntry is returned when a stored blob cannot be decoded as the
	// requested entry type.
	ErrBadEntry = errors.New("sle: malformed ledger entry")
)

// Type identifies the kind of a ledger entry.
type Type uint16

const (
	TypeInvalid Type = iota
	TypeAccountRoot
	TypeRippleState
	TypeOffer
	TypeDirectoryNode
	TypeLedgerHashes
	TypeFeeSettings
)

// String returns a human readable name for the type.
func (t Type) String() string {
	switch t {
	case TypeAccountRoot:
		return "AccountRoot"
	case TypeRippleState:
		return "RippleState"
	case TypeOffer:
		return "Offer"
	case TypeDirectoryNode:
		return "DirectoryNode"
	case TypeLedgerHashes:
		return "LedgerHashes"
	case TypeFeeSettings:
		return "FeeSettings"
	default:
		return "Invalid"
	}
}

// Account root flags.
const (
	// FlagGlobalFreeze marks every trust line issued by this account as
	// frozen: payments of its issued assets between third parties fail.
	FlagGlobalFreeze uint32 = 0x00400000

	// FlagDefaultRipple allows rippling through the account's trust lines
	// by default.
	FlagDefaultRipple uint32 = 0x00800000
)

// AccountSet flag selectors, carried in the SetFlag/ClearFlag transaction
// fields rather than written to the account root directly.
const (
	AccountSetFlagGlobalFreeze  uint32 = 7
	AccountSetFlagDefaultRipple uint32 = 8
)
