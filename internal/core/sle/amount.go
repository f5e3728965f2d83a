package sle

import (
	"errors"
	"fmt"

	"github.com/arcledger/arcd/internal/crypto"
)

// Currency is the 160-bit currency identifier. The native asset uses the
// all-zero currency. Standard three letter codes occupy bytes 12..14.
type Currency [20]byte

// CurrencyFromCode builds a Currency from a three letter code such as "USD".
// Any other length yields the zero (native) currency.
func CurrencyFromCode(code string) Currency {
	var c Currency
	if len(code) == 3 {
		copy(c[12:], code)
	}
	return c
}

// IsNative reports whether this is the native asset's currency.
func (c Currency) IsNative() bool {
	return c == Currency{}
}

// Code returns the three letter code for standard currencies, or "XRP" for
// the native currency.
func (c Currency) Code() string {
	if c.IsNative() {
		return "XRP"
	}
	return string(c[12:15])
}

// millionths per whole issued-asset unit
const iouScale = 1_000_000

// ErrAmountMismatch is returned when arithmetic mixes different assets.
var ErrAmountMismatch = errors.New("sle: amount asset mismatch")

// Amount is a value of either the native asset (in drops) or an issued
// asset. Issued values are fixed point with six decimal places.
type Amount struct {
	Native   bool             `codec:"n"`
	Drops    uint64           `codec:"d,omitempty"`
	Value    int64            `codec:"v,omitempty"`
	Currency Currency         `codec:"c,omitempty"`
	Issuer   crypto.AccountID `codec:"i,omitempty"`
}

// NativeAmount builds an Amount of the given number of drops.
func NativeAmount(drops uint64) Amount {
	return Amount{Native: true, Drops: drops}
}

// IssuedAmount builds an issued-asset Amount. value is in millionths of a
// unit, so IssuedAmount(5_000_000, usd, gw) is five dollars.
func IssuedAmount(value int64, currency Currency, issuer crypto.AccountID) Amount {
	return Amount{Value: value, Currency: currency, Issuer: issuer}
}

// IssuedUnits builds an issued-asset Amount from whole units.
func IssuedUnits(units int64, currency Currency, issuer crypto.AccountID) Amount {
	return IssuedAmount(units*iouScale, currency, issuer)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	if a.Native {
		return a.Drops == 0
	}
	return a.Value == 0
}

// IsNegative reports whether an issued amount is below zero. Native amounts
// are unsigned and never negative.
func (a Amount) IsNegative() bool {
	return !a.Native && a.Value < 0
}

// SameAsset reports whether two amounts denominate the same asset.
func (a Amount) SameAsset(b Amount) bool {
	if a.Native != b.Native {
		return false
	}
	if a.Native {
		return true
	}
	return a.Currency == b.Currency && a.Issuer == b.Issuer
}

// String renders the amount for logs.
func (a Amount) String() string {
	if a.Native {
		return fmt.Sprintf("%d drops", a.Drops)
	}
	whole := a.Value / iouScale
	frac := a.Value % iouScale
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%06d/%s/%x", whole, frac, a.Currency.Code(), a.Issuer[:4])
}
