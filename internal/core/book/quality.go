// Package book encodes order book qualities: the exchange rate an offer
// asks, packed into the low 64 bits of its directory index.
package book

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/arcledger/arcd/internal/core/sle"
)

// ErrBadRate is returned when a rate cannot be represented, such as a zero
// denominator or an exponent outside the encodable range.
var ErrBadRate = errors.New("book: rate not representable")

// Mantissa bounds for the normalized rate encoding.
const (
	minMantissa uint64 = 1_000_000_000_000_000  // 10^15
	maxMantissa uint64 = 10_000_000_000_000_000 // 10^16
)

// Exponent bounds, stored biased by 100 in the top byte.
const (
	minExponent = -96
	maxExponent = 80
)

// Quality extracts the encoded rate from a book directory index. The rate
// occupies the final 8 bytes, big endian. A zero value means the index is
// not a book page.
func Quality(index [32]byte) uint64 {
	return binary.BigEndian.Uint64(index[24:])
}

// DirIndex builds the directory index for one quality tier of a book: the
// book base with the encoded rate in the low 64 bits.
func DirIndex(base [32]byte, quality uint64) [32]byte {
	var index [32]byte
	copy(index[:24], base[:24])
	binary.BigEndian.PutUint64(index[24:], quality)
	return index
}

// Rate encodes the exchange rate pays/gets: how much of the pays asset the
// taker surrenders per unit of the gets asset. The encoding packs a decimal
// exponent (biased by 100) into the top byte and a mantissa normalized to
// [10^15, 10^16) into the remaining 56 bits, so numeric order matches
// unsigned integer order.
func Rate(pays, gets sle.Amount) (uint64, error) {
	paysMant, paysExp := decompose(pays)
	getsMant, getsExp := decompose(gets)
	if getsMant == 0 {
		return 0, ErrBadRate
	}
	if paysMant == 0 {
		return 0, nil
	}

	// Scale the numerator far enough that integer division keeps 17
	// significant digits, then normalize down.
	num := new(big.Int).SetUint64(paysMant)
	num.Mul(num, big.NewInt(0).Exp(big.NewInt(10), big.NewInt(17), nil))
	num.Div(num, new(big.Int).SetUint64(getsMant))

	// Normalize in the big domain: the scaled numerator can exceed 64 bits.
	exp := paysExp - getsExp - 17
	ten := big.NewInt(10)
	maxM := new(big.Int).SetUint64(maxMantissa)
	minM := new(big.Int).SetUint64(minMantissa)
	for num.Cmp(maxM) >= 0 {
		num.Div(num, ten)
		exp++
	}
	for num.Cmp(minM) < 0 {
		num.Mul(num, ten)
		exp--
	}
	mant := num.Uint64()
	if exp < minExponent || exp > maxExponent {
		return 0, ErrBadRate
	}
	return uint64(exp+100)<<56 | mant, nil
}

// decompose returns an amount's magnitude as mantissa and decimal exponent.
func decompose(a sle.Amount) (uint64, int) {
	if a.Native {
		return a.Drops, 0
	}
	v := a.Value
	if v < 0 {
		v = -v
	}
	return uint64(v), -6
}
