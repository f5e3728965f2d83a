package keylet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/crypto"
)

func accountID(tag byte) crypto.AccountID {
	var id crypto.AccountID
	for i := range id {
		id[i] = tag
	}
	return id
}

func TestKeyletsAreDistinct(t *testing.T) {
	alice, bob := accountID(0x01), accountID(0x02)
	usd := sle.CurrencyFromCode("USD")

	keys := map[[32]byte]string{
		Account(alice).Key:        "account alice",
		Account(bob).Key:          "account bob",
		Line(alice, bob, usd).Key: "line",
		Offer(alice, 1).Key:       "offer 1",
		Offer(alice, 2).Key:       "offer 2",
		OwnerDir(alice).Key:       "owner dir",
		SkipList().Key:            "skip list",
		SkipListLong(70000).Key:   "skip list long",
		Fees().Key:                "fees",
	}
	assert.Len(t, keys, 9)
}

func TestLineIsSymmetric(t *testing.T) {
	alice, bob := accountID(0x01), accountID(0x02)
	usd := sle.CurrencyFromCode("USD")
	eur := sle.CurrencyFromCode("EUR")

	assert.Equal(t, Line(alice, bob, usd), Line(bob, alice, usd))
	assert.NotEqual(t, Line(alice, bob, usd), Line(alice, bob, eur))
	assert.Equal(t, sle.TypeRippleState, Line(alice, bob, usd).Type)
}

func TestSkipListLongSpans(t *testing.T) {
	// Same 65536-ledger span, same entry.
	assert.Equal(t, SkipListLong(1), SkipListLong(65535))
	assert.NotEqual(t, SkipListLong(65535), SkipListLong(65536))
	// The short list is its own entry.
	assert.NotEqual(t, SkipList().Key, SkipListLong(0).Key)
}

func TestBookBaseZeroesQualityBits(t *testing.T) {
	usd := sle.CurrencyFromCode("USD")
	gw := accountID(0x33)

	k := BookBase(sle.Currency{}, crypto.AccountID{}, usd, gw)
	for i := 24; i < 32; i++ {
		assert.Zero(t, k.Key[i])
	}
	// Flipping the book direction gives a different base.
	rev := BookBase(usd, gw, sle.Currency{}, crypto.AccountID{})
	assert.NotEqual(t, k.Key, rev.Key)
}
