package crypto

import (
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha512HalfIsFirstHalfOfSha512(t *testing.T) {
	msg := []byte("the quick brown fox")
	full := sha512.Sum512(msg)
	half := Sha512Half(msg)
	assert.Equal(t, full[:32], half[:])
}

func TestSha512HalfConcatenates(t *testing.T) {
	joined := Sha512Half([]byte("hello "), []byte("world"))
	whole := Sha512Half([]byte("hello world"))
	assert.Equal(t, whole, joined)
	assert.NotEqual(t, whole, Sha512Half([]byte("hello world!")))
}

func TestKeyPairIsDeterministic(t *testing.T) {
	a := NewKeyPairFromSeed([]byte("masterpassphrase"))
	b := NewKeyPairFromSeed([]byte("masterpassphrase"))
	c := NewKeyPairFromSeed([]byte("other"))

	assert.Equal(t, a.Public(), b.Public())
	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Len(t, a.Public(), 33)
}

func TestSignAndVerify(t *testing.T) {
	kp := NewKeyPairFromSeed([]byte("alice"))
	msg := []byte("payment of ten drops")

	sig := kp.Sign(msg)
	require.NoError(t, Verify(kp.Public(), msg, sig))

	assert.ErrorIs(t, Verify(kp.Public(), []byte("payment of TEN drops"), sig), ErrBadSignature)

	other := NewKeyPairFromSeed([]byte("mallory"))
	assert.ErrorIs(t, Verify(other.Public(), msg, sig), ErrBadSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	kp := NewKeyPairFromSeed([]byte("alice"))
	msg := []byte("msg")

	assert.ErrorIs(t, Verify([]byte{0x02, 0x01}, msg, kp.Sign(msg)), ErrBadPublicKey)
	assert.ErrorIs(t, Verify(kp.Public(), msg, []byte{0x30, 0x00}), ErrBadSignature)
}

func TestAccountIDFromPubKey(t *testing.T) {
	kp := NewKeyPairFromSeed([]byte("alice"))
	id := AccountIDFromPubKey(kp.Public())
	assert.Equal(t, kp.ID(), id)
	assert.NotEqual(t, AccountID{}, id)
}
