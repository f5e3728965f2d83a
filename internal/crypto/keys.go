package crypto

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/crypto/ripemd160"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// AccountID is the 160-bit identifier of an account: RIPEMD160(SHA256(pubkey)).
type AccountID = [20]byte

var (
	// ErrBadSignature is returned when a signature fails verification.
	ErrBadSignature = errors.New("signature verification failed")
	// ErrBadPublicKey is returned when a public key cannot be parsed.
	ErrBadPublicKey = errors.New("invalid public key")
)

// KeyPair holds a secp256k1 signing key and its compressed public key.
type KeyPair struct {
	priv *secp256k1.PrivateKey
	pub  []byte
}

// NewKeyPairFromSeed derives a deterministic keypair from an arbitrary seed.
// The private scalar is SHA512Half of the seed, reduced mod the curve order.
func NewKeyPairFromSeed(seed []byte) *KeyPair {
	digest := Sha512Half(seed)
	priv := secp256k1.PrivKeyFromBytes(digest[:])
	return &KeyPair{
		priv: priv,
		pub:  priv.PubKey().SerializeCompressed(),
	}
}

// Public returns the compressed 33-byte public key.
func (kp *KeyPair) Public() []byte {
	out := make([]byte, len(kp.pub))
	copy(out, kp.pub)
	return out
}

// ID returns the account ID for this keypair's public key.
func (kp *KeyPair) ID() AccountID {
	return AccountIDFromPubKey(kp.pub)
}

// Sign produces a DER-encoded ECDSA signature over SHA512Half(msg).
func (kp *KeyPair) Sign(msg []byte) []byte {
	digest := Sha512Half(msg)
	sig := ecdsa.Sign(kp.priv, digest[:])
	return sig.Serialize()
}

// Verify checks a DER-encoded signature against a compressed public key.
func Verify(pubKey, msg, sigDER []byte) error {
	pk, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return ErrBadPublicKey
	}
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return ErrBadSignature
	}
	digest := Sha512Half(msg)
	if !sig.Verify(digest[:], pk) {
		return ErrBadSignature
	}
	return nil
}

// AccountIDFromPubKey derives the account ID from a compressed public key.
func AccountIDFromPubKey(pubKey []byte) AccountID {
	sha := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sha[:])
	var id AccountID
	copy(id[:], h.Sum(nil))
	return id
}
