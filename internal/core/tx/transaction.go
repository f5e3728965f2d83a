// Package tx defines transactions and the engine that applies them to a
// ledger view.
package tx

import (
	"github.com/arcledger/arcd/internal/core/sle"
	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/protocol"
)

// TxType identifies a transaction's operation.
type TxType uint16

const (
	TypeInvalid TxType = iota
	TypePayment
	TypeTrustSet
	TypeAccountSet
	TypeOfferCreate
	TypeOfferCancel
)

// String returns the transaction type name.
func (t TxType) String() string {
	switch t {
	case TypePayment:
		return "Payment"
	case TypeTrustSet:
		return "TrustSet"
	case TypeAccountSet:
		return "AccountSet"
	case TypeOfferCreate:
		return "OfferCreate"
	case TypeOfferCancel:
		return "OfferCancel"
	default:
		return "Invalid"
	}
}

// Transaction is a signed instruction against the ledger. Fields beyond the
// common block are meaningful only for the types that use them.
type Transaction struct {
	Type          TxType           `codec:"t"`
	Account       crypto.AccountID `codec:"a"`
	Sequence      uint32           `codec:"s"`
	Fee           uint64           `codec:"f"` // drops
	SigningPubKey []byte           `codec:"k,omitempty"`
	Signature     []byte           `codec:"g,omitempty"`

	// Payment
	Destination crypto.AccountID `codec:"d,omitempty"`
	Amount      sle.Amount       `codec:"m,omitempty"`

	// TrustSet
	LimitAmount sle.Amount `codec:"q,omitempty"`

	// AccountSet
	SetFlag   uint32 `codec:"sf,omitempty"`
	ClearFlag uint32 `codec:"cf,omitempty"`

	// OfferCreate / OfferCancel
	TakerPays     sle.Amount `codec:"tp,omitempty"`
	TakerGets     sle.Amount `codec:"tg,omitempty"`
	OfferSequence uint32     `codec:"os,omitempty"`
}

// NewPayment builds an unsigned payment.
func NewPayment(account, destination crypto.AccountID, amount sle.Amount, fee uint64, sequence uint32) *Transaction {
	return &Transaction{
		Type:        TypePayment,
		Account:     account,
		Sequence:    sequence,
		Fee:         fee,
		Destination: destination,
		Amount:      amount,
	}
}

// NewTrustSet builds an unsigned trust line limit change. The limit's
// currency and issuer name the line; its value is the new limit.
func NewTrustSet(account crypto.AccountID, limit sle.Amount, fee uint64, sequence uint32) *Transaction {
	return &Transaction{
		Type:        TypeTrustSet,
		Account:     account,
		Sequence:    sequence,
		Fee:         fee,
		LimitAmount: limit,
	}
}

// NewAccountSet builds an unsigned account flag change.
func NewAccountSet(account crypto.AccountID, setFlag, clearFlag uint32, fee uint64, sequence uint32) *Transaction {
	return &Transaction{
		Type:      TypeAccountSet,
		Account:   account,
		Sequence:  sequence,
		Fee:       fee,
		SetFlag:   setFlag,
		ClearFlag: clearFlag,
	}
}

// NewOfferCreate builds an unsigned offer.
func NewOfferCreate(account crypto.AccountID, takerPays, takerGets sle.Amount, fee uint64, sequence uint32) *Transaction {
	return &Transaction{
		Type:      TypeOfferCreate,
		Account:   account,
		Sequence:  sequence,
		Fee:       fee,
		TakerPays: takerPays,
		TakerGets: takerGets,
	}
}

// NewOfferCancel builds an unsigned cancel of the offer the account placed
// at offerSequence.
func NewOfferCancel(account crypto.AccountID, offerSequence uint32, fee uint64, sequence uint32) *Transaction {
	return &Transaction{
		Type:          TypeOfferCancel,
		Account:       account,
		Sequence:      sequence,
		Fee:           fee,
		OfferSequence: offerSequence,
	}
}

// Serialize returns the canonical binary form of the transaction, including
// the signature.
func (t *Transaction) Serialize() ([]byte, error) {
	return sle.Marshal(t)
}

// signingData is the canonical form with the signature omitted. This is
// what gets signed.
func (t *Transaction) signingData() ([]byte, error) {
	unsigned := *t
	unsigned.Signature = nil
	return sle.Marshal(&unsigned)
}

// ID returns the transaction's identifying hash, computed over the signed
// serialization under the transaction ID prefix.
func (t *Transaction) ID() ([32]byte, error) {
	blob, err := t.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Sha512Half(protocol.HashPrefixTransactionID.Bytes(), blob), nil
}

// Sign signs the transaction with the given key pair, setting the signing
// public key and signature.
func (t *Transaction) Sign(kp *crypto.KeyPair) error {
	t.SigningPubKey = kp.Public()
	data, err := t.signingData()
	if err != nil {
		return err
	}
	t.Signature = kp.Sign(signingMessage(data))
	return nil
}

// CheckSign verifies the signature and that the signing key controls the
// source account. Safe to call concurrently on distinct transactions.
func (t *Transaction) CheckSign() Result {
	if len(t.SigningPubKey) == 0 || len(t.Signature) == 0 {
		return TemBAD_SIGNATURE
	}
	if crypto.AccountIDFromPubKey(t.SigningPubKey) != t.Account {
		return TefBAD_AUTH
	}
	data, err := t.signingData()
	if err != nil {
		return TemINVALID
	}
	if err := crypto.Verify(t.SigningPubKey, signingMessage(data), t.Signature); err != nil {
		return TemBAD_SIGNATURE
	}
	return TesSUCCESS
}

// signingMessage prepends the transaction signing prefix; crypto.Sign and
// crypto.Verify hash the message themselves.
func signingMessage(data []byte) []byte {
	msg := make([]byte, 0, len(data)+4)
	msg = append(msg, protocol.HashPrefixTransaction.Bytes()...)
	return append(msg, data...)
}

// DeserializeTransaction decodes a canonical transaction blob.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	var t Transaction
	if err := sle.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
