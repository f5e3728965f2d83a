package sle

import "github.com/arcledger/arcd/internal/crypto"

// Offer is an order book entry: the owner offers TakerGets in exchange for
// TakerPays.
type Offer struct {
	Account           crypto.AccountID `codec:"a"`
	Sequence          uint32           `codec:"s"`
	TakerPays         Amount           `codec:"tp"`
	TakerGets         Amount           `codec:"tg"`
	BookDirectory     [32]byte         `codec:"bd"`
	Flags             uint32           `codec:"f"`
	PreviousTxnID     [32]byte         `codec:"p"`
	PreviousTxnLgrSeq uint32           `codec:"l"`
}

// Encode serializes the offer.
func (o *Offer) Encode() ([]byte, error) {
	return encodeEntry(TypeOffer, o)
}

// DecodeOffer decodes a serialized offer.
func DecodeOffer(data []byte) (*Offer, error) {
	var o Offer
	if err := decodeEntry(data, TypeOffer, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
