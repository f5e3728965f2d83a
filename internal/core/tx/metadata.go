package tx

import "github.com/arcledger/arcd/internal/core/sle"

// Metadata records what applying a transaction did to the ledger. It is
// stored next to the transaction in the closed ledger's transaction tree.
type Metadata struct {
	TransactionIndex  uint32     `codec:"i"`
	TransactionResult Result     `codec:"r"`
	DeliveredAmount   sle.Amount `codec:"d,omitempty"`
	AffectedKeys      [][32]byte `codec:"k,omitempty"`
}

// Encode serializes the metadata.
func (m *Metadata) Encode() ([]byte, error) {
	return sle.Marshal(m)
}

// DecodeMetadata decodes serialized metadata.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := sle.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// withMeta pairs a serialized transaction with its serialized metadata for
// storage in the transaction tree.
type withMeta struct {
	Tx   []byte `codec:"t"`
	Meta []byte `codec:"m"`
}

// EncodeWithMeta builds the transaction tree leaf payload for an applied
// transaction.
func EncodeWithMeta(txBlob []byte, meta *Metadata) ([]byte, error) {
	metaBlob, err := meta.Encode()
	if err != nil {
		return nil, err
	}
	return sle.Marshal(withMeta{Tx: txBlob, Meta: metaBlob})
}

// DecodeWithMeta splits a transaction tree leaf payload back into the
// transaction and its metadata.
func DecodeWithMeta(data []byte) (*Transaction, *Metadata, error) {
	var wm withMeta
	if err := sle.Unmarshal(data, &wm); err != nil {
		return nil, nil, err
	}
	t, err := DeserializeTransaction(wm.Tx)
	if err != nil {
		return nil, nil, err
	}
	m, err := DecodeMetadata(wm.Meta)
	if err != nil {
		return nil, nil, err
	}
	return t, m, nil
}
