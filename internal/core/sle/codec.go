package sle

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

// cborHandle is the shared canonical CBOR configuration. Canonical ordering
// is required: two nodes serializing the same entry must produce identical
// bytes or the state tree hashes diverge.
var cborHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

// Marshal encodes v into canonical CBOR.
func Marshal(v interface{}) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, cborHandle).Encode(v); err != nil {
		return nil, fmt.Errorf("sle: encode: %w", err)
	}
	return b, nil
}

// Unmarshal decodes canonical CBOR into v.
func Unmarshal(data []byte, v interface{}) error {
	if err := codec.NewDecoderBytes(data, cborHandle).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEntry, err)
	}
	return nil
}
