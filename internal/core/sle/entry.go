package sle

// envelope wraps an entry body with its type so the state tree can hold
// heterogeneous entries under one decode path.
type envelope struct {
	Type Type   `codec:"t"`
	Body []byte `codec:"b"`
}

func encodeEntry(t Type, v interface{}) ([]byte, error) {
	body, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Marshal(envelope{Type: t, Body: body})
}

func decodeEntry(data []byte, want Type, v interface{}) error {
	var env envelope
	if err := Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Type != want {
		return ErrBadEntry
	}
	return Unmarshal(env.Body, v)
}

// DecodeType returns the entry type of a serialized blob without decoding
// the body.
func DecodeType(data []byte) (Type, error) {
	var env envelope
	if err := Unmarshal(data, &env); err != nil {
		return TypeInvalid, err
	}
	return env.Type, nil
}
