package sle

// FeeSettings is the singleton entry carrying the network's fee and reserve
// schedule.
type FeeSettings struct {
	BaseFee          uint64 `codec:"b"` // drops per reference transaction
	ReserveBase      uint64 `codec:"r"` // drops an account must hold
	ReserveIncrement uint64 `codec:"i"` // drops per owned object
}

// Encode serializes the fee settings.
func (f *FeeSettings) Encode() ([]byte, error) {
	return encodeEntry(TypeFeeSettings, f)
}

// DecodeFeeSettings decodes serialized fee settings.
func DecodeFeeSettings(data []byte) (*FeeSettings, error) {
	var f FeeSettings
	if err := decodeEntry(data, TypeFeeSettings, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
