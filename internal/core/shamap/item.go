package shamap

// Item represents a leaf-level item stored in the SHAMap.
type Item struct {
	key  [32]byte
	blob []byte
}

// NewItem constructs a new Item, copying the data.
func NewItem(key [32]byte, data []byte) *Item {
	item := &Item{key: key, blob: make([]byte, len(data))}
	copy(item.blob, data)
	return item
}

// Key returns the key of the item.
func (i *Item) Key() [32]byte {
	return i.key
}

// Data returns the raw data stored in the item.
func (i *Item) Data() []byte {
	return i.blob
}

// Size returns the size of the data blob.
func (i *Item) Size() int {
	return len(i.blob)
}

// Equal reports whether two items have the same key and data.
func (i *Item) Equal(other *Item) bool {
	if other == nil || i.key != other.key || len(i.blob) != len(other.blob) {
		return false
	}
	for n := range i.blob {
		if i.blob[n] != other.blob[n] {
			return false
		}
	}
	return true
}
