package nodestore

import (
	"encoding/binary"

	"github.com/pierrec/lz4"
)

// Stored value layout: kind u32 | ledgerSeq u32 | rawLen u32 | compressed u8
// | payload. Values below minCompressSize, and values that lz4 cannot
// shrink, are stored raw.
const (
	headerSize      = 4 + 4 + 4 + 1
	minCompressSize = 128
)

func encodeNode(n *Node) []byte {
	payload := n.Data
	compressed := byte(0)

	if len(n.Data) >= minCompressSize {
		buf := make([]byte, lz4.CompressBlockBound(len(n.Data)))
		size, err := lz4.CompressBlock(n.Data, buf, nil)
		if err == nil && size > 0 && size < len(n.Data) {
			payload = buf[:size]
			compressed = 1
		}
	}

	out := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(n.Kind))
	binary.BigEndian.PutUint32(out[4:8], n.LedgerSeq)
	binary.BigEndian.PutUint32(out[8:12], uint32(len(n.Data)))
	out[12] = compressed
	copy(out[headerSize:], payload)
	return out
}

func decodeNode(hash [32]byte, value []byte) (*Node, error) {
	if len(value) < headerSize {
		return nil, ErrCorrupt
	}
	n := &Node{
		Kind:      Kind(binary.BigEndian.Uint32(value[0:4])),
		Hash:      hash,
		LedgerSeq: binary.BigEndian.Uint32(value[4:8]),
	}
	rawLen := binary.BigEndian.Uint32(value[8:12])
	payload := value[headerSize:]

	if value[12] == 0 {
		if uint32(len(payload)) != rawLen {
			return nil, ErrCorrupt
		}
		n.Data = make([]byte, rawLen)
		copy(n.Data, payload)
		return n, nil
	}

	n.Data = make([]byte, rawLen)
	size, err := lz4.UncompressBlock(payload, n.Data)
	if err != nil || uint32(size) != rawLen {
		return nil, ErrCorrupt
	}
	return n, nil
}
