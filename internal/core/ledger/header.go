package ledger

import (
	"encoding/binary"

	"github.com/arcledger/arcd/internal/crypto"
	"github.com/arcledger/arcd/internal/protocol"
)

// Info is the ledger header. Hash is the identifying hash once the ledger
// is closed; it commits to every other field, chaining each ledger to its
// parent.
type Info struct {
	Sequence            uint32
	TotalDrops          uint64
	ParentHash          [32]byte
	TxHash              [32]byte
	AccountHash         [32]byte
	ParentCloseTime     uint32
	CloseTime           uint32
	CloseTimeResolution uint8
	CloseFlags          uint8
	Hash                [32]byte
}

// CalculateHash computes the ledger hash over the header fields in wire
// order under the ledger master prefix.
func CalculateHash(info *Info) [32]byte {
	buf := make([]byte, 0, 4+4+8+32+32+32+4+4+1+1)
	buf = append(buf, protocol.HashPrefixLedgerMaster.Bytes()...)
	buf = binary.BigEndian.AppendUint32(buf, info.Sequence)
	buf = binary.BigEndian.AppendUint64(buf, info.TotalDrops)
	buf = append(buf, info.ParentHash[:]...)
	buf = append(buf, info.TxHash[:]...)
	buf = append(buf, info.AccountHash[:]...)
	buf = binary.BigEndian.AppendUint32(buf, info.ParentCloseTime)
	buf = binary.BigEndian.AppendUint32(buf, info.CloseTime)
	buf = append(buf, info.CloseTimeResolution, info.CloseFlags)
	return crypto.Sha512Half(buf)
}
