// Package protocol defines the hashing domain-separation prefixes shared by
// the tree, ledger and transaction layers.
package protocol

// HashPrefix provides domain separation for the different hash contexts.
// A prefix is prepended to the hashed payload so that, for example, a leaf
// node hash can never collide with a transaction ID over the same bytes.
type HashPrefix [4]byte

var (
	// HashPrefixLedgerMaster is used for calculating ledger hashes.
	HashPrefixLedgerMaster = HashPrefix{'L', 'W', 'R', 0x00}

	// HashPrefixInnerNode is used for inner nodes of the Merkle trees.
	HashPrefixInnerNode = HashPrefix{'M', 'I', 'N', 0x00}

	// HashPrefixLeafNode is used for account-state leaf nodes.
	HashPrefixLeafNode = HashPrefix{'M', 'L', 'N', 0x00}

	// HashPrefixTxNode is used for transaction+metadata leaf nodes.
	HashPrefixTxNode = HashPrefix{'S', 'N', 'D', 0x00}

	// HashPrefixTransaction is the signing prefix for transactions.
	HashPrefixTransaction = HashPrefix{'S', 'T', 'X', 0x00}

	// HashPrefixTransactionID is used for computing transaction IDs.
	HashPrefixTransactionID = HashPrefix{'T', 'X', 'N', 0x00}
)

// Bytes returns the prefix as a byte slice.
func (h HashPrefix) Bytes() []byte {
	return h[:]
}
