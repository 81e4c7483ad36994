package merkle

import "github.com/Layr-Labs/near-signer-go/pkg/types"

// MerkleTree is a binary sha256 merkle tree over journaled signatures.
type MerkleTree struct {
	// Leaves contains the leaf hashes, in digest order
	Leaves []types.CryptoHash

	// Digests are the record digests, aligned with Leaves
	Digests []string

	Root types.CryptoHash

	// levels[0] = leaves, levels[len-1] = root
	levels [][]types.CryptoHash
}

// MerkleProof shows that a leaf is included in a tree.
type MerkleProof struct {
	// LeafIndex is the index of the leaf in the sorted leaves array
	LeafIndex int `json:"leafIndex"`

	Leaf types.CryptoHash `json:"leaf"`

	// Proof contains the sibling hashes from leaf to root
	Proof []types.CryptoHash `json:"proof"`
}
