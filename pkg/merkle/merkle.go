package merkle

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
)

// Leaves and interior nodes hash under different prefixes so a leaf can never be
// presented as an interior node.
const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// BuildMerkleTree creates a merkle tree over journal records. Records are sorted by
// digest first, so every journal holding the same records produces the same root.
// If there's an odd number of nodes at any level, the last node is duplicated.
func BuildMerkleTree(records []*persistence.SignatureRecord) (*MerkleTree, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot build merkle tree from empty record list")
	}

	sorted := SortRecords(records)

	leaves := make([]types.CryptoHash, len(sorted))
	digests := make([]string, len(sorted))
	for i, rec := range sorted {
		if rec == nil {
			return nil, fmt.Errorf("record %d is nil", i)
		}
		if i > 0 && rec.Digest == digests[i-1] {
			return nil, fmt.Errorf("duplicate record digest %s", rec.Digest)
		}
		leaves[i] = HashRecord(rec)
		digests[i] = rec.Digest
	}

	levels := make([][]types.CryptoHash, 0)
	levels = append(levels, leaves)

	currentLevel := leaves
	for len(currentLevel) > 1 {
		nextLevel := make([]types.CryptoHash, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]
			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}
			nextLevel = append(nextLevel, hashPair(left, right))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &MerkleTree{
		Leaves:  leaves,
		Digests: digests,
		Root:    currentLevel[0],
		levels:  levels,
	}, nil
}

// GenerateProof creates a merkle proof for the leaf at the given index.
func (mt *MerkleTree) GenerateProof(leafIndex int) (*MerkleProof, error) {
	if leafIndex < 0 || leafIndex >= len(mt.Leaves) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(mt.Leaves))
	}

	proof := make([]types.CryptoHash, 0, len(mt.levels)-1)
	index := leafIndex

	for level := 0; level < len(mt.levels)-1; level++ {
		currentLevel := mt.levels[level]

		siblingIndex := index + 1
		if index%2 == 1 {
			siblingIndex = index - 1
		}
		// last node of an odd level pairs with itself
		if siblingIndex >= len(currentLevel) {
			siblingIndex = index
		}

		proof = append(proof, currentLevel[siblingIndex])
		index = index / 2
	}

	return &MerkleProof{
		LeafIndex: leafIndex,
		Leaf:      mt.Leaves[leafIndex],
		Proof:     proof,
	}, nil
}

// ProofForDigest finds the record with digest and proves its inclusion.
func (mt *MerkleTree) ProofForDigest(digest string) (*MerkleProof, error) {
	i := sort.SearchStrings(mt.Digests, digest)
	if i >= len(mt.Digests) || mt.Digests[i] != digest {
		return nil, fmt.Errorf("digest %s is not in the tree", digest)
	}
	return mt.GenerateProof(i)
}

// VerifyProof recomputes the root from the proof and compares it with root.
func VerifyProof(proof *MerkleProof, root types.CryptoHash) bool {
	if proof == nil || proof.LeafIndex < 0 {
		return false
	}
	// a proof of n siblings covers at most 2^n leaves
	if proof.LeafIndex>>uint(len(proof.Proof)) != 0 {
		return false
	}

	currentHash := proof.Leaf
	index := proof.LeafIndex

	for _, siblingHash := range proof.Proof {
		if index%2 == 0 {
			currentHash = hashPair(currentHash, siblingHash)
		} else {
			currentHash = hashPair(siblingHash, currentHash)
		}
		index = index / 2
	}

	return currentHash == root
}

// HashRecord is sha256(0x00 || u32(len(digest)) || digest || artifact). The artifact is
// the signed payload itself, so the leaf commits to exactly what was returned.
func HashRecord(rec *persistence.SignatureRecord) types.CryptoHash {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(encoding.EncodeU32(uint32(len(rec.Digest))))
	h.Write([]byte(rec.Digest))
	h.Write(rec.Artifact)

	var out types.CryptoHash
	copy(out[:], h.Sum(nil))
	return out
}

// SortRecords returns a copy of records ordered by digest.
func SortRecords(records []*persistence.SignatureRecord) []*persistence.SignatureRecord {
	sorted := make([]*persistence.SignatureRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i] == nil || sorted[j] == nil {
			return sorted[j] != nil
		}
		return sorted[i].Digest < sorted[j].Digest
	})

	return sorted
}

func hashPair(left, right types.CryptoHash) types.CryptoHash {
	data := make([]byte, 0, 1+2*types.CryptoHashLength)
	data = append(data, nodePrefix)
	data = append(data, left[:]...)
	data = append(data, right[:]...)
	return sha256.Sum256(data)
}
