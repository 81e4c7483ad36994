package merkle

import (
	"fmt"
	"testing"

	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence/journalTest"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/stretchr/testify/require"
)

// createTestRecords creates n journal records with unique digests
func createTestRecords(n int) []*persistence.SignatureRecord {
	records := make([]*persistence.SignatureRecord, n)
	for i := 0; i < n; i++ {
		records[i] = journalTest.NewRecord(i+1, persistence.ArtifactKindTransaction, "test.near")
	}
	return records
}

// TestBuildMerkleTree tests tree construction with various numbers of records
func TestBuildMerkleTree(t *testing.T) {
	testCases := []struct {
		name       string
		numRecords int
	}{
		{"Single record", 1},
		{"Two records", 2},
		{"Three records", 3},
		{"Four records (power of 2)", 4},
		{"Seven records", 7},
		{"Eight records (power of 2)", 8},
		{"Fifteen records", 15},
		{"Sixteen records (power of 2)", 16},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := BuildMerkleTree(createTestRecords(tc.numRecords))
			require.NoError(t, err)
			require.NotNil(t, tree)

			require.Equal(t, tc.numRecords, len(tree.Leaves))
			require.Equal(t, tc.numRecords, len(tree.Digests))
			require.False(t, tree.Root.IsZero())

			for i := 0; i < tc.numRecords; i++ {
				proof, err := tree.GenerateProof(i)
				require.NoError(t, err)
				require.Equal(t, i, proof.LeafIndex)
				require.Equal(t, tree.Leaves[i], proof.Leaf)
				require.True(t, VerifyProof(proof, tree.Root), "Proof for leaf %d should be valid", i)
			}
		})
	}
}

func TestBuildMerkleTreeEmpty(t *testing.T) {
	tree, err := BuildMerkleTree(nil)
	require.Error(t, err)
	require.Nil(t, tree)
	require.Contains(t, err.Error(), "empty")
}

func TestBuildMerkleTreeRejectsDuplicates(t *testing.T) {
	records := createTestRecords(3)
	records = append(records, records[1])

	_, err := BuildMerkleTree(records)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestBuildMerkleTreeRejectsNil(t *testing.T) {
	records := append(createTestRecords(2), nil)
	_, err := BuildMerkleTree(records)
	require.Error(t, err)
}

// TestMerkleProofVerification tests proof verification with valid and invalid cases
func TestMerkleProofVerification(t *testing.T) {
	tree, err := BuildMerkleTree(createTestRecords(4))
	require.NoError(t, err)

	t.Run("Valid proof", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		require.True(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Invalid proof - wrong root", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		require.False(t, VerifyProof(proof, types.CryptoHash{1, 2, 3, 4, 5}))
	})

	t.Run("Invalid proof - tampered leaf", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		proof.Leaf[0] ^= 0xFF
		require.False(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Invalid proof - tampered sibling", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		proof.Proof[0][0] ^= 0xFF
		require.False(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Invalid proof - wrong index", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		proof.LeafIndex = 1
		require.False(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Invalid proof - index beyond the tree", func(t *testing.T) {
		proof, err := tree.GenerateProof(1)
		require.NoError(t, err)
		require.Len(t, proof.Proof, 2)
		// 5 walks the same left/right path as 1 in a tree of four leaves
		proof.LeafIndex = 1 + 4
		require.False(t, VerifyProof(proof, tree.Root))
		proof.LeafIndex = 1 + 1<<40
		require.False(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Invalid proof - nil proof", func(t *testing.T) {
		require.False(t, VerifyProof(nil, tree.Root))
	})
}

func TestGenerateProofInvalidIndex(t *testing.T) {
	tree, err := BuildMerkleTree(createTestRecords(4))
	require.NoError(t, err)

	t.Run("Negative index", func(t *testing.T) {
		proof, err := tree.GenerateProof(-1)
		require.Error(t, err)
		require.Nil(t, proof)
	})

	t.Run("Index out of bounds", func(t *testing.T) {
		proof, err := tree.GenerateProof(10)
		require.Error(t, err)
		require.Nil(t, proof)
	})
}

func TestProofForDigest(t *testing.T) {
	records := createTestRecords(9)
	tree, err := BuildMerkleTree(records)
	require.NoError(t, err)

	t.Run("Should prove every record", func(t *testing.T) {
		for _, rec := range records {
			proof, err := tree.ProofForDigest(rec.Digest)
			require.NoError(t, err)
			require.Equal(t, HashRecord(rec), proof.Leaf)
			require.True(t, VerifyProof(proof, tree.Root))
		}
	})

	t.Run("Should fail for an unknown digest", func(t *testing.T) {
		_, err := tree.ProofForDigest("digest-9999")
		require.Error(t, err)
	})
}

// TestSortRecordsDoesNotMutate verifies sorting doesn't modify the original slice
func TestSortRecordsDoesNotMutate(t *testing.T) {
	records := createTestRecords(5)
	records[0], records[4] = records[4], records[0]
	first := records[0].Digest

	sorted := SortRecords(records)
	for i := 1; i < len(sorted); i++ {
		require.Less(t, sorted[i-1].Digest, sorted[i].Digest)
	}
	require.Equal(t, first, records[0].Digest)
}

func TestHashRecord(t *testing.T) {
	rec := journalTest.NewRecord(1, persistence.ArtifactKindMessage, "alice.near")

	t.Run("Should be deterministic", func(t *testing.T) {
		require.Equal(t, HashRecord(rec), HashRecord(rec))
	})

	t.Run("Should commit to the artifact", func(t *testing.T) {
		other := *rec
		other.Artifact = []byte{0xff}
		require.NotEqual(t, HashRecord(rec), HashRecord(&other))
	})

	t.Run("Should separate digest and artifact", func(t *testing.T) {
		a := &persistence.SignatureRecord{Digest: "ab", Artifact: []byte("c")}
		b := &persistence.SignatureRecord{Digest: "a", Artifact: []byte("bc")}
		require.NotEqual(t, HashRecord(a), HashRecord(b))
	})

	t.Run("Should ignore bookkeeping fields", func(t *testing.T) {
		other := *rec
		other.Id = "another-id"
		require.Equal(t, HashRecord(rec), HashRecord(&other))
	})
}

func TestMerkleTreeLargeSet(t *testing.T) {
	for _, size := range []int{50, 100, 200} {
		t.Run(fmt.Sprintf("Size_%d", size), func(t *testing.T) {
			tree, err := BuildMerkleTree(createTestRecords(size))
			require.NoError(t, err)
			require.Equal(t, size, len(tree.Leaves))

			for _, idx := range []int{0, size / 4, size / 2, size - 1} {
				proof, err := tree.GenerateProof(idx)
				require.NoError(t, err)
				require.True(t, VerifyProof(proof, tree.Root))
			}
		})
	}
}

// TestMerkleProofLength tests that proof length is logarithmic
func TestMerkleProofLength(t *testing.T) {
	testCases := []struct {
		numRecords int
		depth      int
	}{
		{1, 0},
		{2, 1},
		{4, 2},
		{8, 3},
		{16, 4},
		{100, 7},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d_records", tc.numRecords), func(t *testing.T) {
			tree, err := BuildMerkleTree(createTestRecords(tc.numRecords))
			require.NoError(t, err)

			proof, err := tree.GenerateProof(0)
			require.NoError(t, err)
			require.Equal(t, tc.depth, len(proof.Proof))
		})
	}
}

// TestMerkleTreeOrderIndependence tests that input order doesn't affect the root
func TestMerkleTreeOrderIndependence(t *testing.T) {
	records := createTestRecords(10)
	tree1, err := BuildMerkleTree(records)
	require.NoError(t, err)

	reversed := make([]*persistence.SignatureRecord, len(records))
	for i := range records {
		reversed[len(records)-1-i] = records[i]
	}
	tree2, err := BuildMerkleTree(reversed)
	require.NoError(t, err)

	require.Equal(t, tree1.Root, tree2.Root)
	require.Equal(t, tree1.Leaves, tree2.Leaves)
}
