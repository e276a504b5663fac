package merkle

import (
	"testing"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/holiman/uint256"
)

func leafHash(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestTreeRootDeterministic(t *testing.T) {
	leaves := []types.Hash{leafHash(1), leafHash(2), leafHash(3)}
	t1, err := New(leaves)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := New(append([]types.Hash(nil), leaves...))
	if err != nil {
		t.Fatal(err)
	}
	if t1.Root() != t2.Root() {
		t.Fatalf("roots differ for identical leaf sets")
	}
}

func TestTreeProveVerifyAllLeaves(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 9} {
		var leaves []types.Hash
		for i := 0; i < n; i++ {
			leaves = append(leaves, leafHash(byte(i+1)))
		}
		tree, err := New(leaves)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < n; i++ {
			proof, err := tree.Prove(i)
			if err != nil {
				t.Fatalf("n=%d i=%d: %v", n, i, err)
			}
			if !Verify(tree.Root(), leaves[i], proof) {
				t.Fatalf("n=%d i=%d: proof did not verify", n, i)
			}
		}
	}
}

func TestTreeDuplicateLeavesHaveDistinctProofs(t *testing.T) {
	// S4: two identical leaves still have valid, distinguishable inclusion
	// proofs (distinguished by LeafIndex, even though Siblings may match
	// for a 2-leaf tree).
	leaves := []types.Hash{leafHash(7), leafHash(7)}
	tree, err := New(leaves)
	if err != nil {
		t.Fatal(err)
	}
	p0, _ := tree.Prove(0)
	p1, _ := tree.Prove(1)
	if p0.LeafIndex == p1.LeafIndex {
		t.Fatalf("expected distinct leaf indices")
	}
	if !Verify(tree.Root(), leaves[0], p0) || !Verify(tree.Root(), leaves[1], p1) {
		t.Fatalf("expected both duplicate leaves to verify")
	}
}

func TestResultLeafDiffersFromTaskLeaf(t *testing.T) {
	commitment := leafHash(9)
	result := uint256.NewInt(42)
	if ResultLeaf(commitment, result) == TaskLeaf(commitment) {
		t.Fatalf("result leaf should differ from the bare task commitment")
	}
}

func TestEmptyTreeRejected(t *testing.T) {
	if _, err := New(nil); err != ErrEmptyTree {
		t.Fatalf("expected ErrEmptyTree, got %v", err)
	}
}
