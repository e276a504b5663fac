// Package merkle builds the two standard binary Merkle trees the
// orchestrator commits to per batch: the task tree and the result tree
// (spec §4.6). Both are plain binary trees over 32-byte keccak leaves,
// taken in batch-input order, with the standard doubling rule for an odd
// node count at any level.
package merkle

import (
	"errors"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
)

// ErrEmptyTree is returned when a tree is built from zero leaves.
var ErrEmptyTree = errors.New("merkle: tree has no leaves")

// ErrIndexOutOfRange is returned by Prove for an out-of-bounds leaf index.
var ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")

// Tree is a standard binary Merkle tree over keccak-32 leaves. Leaves are
// stored in input order (spec §3 invariant: "roots of standard binary
// Merkle trees ... in input order of the batch; order is significant").
type Tree struct {
	leaves []types.Hash
	layers [][]types.Hash // layers[0] == leaves, ..., last layer has len 1 (the root)
}

// New builds a Tree from leaves in the given order. Building is
// deterministic: identical leaf sequences always produce identical roots
// and proofs (spec §8 property 4).
func New(leaves []types.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	t := &Tree{leaves: append([]types.Hash(nil), leaves...)}
	t.layers = append(t.layers, t.leaves)
	cur := t.leaves
	for len(cur) > 1 {
		next := make([]types.Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 < len(cur) {
				next = append(next, hashPair(cur[i], cur[i+1]))
			} else {
				// Standard doubling rule: an unpaired last node at a level
				// is paired with itself.
				next = append(next, hashPair(cur[i], cur[i]))
			}
		}
		t.layers = append(t.layers, next)
		cur = next
	}
	return t, nil
}

func hashPair(left, right types.Hash) types.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

// Root returns the tree's root hash.
func (t *Tree) Root() types.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int { return len(t.leaves) }

// Proof is an inclusion proof for one leaf: the sibling hash at each level
// from the leaf up to (but excluding) the root.
type Proof struct {
	LeafIndex int
	Siblings  []types.Hash
}

// Prove returns the inclusion proof for the leaf at index i.
func (t *Tree) Prove(i int) (Proof, error) {
	if i < 0 || i >= len(t.leaves) {
		return Proof{}, ErrIndexOutOfRange
	}
	proof := Proof{LeafIndex: i}
	idx := i
	for level := 0; level < len(t.layers)-1; level++ {
		layer := t.layers[level]
		var siblingIdx int
		if idx%2 == 0 {
			siblingIdx = idx + 1
			if siblingIdx >= len(layer) {
				siblingIdx = idx // self-paired under the doubling rule
			}
		} else {
			siblingIdx = idx - 1
		}
		proof.Siblings = append(proof.Siblings, layer[siblingIdx])
		idx /= 2
	}
	return proof, nil
}

// Verify checks that leaf, combined with proof, reproduces root.
func Verify(root types.Hash, leaf types.Hash, proof Proof) bool {
	cur := leaf
	idx := proof.LeafIndex
	for _, sibling := range proof.Siblings {
		if idx%2 == 0 {
			cur = hashPair(cur, sibling)
		} else {
			cur = hashPair(sibling, cur)
		}
		idx /= 2
	}
	return cur == root
}
