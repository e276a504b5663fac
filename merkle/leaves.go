package merkle

import (
	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
	"github.com/holiman/uint256"
)

// TaskLeaf is the task-tree leaf for a single task: its commitment, taken
// as-is (spec §4.6, "Task-tree leaf: task_commitment").
func TaskLeaf(taskCommitment types.Hash) types.Hash {
	return taskCommitment
}

// ResultLeaf is the result-tree leaf for a single task:
// keccak(task_commitment ‖ compiled_result_as_bytes32) (spec §4.6).
func ResultLeaf(taskCommitment types.Hash, compiledResult *uint256.Int) types.Hash {
	if compiledResult == nil {
		compiledResult = new(uint256.Int)
	}
	rb := compiledResult.Bytes32()
	return crypto.Keccak256Hash(taskCommitment[:], rb[:])
}

// BuildTaskTree builds the task tree from task commitments in batch-input
// order.
func BuildTaskTree(taskCommitments []types.Hash) (*Tree, error) {
	leaves := make([]types.Hash, len(taskCommitments))
	for i, c := range taskCommitments {
		leaves[i] = TaskLeaf(c)
	}
	return New(leaves)
}

// BuildResultTree builds the result tree from task commitments and their
// matching compiled results, in batch-input order (spec §4.6).
func BuildResultTree(taskCommitments []types.Hash, results []*uint256.Int) (*Tree, error) {
	leaves := make([]types.Hash, len(taskCommitments))
	for i, c := range taskCommitments {
		var r *uint256.Int
		if i < len(results) {
			r = results[i]
		}
		leaves[i] = ResultLeaf(c, r)
	}
	return New(leaves)
}
