package primitives

import (
	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
)

// commitKeccakPair returns keccak(a || b), the shape used for every
// two-part commitment in the data model (datalake || compute, task ||
// result, etc.).
func commitKeccakPair(a, b types.Hash) types.Hash {
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
}

// ValidateChainHomogeneity rejects a batch whose tasks span more than one
// ChainId (spec §8, scenario S6). Returns nil for an empty batch.
func ValidateChainHomogeneity(tasks []TaskEnvelope) error {
	if len(tasks) == 0 {
		return nil
	}
	want := tasks[0].ChainID()
	for _, t := range tasks[1:] {
		if t.ChainID() != want {
			return ErrChainMismatch
		}
	}
	return nil
}
