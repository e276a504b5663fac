// Package provider implements the Proof Fetch Engine (spec §4.5): a
// ProofProvider that fans out bounded-concurrency requests to an MMR
// indexer and a chain JSON-RPC endpoint, then collates the results into a
// ProcessedBlockProofs witness bundle.
package provider

import (
	"errors"
	"fmt"
)

// ProviderError sentinels, matching the taxonomy in spec §7. Wrap with
// fmt.Errorf("...: %w", Err...) for context; dispatch with errors.Is.
var (
	ErrIndexer           = errors.New("provider: indexer error")
	ErrRPC               = errors.New("provider: rpc error")
	ErrOutOfBoundRequest = errors.New("provider: transaction index out of bounds")
	ErrMismatchedMMRMeta = errors.New("provider: mismatched mmr metadata")
	ErrMmrNotFound       = errors.New("provider: mmr not found for block")
	ErrFetchKey          = errors.New("provider: invalid fetch key")
	ErrEthTrie           = errors.New("provider: eth trie proof verification failed")
)

// OutOfBoundRequestError reports the requested transaction index and the
// block's actual transaction count (spec §4.5, "Out-of-bound").
type OutOfBoundRequestError struct {
	RequestedIndex uint64
	TxCount        uint64
}

func (e *OutOfBoundRequestError) Error() string {
	return fmt.Sprintf("provider: tx index %d out of bounds (block has %d transactions)", e.RequestedIndex, e.TxCount)
}

func (e *OutOfBoundRequestError) Unwrap() error { return ErrOutOfBoundRequest }

// MismatchedMMRMetaError reports two blocks claiming conflicting MMR
// metadata for what should be the same accumulator (spec §4.5).
type MismatchedMMRMetaError struct {
	Block uint64
	Want  string
	Got   string
}

func (e *MismatchedMMRMetaError) Error() string {
	return fmt.Sprintf("provider: block %d: mismatched mmr meta: want %s got %s", e.Block, e.Want, e.Got)
}

func (e *MismatchedMMRMetaError) Unwrap() error { return ErrMismatchedMMRMeta }
