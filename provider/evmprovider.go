package provider

import (
	"context"
	"fmt"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
	"github.com/HerodotusDev/hdp-sub002/processed"
	"github.com/HerodotusDev/hdp-sub002/rlp"
)

// EVMProvider is the concrete ProofProvider for EVM chains (spec §4.5): it
// drives an IndexerClient for headers and an RPCClient for
// accounts/storage/transactions/receipts, fanning out each range call with
// bounded concurrency.
type EVMProvider struct {
	ChainId     uint64
	Indexer     *IndexerClient
	RPC         *RPCClient
	MaxRequests int // concurrency bound per spec §5 (default 100)
}

// NewEVMProvider builds an EVMProvider. maxRequests <= 0 defaults to 100,
// matching spec §5's default; archive-node-friendly deployments raise this
// to 1000 per the same section.
func NewEVMProvider(chainID uint64, indexer *IndexerClient, rpc *RPCClient, maxRequests int) *EVMProvider {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	return &EVMProvider{ChainId: chainID, Indexer: indexer, RPC: rpc, MaxRequests: maxRequests}
}

// GetRangeOfHeaderProofs implements ProofProvider.
func (p *EVMProvider) GetRangeOfHeaderProofs(ctx context.Context, from, to, inc uint64) (map[string]processed.MMRMeta, map[uint64]HeaderWithMMRProof, error) {
	blocks := blockRange(from, to, inc)
	results := make([]HeaderWithMMRProof, len(blocks))

	err := fanOut(ctx, len(blocks), p.MaxRequests, func(ctx context.Context, i int) error {
		h, err := p.Indexer.GetHeaderProof(ctx, p.ChainId, blocks[i])
		if err != nil {
			return err
		}
		results[i] = h
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metas := make(map[string]processed.MMRMeta)
	headers := make(map[uint64]HeaderWithMMRProof, len(results))
	for _, h := range results {
		meta := processed.MMRMeta{MmrId: h.MMRId, MmrSize: h.MMRSize, Root: h.MMRRoot, Peaks: h.MMRPeaks}
		key := meta.Key()
		if existing, ok := metas[key]; ok {
			if existing.Root != meta.Root || !peaksEqual(existing.Peaks, meta.Peaks) {
				return nil, nil, &MismatchedMMRMetaError{Block: h.BlockNumber, Want: existing.Root.Hex(), Got: meta.Root.Hex()}
			}
		} else {
			metas[key] = meta
		}
		headers[h.BlockNumber] = h
	}
	return metas, headers, nil
}

func peaksEqual(a, b []types.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GetRangeOfAccountProofs implements ProofProvider.
func (p *EVMProvider) GetRangeOfAccountProofs(ctx context.Context, from, to, inc uint64, address types.Address) (map[uint64]EIP1186Proof, error) {
	blocks := blockRange(from, to, inc)
	results := make([]EIP1186Proof, len(blocks))

	err := fanOut(ctx, len(blocks), p.MaxRequests, func(ctx context.Context, i int) error {
		proof, err := p.RPC.GetProof(ctx, address, nil, blocks[i])
		if err != nil {
			return err
		}
		results[i] = proof
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]EIP1186Proof, len(blocks))
	for i, b := range blocks {
		out[b] = results[i]
	}
	return out, nil
}

// GetRangeOfStorageProofs implements ProofProvider.
func (p *EVMProvider) GetRangeOfStorageProofs(ctx context.Context, from, to, inc uint64, address types.Address, slot types.Hash) (map[uint64]EIP1186Proof, error) {
	blocks := blockRange(from, to, inc)
	results := make([]EIP1186Proof, len(blocks))

	err := fanOut(ctx, len(blocks), p.MaxRequests, func(ctx context.Context, i int) error {
		proof, err := p.RPC.GetProof(ctx, address, []types.Hash{slot}, blocks[i])
		if err != nil {
			return err
		}
		results[i] = proof
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]EIP1186Proof, len(blocks))
	for i, b := range blocks {
		out[b] = results[i]
	}
	return out, nil
}

// GetTxWithProofFromBlock implements ProofProvider. It fetches every raw
// transaction in the block, builds the canonical index-keyed trie, and
// returns inclusion proofs for [start, end] stepping by inc.
func (p *EVMProvider) GetTxWithProofFromBlock(ctx context.Context, block, start, end, inc uint64) ([]FetchedTransactionProof, error) {
	count, err := p.RPC.GetBlockTxCount(ctx, block)
	if err != nil {
		return nil, err
	}
	if end >= count {
		return nil, &OutOfBoundRequestError{RequestedIndex: end, TxCount: count}
	}

	raw := make([][]byte, count)
	err = fanOut(ctx, int(count), p.MaxRequests, func(ctx context.Context, i int) error {
		b, err := p.RPC.GetRawTransaction(ctx, block, uint64(i))
		if err != nil {
			return err
		}
		raw[i] = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := BuildOrderedTrie(raw)
	if err != nil {
		return nil, err
	}

	var out []FetchedTransactionProof
	for idx := start; idx <= end; idx += stepOrOne(inc) {
		key, keyErr := trieIndexKey(idx)
		if keyErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchKey, keyErr)
		}
		proof, proveErr := t.Prove(key)
		if proveErr != nil {
			return nil, fmt.Errorf("%w: prove tx %d: %v", ErrEthTrie, idx, proveErr)
		}
		out = append(out, FetchedTransactionProof{BlockNumber: block, Index: idx, RLP: raw[idx], Proof: proof})
	}
	return out, nil
}

// GetTxReceiptWithProofFromBlock implements ProofProvider, mirroring
// GetTxWithProofFromBlock for receipts.
func (p *EVMProvider) GetTxReceiptWithProofFromBlock(ctx context.Context, block, start, end, inc uint64) ([]FetchedTransactionReceiptProof, error) {
	receipts, err := p.RPC.GetBlockReceipts(ctx, block)
	if err != nil {
		return nil, err
	}
	count := uint64(len(receipts))
	if end >= count {
		return nil, &OutOfBoundRequestError{RequestedIndex: end, TxCount: count}
	}

	t, err := BuildOrderedTrie(receipts)
	if err != nil {
		return nil, err
	}

	var out []FetchedTransactionReceiptProof
	for idx := start; idx <= end; idx += stepOrOne(inc) {
		key, keyErr := trieIndexKey(idx)
		if keyErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchKey, keyErr)
		}
		proof, proveErr := t.Prove(key)
		if proveErr != nil {
			return nil, fmt.Errorf("%w: prove receipt %d: %v", ErrEthTrie, idx, proveErr)
		}
		out = append(out, FetchedTransactionReceiptProof{BlockNumber: block, Index: idx, RLP: receipts[idx], Proof: proof})
	}
	return out, nil
}

func stepOrOne(inc uint64) uint64 {
	if inc == 0 {
		return 1
	}
	return inc
}

func trieIndexKey(idx uint64) ([]byte, error) {
	return rlp.EncodeToBytes(idx)
}

// AccountKeyFor derives the keccak(address) account key used by
// ProcessedAccount (spec §3).
func AccountKeyFor(address types.Address) types.Hash {
	return crypto.Keccak256Hash(address[:])
}

// StorageKeyFor derives the keccak(slot) storage key used by
// ProcessedStorage (spec §3).
func StorageKeyFor(slot types.Hash) types.Hash {
	return crypto.Keccak256Hash(slot[:])
}
