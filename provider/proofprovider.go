package provider

import (
	"context"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/processed"
)

// EIP1186Proof mirrors the eth_getProof response shape: an account proof
// plus the per-slot storage proofs requested alongside it.
type EIP1186Proof struct {
	Address      types.Address
	AccountProof [][]byte
	Balance      []byte
	CodeHash     types.Hash
	Nonce        uint64
	StorageHash  types.Hash
	StorageProof []EIP1186StorageProof
}

// EIP1186StorageProof is one slot's proof within an EIP1186Proof response.
type EIP1186StorageProof struct {
	Key   types.Hash
	Value []byte
	Proof [][]byte
}

// HeaderWithMMRProof pairs a header's RLP with its MMR inclusion path, the
// per-block value of get_range_of_header_proofs's returned map (spec §4.5).
type HeaderWithMMRProof struct {
	BlockNumber  uint64
	BlockHash    types.Hash
	RLP          []byte
	MMRProof     []types.Hash
	ElementIndex uint64
	MMRId        uint64
	MMRSize      uint64
	MMRRoot      types.Hash
	MMRPeaks     []types.Hash
}

// FetchedTransactionProof is one proved transaction within a block (spec §4.5).
type FetchedTransactionProof struct {
	BlockNumber uint64
	Index       uint64
	RLP         []byte
	Proof       [][]byte
}

// FetchedTransactionReceiptProof is one proved transaction receipt.
type FetchedTransactionReceiptProof struct {
	BlockNumber uint64
	Index       uint64
	RLP         []byte
	Proof       [][]byte
}

// ProofProvider exposes the five fetch operations of spec §4.5. Every
// operation is bounded-concurrency internally (spec §5); a failure aborts
// the whole call rather than returning partial results.
type ProofProvider interface {
	GetRangeOfHeaderProofs(ctx context.Context, from, to, inc uint64) (map[string]processed.MMRMeta, map[uint64]HeaderWithMMRProof, error)
	GetRangeOfAccountProofs(ctx context.Context, from, to, inc uint64, address types.Address) (map[uint64]EIP1186Proof, error)
	GetRangeOfStorageProofs(ctx context.Context, from, to, inc uint64, address types.Address, slot types.Hash) (map[uint64]EIP1186Proof, error)
	GetTxWithProofFromBlock(ctx context.Context, block, start, end, inc uint64) ([]FetchedTransactionProof, error)
	GetTxReceiptWithProofFromBlock(ctx context.Context, block, start, end, inc uint64) ([]FetchedTransactionReceiptProof, error)
}
