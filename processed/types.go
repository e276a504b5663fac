// Package processed holds the canonical witness records assembled by the
// Provider (spec §4.5) into a ProcessedBlockProofs bundle, plus their
// "AsCairoFormat" felt-projected mirror (spec §4.2) consumed by the sound
// VM's input tape.
package processed

import (
	"sort"

	"github.com/HerodotusDev/hdp-sub002/core/types"
)

// MMRMeta identifies the Merkle-Mountain-Range accumulator a group of
// headers was proven against. Headers sharing (MmrId, MmrSize) share one
// MMRMeta (spec §4.5, "Witness assembly").
type MMRMeta struct {
	MmrId   uint64       `json:"mmr_id"`
	MmrSize uint64       `json:"mmr_size"`
	Root    types.Hash   `json:"mmr_root"`
	Peaks   []types.Hash `json:"mmr_peaks"`
}

// Key is the canonical identity used to group headers under one MMRMeta.
func (m MMRMeta) Key() string {
	return mmrMetaKey(m.MmrId, m.MmrSize)
}

func mmrMetaKey(id, size uint64) string {
	return uint64Key(id) + ":" + uint64Key(size)
}

// ProcessedHeader is a single header witness: the RLP-encoded header plus
// its MMR inclusion path against the owning MMRMeta's root.
type ProcessedHeader struct {
	BlockNumber  uint64       `json:"block_number"`
	BlockHash    types.Hash   `json:"block_hash"`
	RLP          []byte       `json:"rlp"`
	MMRProof     []types.Hash `json:"mmr_inclusion_proof"`
	ElementIndex uint64       `json:"element_index"`
}

// MMRMetaWithHeaders groups headers proven against a single MMR snapshot,
// per spec §3's `mmr_with_headers: set of {MMRMeta, set<ProcessedHeader>}`.
type MMRMetaWithHeaders struct {
	Meta    MMRMeta
	Headers []ProcessedHeader
}

// AccountProof is one block's MPT proof for an account.
type AccountProof struct {
	BlockNumber uint64   `json:"block_number"`
	Proof       [][]byte `json:"proof"`
}

// ProcessedAccount is the per-address witness: the address, its
// keccak-derived account key, and one MPT proof per proved block.
type ProcessedAccount struct {
	Address    types.Address  `json:"address"`
	AccountKey types.Hash     `json:"account_key"`
	Proofs     []AccountProof `json:"proofs"`
}

// StorageProof is one block's MPT proof for a storage slot.
type StorageProof struct {
	BlockNumber uint64   `json:"block_number"`
	Proof       [][]byte `json:"proof"`
}

// ProcessedStorage is the per-(address,slot) witness.
type ProcessedStorage struct {
	Address    types.Address  `json:"address"`
	Slot       types.Hash     `json:"slot"`
	StorageKey types.Hash     `json:"storage_key"`
	Proofs     []StorageProof `json:"proofs"`
}

// ProcessedTransaction is a single proved transaction within a block.
type ProcessedTransaction struct {
	BlockNumber uint64   `json:"block_number"`
	TxIndex     uint64   `json:"tx_index"`
	RLP         []byte   `json:"rlp"`
	Proof       [][]byte `json:"proof"`
}

// ProcessedReceipt is a single proved transaction receipt within a block.
type ProcessedReceipt struct {
	BlockNumber uint64   `json:"block_number"`
	TxIndex     uint64   `json:"tx_index"`
	RLP         []byte   `json:"rlp"`
	Proof       [][]byte `json:"proof"`
}

// ProcessedBlockProofs is the canonical witness bundle for a single chain
// (spec §3). It is built incrementally by the provider and finalized (sorted
// into deterministic order) before serialization.
type ProcessedBlockProofs struct {
	ChainId             uint64
	MMRWithHeaders      []MMRMetaWithHeaders
	Accounts            []ProcessedAccount
	Storages            []ProcessedStorage
	Transactions        []ProcessedTransaction
	TransactionReceipts []ProcessedReceipt
}

func uint64Key(v uint64) string {
	// Plain decimal without padding; used only as a grouping key, never
	// sorted lexically.
	const digits = "0123456789"
	var buf [20]byte
	i := len(buf)
	if v == 0 {
		return "0"
	}
	for v > 0 {
		i--
		buf[i] = digits[v%10]
		v /= 10
	}
	return string(buf[i:])
}

// Finalize sorts every set-valued field into its canonical order (spec §5,
// "Ordering guarantees"): MMR groups by (mmr_id, mmr_size) and their headers
// by block; accounts by address and storages by (address, slot), each with
// its proofs by block; transactions and receipts by (block, index). Identical
// inputs therefore yield byte-identical serialized output.
func (p *ProcessedBlockProofs) Finalize() {
	sort.Slice(p.MMRWithHeaders, func(i, j int) bool {
		a, b := p.MMRWithHeaders[i].Meta, p.MMRWithHeaders[j].Meta
		if a.MmrId != b.MmrId {
			return a.MmrId < b.MmrId
		}
		return a.MmrSize < b.MmrSize
	})
	for i := range p.MMRWithHeaders {
		hs := p.MMRWithHeaders[i].Headers
		sort.Slice(hs, func(a, b int) bool { return hs[a].BlockNumber < hs[b].BlockNumber })
	}

	sort.Slice(p.Accounts, func(i, j int) bool {
		return lessAddress(p.Accounts[i].Address, p.Accounts[j].Address)
	})
	for i := range p.Accounts {
		pr := p.Accounts[i].Proofs
		sort.Slice(pr, func(a, b int) bool { return pr[a].BlockNumber < pr[b].BlockNumber })
	}

	sort.Slice(p.Storages, func(i, j int) bool {
		a, b := p.Storages[i], p.Storages[j]
		if a.Address != b.Address {
			return lessAddress(a.Address, b.Address)
		}
		return lessHash(a.Slot, b.Slot)
	})
	for i := range p.Storages {
		pr := p.Storages[i].Proofs
		sort.Slice(pr, func(a, b int) bool { return pr[a].BlockNumber < pr[b].BlockNumber })
	}

	sort.Slice(p.Transactions, func(i, j int) bool {
		a, b := p.Transactions[i], p.Transactions[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.TxIndex < b.TxIndex
	})
	sort.Slice(p.TransactionReceipts, func(i, j int) bool {
		a, b := p.TransactionReceipts[i], p.TransactionReceipts[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.TxIndex < b.TxIndex
	})
}

func lessAddress(a, b types.Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func lessHash(a, b types.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
