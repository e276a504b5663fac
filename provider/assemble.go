package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/fetch"
	"github.com/HerodotusDev/hdp-sub002/processed"
)

// FetchAll resolves every key in keys against the provider and collates
// the results into a ProcessedBlockProofs bundle (spec §4.5, "Witness
// assembly"). Unlike the range-oriented ProofProvider operations (which
// mirror the shape of a single datalake), FetchAll operates over the
// arbitrary, already-deduplicated key set the planner produces for a whole
// batch -- including keys the dry VM contributed for module tasks.
func (p *EVMProvider) FetchAll(ctx context.Context, keys fetch.CategorizedFetchKeys) (*processed.ProcessedBlockProofs, error) {
	bundle := &processed.ProcessedBlockProofs{ChainId: p.ChainId}
	var mu sync.Mutex

	metaByKey := make(map[string]processed.MMRMeta)
	headersByMeta := make(map[string][]processed.ProcessedHeader)

	err := fanOut(ctx, len(keys.Headers), p.MaxRequests, func(ctx context.Context, i int) error {
		k := keys.Headers[i]
		h, err := p.Indexer.GetHeaderProof(ctx, uint64(k.ChainId), k.BlockNumber)
		if err != nil {
			return err
		}
		meta := processed.MMRMeta{MmrId: h.MMRId, MmrSize: h.MMRSize, Root: h.MMRRoot, Peaks: h.MMRPeaks}
		metaKey := meta.Key()

		mu.Lock()
		defer mu.Unlock()
		if existing, ok := metaByKey[metaKey]; ok {
			if existing.Root != meta.Root || !peaksEqual(existing.Peaks, meta.Peaks) {
				return &MismatchedMMRMetaError{Block: k.BlockNumber, Want: existing.Root.Hex(), Got: meta.Root.Hex()}
			}
		} else {
			metaByKey[metaKey] = meta
		}
		headersByMeta[metaKey] = append(headersByMeta[metaKey], processed.ProcessedHeader{
			BlockNumber:  h.BlockNumber,
			BlockHash:    h.BlockHash,
			RLP:          h.RLP,
			MMRProof:     h.MMRProof,
			ElementIndex: h.ElementIndex,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for metaKey, meta := range metaByKey {
		bundle.MMRWithHeaders = append(bundle.MMRWithHeaders, processed.MMRMetaWithHeaders{
			Meta:    meta,
			Headers: headersByMeta[metaKey],
		})
	}

	accountsByAddr := make(map[types.Address][]processed.AccountProof)
	err = fanOut(ctx, len(keys.Accounts), p.MaxRequests, func(ctx context.Context, i int) error {
		k := keys.Accounts[i]
		proof, err := p.RPC.GetProof(ctx, k.Address, nil, k.BlockNumber)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		accountsByAddr[k.Address] = append(accountsByAddr[k.Address], processed.AccountProof{BlockNumber: k.BlockNumber, Proof: proof.AccountProof})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for addr, proofs := range accountsByAddr {
		bundle.Accounts = append(bundle.Accounts, processed.ProcessedAccount{
			Address:    addr,
			AccountKey: AccountKeyFor(addr),
			Proofs:     proofs,
		})
	}

	type storageGroupKey struct {
		addr types.Address
		slot types.Hash
	}
	storagesByKey := make(map[storageGroupKey][]processed.StorageProof)
	err = fanOut(ctx, len(keys.Storages), p.MaxRequests, func(ctx context.Context, i int) error {
		k := keys.Storages[i]
		proof, err := p.RPC.GetProof(ctx, k.Address, []types.Hash{k.Slot}, k.BlockNumber)
		if err != nil {
			return err
		}
		var nodeProof [][]byte
		if len(proof.StorageProof) > 0 {
			nodeProof = proof.StorageProof[0].Proof
		}
		mu.Lock()
		defer mu.Unlock()
		gk := storageGroupKey{addr: k.Address, slot: k.Slot}
		storagesByKey[gk] = append(storagesByKey[gk], processed.StorageProof{BlockNumber: k.BlockNumber, Proof: nodeProof})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for gk, proofs := range storagesByKey {
		bundle.Storages = append(bundle.Storages, processed.ProcessedStorage{
			Address:    gk.addr,
			Slot:       gk.slot,
			StorageKey: StorageKeyFor(gk.slot),
			Proofs:     proofs,
		})
	}

	// Group tx/receipt keys by block so each block's trie is built once.
	txByBlock := make(map[uint64][]uint64)
	for _, k := range keys.Txs {
		txByBlock[k.BlockNumber] = append(txByBlock[k.BlockNumber], k.Index)
	}
	blocks := sortedUint64Keys(txByBlock)
	for _, block := range blocks {
		indices := txByBlock[block]
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		lo, hi := indices[0], indices[len(indices)-1]
		proofs, err := p.GetTxWithProofFromBlock(ctx, block, lo, hi, 1)
		if err != nil {
			return nil, err
		}
		wanted := toSet(indices)
		for _, pr := range proofs {
			if _, ok := wanted[pr.Index]; !ok {
				continue
			}
			bundle.Transactions = append(bundle.Transactions, processed.ProcessedTransaction{
				BlockNumber: pr.BlockNumber, TxIndex: pr.Index, RLP: pr.RLP, Proof: pr.Proof,
			})
		}
	}

	receiptByBlock := make(map[uint64][]uint64)
	for _, k := range keys.Receipts {
		receiptByBlock[k.BlockNumber] = append(receiptByBlock[k.BlockNumber], k.Index)
	}
	blocks = sortedUint64Keys(receiptByBlock)
	for _, block := range blocks {
		indices := receiptByBlock[block]
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		lo, hi := indices[0], indices[len(indices)-1]
		proofs, err := p.GetTxReceiptWithProofFromBlock(ctx, block, lo, hi, 1)
		if err != nil {
			return nil, err
		}
		wanted := toSet(indices)
		for _, pr := range proofs {
			if _, ok := wanted[pr.Index]; !ok {
				continue
			}
			bundle.TransactionReceipts = append(bundle.TransactionReceipts, processed.ProcessedReceipt{
				BlockNumber: pr.BlockNumber, TxIndex: pr.Index, RLP: pr.RLP, Proof: pr.Proof,
			})
		}
	}

	bundle.Finalize()
	return bundle, nil
}

func sortedUint64Keys(m map[uint64][]uint64) []uint64 {
	out := make([]uint64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toSet(in []uint64) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}
