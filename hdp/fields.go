package hdp

import (
	"errors"
	"fmt"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/HerodotusDev/hdp-sub002/processed"
	"github.com/HerodotusDev/hdp-sub002/trie"
	"github.com/holiman/uint256"
)

// ErrFieldNotSampleable is returned when a SampledProperty names a field
// that cannot be projected into a single uint256 point (a bloom filter or
// an access list, for instance).
var ErrFieldNotSampleable = errors.New("hdp: field is not a sampleable scalar")

// ErrWitnessNotFound is returned when sampleDatalakePoints can't find a
// fetched witness for a block, address, or index a datalake refers to;
// it indicates the fetch phase and the compile phase disagreed about what
// keys a task needed.
var ErrWitnessNotFound = errors.New("hdp: witness missing for sampled datalake element")

func hashToPoint(h types.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

// headerFieldValue projects one header field (spec's fixed field-index
// enumeration for HeaderProperty) to a uint256 point. Fields that don't
// reduce to a single scalar (LogsBloom, Extra) are rejected.
func headerFieldValue(h *types.Header, field uint8) (*uint256.Int, error) {
	switch field {
	case 0:
		return hashToPoint(h.ParentHash), nil
	case 1:
		return hashToPoint(h.UncleHash), nil
	case 2:
		return new(uint256.Int).SetBytes(h.Coinbase[:]), nil
	case 3:
		return hashToPoint(h.Root), nil
	case 4:
		return hashToPoint(h.TxHash), nil
	case 5:
		return hashToPoint(h.ReceiptHash), nil
	case 7:
		return uint256.MustFromBig(h.Difficulty), nil
	case 8:
		return uint256.MustFromBig(h.Number), nil
	case 9:
		return uint256.NewInt(h.GasLimit), nil
	case 10:
		return uint256.NewInt(h.GasUsed), nil
	case 11:
		return uint256.NewInt(h.Time), nil
	case 13:
		return hashToPoint(h.MixDigest), nil
	case 14:
		return new(uint256.Int).SetBytes(h.Nonce[:]), nil
	case 15:
		if h.BaseFee == nil {
			return new(uint256.Int), nil
		}
		return uint256.MustFromBig(h.BaseFee), nil
	default:
		return nil, fmt.Errorf("%w: header field %d", ErrFieldNotSampleable, field)
	}
}

func accountFieldValue(nonce uint64, balance *uint256.Int, storageHash, codeHash types.Hash, field uint8) (*uint256.Int, error) {
	switch field {
	case 0:
		return uint256.NewInt(nonce), nil
	case 1:
		return balance, nil
	case 2:
		return hashToPoint(storageHash), nil
	case 3:
		return hashToPoint(codeHash), nil
	default:
		return nil, fmt.Errorf("%w: account field %d", ErrFieldNotSampleable, field)
	}
}

func txFieldValue(tx *types.Transaction, field uint8) (*uint256.Int, error) {
	switch field {
	case 0:
		return uint256.NewInt(tx.Nonce()), nil
	case 1:
		gp := tx.GasPrice()
		if gp == nil {
			return new(uint256.Int), nil
		}
		return uint256.MustFromBig(gp), nil
	case 2:
		return uint256.NewInt(tx.Gas()), nil
	case 3:
		v := tx.Value()
		if v == nil {
			return new(uint256.Int), nil
		}
		return uint256.MustFromBig(v), nil
	case 4:
		to := tx.To()
		if to == nil {
			return new(uint256.Int), nil
		}
		return new(uint256.Int).SetBytes(to[:]), nil
	default:
		return nil, fmt.Errorf("%w: transaction field %d", ErrFieldNotSampleable, field)
	}
}

func receiptFieldValue(r *types.Receipt, field uint8) (*uint256.Int, error) {
	switch field {
	case 0:
		return uint256.NewInt(r.Status), nil
	case 1:
		return uint256.NewInt(r.CumulativeGasUsed), nil
	case 2:
		return uint256.NewInt(r.GasUsed), nil
	default:
		return nil, fmt.Errorf("%w: receipt field %d", ErrFieldNotSampleable, field)
	}
}

func findHeader(bundle *processed.ProcessedBlockProofs, block uint64) (*processed.ProcessedHeader, *processed.MMRMeta, bool) {
	for i := range bundle.MMRWithHeaders {
		g := &bundle.MMRWithHeaders[i]
		for j := range g.Headers {
			if g.Headers[j].BlockNumber == block {
				return &g.Headers[j], &g.Meta, true
			}
		}
	}
	return nil, nil, false
}

func findAccount(bundle *processed.ProcessedBlockProofs, addr types.Address) (*processed.ProcessedAccount, bool) {
	for i := range bundle.Accounts {
		if bundle.Accounts[i].Address == addr {
			return &bundle.Accounts[i], true
		}
	}
	return nil, false
}

func findStorage(bundle *processed.ProcessedBlockProofs, addr types.Address, slot types.Hash) (*processed.ProcessedStorage, bool) {
	for i := range bundle.Storages {
		if bundle.Storages[i].Address == addr && bundle.Storages[i].Slot == slot {
			return &bundle.Storages[i], true
		}
	}
	return nil, false
}

func accountProofAt(acc *processed.ProcessedAccount, block uint64) ([][]byte, bool) {
	for _, p := range acc.Proofs {
		if p.BlockNumber == block {
			return p.Proof, true
		}
	}
	return nil, false
}

func storageProofAt(st *processed.ProcessedStorage, block uint64) ([][]byte, bool) {
	for _, p := range st.Proofs {
		if p.BlockNumber == block {
			return p.Proof, true
		}
	}
	return nil, false
}

// sampleBlockSampledPoints walks a BlockSampledDatalake's block range and
// projects the sampled property out of the already-fetched witness bundle,
// one point per block, for host-side aggregation (spec §4.6).
func sampleBlockSampledPoints(dl primitives.BlockSampledDatalake, bundle *processed.ProcessedBlockProofs) ([]*uint256.Int, error) {
	var points []*uint256.Int
	for block := dl.BlockRangeStart; block <= dl.BlockRangeEnd; block += dl.Increment {
		ph, _, ok := findHeader(bundle, block)
		if !ok {
			return nil, fmt.Errorf("%w: block %d", ErrWitnessNotFound, block)
		}
		header, err := types.DecodeHeaderRLP(ph.RLP)
		if err != nil {
			return nil, fmt.Errorf("hdp: decoding header %d: %w", block, err)
		}

		switch dl.SampledProperty.Kind {
		case primitives.PropertyHeader:
			v, err := headerFieldValue(header, dl.SampledProperty.HeaderField)
			if err != nil {
				return nil, err
			}
			points = append(points, v)

		case primitives.PropertyAccount:
			acc, ok := findAccount(bundle, dl.SampledProperty.Address)
			if !ok {
				return nil, fmt.Errorf("%w: account %x at block %d", ErrWitnessNotFound, dl.SampledProperty.Address, block)
			}
			proof, ok := accountProofAt(acc, block)
			if !ok {
				return nil, fmt.Errorf("%w: account %x proof at block %d", ErrWitnessNotFound, dl.SampledProperty.Address, block)
			}
			rlpVal, err := trie.VerifyMPTProof(header.Root, acc.AccountKey[:], proof)
			if err != nil {
				return nil, fmt.Errorf("hdp: verifying account proof at block %d: %w", block, err)
			}
			nonce, balance, storageHash, codeHash, err := trie.DecodeAccountFields(rlpVal.Value)
			if err != nil {
				return nil, fmt.Errorf("hdp: decoding account at block %d: %w", block, err)
			}
			v, err := accountFieldValue(nonce, uint256.MustFromBig(balance), storageHash, codeHash, dl.SampledProperty.AccountField)
			if err != nil {
				return nil, err
			}
			points = append(points, v)

		case primitives.PropertyStorage:
			acc, ok := findAccount(bundle, dl.SampledProperty.Address)
			if !ok {
				return nil, fmt.Errorf("%w: account %x at block %d", ErrWitnessNotFound, dl.SampledProperty.Address, block)
			}
			accProof, ok := accountProofAt(acc, block)
			if !ok {
				return nil, fmt.Errorf("%w: account %x proof at block %d", ErrWitnessNotFound, dl.SampledProperty.Address, block)
			}
			accRLP, err := trie.VerifyMPTProof(header.Root, acc.AccountKey[:], accProof)
			if err != nil {
				return nil, fmt.Errorf("hdp: verifying account proof at block %d: %w", block, err)
			}
			_, _, storageHash, _, err := trie.DecodeAccountFields(accRLP.Value)
			if err != nil {
				return nil, fmt.Errorf("hdp: decoding account at block %d: %w", block, err)
			}

			st, ok := findStorage(bundle, dl.SampledProperty.Address, dl.SampledProperty.Slot)
			if !ok {
				return nil, fmt.Errorf("%w: slot %x at block %d", ErrWitnessNotFound, dl.SampledProperty.Slot, block)
			}
			stProof, ok := storageProofAt(st, block)
			if !ok {
				return nil, fmt.Errorf("%w: slot %x proof at block %d", ErrWitnessNotFound, dl.SampledProperty.Slot, block)
			}
			slotVal, err := trie.VerifyMPTProof(storageHash, st.StorageKey[:], stProof)
			if err != nil {
				return nil, fmt.Errorf("hdp: verifying storage proof at block %d: %w", block, err)
			}
			if slotVal.Value == nil {
				points = append(points, new(uint256.Int))
			} else {
				points = append(points, new(uint256.Int).SetBytes(slotVal.Value))
			}

		default:
			return nil, fmt.Errorf("%w: sampled property kind %d", ErrFieldNotSampleable, dl.SampledProperty.Kind)
		}
	}
	return points, nil
}

// sampleTransactionsPoints walks a TransactionsInBlockDatalake's index
// range, decoding each proved transaction or receipt and projecting the
// sampled field.
func sampleTransactionsPoints(dl primitives.TransactionsInBlockDatalake, bundle *processed.ProcessedBlockProofs) ([]*uint256.Int, error) {
	var points []*uint256.Int
	for idx := dl.StartIndex; idx <= dl.EndIndex; idx += dl.Increment {
		switch dl.SampledProperty.Kind {
		case primitives.PropertyTransaction:
			pt, ok := findTransaction(bundle, dl.BlockNumber, idx)
			if !ok {
				return nil, fmt.Errorf("%w: tx %d in block %d", ErrWitnessNotFound, idx, dl.BlockNumber)
			}
			tx, err := types.DecodeTxRLP(pt.RLP)
			if err != nil {
				return nil, fmt.Errorf("hdp: decoding tx %d in block %d: %w", idx, dl.BlockNumber, err)
			}
			v, err := txFieldValue(tx, dl.SampledProperty.Field)
			if err != nil {
				return nil, err
			}
			points = append(points, v)

		case primitives.PropertyReceipt:
			pr, ok := findReceipt(bundle, dl.BlockNumber, idx)
			if !ok {
				return nil, fmt.Errorf("%w: receipt %d in block %d", ErrWitnessNotFound, idx, dl.BlockNumber)
			}
			receipt, err := types.DecodeReceiptRLP(pr.RLP)
			if err != nil {
				return nil, fmt.Errorf("hdp: decoding receipt %d in block %d: %w", idx, dl.BlockNumber, err)
			}
			v, err := receiptFieldValue(receipt, dl.SampledProperty.Field)
			if err != nil {
				return nil, err
			}
			points = append(points, v)

		default:
			return nil, fmt.Errorf("%w: tx property kind %d", ErrFieldNotSampleable, dl.SampledProperty.Kind)
		}
	}
	return points, nil
}

func findTransaction(bundle *processed.ProcessedBlockProofs, block, idx uint64) (*processed.ProcessedTransaction, bool) {
	for i := range bundle.Transactions {
		if bundle.Transactions[i].BlockNumber == block && bundle.Transactions[i].TxIndex == idx {
			return &bundle.Transactions[i], true
		}
	}
	return nil, false
}

func findReceipt(bundle *processed.ProcessedBlockProofs, block, idx uint64) (*processed.ProcessedReceipt, bool) {
	for i := range bundle.TransactionReceipts {
		if bundle.TransactionReceipts[i].BlockNumber == block && bundle.TransactionReceipts[i].TxIndex == idx {
			return &bundle.TransactionReceipts[i], true
		}
	}
	return nil, false
}

// sampleDatalakePoints dispatches on the datalake's concrete kind; it is the
// one place the orchestrator needs to know both sum types' shapes.
func sampleDatalakePoints(dl primitives.Datalake, bundle *processed.ProcessedBlockProofs) ([]*uint256.Int, error) {
	switch v := dl.(type) {
	case primitives.BlockSampledDatalake:
		return sampleBlockSampledPoints(v, bundle)
	case primitives.TransactionsInBlockDatalake:
		return sampleTransactionsPoints(v, bundle)
	default:
		return nil, fmt.Errorf("%w: datalake kind %d", ErrFieldNotSampleable, dl.Kind())
	}
}
