package processed

import (
	"github.com/HerodotusDev/hdp-sub002/processed/cairo"
)

// CairoMMRMeta mirrors MMRMeta with hashes rendered as hex and no blob
// fields (an MMR root is a fixed 32-byte value, never felt-chunked).
type CairoMMRMeta struct {
	MmrId   uint64   `json:"mmr_id"`
	MmrSize uint64   `json:"mmr_size"`
	Root    string   `json:"mmr_root"`
	Peaks   []string `json:"mmr_peaks"`
}

// CairoHeader is ProcessedHeader with its RLP blob felt-projected, per
// spec §4.2 ("attaches bytes_len anywhere an RLP-like variable-length blob
// exists (header RLP, ...)").
type CairoHeader struct {
	BlockNumber  uint64          `json:"block_number"`
	BlockHash    string          `json:"block_hash"`
	RLP          cairo.FeltBytes `json:"rlp"`
	MMRProof     []string        `json:"mmr_inclusion_proof"`
	ElementIndex uint64          `json:"element_index"`
}

// CairoMMRWithHeaders mirrors MMRMetaWithHeaders.
type CairoMMRWithHeaders struct {
	Meta    CairoMMRMeta  `json:"mmr_meta"`
	Headers []CairoHeader `json:"headers"`
}

// CairoProof projects one MPT proof's node list, each node felt-chunked
// independently (MPT proofs are variable-length node lists).
type CairoProof struct {
	BlockNumber uint64            `json:"block_number"`
	Proof       []cairo.FeltBytes `json:"proof"`
}

// CairoAccount mirrors ProcessedAccount.
type CairoAccount struct {
	Address    string       `json:"address"`
	AccountKey string       `json:"account_key"`
	Proofs     []CairoProof `json:"proofs"`
}

// CairoStorage mirrors ProcessedStorage.
type CairoStorage struct {
	Address    string       `json:"address"`
	Slot       string       `json:"slot"`
	StorageKey string       `json:"storage_key"`
	Proofs     []CairoProof `json:"proofs"`
}

// CairoTransaction mirrors ProcessedTransaction, with the raw RLP
// felt-projected and the inclusion proof's nodes felt-projected too.
type CairoTransaction struct {
	BlockNumber uint64            `json:"block_number"`
	TxIndex     uint64            `json:"tx_index"`
	RLP         cairo.FeltBytes   `json:"rlp"`
	Proof       []cairo.FeltBytes `json:"proof"`
}

// CairoReceipt mirrors ProcessedReceipt.
type CairoReceipt struct {
	BlockNumber uint64            `json:"block_number"`
	TxIndex     uint64            `json:"tx_index"`
	RLP         cairo.FeltBytes   `json:"rlp"`
	Proof       []cairo.FeltBytes `json:"proof"`
}

// CairoBlockProofs is the felt-projected mirror of ProcessedBlockProofs
// fed to the sound VM's input tape (spec §4.2, §6 "Wire format to VM").
type CairoBlockProofs struct {
	ChainId             uint64                 `json:"chain_id"`
	MMRWithHeaders      []CairoMMRWithHeaders  `json:"mmr_with_headers"`
	Accounts            []CairoAccount         `json:"accounts"`
	Storages            []CairoStorage         `json:"storages"`
	Transactions        []CairoTransaction     `json:"transactions"`
	TransactionReceipts []CairoReceipt         `json:"transaction_receipts"`
}

func hexHash32(b [32]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 2+64)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = hexDigits[c>>4]
		out[2+i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

func hexAddress20(b [20]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 2+40)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = hexDigits[c>>4]
		out[2+i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

func projectProof(proof [][]byte) []cairo.FeltBytes {
	out := make([]cairo.FeltBytes, len(proof))
	for i, node := range proof {
		out[i] = cairo.Project(node)
	}
	return out
}

// AsCairoFormat projects the entire bundle into its felt-chunked mirror.
// Projection is total and deterministic (spec §4.2): the same
// ProcessedBlockProofs always yields byte-identical CairoBlockProofs JSON.
func (p ProcessedBlockProofs) AsCairoFormat() CairoBlockProofs {
	out := CairoBlockProofs{ChainId: p.ChainId}

	for _, group := range p.MMRWithHeaders {
		cg := CairoMMRWithHeaders{
			Meta: CairoMMRMeta{
				MmrId:   group.Meta.MmrId,
				MmrSize: group.Meta.MmrSize,
				Root:    hexHash32(group.Meta.Root),
			},
		}
		for _, peak := range group.Meta.Peaks {
			cg.Meta.Peaks = append(cg.Meta.Peaks, hexHash32(peak))
		}
		for _, h := range group.Headers {
			ch := CairoHeader{
				BlockNumber:  h.BlockNumber,
				BlockHash:    hexHash32(h.BlockHash),
				RLP:          cairo.Project(h.RLP),
				ElementIndex: h.ElementIndex,
			}
			for _, step := range h.MMRProof {
				ch.MMRProof = append(ch.MMRProof, hexHash32(step))
			}
			cg.Headers = append(cg.Headers, ch)
		}
		out.MMRWithHeaders = append(out.MMRWithHeaders, cg)
	}

	for _, a := range p.Accounts {
		ca := CairoAccount{
			Address:    hexAddress20(a.Address),
			AccountKey: hexHash32(a.AccountKey),
		}
		for _, pr := range a.Proofs {
			ca.Proofs = append(ca.Proofs, CairoProof{BlockNumber: pr.BlockNumber, Proof: projectProof(pr.Proof)})
		}
		out.Accounts = append(out.Accounts, ca)
	}

	for _, s := range p.Storages {
		cs := CairoStorage{
			Address:    hexAddress20(s.Address),
			Slot:       hexHash32(s.Slot),
			StorageKey: hexHash32(s.StorageKey),
		}
		for _, pr := range s.Proofs {
			cs.Proofs = append(cs.Proofs, CairoProof{BlockNumber: pr.BlockNumber, Proof: projectProof(pr.Proof)})
		}
		out.Storages = append(out.Storages, cs)
	}

	for _, tx := range p.Transactions {
		out.Transactions = append(out.Transactions, CairoTransaction{
			BlockNumber: tx.BlockNumber,
			TxIndex:     tx.TxIndex,
			RLP:         cairo.Project(tx.RLP),
			Proof:       projectProof(tx.Proof),
		})
	}

	for _, r := range p.TransactionReceipts {
		out.TransactionReceipts = append(out.TransactionReceipts, CairoReceipt{
			BlockNumber: r.BlockNumber,
			TxIndex:     r.TxIndex,
			RLP:         cairo.Project(r.RLP),
			Proof:       projectProof(r.Proof),
		})
	}

	return out
}
