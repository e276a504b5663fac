package provider

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HerodotusDev/hdp-sub002/core/types"
)

// IndexerClient talks to the MMR accumulator service: given a chain and a
// block number, it returns that block's header RLP, its MMR inclusion path,
// and the MMR metadata (id, size, root, peaks) that path verifies against
// (spec §4.5). There is no existing Go client for this bespoke Herodotus
// service in the retrieval pack, so this is a plain stdlib HTTP+JSON client
// rather than a third-party REST library (see DESIGN.md).
type IndexerClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewIndexerClient builds an IndexerClient against baseURL (one of the
// PROVIDER_URL_* endpoints from spec §6).
func NewIndexerClient(baseURL string) *IndexerClient {
	return &IndexerClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type headerProofRequest struct {
	ChainId     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
}

type headerProofResponse struct {
	BlockNumber  uint64   `json:"block_number"`
	BlockHash    string   `json:"block_hash"`
	HeaderRLP    string   `json:"header_rlp"`
	ElementIndex uint64   `json:"element_index"`
	MMRId        uint64   `json:"mmr_id"`
	MMRSize      uint64   `json:"mmr_size"`
	MMRRoot      string   `json:"mmr_root"`
	MMRPeaks     []string `json:"mmr_peaks"`
	MMRProof     []string `json:"mmr_inclusion_proof"`
}

// GetHeaderProof fetches a single block's header RLP and MMR inclusion
// proof. Callers fan this out across a range with bounded concurrency
// (spec §4.5, "Concurrency policy"); the indexer API itself is single-block.
func (c *IndexerClient) GetHeaderProof(ctx context.Context, chainID uint64, block uint64) (HeaderWithMMRProof, error) {
	reqBody, err := json.Marshal(headerProofRequest{ChainId: chainID, BlockNumber: block})
	if err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: encode request: %v", ErrIndexer, err)
	}

	url := c.BaseURL + "/mmr/header-proof"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: build request: %v", ErrIndexer, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: %v", ErrIndexer, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: read response: %v", ErrIndexer, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: block %d", ErrMmrNotFound, block)
	}
	if resp.StatusCode != http.StatusOK {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: status %d: %s", ErrIndexer, resp.StatusCode, string(body))
	}

	var r headerProofResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: decode response: %v", ErrIndexer, err)
	}

	headerRLP, err := decodeHexBytes(r.HeaderRLP)
	if err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: header rlp: %v", ErrIndexer, err)
	}
	proof := make([]types.Hash, len(r.MMRProof))
	for i, h := range r.MMRProof {
		hb, err := decodeHexBytes(h)
		if err != nil {
			return HeaderWithMMRProof{}, fmt.Errorf("%w: mmr proof step %d: %v", ErrIndexer, i, err)
		}
		proof[i] = types.BytesToHash(hb)
	}
	blockHash, err := decodeHexBytes(r.BlockHash)
	if err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: block hash: %v", ErrIndexer, err)
	}
	rootBytes, err := decodeHexBytes(r.MMRRoot)
	if err != nil {
		return HeaderWithMMRProof{}, fmt.Errorf("%w: mmr root: %v", ErrIndexer, err)
	}
	peaks := make([]types.Hash, len(r.MMRPeaks))
	for i, p := range r.MMRPeaks {
		pb, err := decodeHexBytes(p)
		if err != nil {
			return HeaderWithMMRProof{}, fmt.Errorf("%w: mmr peak %d: %v", ErrIndexer, i, err)
		}
		peaks[i] = types.BytesToHash(pb)
	}

	return HeaderWithMMRProof{
		BlockNumber:  r.BlockNumber,
		BlockHash:    types.BytesToHash(blockHash),
		RLP:          headerRLP,
		MMRProof:     proof,
		ElementIndex: r.ElementIndex,
		MMRId:        r.MMRId,
		MMRSize:      r.MMRSize,
		MMRRoot:      types.BytesToHash(rootBytes),
		MMRPeaks:     peaks,
	}, nil
}

func decodeHexBytes(s string) ([]byte, error) {
	s = trimHexPrefix(s)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
