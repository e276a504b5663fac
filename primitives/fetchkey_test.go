package primitives

import (
	"testing"

	"github.com/HerodotusDev/hdp-sub002/core/types"
)

func TestFetchKey_CanonicalKeyDistinguishesKinds(t *testing.T) {
	addr := types.HexToAddress("0xabc123")
	slot := types.HexToHash("0x01")

	keys := []FetchKey{
		HeaderKey{ChainId: ChainEthereumMainnet, BlockNumber: 10},
		AccountKey{ChainId: ChainEthereumMainnet, BlockNumber: 10, Address: addr},
		StorageKey{ChainId: ChainEthereumMainnet, BlockNumber: 10, Address: addr, Slot: slot},
		TxKey{ChainId: ChainEthereumMainnet, BlockNumber: 10, Index: 0},
		ReceiptKey{ChainId: ChainEthereumMainnet, BlockNumber: 10, Index: 0},
	}

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		s := k.Key()
		if seen[s] {
			t.Fatalf("duplicate canonical key %q across distinct kinds", s)
		}
		seen[s] = true
	}
}

func TestFetchKey_EqualFieldsProduceEqualKeys(t *testing.T) {
	a := AccountKey{ChainId: ChainEthereumMainnet, BlockNumber: 10, Address: types.HexToAddress("0xabc")}
	b := AccountKey{ChainId: ChainEthereumMainnet, BlockNumber: 10, Address: types.HexToAddress("0xabc")}
	if a.Key() != b.Key() {
		t.Fatalf("identical fields produced different canonical keys: %q vs %q", a.Key(), b.Key())
	}
}

func TestFetchKey_DistinctFieldsProduceDistinctKeys(t *testing.T) {
	base := StorageKey{ChainId: ChainEthereumMainnet, BlockNumber: 10, Address: types.HexToAddress("0xabc"), Slot: types.HexToHash("0x01")}

	diffChain := base
	diffChain.ChainId = ChainEthereumSepolia

	diffBlock := base
	diffBlock.BlockNumber = 11

	diffAddr := base
	diffAddr.Address = types.HexToAddress("0xdead")

	diffSlot := base
	diffSlot.Slot = types.HexToHash("0x02")

	variants := []StorageKey{base, diffChain, diffBlock, diffAddr, diffSlot}
	seen := make(map[string]bool, len(variants))
	for i, v := range variants {
		s := v.Key()
		if seen[s] {
			t.Fatalf("variant %d: expected unique canonical key, got collision %q", i, s)
		}
		seen[s] = true
	}
}

func TestFetchKey_ChainAndBlockAccessors(t *testing.T) {
	k := TxKey{ChainId: ChainEthereumSepolia, BlockNumber: 42, Index: 3}
	if k.Chain() != ChainEthereumSepolia {
		t.Fatalf("unexpected Chain(): %v", k.Chain())
	}
	if k.Block() != 42 {
		t.Fatalf("unexpected Block(): %v", k.Block())
	}
}

func TestFetchKey_DeduplicationByCanonicalKey(t *testing.T) {
	keys := []FetchKey{
		HeaderKey{ChainId: ChainEthereumMainnet, BlockNumber: 1},
		HeaderKey{ChainId: ChainEthereumMainnet, BlockNumber: 1},
		HeaderKey{ChainId: ChainEthereumMainnet, BlockNumber: 2},
	}
	dedup := make(map[string]FetchKey)
	for _, k := range keys {
		dedup[k.Key()] = k
	}
	if len(dedup) != 2 {
		t.Fatalf("expected 2 unique keys after dedup, got %d", len(dedup))
	}
}
