package processed

import (
	"testing"

	"github.com/HerodotusDev/hdp-sub002/core/types"
)

func TestFinalizeSortsAccountsByAddress(t *testing.T) {
	hi := types.Address{0xFF}
	lo := types.Address{0x01}
	p := ProcessedBlockProofs{
		Accounts: []ProcessedAccount{
			{Address: hi},
			{Address: lo},
		},
	}
	p.Finalize()
	if p.Accounts[0].Address != lo || p.Accounts[1].Address != hi {
		t.Fatalf("accounts not sorted by address: %v", p.Accounts)
	}
}

func TestFinalizeSortsStoragesByAddressThenSlot(t *testing.T) {
	addr := types.Address{0x01}
	p := ProcessedBlockProofs{
		Storages: []ProcessedStorage{
			{Address: addr, Slot: types.Hash{0x02}},
			{Address: addr, Slot: types.Hash{0x01}},
		},
	}
	p.Finalize()
	if p.Storages[0].Slot != (types.Hash{0x01}) {
		t.Fatalf("storages not sorted by slot: %v", p.Storages)
	}
}

func TestFinalizeSortsMMRGroupsAndHeaders(t *testing.T) {
	p := ProcessedBlockProofs{
		MMRWithHeaders: []MMRMetaWithHeaders{
			{
				Meta: MMRMeta{MmrId: 2, MmrSize: 10},
				Headers: []ProcessedHeader{
					{BlockNumber: 20},
					{BlockNumber: 10},
				},
			},
			{Meta: MMRMeta{MmrId: 1, MmrSize: 5}},
		},
	}
	p.Finalize()
	if p.MMRWithHeaders[0].Meta.MmrId != 1 {
		t.Fatalf("mmr groups not sorted: %v", p.MMRWithHeaders)
	}
	hs := p.MMRWithHeaders[1].Headers
	if hs[0].BlockNumber != 10 || hs[1].BlockNumber != 20 {
		t.Fatalf("headers not sorted within group: %v", hs)
	}
}

func TestAsCairoFormatDeterministic(t *testing.T) {
	p := ProcessedBlockProofs{
		ChainId: 1,
		Accounts: []ProcessedAccount{
			{
				Address:    types.Address{0x01},
				AccountKey: types.Hash{0x02},
				Proofs: []AccountProof{
					{BlockNumber: 1, Proof: [][]byte{{0xAA, 0xBB}}},
				},
			},
		},
	}
	a := p.AsCairoFormat()
	b := p.AsCairoFormat()
	if len(a.Accounts) != 1 || len(b.Accounts) != 1 {
		t.Fatalf("expected one account")
	}
	if a.Accounts[0].Address != b.Accounts[0].Address {
		t.Fatalf("non-deterministic projection")
	}
	if a.Accounts[0].Address != "0x0100000000000000000000000000000000000000" {
		t.Fatalf("unexpected hex address: %s", a.Accounts[0].Address)
	}
}
