package primitives

import (
	"fmt"

	"github.com/HerodotusDev/hdp-sub002/core/types"
)

// FetchKey is a tagged union over HeaderKey/AccountKey/StorageKey/TxKey/
// ReceiptKey (spec §3). Key returns a canonical string form that gives the
// key its own equality/hash for planner deduplication.
type FetchKey interface {
	Key() string
	Chain() ChainId
	Block() uint64
}

// HeaderKey addresses a single block header.
type HeaderKey struct {
	ChainId     ChainId
	BlockNumber uint64
}

func (k HeaderKey) Chain() ChainId { return k.ChainId }
func (k HeaderKey) Block() uint64  { return k.BlockNumber }
func (k HeaderKey) Key() string    { return fmt.Sprintf("header:%d:%d", k.ChainId, k.BlockNumber) }

// AccountKey addresses an account's state at a single block.
type AccountKey struct {
	ChainId     ChainId
	BlockNumber uint64
	Address     types.Address
}

func (k AccountKey) Chain() ChainId { return k.ChainId }
func (k AccountKey) Block() uint64  { return k.BlockNumber }
func (k AccountKey) Key() string {
	return fmt.Sprintf("account:%d:%d:%s", k.ChainId, k.BlockNumber, k.Address.Hex())
}

// StorageKey addresses a single storage slot at a single block.
type StorageKey struct {
	ChainId     ChainId
	BlockNumber uint64
	Address     types.Address
	Slot        types.Hash
}

func (k StorageKey) Chain() ChainId { return k.ChainId }
func (k StorageKey) Block() uint64  { return k.BlockNumber }
func (k StorageKey) Key() string {
	return fmt.Sprintf("storage:%d:%d:%s:%s", k.ChainId, k.BlockNumber, k.Address.Hex(), k.Slot.Hex())
}

// TxKey addresses a single transaction by its index within a block.
type TxKey struct {
	ChainId     ChainId
	BlockNumber uint64
	Index       uint64
}

func (k TxKey) Chain() ChainId { return k.ChainId }
func (k TxKey) Block() uint64  { return k.BlockNumber }
func (k TxKey) Key() string    { return fmt.Sprintf("tx:%d:%d:%d", k.ChainId, k.BlockNumber, k.Index) }

// ReceiptKey addresses a single transaction receipt by its index within a
// block.
type ReceiptKey struct {
	ChainId     ChainId
	BlockNumber uint64
	Index       uint64
}

func (k ReceiptKey) Chain() ChainId { return k.ChainId }
func (k ReceiptKey) Block() uint64  { return k.BlockNumber }
func (k ReceiptKey) Key() string {
	return fmt.Sprintf("receipt:%d:%d:%d", k.ChainId, k.BlockNumber, k.Index)
}
