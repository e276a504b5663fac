package primitives

import (
	"fmt"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
)

// DatalakeKind is the one-byte type tag prefixing every encoded datalake.
type DatalakeKind uint8

const (
	DatalakeBlockSampled        DatalakeKind = 0x00
	DatalakeTransactionsInBlock DatalakeKind = 0x01
)

// maxFieldIndex bounds a single-byte field selector; anything larger is a
// field-range violation rather than a plausible enum member.
const maxFieldIndex = 63

// SampledPropertyKind distinguishes which part of a block a BlockSampled
// datalake reads: a header field, an account field, or a storage slot.
type SampledPropertyKind uint8

const (
	PropertyHeader SampledPropertyKind = iota
	PropertyAccount
	PropertyStorage
)

// SampledProperty is the sum type `Header(field) | Account(address,field) |
// Storage(address,slot)` from spec §3. Only the fields relevant to Kind are
// meaningful; encode/decode only ever touch those.
type SampledProperty struct {
	Kind         SampledPropertyKind
	HeaderField  uint8
	Address      types.Address
	AccountField uint8
	Slot         types.Hash
}

// HeaderProperty builds a Header(field) sampled property.
func HeaderProperty(field uint8) SampledProperty {
	return SampledProperty{Kind: PropertyHeader, HeaderField: field}
}

// AccountProperty builds an Account(address,field) sampled property.
func AccountProperty(addr types.Address, field uint8) SampledProperty {
	return SampledProperty{Kind: PropertyAccount, Address: addr, AccountField: field}
}

// StorageProperty builds a Storage(address,slot) sampled property.
func StorageProperty(addr types.Address, slot types.Hash) SampledProperty {
	return SampledProperty{Kind: PropertyStorage, Address: addr, Slot: slot}
}

func (p SampledProperty) encode() ([]byte, error) {
	switch p.Kind {
	case PropertyHeader:
		if p.HeaderField > maxFieldIndex {
			return nil, fmt.Errorf("%w: header field %d", ErrFieldRange, p.HeaderField)
		}
		return append([]byte{byte(p.Kind)}, putUint64Word(uint64(p.HeaderField))...), nil
	case PropertyAccount:
		if p.AccountField > maxFieldIndex {
			return nil, fmt.Errorf("%w: account field %d", ErrFieldRange, p.AccountField)
		}
		out := []byte{byte(p.Kind)}
		out = append(out, addressWord(p.Address)...)
		out = append(out, putUint64Word(uint64(p.AccountField))...)
		return out, nil
	case PropertyStorage:
		out := []byte{byte(p.Kind)}
		out = append(out, addressWord(p.Address)...)
		out = append(out, p.Slot.Bytes()...)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: sampled property kind %d", ErrUnknownTag, p.Kind)
	}
}

func decodeSampledProperty(b []byte) (SampledProperty, []byte, error) {
	if len(b) < 1 {
		return SampledProperty{}, nil, ErrLengthMismatch
	}
	kind := SampledPropertyKind(b[0])
	rest := b[1:]
	switch kind {
	case PropertyHeader:
		w, rest, err := takeWord(rest)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		v, err := uint64FromWord(w)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		if v > maxFieldIndex {
			return SampledProperty{}, nil, ErrFieldRange
		}
		return HeaderProperty(uint8(v)), rest, nil
	case PropertyAccount:
		aw, rest, err := takeWord(rest)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		addr, err := addressFromWord(aw)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		fw, rest, err := takeWord(rest)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		v, err := uint64FromWord(fw)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		if v > maxFieldIndex {
			return SampledProperty{}, nil, ErrFieldRange
		}
		return AccountProperty(addr, uint8(v)), rest, nil
	case PropertyStorage:
		aw, rest, err := takeWord(rest)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		addr, err := addressFromWord(aw)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		sw, rest, err := takeWord(rest)
		if err != nil {
			return SampledProperty{}, nil, err
		}
		return StorageProperty(addr, types.BytesToHash(sw)), rest, nil
	default:
		return SampledProperty{}, nil, fmt.Errorf("%w: sampled property kind %d", ErrUnknownTag, kind)
	}
}

// TxPropertyKind distinguishes a field of the transaction itself from a
// field of its receipt, for TransactionsInBlock datalakes.
type TxPropertyKind uint8

const (
	PropertyTransaction TxPropertyKind = iota
	PropertyReceipt
)

// TxSampledProperty is the sampled-property variant used by
// TransactionsInBlock datalakes (spec §3).
type TxSampledProperty struct {
	Kind  TxPropertyKind
	Field uint8
}

func (p TxSampledProperty) encode() ([]byte, error) {
	if p.Kind != PropertyTransaction && p.Kind != PropertyReceipt {
		return nil, fmt.Errorf("%w: tx property kind %d", ErrUnknownTag, p.Kind)
	}
	if p.Field > maxFieldIndex {
		return nil, fmt.Errorf("%w: tx field %d", ErrFieldRange, p.Field)
	}
	out := []byte{byte(p.Kind)}
	return append(out, putUint64Word(uint64(p.Field))...), nil
}

func decodeTxSampledProperty(b []byte) (TxSampledProperty, []byte, error) {
	if len(b) < 1 {
		return TxSampledProperty{}, nil, ErrLengthMismatch
	}
	kind := TxPropertyKind(b[0])
	if kind != PropertyTransaction && kind != PropertyReceipt {
		return TxSampledProperty{}, nil, fmt.Errorf("%w: tx property kind %d", ErrUnknownTag, kind)
	}
	w, rest, err := takeWord(b[1:])
	if err != nil {
		return TxSampledProperty{}, nil, err
	}
	v, err := uint64FromWord(w)
	if err != nil {
		return TxSampledProperty{}, nil, err
	}
	if v > maxFieldIndex {
		return TxSampledProperty{}, nil, ErrFieldRange
	}
	return TxSampledProperty{Kind: kind, Field: uint8(v)}, rest, nil
}

// Datalake is the sum type `BlockSampled | TransactionsInBlock` (spec §3).
// Dispatch is by Kind(), never by type hierarchy.
type Datalake interface {
	Kind() DatalakeKind
	ChainID() ChainId
	Encode() ([]byte, error)
}

// BlockSampledDatalake describes a contiguous, strided range of blocks and
// a property sampled from each one.
type BlockSampledDatalake struct {
	ChainId         ChainId
	BlockRangeStart uint64
	BlockRangeEnd   uint64 // inclusive
	Increment       uint64 // >= 1
	SampledProperty SampledProperty
}

func (d BlockSampledDatalake) Kind() DatalakeKind { return DatalakeBlockSampled }
func (d BlockSampledDatalake) ChainID() ChainId   { return d.ChainId }

// Encode implements the stable self-describing byte format from spec §4.1.
func (d BlockSampledDatalake) Encode() ([]byte, error) {
	if d.Increment == 0 {
		return nil, fmt.Errorf("%w: increment must be >= 1", ErrFieldRange)
	}
	if d.BlockRangeEnd < d.BlockRangeStart {
		return nil, fmt.Errorf("%w: block range end before start", ErrFieldRange)
	}
	propBytes, err := d.SampledProperty.encode()
	if err != nil {
		return nil, err
	}
	out := []byte{byte(DatalakeBlockSampled)}
	out = append(out, putUint64Word(uint64(d.ChainId))...)
	out = append(out, putUint64Word(d.BlockRangeStart)...)
	out = append(out, putUint64Word(d.BlockRangeEnd)...)
	out = append(out, putUint64Word(d.Increment)...)
	out = append(out, propBytes...)
	return out, nil
}

// TransactionsInBlockDatalake describes a strided range of transaction (or
// receipt) indices within a single block.
type TransactionsInBlockDatalake struct {
	ChainId         ChainId
	BlockNumber     uint64
	StartIndex      uint64
	EndIndex        uint64 // inclusive
	Increment       uint64
	SampledProperty TxSampledProperty
}

func (d TransactionsInBlockDatalake) Kind() DatalakeKind { return DatalakeTransactionsInBlock }
func (d TransactionsInBlockDatalake) ChainID() ChainId   { return d.ChainId }

func (d TransactionsInBlockDatalake) Encode() ([]byte, error) {
	if d.Increment == 0 {
		return nil, fmt.Errorf("%w: increment must be >= 1", ErrFieldRange)
	}
	if d.EndIndex < d.StartIndex {
		return nil, fmt.Errorf("%w: end index before start index", ErrFieldRange)
	}
	propBytes, err := d.SampledProperty.encode()
	if err != nil {
		return nil, err
	}
	out := []byte{byte(DatalakeTransactionsInBlock)}
	out = append(out, putUint64Word(uint64(d.ChainId))...)
	out = append(out, putUint64Word(d.BlockNumber)...)
	out = append(out, putUint64Word(d.StartIndex)...)
	out = append(out, putUint64Word(d.EndIndex)...)
	out = append(out, putUint64Word(d.Increment)...)
	out = append(out, propBytes...)
	return out, nil
}

// DecodeDatalake parses the byte format produced by Encode, dispatching on
// the leading type tag. It is the exact inverse of Encode for every
// concrete Datalake variant.
func DecodeDatalake(b []byte) (Datalake, error) {
	if len(b) < 1 {
		return nil, ErrLengthMismatch
	}
	tag := DatalakeKind(b[0])
	rest := b[1:]
	switch tag {
	case DatalakeBlockSampled:
		chainW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		chainID, err := uint64FromWord(chainW)
		if err != nil {
			return nil, err
		}
		startW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		start, err := uint64FromWord(startW)
		if err != nil {
			return nil, err
		}
		endW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		end, err := uint64FromWord(endW)
		if err != nil {
			return nil, err
		}
		incW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		inc, err := uint64FromWord(incW)
		if err != nil {
			return nil, err
		}
		prop, rest, err := decodeSampledProperty(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("%w: trailing bytes", ErrMalformed)
		}
		return BlockSampledDatalake{
			ChainId:         ChainId(chainID),
			BlockRangeStart: start,
			BlockRangeEnd:   end,
			Increment:       inc,
			SampledProperty: prop,
		}, nil
	case DatalakeTransactionsInBlock:
		chainW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		chainID, err := uint64FromWord(chainW)
		if err != nil {
			return nil, err
		}
		blockW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		block, err := uint64FromWord(blockW)
		if err != nil {
			return nil, err
		}
		startW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		start, err := uint64FromWord(startW)
		if err != nil {
			return nil, err
		}
		endW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		end, err := uint64FromWord(endW)
		if err != nil {
			return nil, err
		}
		incW, rest, err := takeWord(rest)
		if err != nil {
			return nil, err
		}
		inc, err := uint64FromWord(incW)
		if err != nil {
			return nil, err
		}
		prop, rest, err := decodeTxSampledProperty(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("%w: trailing bytes", ErrMalformed)
		}
		return TransactionsInBlockDatalake{
			ChainId:         ChainId(chainID),
			BlockNumber:     block,
			StartIndex:      start,
			EndIndex:        end,
			Increment:       inc,
			SampledProperty: prop,
		}, nil
	default:
		return nil, fmt.Errorf("%w: datalake tag 0x%02x", ErrUnknownTag, byte(tag))
	}
}

// CommitDatalake returns keccak(encode(datalake)), the commitment used by
// DatalakeCompute.Commitment.
func CommitDatalake(d Datalake) (types.Hash, error) {
	b, err := d.Encode()
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Keccak256Hash(b), nil
}
