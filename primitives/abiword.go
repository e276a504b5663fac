package primitives

import (
	"encoding/binary"

	"github.com/HerodotusDev/hdp-sub002/core/types"
)

// wordSize is the size in bytes of one ABI-packed word, matching Solidity's
// abi.encode word size so the reference on-chain verifier can decode
// datalake/compute bytes directly.
const wordSize = 32

// putUint64Word writes v as a big-endian, left-padded 32-byte word.
func putUint64Word(v uint64) []byte {
	w := make([]byte, wordSize)
	binary.BigEndian.PutUint64(w[wordSize-8:], v)
	return w
}

// uint64FromWord reads a big-endian 32-byte word as a uint64, failing if
// any of the high-order padding bytes are non-zero (range violation).
func uint64FromWord(w []byte) (uint64, error) {
	if len(w) != wordSize {
		return 0, ErrLengthMismatch
	}
	for _, b := range w[:wordSize-8] {
		if b != 0 {
			return 0, ErrFieldRange
		}
	}
	return binary.BigEndian.Uint64(w[wordSize-8:]), nil
}

// addressWord left-pads an address to a 32-byte word.
func addressWord(a types.Address) []byte {
	w := make([]byte, wordSize)
	copy(w[wordSize-types.AddressLength:], a[:])
	return w
}

// addressFromWord reads an address from a left-padded 32-byte word.
func addressFromWord(w []byte) (types.Address, error) {
	if len(w) != wordSize {
		return types.Address{}, ErrLengthMismatch
	}
	for _, b := range w[:wordSize-types.AddressLength] {
		if b != 0 {
			return types.Address{}, ErrFieldRange
		}
	}
	return types.BytesToAddress(w[wordSize-types.AddressLength:]), nil
}

// takeWord slices the next 32-byte word off b, reporting a length
// mismatch if fewer bytes remain.
func takeWord(b []byte) (word, rest []byte, err error) {
	if len(b) < wordSize {
		return nil, nil, ErrLengthMismatch
	}
	return b[:wordSize], b[wordSize:], nil
}
