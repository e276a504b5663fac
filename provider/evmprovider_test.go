package provider

import (
	"testing"

	"github.com/HerodotusDev/hdp-sub002/trie"
)

func TestBuildOrderedTrieProvesEveryIndex(t *testing.T) {
	items := [][]byte{
		{0x01, 0x02},
		{0x03},
		{0x04, 0x05, 0x06},
	}
	tr, err := BuildOrderedTrie(items)
	if err != nil {
		t.Fatal(err)
	}
	root := tr.Hash()
	for i := range items {
		key, err := trieIndexKey(uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		proof, err := tr.Prove(key)
		if err != nil {
			t.Fatalf("prove %d: %v", i, err)
		}
		val, err := trie.VerifyProof(root, key, proof)
		if err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
		if string(val) != string(items[i]) {
			t.Fatalf("value mismatch at %d: got %x want %x", i, val, items[i])
		}
	}
}

func TestOutOfBoundRequestErrorUnwraps(t *testing.T) {
	err := &OutOfBoundRequestError{RequestedIndex: 3, TxCount: 2}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
	if got := err.Unwrap(); got != ErrOutOfBoundRequest {
		t.Fatalf("expected ErrOutOfBoundRequest, got %v", got)
	}
}

func TestMismatchedMMRMetaErrorUnwraps(t *testing.T) {
	err := &MismatchedMMRMetaError{Block: 10, Want: "0x1", Got: "0x2"}
	if got := err.Unwrap(); got != ErrMismatchedMMRMeta {
		t.Fatalf("expected ErrMismatchedMMRMeta, got %v", got)
	}
}
