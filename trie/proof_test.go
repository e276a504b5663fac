package trie

import (
	"bytes"
	"fmt"
	"math/big"
	"testing"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
)

// -- Prove / VerifyProof: the round trip provider.BuildOrderedTrie and
// trie.VerifyMPTProof depend on. --

func TestProve_SimpleKeys(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("dogglesworth"), []byte("cat"))

	root := tr.Hash()

	tests := []struct{ key, want string }{
		{"doe", "reindeer"},
		{"dog", "puppy"},
		{"dogglesworth", "cat"},
	}
	for _, tt := range tests {
		proof, err := tr.Prove([]byte(tt.key))
		if err != nil {
			t.Errorf("Prove(%q) error: %v", tt.key, err)
			continue
		}
		val, err := VerifyProof(root, []byte(tt.key), proof)
		if err != nil {
			t.Errorf("VerifyProof(%q) error: %v", tt.key, err)
			continue
		}
		if string(val) != tt.want {
			t.Errorf("VerifyProof(%q) = %q, want %q", tt.key, val, tt.want)
		}
	}
}

func TestProve_NonExistentKey(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))

	_, err := tr.Prove([]byte("nonexistent"))
	if err != ErrNotFound {
		t.Fatalf("Prove(nonexistent) err = %v, want ErrNotFound", err)
	}
}

func TestProve_EmptyTrie(t *testing.T) {
	tr := New()
	_, err := tr.Prove([]byte("anything"))
	if err != ErrNotFound {
		t.Fatalf("Prove on empty trie err = %v, want ErrNotFound", err)
	}
}

// -- Verify proof failures --

func TestVerifyProof_EmptyProof(t *testing.T) {
	root := types.Hash{1, 2, 3}
	if _, err := VerifyProof(root, []byte("key"), nil); err != ErrProofInvalid {
		t.Fatalf("VerifyProof(nil proof, non-empty root) err = %v, want ErrProofInvalid", err)
	}

	val, err := VerifyProof(emptyRoot, []byte("key"), nil)
	if err != nil {
		t.Fatalf("VerifyProof(nil proof, empty root) err = %v, want nil", err)
	}
	if val != nil {
		t.Fatalf("VerifyProof(nil proof, empty root) val = %x, want nil", val)
	}
}

func TestVerifyProof_WrongRootHash(t *testing.T) {
	tr := New()
	tr.Put([]byte("key"), []byte("value"))

	proof, _ := tr.Prove([]byte("key"))
	wrongRoot := types.Hash{0xff, 0xfe, 0xfd}

	if _, err := VerifyProof(wrongRoot, []byte("key"), proof); err == nil {
		t.Fatal("VerifyProof with wrong root should fail")
	}
}

func TestVerifyProof_TamperedProofData(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("dogglesworth"), []byte("cat"))

	root := tr.Hash()
	proof, _ := tr.Prove([]byte("dog"))

	tampered := make([][]byte, len(proof))
	for i := range proof {
		tampered[i] = make([]byte, len(proof[i]))
		copy(tampered[i], proof[i])
	}
	tampered[0][0] ^= 0xff

	if _, err := VerifyProof(root, []byte("dog"), tampered); err == nil {
		t.Fatal("VerifyProof with tampered proof should fail")
	}
}

func TestVerifyProof_WrongKey(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))

	root := tr.Hash()
	proof, _ := tr.Prove([]byte("dog"))

	if _, err := VerifyProof(root, []byte("doe"), proof); err == nil {
		t.Fatal("VerifyProof with wrong key should fail")
	}
}

func TestVerifyProof_TruncatedProof(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("dogglesworth"), []byte("cat"))

	root := tr.Hash()
	proof, _ := tr.Prove([]byte("dogglesworth"))
	if len(proof) < 2 {
		t.Skip("proof too short to truncate")
	}

	truncated := proof[:len(proof)-1]
	if _, err := VerifyProof(root, []byte("dogglesworth"), truncated); err == nil {
		t.Fatal("VerifyProof should fail with truncated proof")
	}
}

func TestVerifyProof_SwappedNodes(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("dogglesworth"), []byte("cat"))

	root := tr.Hash()
	proof, _ := tr.Prove([]byte("dogglesworth"))
	if len(proof) < 2 {
		t.Skip("proof too short to swap")
	}

	swapped := make([][]byte, len(proof))
	copy(swapped, proof)
	swapped[0], swapped[1] = swapped[1], swapped[0]

	if _, err := VerifyProof(root, []byte("dogglesworth"), swapped); err == nil {
		t.Fatal("VerifyProof should fail with swapped nodes")
	}
}

// -- Overlapping prefixes / updates --

func TestProve_OverlappingPrefixes(t *testing.T) {
	tr := New()
	tr.Put([]byte("a"), []byte("1"))
	tr.Put([]byte("ab"), []byte("2"))
	tr.Put([]byte("abc"), []byte("3"))

	root := tr.Hash()
	for _, tc := range []struct{ key, want string }{
		{"a", "1"}, {"ab", "2"}, {"abc", "3"},
	} {
		proof, err := tr.Prove([]byte(tc.key))
		if err != nil {
			t.Fatalf("Prove(%q) error: %v", tc.key, err)
		}
		val, err := VerifyProof(root, []byte(tc.key), proof)
		if err != nil {
			t.Fatalf("VerifyProof(%q) error: %v", tc.key, err)
		}
		if string(val) != tc.want {
			t.Fatalf("VerifyProof(%q) = %q, want %q", tc.key, val, tc.want)
		}
	}
}

func TestProve_AfterUpdate(t *testing.T) {
	tr := New()
	tr.Put([]byte("key"), []byte("original"))

	root1 := tr.Hash()
	proof1, _ := tr.Prove([]byte("key"))
	val1, _ := VerifyProof(root1, []byte("key"), proof1)
	if string(val1) != "original" {
		t.Fatalf("before update: got %q", val1)
	}

	tr.Put([]byte("key"), []byte("updated"))
	root2 := tr.Hash()
	proof2, _ := tr.Prove([]byte("key"))
	val2, err := VerifyProof(root2, []byte("key"), proof2)
	if err != nil {
		t.Fatalf("after update VerifyProof error: %v", err)
	}
	if string(val2) != "updated" {
		t.Fatalf("after update: got %q", val2)
	}

	if _, err := VerifyProof(root2, []byte("key"), proof1); err == nil {
		t.Fatal("old proof should not verify against new root")
	}
}

func TestProve_InlineNodes(t *testing.T) {
	tr := New()
	tr.Put([]byte{0x01}, []byte("a"))
	tr.Put([]byte{0x11}, []byte("b"))

	root := tr.Hash()
	for _, key := range [][]byte{{0x01}, {0x11}} {
		proof, err := tr.Prove(key)
		if err != nil {
			t.Fatalf("Prove(%x) error: %v", key, err)
		}
		val, err := VerifyProof(root, key, proof)
		if err != nil {
			t.Fatalf("VerifyProof(%x) error: %v", key, err)
		}
		if len(val) != 1 {
			t.Fatalf("VerifyProof(%x) value length = %d, want 1", key, len(val))
		}
	}
}

func TestProve_RootHashConsistency(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("dogglesworth"), []byte("cat"))

	root := tr.Hash()
	proof, _ := tr.Prove([]byte("dog"))

	firstNodeHash := crypto.Keccak256Hash(proof[0])
	if firstNodeHash != root {
		t.Fatalf("first proof node hash = %s, root = %s", firstNodeHash.Hex(), root.Hex())
	}
}

// -- Proof of absence --

func TestProveAbsence_EmptyTrie(t *testing.T) {
	tr := New()
	root := tr.Hash()

	proof, err := tr.ProveAbsence([]byte("anything"))
	if err != nil {
		t.Fatalf("ProveAbsence on empty trie: %v", err)
	}
	val, err := VerifyProof(root, []byte("anything"), proof)
	if err != nil {
		t.Fatalf("VerifyProof absence on empty trie: %v", err)
	}
	if val != nil {
		t.Fatalf("expected nil value for absence, got %x", val)
	}
}

func TestProveAbsence_KeyNotInTrie(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("dogglesworth"), []byte("cat"))

	root := tr.Hash()
	proof, err := tr.ProveAbsence([]byte("cat"))
	if err != nil {
		t.Fatalf("ProveAbsence error: %v", err)
	}
	val, err := VerifyProof(root, []byte("cat"), proof)
	if err != nil {
		t.Fatalf("VerifyProof absence error: %v", err)
	}
	if val != nil {
		t.Fatalf("expected nil value for absence, got %x", val)
	}
}

func TestProveAbsence_DivergentNibble(t *testing.T) {
	tr := New()
	tr.Put([]byte{0x10}, []byte("a"))
	tr.Put([]byte{0x20}, []byte("b"))
	tr.Put([]byte{0x30}, []byte("c"))

	root := tr.Hash()
	proof, err := tr.ProveAbsence([]byte{0x40})
	if err != nil {
		t.Fatalf("ProveAbsence error: %v", err)
	}
	val, err := VerifyProof(root, []byte{0x40}, proof)
	if err != nil {
		t.Fatalf("VerifyProof absence error: %v", err)
	}
	if val != nil {
		t.Fatalf("expected nil value for absent nibble, got %x", val)
	}
}

func TestProveAbsence_TamperedProofFails(t *testing.T) {
	tr := New()
	tr.Put([]byte("doe"), []byte("reindeer"))
	tr.Put([]byte("dog"), []byte("puppy"))

	root := tr.Hash()
	proof, err := tr.ProveAbsence([]byte("cat"))
	if err != nil {
		t.Fatalf("ProveAbsence error: %v", err)
	}
	if len(proof) == 0 {
		t.Fatal("expected non-empty proof")
	}

	tampered := make([][]byte, len(proof))
	for i := range proof {
		tampered[i] = make([]byte, len(proof[i]))
		copy(tampered[i], proof[i])
	}
	tampered[0][len(tampered[0])-1] ^= 0xff

	if _, err := VerifyProof(root, []byte("cat"), tampered); err == nil {
		t.Fatal("VerifyProof should fail with tampered absence proof")
	}
}

func TestProveAbsence_ExistingKeyNotAbsent(t *testing.T) {
	tr := New()
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("doe"), []byte("reindeer"))

	root := tr.Hash()
	proof, err := tr.ProveAbsence([]byte("dog"))
	if err != nil {
		t.Fatalf("ProveAbsence error: %v", err)
	}
	val, err := VerifyProof(root, []byte("dog"), proof)
	if err != nil {
		t.Fatalf("VerifyProof error: %v", err)
	}
	if string(val) != "puppy" {
		t.Fatalf("expected %q, got %q", "puppy", string(val))
	}
}

// -- Multiple keys from the same trie --

func TestProve_MultipleKeysFromSameTrie(t *testing.T) {
	tr := New()
	entries := map[string]string{
		"alpha": "A", "bravo": "B", "charlie": "C", "delta": "D", "echo": "E",
	}
	for k, v := range entries {
		tr.Put([]byte(k), []byte(v))
	}

	root := tr.Hash()
	proofs := make(map[string][][]byte)
	for k := range entries {
		proof, err := tr.Prove([]byte(k))
		if err != nil {
			t.Fatalf("Prove(%q) error: %v", k, err)
		}
		proofs[k] = proof
	}

	for k, want := range entries {
		val, err := VerifyProof(root, []byte(k), proofs[k])
		if err != nil {
			t.Fatalf("VerifyProof(%q) error: %v", k, err)
		}
		if string(val) != want {
			t.Fatalf("VerifyProof(%q) = %q, want %q", k, val, want)
		}
	}
}

func TestProve_ManyKeys(t *testing.T) {
	tr := New()
	entries := make(map[string]string)
	for i := 0; i < 30; i++ {
		key := fmt.Sprintf("key-%03d", i)
		val := fmt.Sprintf("value-%03d", i)
		tr.Put([]byte(key), []byte(val))
		entries[key] = val
	}

	root := tr.Hash()
	for key, want := range entries {
		proof, err := tr.Prove([]byte(key))
		if err != nil {
			t.Fatalf("Prove(%q) error: %v", key, err)
		}
		val, err := VerifyProof(root, []byte(key), proof)
		if err != nil {
			t.Fatalf("VerifyProof(%q) error: %v", key, err)
		}
		if string(val) != want {
			t.Fatalf("VerifyProof(%q) = %q, want %q", key, val, want)
		}
	}
}

// -- Large value proof --

func TestProve_LargeValue(t *testing.T) {
	tr := New()
	largeVal := bytes.Repeat([]byte{0x42}, 1024)
	tr.Put([]byte("big"), largeVal)
	tr.Put([]byte("small"), []byte("tiny"))

	root := tr.Hash()
	proof, err := tr.Prove([]byte("big"))
	if err != nil {
		t.Fatalf("Prove error: %v", err)
	}
	val, err := VerifyProof(root, []byte("big"), proof)
	if err != nil {
		t.Fatalf("VerifyProof error: %v", err)
	}
	if !bytes.Equal(val, largeVal) {
		t.Fatal("large value mismatch in proof")
	}
}

// -- EncodeAccount / decodeAccount round-trip: the account-proof RLP shape
// ProveAccount relies on. --

func TestEncodeDecodeAccount(t *testing.T) {
	account := &types.Account{
		Nonce:    42,
		Balance:  big.NewInt(123456789),
		Root:     types.HexToHash("0xabcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789"),
		CodeHash: types.EmptyCodeHash.Bytes(),
	}

	encoded, err := EncodeAccount(account)
	if err != nil {
		t.Fatalf("EncodeAccount error: %v", err)
	}
	decoded, err := decodeAccount(encoded)
	if err != nil {
		t.Fatalf("decodeAccount error: %v", err)
	}
	if decoded.Nonce != account.Nonce {
		t.Fatalf("nonce = %d, want %d", decoded.Nonce, account.Nonce)
	}
	if decoded.Balance.Cmp(account.Balance) != 0 {
		t.Fatalf("balance = %s, want %s", decoded.Balance, account.Balance)
	}
	if decoded.Root != account.Root {
		t.Fatalf("root mismatch")
	}
	if !bytes.Equal(decoded.CodeHash, account.CodeHash) {
		t.Fatalf("code hash mismatch")
	}
}
