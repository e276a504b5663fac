package trie

import (
	"bytes"
	"testing"

	"github.com/HerodotusDev/hdp-sub002/crypto"
)

func TestNewHasher(t *testing.T) {
	if newHasher() == nil {
		t.Fatal("newHasher returned nil")
	}
}

// --- encodeNode: the RLP shape Hash()/Prove() build nodes out of ---

func TestEncodeNode_ShortNode(t *testing.T) {
	sn := &shortNode{
		Key: hexToCompact([]byte{0x01, 0x02, terminatorByte}),
		Val: valueNode([]byte("hello")),
	}
	enc, err := encodeNode(sn)
	if err != nil {
		t.Fatalf("encodeNode(shortNode): %v", err)
	}
	if enc[0] < 0xc0 {
		t.Fatalf("encoded shortNode should start with list prefix, got 0x%02x", enc[0])
	}
}

func TestEncodeNode_FullNode(t *testing.T) {
	fn := &fullNode{}
	fn.Children[0] = valueNode([]byte("zero"))
	fn.Children[5] = valueNode([]byte("five"))

	enc, err := encodeNode(fn)
	if err != nil {
		t.Fatalf("encodeNode(fullNode): %v", err)
	}
	if enc[0] < 0xc0 {
		t.Fatalf("encoded fullNode should start with list prefix, got 0x%02x", enc[0])
	}
}

func TestEncodeNode_HashNode(t *testing.T) {
	h := hashNode(bytes.Repeat([]byte{0xab}, 32))
	enc, err := encodeNode(h)
	if err != nil {
		t.Fatalf("encodeNode(hashNode): %v", err)
	}
	if !bytes.Equal(enc, []byte(h)) {
		t.Fatal("encoded hashNode should be its own bytes")
	}
}

func TestEncodeNode_Nil(t *testing.T) {
	enc, err := encodeNode(nil)
	if err != nil {
		t.Fatalf("encodeNode(nil): %v", err)
	}
	if enc != nil {
		t.Fatalf("encodeNode(nil) should return nil, got %x", enc)
	}
}

func TestEncodeNodeValue_Nil(t *testing.T) {
	enc, err := encodeNodeValue(nil)
	if err != nil {
		t.Fatalf("encodeNodeValue(nil): %v", err)
	}
	if !bytes.Equal(enc, []byte{0x80}) {
		t.Fatalf("encodeNodeValue(nil) = %x, want 0x80", enc)
	}
}

// --- wrapListPayload / putUintBigEndian: RLP list framing ---

func TestWrapListPayload_Short(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	wrapped := wrapListPayload(payload)
	if wrapped[0] != 0xc0+byte(len(payload)) {
		t.Fatalf("short list prefix: got 0x%02x, want 0x%02x", wrapped[0], 0xc0+byte(len(payload)))
	}
	if !bytes.Equal(wrapped[1:], payload) {
		t.Fatal("payload mismatch in wrapped short list")
	}
}

func TestWrapListPayload_Long(t *testing.T) {
	payload := bytes.Repeat([]byte{0xaa}, 100)
	wrapped := wrapListPayload(payload)
	if wrapped[0] < 0xf8 {
		t.Fatalf("long list prefix should be >= 0xf8, got 0x%02x", wrapped[0])
	}
	lenOfLen := int(wrapped[0] - 0xf7)
	length := 0
	for i := 1; i <= lenOfLen; i++ {
		length = length<<8 | int(wrapped[i])
	}
	if length != len(payload) {
		t.Fatalf("decoded length = %d, want %d", length, len(payload))
	}
}

func TestPutUintBigEndian(t *testing.T) {
	tests := []struct {
		val    uint64
		expect int
	}{
		{0, 1},
		{255, 1},
		{256, 2},
		{65536, 3},
		{1 << 24, 4},
		{1 << 32, 5},
	}
	for _, tt := range tests {
		got := putUintBigEndian(tt.val)
		if len(got) != tt.expect {
			t.Errorf("putUintBigEndian(%d): len = %d, want %d", tt.val, len(got), tt.expect)
		}
		var reconstructed uint64
		for _, b := range got {
			reconstructed = reconstructed<<8 | uint64(b)
		}
		if reconstructed != tt.val {
			t.Errorf("putUintBigEndian(%d): roundtrip = %d", tt.val, reconstructed)
		}
	}
}

// --- hash/hashChildren/store: the path Trie.Hash and Trie.Prove walk ---

func TestHasher_LeafNode(t *testing.T) {
	leaf := &shortNode{
		Key:   []byte{0x01, 0x02, terminatorByte},
		Val:   valueNode([]byte("test-value")),
		flags: nodeFlag{dirty: true},
	}
	h := newHasher()
	hashed, cached := h.hash(leaf, true)
	if hashed == nil || cached == nil {
		t.Fatal("hash returned nil")
	}
	cachedSN, ok := cached.(*shortNode)
	if !ok {
		t.Fatalf("cached should be *shortNode, got %T", cached)
	}
	if cachedSN.flags.dirty {
		t.Fatal("cached node should not be dirty after hashing")
	}
}

func TestHasher_BranchNode(t *testing.T) {
	fn := &fullNode{flags: nodeFlag{dirty: true}}
	fn.Children[0] = &shortNode{Key: []byte{0x01, terminatorByte}, Val: valueNode([]byte("child0")), flags: nodeFlag{dirty: true}}
	fn.Children[5] = &shortNode{Key: []byte{0x02, terminatorByte}, Val: valueNode([]byte("child5")), flags: nodeFlag{dirty: true}}

	h := newHasher()
	hashed, cached := h.hash(fn, true)
	if hashed == nil || cached == nil {
		t.Fatal("hash returned nil")
	}
	cachedFN, ok := cached.(*fullNode)
	if !ok {
		t.Fatalf("cached should be *fullNode, got %T", cached)
	}
	if cachedFN.flags.dirty {
		t.Fatal("cached fullNode should not be dirty")
	}
}

func TestHasher_CachingPreventsRecomputation(t *testing.T) {
	leaf := &shortNode{
		Key:   []byte{0x03, 0x04, terminatorByte},
		Val:   valueNode([]byte("cached-value")),
		flags: nodeFlag{dirty: true},
	}
	h := newHasher()
	hashed1, cached1 := h.hash(leaf, true)
	hashed2, _ := h.hash(cached1, true)

	enc1, _ := encodeNode(hashed1)
	enc2, _ := encodeNode(hashed2)
	if !bytes.Equal(enc1, enc2) {
		t.Fatal("cached hash should match original hash")
	}
}

func TestStore_LargeNode_ReturnsHash(t *testing.T) {
	h := newHasher()
	sn := &shortNode{
		Key: hexToCompact([]byte{0x01, 0x02, 0x03, 0x04, terminatorByte}),
		Val: valueNode(bytes.Repeat([]byte{0x42}, 50)),
	}
	result, err := h.store(sn, false)
	if err != nil {
		t.Fatalf("store(large shortNode): %v", err)
	}
	hn, ok := result.(hashNode)
	if !ok {
		t.Fatalf("store(large shortNode) = %T, want hashNode", result)
	}
	enc, _ := encodeNode(sn)
	expected := crypto.Keccak256(enc)
	if !bytes.Equal([]byte(hn), expected) {
		t.Fatal("store hash mismatch")
	}
}

func TestHashChildren_ShortNode(t *testing.T) {
	leaf := &shortNode{
		Key:   []byte{0x01, 0x02, terminatorByte},
		Val:   valueNode([]byte("val")),
		flags: nodeFlag{dirty: true},
	}
	h := newHasher()
	collapsed, _ := h.hashChildren(leaf)
	collapsedSN, ok := collapsed.(*shortNode)
	if !ok {
		t.Fatalf("collapsed should be *shortNode, got %T", collapsed)
	}
	if len(collapsedSN.Key) == 0 {
		t.Fatal("collapsed key should not be empty")
	}
}

// --- Integration: hash of a trie built with Put, the actual Merkle root path ---

func TestHasher_TrieHashConsistency(t *testing.T) {
	tr := New()
	tr.Put([]byte("foo"), []byte("bar"))
	tr.Put([]byte("baz"), []byte("qux"))
	h1 := tr.Hash()
	h2 := tr.Hash()
	if h1 != h2 {
		t.Fatal("hash should be stable across calls")
	}
	if h1 == emptyRoot {
		t.Fatal("non-empty trie should not have empty root hash")
	}
}

func TestHasher_TrieHashChangesOnMutation(t *testing.T) {
	tr := New()
	tr.Put([]byte("key"), []byte("v1"))
	h1 := tr.Hash()

	tr.Put([]byte("key"), []byte("v2"))
	h2 := tr.Hash()

	if h1 == h2 {
		t.Fatal("hash should change when value is updated")
	}
}
