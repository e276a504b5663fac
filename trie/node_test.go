package trie

import (
	"bytes"
	"testing"
)

// --- node interface: fullNode / shortNode cache+copy ---

func TestFullNode_Cache_NewNode(t *testing.T) {
	fn := &fullNode{}
	hash, dirty := fn.cache()
	if hash != nil {
		t.Fatal("new fullNode should have nil cached hash")
	}
	if dirty {
		t.Fatal("new fullNode should not be dirty by default")
	}
}

func TestFullNode_Cache_HashedNode(t *testing.T) {
	h := hashNode(bytes.Repeat([]byte{0x11}, 32))
	fn := &fullNode{flags: nodeFlag{hash: h, dirty: false}}
	hash, dirty := fn.cache()
	if !bytes.Equal(hash, h) {
		t.Fatal("cached hash should match")
	}
	if dirty {
		t.Fatal("should not be dirty")
	}
}

func TestFullNode_Copy_Independence(t *testing.T) {
	fn := &fullNode{flags: nodeFlag{dirty: true}}
	fn.Children[0] = valueNode([]byte("original"))

	cp := fn.copy()
	if cp == fn {
		t.Fatal("copy should return a different pointer")
	}
	cp.Children[0] = valueNode([]byte("modified"))

	origVal := fn.Children[0].(valueNode)
	if string(origVal) != "original" {
		t.Fatalf("original child = %q, want %q", origVal, "original")
	}
}

func TestShortNode_Cache_Dirty(t *testing.T) {
	sn := &shortNode{
		Key:   []byte{0x01},
		Val:   valueNode([]byte("v")),
		flags: nodeFlag{dirty: true},
	}
	_, dirty := sn.cache()
	if !dirty {
		t.Fatal("dirty shortNode should report dirty=true")
	}
}

func TestShortNode_Copy(t *testing.T) {
	sn := &shortNode{
		Key:   []byte{0x01, 0x02},
		Val:   valueNode([]byte("val")),
		flags: nodeFlag{dirty: true},
	}
	cp := sn.copy()
	if cp == sn {
		t.Fatal("copy should return a different pointer")
	}
	if !bytes.Equal(cp.Key, sn.Key) {
		t.Fatal("copy should have same key")
	}
}

func TestHashNode_Cache(t *testing.T) {
	hn := hashNode(bytes.Repeat([]byte{0x33}, 32))
	hash, dirty := hn.cache()
	if hash != nil {
		t.Fatal("hashNode.cache() should return nil hash")
	}
	if !dirty {
		t.Fatal("hashNode.cache() should return dirty=true")
	}
}

func TestValueNode_Cache(t *testing.T) {
	vn := valueNode([]byte("data"))
	hash, dirty := vn.cache()
	if hash != nil {
		t.Fatal("valueNode.cache() should return nil hash")
	}
	if !dirty {
		t.Fatal("valueNode.cache() should return dirty=true")
	}
}

// --- decodeRLPList / decodeOneElement: the element framing VerifyProof walks ---

func TestDecodeRLPList_NonListPrefix(t *testing.T) {
	_, err := decodeRLPList([]byte{0x80})
	if err == nil {
		t.Fatal("expected error for non-list prefix")
	}
}

func TestDecodeRLPList_Truncated(t *testing.T) {
	_, err := decodeRLPList([]byte{0xca, 0x01})
	if err == nil {
		t.Fatal("expected error for truncated list")
	}
}

func TestDecodeOneElement_SingleByte(t *testing.T) {
	data := []byte{0x42, 0x43}
	content, rest, err := decodeOneElement(data)
	if err != nil {
		t.Fatalf("decodeOneElement: %v", err)
	}
	if !bytes.Equal(content, []byte{0x42}) {
		t.Fatalf("content = %x, want [42]", content)
	}
	if !bytes.Equal(rest, []byte{0x43}) {
		t.Fatalf("rest = %x, want [43]", rest)
	}
}

func TestDecodeOneElement_ShortString(t *testing.T) {
	data := []byte{0x83, 0x61, 0x62, 0x63, 0xff}
	content, rest, err := decodeOneElement(data)
	if err != nil {
		t.Fatalf("decodeOneElement: %v", err)
	}
	if string(content) != "abc" {
		t.Fatalf("content = %q, want %q", content, "abc")
	}
	if !bytes.Equal(rest, []byte{0xff}) {
		t.Fatalf("rest = %x, want [ff]", rest)
	}
}

func TestDecodeOneElement_Empty(t *testing.T) {
	_, _, err := decodeOneElement(nil)
	if err == nil {
		t.Fatal("expected error for empty data")
	}
}

// --- node encode/decode roundtrip: the node shapes Prove()/Hash() build ---

func TestEncodeDecodeRoundtrip_ShortNode(t *testing.T) {
	original := &shortNode{
		Key: hexToCompact([]byte{0x0a, 0x0b, terminatorByte}),
		Val: valueNode([]byte("roundtrip-value")),
	}
	enc, err := encodeShortNode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := decodeNode(nil, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sn, ok := decoded.(*shortNode)
	if !ok {
		t.Fatalf("expected *shortNode, got %T", decoded)
	}
	if !hasTerm(sn.Key) {
		t.Fatal("decoded key should have terminator")
	}
	v := sn.Val.(valueNode)
	if string(v) != "roundtrip-value" {
		t.Fatalf("value = %q, want %q", v, "roundtrip-value")
	}
}

func TestEncodeDecodeRoundtrip_FullNode(t *testing.T) {
	original := &fullNode{}
	original.Children[0] = hashNode(bytes.Repeat([]byte{0x01}, 32))
	original.Children[16] = valueNode([]byte("branch-val"))

	enc, err := encodeFullNode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := decodeNode(nil, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fn, ok := decoded.(*fullNode)
	if !ok {
		t.Fatalf("expected *fullNode, got %T", decoded)
	}
	if fn.Children[0] == nil {
		t.Fatal("child 0 should be present")
	}
	if fn.Children[16] == nil {
		t.Fatal("child 16 (value) should be present")
	}
}

func TestDecodeNode_InvalidElementCount(t *testing.T) {
	e1, _ := encodeNodeValue(valueNode([]byte("a")))
	e2, _ := encodeNodeValue(valueNode([]byte("b")))
	e3, _ := encodeNodeValue(valueNode([]byte("c")))
	payload := append(append(e1, e2...), e3...)
	data := wrapListPayload(payload)

	_, err := decodeNode(nil, data)
	if err == nil {
		t.Fatal("expected error for 3-element list")
	}
}
