package cairo

import (
	"bytes"
	"testing"
)

func TestProjectUnprojectRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0x01},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
		bytes.Repeat([]byte{0xAB}, 257),
	}
	for _, b := range cases {
		fb := Project(b)
		got := Unproject(fb)
		if !bytes.Equal(got, b) && !(len(b) == 0 && len(got) == 0) {
			t.Fatalf("round trip mismatch: in=%x out=%x", b, got)
		}
		if fb.BytesLen != len(b) {
			t.Fatalf("bytes_len mismatch: got %d want %d", fb.BytesLen, len(b))
		}
	}
}

func TestProjectPadsToMultipleOfEight(t *testing.T) {
	fb := Project([]byte{1, 2, 3})
	if len(fb.Felts) != 1 {
		t.Fatalf("expected 1 felt, got %d", len(fb.Felts))
	}
	want := uint64(1) | uint64(2)<<8 | uint64(3)<<16
	if fb.Felts[0] != want {
		t.Fatalf("felt mismatch: got %#x want %#x", fb.Felts[0], want)
	}
}

func TestProjectDeterministic(t *testing.T) {
	b := []byte("structurally equal inputs")
	a1 := Project(b)
	a2 := Project(append([]byte(nil), b...))
	if len(a1.Felts) != len(a2.Felts) || a1.BytesLen != a2.BytesLen {
		t.Fatalf("non-deterministic projection")
	}
	for i := range a1.Felts {
		if a1.Felts[i] != a2.Felts[i] {
			t.Fatalf("felt %d differs: %#x vs %#x", i, a1.Felts[i], a2.Felts[i])
		}
	}
}

func TestHexFelt(t *testing.T) {
	if HexFelt(0) != "0x0" {
		t.Fatalf("zero felt: got %s", HexFelt(0))
	}
	if HexFelt(255) != "0xff" {
		t.Fatalf("255 felt: got %s", HexFelt(255))
	}
}
