package streamzip

import (
	"bytes"
	"hash/crc32"
	"math/rand"
	"testing"
)

func TestPureCRC32MatchesStdlib(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("Hello, World!"),
		bytes.Repeat([]byte{'A'}, 1000),
		bytes.Repeat([]byte{0}, 7),
		bytes.Repeat([]byte{0xff}, 8),
		bytes.Repeat([]byte{0xff}, 9),
	}
	r := rand.New(rand.NewSource(1))
	big := make([]byte, 100000)
	r.Read(big)
	inputs = append(inputs, big)

	for _, in := range inputs {
		want := crc32.ChecksumIEEE(in)
		h := NewPureCRC32()
		if _, err := h.Write(in); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if got := h.Sum32(); got != want {
			t.Errorf("Sum32() for %d bytes = %#x, want %#x", len(in), got, want)
		}
	}
}

// "Hello, World!" is the CRC-32 value spec.md §8 calls out explicitly.
func TestPureCRC32HelloWorld(t *testing.T) {
	h := NewPureCRC32()
	if _, err := h.Write([]byte("Hello, World!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := h.Sum32(); got != 0xEC4AC3D0 {
		t.Errorf("Sum32() = %#x, want 0xec4ac3d0", got)
	}
}

func TestPureCRC32WriteInChunks(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 100)
	want := crc32.ChecksumIEEE(data)

	h := NewPureCRC32()
	for i := 0; i < len(data); i += 13 {
		end := i + 13
		if end > len(data) {
			end = len(data)
		}
		if _, err := h.Write(data[i:end]); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if got := h.Sum32(); got != want {
		t.Errorf("Sum32() = %#x, want %#x", got, want)
	}
}

func TestPureCRC32Reset(t *testing.T) {
	h := NewPureCRC32()
	h.Write([]byte("some data"))
	h.Reset()
	want := crc32.ChecksumIEEE(nil)
	if got := h.Sum32(); got != want {
		t.Errorf("Sum32() after Reset = %#x, want %#x", got, want)
	}
}

func TestPureCRC32Sum(t *testing.T) {
	h := NewPureCRC32()
	h.Write([]byte("abc"))
	prefix := []byte{0xaa, 0xbb}
	got := h.Sum(prefix)
	if !bytes.Equal(got[:2], prefix) {
		t.Fatalf("Sum did not preserve prefix: %x", got)
	}
	if len(got) != len(prefix)+4 {
		t.Fatalf("Sum length = %d, want %d", len(got), len(prefix)+4)
	}
}
