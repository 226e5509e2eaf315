package streamzip

import (
	"bytes"
	"context"
	"errors"
	"hash/crc32"
	"io"
	"strings"
	"testing"
	"time"
)

func TestWriteEntryStore(t *testing.T) {
	var buf bytes.Buffer
	rec, err := writeEntry(context.Background(), &buf, EntryOptions{Name: "a.txt", Store: true}, strings.NewReader("Hello, World!"), 0, nil)
	if err != nil {
		t.Fatalf("writeEntry: %v", err)
	}
	if rec.CRC32 != 0xEC4AC3D0 {
		t.Errorf("CRC32 = %#x, want 0xec4ac3d0", rec.CRC32)
	}
	if rec.UncompressedSize != 13 || rec.CompressedSize != 13 {
		t.Errorf("sizes = %d/%d, want 13/13", rec.UncompressedSize, rec.CompressedSize)
	}
	if rec.StartOffset != 0 {
		t.Errorf("StartOffset = %d, want 0", rec.StartOffset)
	}

	b := buf.Bytes()
	if len(b) < localFileHeaderLen {
		t.Fatalf("output too short: %d bytes", len(b))
	}
	// Payload immediately follows the local header for a Store entry.
	payload := b[localFileHeaderLen+len("a.txt") : localFileHeaderLen+len("a.txt")+13]
	if string(payload) != "Hello, World!" {
		t.Errorf("payload = %q", payload)
	}
}

func TestWriteEntryDeflateRoundTrips(t *testing.T) {
	data := bytes.Repeat([]byte("compress me please "), 200)
	var buf bytes.Buffer
	rec, err := writeEntry(context.Background(), &buf, EntryOptions{Name: "d.txt"}, bytes.NewReader(data), 0, nil)
	if err != nil {
		t.Fatalf("writeEntry: %v", err)
	}
	if rec.CompressedSize >= rec.UncompressedSize {
		t.Errorf("CompressedSize %d not smaller than UncompressedSize %d", rec.CompressedSize, rec.UncompressedSize)
	}
	want := crc32.ChecksumIEEE(data)
	if rec.CRC32 != want {
		t.Errorf("CRC32 = %#x, want %#x", rec.CRC32, want)
	}
}

func TestWriteEntryUsesCustomCRC32(t *testing.T) {
	var buf bytes.Buffer
	rec, err := writeEntry(context.Background(), &buf, EntryOptions{Name: "a.txt", Store: true}, strings.NewReader("Hello, World!"), 0, NewPureCRC32)
	if err != nil {
		t.Fatalf("writeEntry: %v", err)
	}
	if rec.CRC32 != 0xEC4AC3D0 {
		t.Errorf("CRC32 with NewPureCRC32 = %#x, want 0xec4ac3d0", rec.CRC32)
	}
}

type erroringReader struct{ err error }

func (r erroringReader) Read([]byte) (int, error) { return 0, r.err }

func TestWriteEntryPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("boom")
	var buf bytes.Buffer
	_, err := writeEntry(context.Background(), &buf, EntryOptions{Name: "a.txt"}, erroringReader{wantErr}, 0, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapping %v", err, wantErr)
	}
}

// ctxAwareReader blocks until either its context is done or block is closed,
// the way a caller's own context-aware source is expected to behave at the
// source boundary (spec.md §5: writeEntry itself imposes no internal
// timeouts, so unblocking on cancellation is the source's responsibility).
type ctxAwareReader struct {
	ctx   context.Context
	block chan struct{}
}

func (r *ctxAwareReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	case <-r.block:
		return 0, io.EOF
	}
}

func TestWriteEntryCancelledContextPropagatesFromSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &ctxAwareReader{ctx: ctx, block: make(chan struct{})}
	cancel()

	done := make(chan struct{})
	var err error
	go func() {
		_, err = writeEntry(ctx, io.Discard, EntryOptions{Name: "a.txt"}, src, 0, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writeEntry did not return after context cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
