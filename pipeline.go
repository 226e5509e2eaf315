package streamzip

import (
	"bufio"
	"context"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"
)

// sinkBufferSize is the backpressure buffer spec.md §5 places between the
// coordinator and the downstream sink.
const sinkBufferSize = 16 * 1024

// entrySource is the upstream collaborator spec.md §6 describes: a producer
// of uncompressed payload bytes. Cancellation, per spec.md §5, is the
// caller's responsibility at the source/sink boundary (e.g. a context-aware
// io.Reader); this package does not impose internal timeouts.
type entrySource = io.Reader

// newHash constructs the CRC-32 implementation an Archive uses, honoring
// ArchiveOptions.CRC32 when set.
func newHash(factory func() hash.Hash32) hash.Hash32 {
	if factory != nil {
		return factory()
	}
	return crc32.NewIEEE()
}

// writeEntry implements the entry pipeline of spec.md §4.2: it writes the
// local file header, streams src through CRC-32 and (unless opts.Store)
// DEFLATE while counting bytes, writes the data descriptor, and returns the
// entry's completed EntryRecord. startOffset is the output offset at which
// the local header lands.
//
// The read+hash and compress+write halves of the pipeline run as two
// goroutines joined by an io.Pipe and coordinated with errgroup.Group: the
// moment either side fails, the other observes a broken pipe and unwinds,
// and writeEntry returns the first error seen. This is the streaming
// counterpart to spec.md §4.2 steps 3-5: a non-streaming writer that always
// knows its payload in full up front would never need two schedulable
// sides, but the compressor here runs against a still-producing upstream.
func writeEntry(ctx context.Context, sink io.Writer, opts EntryOptions, src entrySource, startOffset uint64, crcFactory func() hash.Hash32) (EntryRecord, error) {
	if err := opts.validate(); err != nil {
		return EntryRecord{}, err
	}

	modified := opts.date()
	method := opts.method()

	bw := bufio.NewWriterSize(sink, sinkBufferSize)
	if err := encodeLocalHeader(bw, opts.Name, method, modified); err != nil {
		return EntryRecord{}, err
	}

	pr, pw := io.Pipe()
	h := newHash(crcFactory)
	var uncompressedSize int64

	// If the caller's context is cancelled (e.g. a dropped AddEntry
	// future, per spec.md §5) before the two pump goroutines below finish
	// on their own, force the pipe closed so both unblock instead of
	// hanging on a half-written entry forever. Only the write end is
	// closed, so the compressing side reads ctx.Err() rather than
	// io.ErrClosedPipe. done is closed once this function returns, so a
	// context that's never cancelled doesn't leak this goroutine past
	// writeEntry's lifetime.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
		case <-done:
		}
	}()

	var g errgroup.Group

	// Read+hash: copy src into the pipe, updating the running CRC-32 and
	// byte count as each chunk passes through.
	g.Go(func() error {
		tee := io.TeeReader(src, h)
		n, err := io.Copy(pw, tee)
		uncompressedSize = n
		return pw.CloseWithError(err)
	})

	// Compress+write: pump the pipe's output through STORE or DEFLATE and
	// on to the buffered sink, counting compressed bytes.
	cw := &countWriter{w: bw}
	g.Go(func() error {
		var err error
		if method == Store {
			_, err = io.Copy(cw, pr)
		} else {
			var fw *flate.Writer
			fw, err = flate.NewWriter(cw, flate.DefaultCompression)
			if err != nil {
				pr.CloseWithError(err)
				return err
			}
			_, err = io.Copy(fw, pr)
			if closeErr := fw.Close(); err == nil {
				err = closeErr
			}
		}
		if err != nil {
			pr.CloseWithError(err)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return EntryRecord{}, err
	}

	crc := h.Sum32()
	compressedSize := uint64(cw.count)
	zip64 := entryNeedsZip64(uint64(uncompressedSize), compressedSize, startOffset)

	if _, err := bw.Write(encodeDataDescriptor(crc, compressedSize, uint64(uncompressedSize), zip64)); err != nil {
		return EntryRecord{}, err
	}
	if err := bw.Flush(); err != nil {
		return EntryRecord{}, err
	}

	rec := EntryRecord{
		EntryOptions:     opts,
		StartOffset:      startOffset,
		CRC32:            crc,
		UncompressedSize: uint64(uncompressedSize),
		CompressedSize:   compressedSize,
		Zip64:            zip64,
	}
	rec.Date = modified
	return rec, nil
}
