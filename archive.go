// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package streamzip

import (
	"context"
	"hash"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ArchiveOptions configures a new Archive. The zero value is a usable
// default: a vanilla hash/crc32 CRC, no logging, and no concurrency cap.
type ArchiveOptions struct {
	// CRC32, if set, overrides the CRC-32 implementation used for every
	// entry. The default is hash/crc32.NewIEEE; NewPureCRC32 in
	// crc32fallback.go is a dependency-free alternative.
	CRC32 func() hash.Hash32

	// MaxConcurrentEntries bounds how many AddEntry calls may be
	// mid-flight (reading their source, running their compressor) at
	// once. Zero means unbounded. This is independent of output
	// ordering, which is always preserved regardless of this setting.
	MaxConcurrentEntries int64

	// Logger, if set, receives structured debug-level events for entry
	// submission, completion, and finalize.
	Logger *zerolog.Logger
}

// ArchiveSummary is returned by Finalize, summarizing the archive that was
// written.
type ArchiveSummary struct {
	Zip64                  bool
	UncompressedEntriesSize uint64
	CompressedEntriesSize  uint64
	FileSize               uint64
}

// Archive is the top-level streaming ZIP coordinator of spec.md §4.5. It
// owns the output byte stream, serializes concurrent entry submissions so
// their bytes appear contiguously and in submission order, and on Finalize
// emits the central directory and end-of-central-directory records.
//
// An Archive's methods are safe for concurrent use.
type Archive struct {
	opts ArchiveOptions

	sink io.Writer
	sem  *semaphore.Weighted
	tq   *ticketQueue

	mu        sync.Mutex
	offset    uint64
	entries   []*EntryRecord
	finalized bool

	// dead is set once an entry's pipeline fails mid-write. Per spec.md
	// §7, a source or sink error mid-entry leaves the output stream
	// unrecoverable: every subsequent AddEntry or Finalize call fails
	// fast instead of writing after the half-written fragment the
	// failure left behind.
	dead bool
}

// NewArchive creates a new Archive that writes to sink. sink is closed by
// Finalize (if it implements io.Closer), not by the caller.
func NewArchive(sink io.Writer, opts ArchiveOptions) *Archive {
	var sem *semaphore.Weighted
	if opts.MaxConcurrentEntries > 0 {
		sem = semaphore.NewWeighted(opts.MaxConcurrentEntries)
	}
	return &Archive{
		opts: opts,
		sink: sink,
		sem:  sem,
		tq:   newTicketQueue(),
	}
}

func (ar *Archive) log() *zerolog.Logger { return ar.opts.Logger }

// AddEntry writes name's header and src's payload to the output stream and
// returns the completed EntryRecord. Multiple AddEntry calls may run
// concurrently; their bytes appear in the output in the order AddEntry was
// called, per spec.md §4.5.
//
// If ctx is cancelled before the entry finishes, its source is abandoned
// and the output stream is aborted (spec.md §5): the archive becomes
// unusable and the caller must create a new one to continue.
func (ar *Archive) AddEntry(ctx context.Context, opts EntryOptions, src io.Reader) (EntryRecord, error) {
	if err := opts.validate(); err != nil {
		return EntryRecord{}, err
	}

	ar.mu.Lock()
	if ar.finalized {
		ar.mu.Unlock()
		return EntryRecord{}, errIllegalStatef("AddEntry(%q): archive already finalized", opts.Name)
	}
	if ar.dead {
		ar.mu.Unlock()
		return EntryRecord{}, errIllegalStatef("AddEntry(%q): archive aborted after a previous entry failed", opts.Name)
	}
	ar.mu.Unlock()

	if ar.sem != nil {
		if err := ar.sem.Acquire(ctx, 1); err != nil {
			return EntryRecord{}, errors.Wrapf(err, "AddEntry(%q): waiting for a concurrency slot", opts.Name)
		}
		defer ar.sem.Release(1)
	}

	// Reserve this call's position in the output before doing any I/O, so
	// concurrent calls are serialized in call order regardless of which
	// payload finishes first (spec.md §4.5, §9).
	t := ar.tq.take()

	if logger := ar.log(); logger != nil {
		logger.Debug().Str("name", opts.Name).Msg("streamzip: entry submitted")
	}

	t.waitTurn()

	ar.mu.Lock()
	if ar.finalized {
		ar.mu.Unlock()
		t.done()
		return EntryRecord{}, errIllegalStatef("AddEntry(%q): archive already finalized", opts.Name)
	}
	if ar.dead {
		ar.mu.Unlock()
		t.done()
		return EntryRecord{}, errIllegalStatef("AddEntry(%q): archive aborted after a previous entry failed", opts.Name)
	}
	startOffset := ar.offset
	ar.mu.Unlock()

	cw := &countWriter{w: ar.sink}
	rec, err := writeEntry(ctx, cw, opts, src, startOffset, ar.opts.CRC32)

	ar.mu.Lock()
	if err == nil {
		ar.offset += uint64(cw.count)
		ar.entries = append(ar.entries, &rec)
	} else {
		ar.dead = true
	}
	ar.mu.Unlock()

	t.done()

	if err != nil {
		// The pipeline failed mid-entry: per spec.md §7 the output is
		// left unrecoverable, so abort the sink now rather than let a
		// later successful entry get written right after this one's
		// half-written fragment.
		ar.abort()
		return EntryRecord{}, errors.Wrapf(err, "AddEntry(%q)", opts.Name)
	}

	if logger := ar.log(); logger != nil {
		logger.Debug().
			Str("name", rec.Name).
			Uint64("offset", rec.StartOffset).
			Uint64("uncompressedSize", rec.UncompressedSize).
			Uint64("compressedSize", rec.CompressedSize).
			Bool("zip64", rec.Zip64).
			Msg("streamzip: entry completed")
	}

	return rec, nil
}

// Entries returns a snapshot of all entries completed so far. It never
// observes a partially-written entry, per spec.md §5.
func (ar *Archive) Entries() []EntryRecord {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	out := make([]EntryRecord, len(ar.entries))
	for i, e := range ar.entries {
		out[i] = *e
	}
	return out
}

// FinalizeOverride optionally reorders and/or relabels the entries written
// to the central directory. It must be a permutation or sub-sequence of the
// archive's completed entries (matched by StartOffset); only Name, Comment,
// Date, Mode, and Store may differ from the originally-submitted values.
type FinalizeOverride struct {
	Entries []EntryOptions

	// StartOffsets identifies, for each element of Entries in order,
	// which completed entry it replaces. Must be the same length as
	// Entries.
	StartOffsets []uint64
}

// Finalize waits for entries already submitted to finish, marks the archive
// finalized, applies override (if non-nil),
// writes the central directory and end-of-central-directory records, and
// closes the sink if it implements io.Closer. Calling Finalize twice is an
// error.
func (ar *Archive) Finalize(override *FinalizeOverride) (ArchiveSummary, error) {
	// Wait for every AddEntry submitted before this call to finish writing,
	// and hold the output until the central directory is written.
	t := ar.tq.take()
	t.waitTurn()
	defer t.done()

	ar.mu.Lock()
	if ar.finalized {
		ar.mu.Unlock()
		return ArchiveSummary{}, errIllegalStatef("Finalize: archive already finalized")
	}
	if ar.dead {
		ar.mu.Unlock()
		return ArchiveSummary{}, errIllegalStatef("Finalize: archive aborted after a previous entry failed")
	}
	ar.finalized = true
	entries := ar.entries
	startOffset := ar.offset
	ar.mu.Unlock()

	if logger := ar.log(); logger != nil {
		logger.Debug().Int("entries", len(entries)).Msg("streamzip: finalize")
	}

	final, err := applyOverride(entries, override)
	if err != nil {
		ar.abort()
		return ArchiveSummary{}, err
	}

	cw := &countWriter{w: ar.sink}
	var summary ArchiveSummary
	for _, rec := range final {
		if _, err := encodeCentralDirectoryHeader(cw, rec); err != nil {
			ar.abort()
			return ArchiveSummary{}, errors.Wrap(err, "Finalize: writing central directory header")
		}
		summary.UncompressedEntriesSize += rec.UncompressedSize
		summary.CompressedEntriesSize += rec.CompressedSize
		if rec.Zip64 {
			summary.Zip64 = true
		}
	}

	cdSize := uint64(cw.count)
	if archiveNeedsZip64(len(final), cdSize, startOffset) {
		summary.Zip64 = true
	}

	if err := encodeEOCD(cw, len(final), cdSize, startOffset); err != nil {
		ar.abort()
		return ArchiveSummary{}, errors.Wrap(err, "Finalize: writing end of central directory")
	}

	summary.FileSize = startOffset + uint64(cw.count)

	if closer, ok := ar.sink.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return ArchiveSummary{}, errors.Wrap(err, "Finalize: closing sink")
		}
	}

	return summary, nil
}

// abort closes the sink (if possible) without writing any further bytes, so
// downstream consumers don't hang waiting for data that will never arrive,
// per spec.md §7's override-invalid propagation policy.
func (ar *Archive) abort() {
	if closer, ok := ar.sink.(io.Closer); ok {
		closer.Close()
	}
}

// applyOverride validates and applies a FinalizeOverride against the
// archive's completed entries, per spec.md §4.5's override rules. A nil
// override returns entries unchanged, in submission order.
func applyOverride(entries []*EntryRecord, override *FinalizeOverride) ([]*EntryRecord, error) {
	if override == nil {
		return entries, nil
	}
	if len(override.Entries) != len(override.StartOffsets) {
		return nil, errOverrideInvalidf("Entries and StartOffsets have different lengths (%d vs %d)", len(override.Entries), len(override.StartOffsets))
	}

	byOffset := make(map[uint64]*EntryRecord, len(entries))
	for _, e := range entries {
		byOffset[e.StartOffset] = e
	}

	used := make(map[uint64]bool, len(override.StartOffsets))
	out := make([]*EntryRecord, 0, len(override.Entries))
	for i, offset := range override.StartOffsets {
		orig, ok := byOffset[offset]
		if !ok {
			return nil, errOverrideInvalidf("override[%d]: no completed entry with StartOffset %d", i, offset)
		}
		if used[offset] {
			return nil, errOverrideInvalidf("override[%d]: StartOffset %d referenced more than once", i, offset)
		}
		used[offset] = true

		replacement := override.Entries[i]
		merged := *orig
		merged.Name = replacement.Name
		merged.Comment = replacement.Comment
		merged.Mode = replacement.Mode
		merged.Store = replacement.Store
		if !replacement.Date.IsZero() {
			merged.Date = replacement.Date
		}
		if err := merged.EntryOptions.validate(); err != nil {
			return nil, errOverrideInvalidf("override[%d]: %v", i, err)
		}
		out = append(out, &merged)
	}
	return out, nil
}
