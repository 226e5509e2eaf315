// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package streamzip

import (
	"os"
	"path"
	"time"
)

const (
	localFileHeaderSig  = 0x04034b50
	centralDirHeaderSig = 0x02014b50
	eocdSig             = 0x06054b50
	zip64EOCDLocSig     = 0x07064b50
	zip64EOCDSig        = 0x06064b50
	dataDescriptorSig   = 0x08074b50 // de-facto standard; required by OS X Finder

	localFileHeaderLen  = 30 // + filename + extra
	centralDirHeaderLen = 46 // + filename + extra + comment
	eocdLen             = 22 // + comment
	dataDescriptorLen   = 16 // signature, crc32, compressed size, uncompressed size (4 bytes each)
	dataDescriptor64Len = 24 // signature, crc32, compressed size, uncompressed size (8 byte sizes)
	zip64EOCDLocLen     = 20
	zip64EOCDLen        = 56 // + extra

	versionMadeBy      = 45
	versionNeededStd   = 20
	versionNeededZip64 = 45

	// genPurposeFlags: bit 3 (data descriptor follows), bit 11 (UTF-8 names).
	genPurposeFlags = 0x0808

	zip64ExtraID = 0x0001 // Zip64 extended information

	zip64Threshold = 1<<32 - 1 // 2^32-1
	maxUint16      = 1<<16 - 1
)

// Compression methods.
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // DEFLATE compressed
)

// EntryOptions describes one entry to be added to an Archive. It is
// immutable once passed to AddEntry.
type EntryOptions struct {
	// Name is the entry's path within the archive, using forward slashes.
	// Its UTF-8 encoded length must not exceed 65535 bytes.
	Name string

	// Comment is an optional per-entry comment, UTF-8 encoded length at
	// most 65535 bytes.
	Comment string

	// Date is the entry's modification time. The zero value means "now".
	// It must fall within 1980-01-01..2107-12-31, the range representable
	// by the MS-DOS date format this archive format uses.
	Date time.Time

	// Mode is the Unix file mode bits stored in the central directory's
	// external file attributes. Zero means unspecified.
	Mode uint16

	// Store, if true, stores the entry verbatim (method 0) instead of
	// compressing it with DEFLATE (method 8, the default).
	Store bool
}

func (o EntryOptions) method() uint16 {
	if o.Store {
		return Store
	}
	return Deflate
}

func (o EntryOptions) date() time.Time {
	if o.Date.IsZero() {
		return time.Now()
	}
	return o.Date
}

// validate checks the synchronous, pre-I/O invariants of spec.md §7.
func (o EntryOptions) validate() error {
	if len(o.Name) > maxUint16 {
		return errInvalidOptionsf("entry name %q is %d bytes, exceeds the %d byte limit", path.Base(o.Name), len(o.Name), maxUint16)
	}
	if len(o.Comment) > maxUint16 {
		return errInvalidOptionsf("entry %q: comment is %d bytes, exceeds the %d byte limit", o.Name, len(o.Comment), maxUint16)
	}
	if !o.Date.IsZero() && !validDOSDate(o.Date) {
		return errInvalidOptionsf("entry %q: date %s is outside the representable range %d-01-01..%d-12-31",
			o.Name, o.Date.Format(time.RFC3339), minDOSYear, maxDOSYear)
	}
	return nil
}

const (
	minDOSYear = 1980
	maxDOSYear = 2107
)

func validDOSDate(t time.Time) bool {
	y := t.Year()
	return y >= minDOSYear && y <= maxDOSYear
}

// EntryRecord is the metadata accumulated while an entry was written. It is
// frozen once appended to an Archive's entry list; only the fields also
// present in EntryOptions may be changed afterward, via a Finalize override.
type EntryRecord struct {
	EntryOptions

	// StartOffset is the byte offset of the entry's local file header in
	// the output stream.
	StartOffset uint64

	// CRC32 is the IEEE CRC-32 of the uncompressed payload.
	CRC32 uint32

	// UncompressedSize and CompressedSize are byte counts of the entry's
	// payload before and after compression. For Store entries they are
	// equal.
	UncompressedSize uint64
	CompressedSize   uint64

	// Zip64 is true iff any of UncompressedSize, CompressedSize,
	// StartOffset reached the 2^32-1 threshold, per spec.md §4.3.
	Zip64 bool
}

// timeToMsDosTime converts a time.Time to an MS-DOS date and time.
// The resolution is 2s. See spec.md §6.
func timeToMsDosTime(t time.Time) (date, dosTime uint16) {
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	dosTime = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return
}

// Unix file mode bits, as agreed on by zip tools; the format spec itself
// doesn't define them.
const (
	sIFMT   = 0xf000
	sIFSOCK = 0xc000
	sIFLNK  = 0xa000
	sIFREG  = 0x8000
	sIFBLK  = 0x6000
	sIFDIR  = 0x4000
	sIFCHR  = 0x2000
	sIFIFO  = 0x1000
	sISUID  = 0x800
	sISGID  = 0x400
	sISVTX  = 0x200

	creatorUnix = 3
)

// fileModeToUnixMode converts an os.FileMode to the on-disk Unix mode bits
// used by external file attributes, following the well-known Unix mode-bit
// translation table zip tools agree on.
func fileModeToUnixMode(mode os.FileMode) uint32 {
	var m uint32
	switch mode & os.ModeType {
	default:
		m = sIFREG
	case os.ModeDir:
		m = sIFDIR
	case os.ModeSymlink:
		m = sIFLNK
	case os.ModeNamedPipe:
		m = sIFIFO
	case os.ModeSocket:
		m = sIFSOCK
	case os.ModeDevice:
		m = sIFBLK
	case os.ModeDevice | os.ModeCharDevice:
		m = sIFCHR
	}
	if mode&os.ModeSetuid != 0 {
		m |= sISUID
	}
	if mode&os.ModeSetgid != 0 {
		m |= sISGID
	}
	if mode&os.ModeSticky != 0 {
		m |= sISVTX
	}
	return m | uint32(mode&0777)
}

// externalAttrs computes the central directory's external file attributes
// field for an entry with the given mode, per spec.md §4.1.
func externalAttrs(mode uint16) uint32 {
	return uint32(mode) << 16
}
