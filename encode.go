// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package streamzip

import (
	"encoding/binary"
	"io"
	"time"
)

// writeBuf is a small cursor over a fixed byte buffer, letting encoders fill
// a header in field order without tracking offsets by hand.
type writeBuf []byte

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

func (b *writeBuf) uint64(v uint64) {
	binary.LittleEndian.PutUint64(*b, v)
	*b = (*b)[8:]
}

// encodeLocalHeader writes the 30-byte-plus-name local file header for one
// entry. Per spec.md §4.1, the CRC/sizes fields are always zero here: a data
// descriptor follows the entry's payload carrying the real values, since
// they aren't known until the payload has been fully read.
func encodeLocalHeader(w io.Writer, name string, method uint16, modified time.Time) error {
	if len(name) > maxUint16 {
		return errInvalidOptionsf("entry name %q is %d bytes, exceeds the %d byte limit", name, len(name), maxUint16)
	}

	date, dosTime := timeToMsDosTime(modified)

	var buf [localFileHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(localFileHeaderSig)
	b.uint16(versionNeededStd)
	b.uint16(genPurposeFlags)
	b.uint16(method)
	b.uint16(dosTime)
	b.uint16(date)
	b.uint32(0) // crc32
	b.uint32(0) // compressed size
	b.uint32(0) // uncompressed size
	b.uint16(uint16(len(name)))
	b.uint16(0) // extra field length
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, name)
	return err
}

// encodeDataDescriptor writes the 16-byte (or 24-byte ZIP64) data descriptor
// following an entry's payload, per spec.md §4.1.
func encodeDataDescriptor(crc32 uint32, compressedSize, uncompressedSize uint64, zip64 bool) []byte {
	var buf []byte
	if zip64 {
		buf = make([]byte, dataDescriptor64Len)
	} else {
		buf = make([]byte, dataDescriptorLen)
	}
	b := writeBuf(buf)
	b.uint32(dataDescriptorSig)
	b.uint32(crc32)
	if zip64 {
		b.uint64(compressedSize)
		b.uint64(uncompressedSize)
	} else {
		b.uint32(uint32(compressedSize))
		b.uint32(uint32(uncompressedSize))
	}
	return buf
}

// encodeCentralDirectoryHeader writes the 46-byte-plus-name-extra-comment
// central directory file header for one completed entry, per spec.md §4.1.
func encodeCentralDirectoryHeader(w io.Writer, rec *EntryRecord) (int64, error) {
	date, dosTime := timeToMsDosTime(rec.date())
	method := rec.method()
	versionNeeded := uint16(versionNeededStd)
	if rec.Zip64 {
		versionNeeded = versionNeededZip64
	}

	var extra []byte
	compressedSize := uint32(rec.CompressedSize)
	uncompressedSize := uint32(rec.UncompressedSize)
	offset := uint32(rec.StartOffset)
	if rec.Zip64 {
		compressedSize = maxUint32
		uncompressedSize = maxUint32
		offset = maxUint32

		var zbuf [28]byte // 2x uint16 + 3x uint64
		eb := writeBuf(zbuf[:])
		eb.uint16(zip64ExtraID)
		eb.uint16(24) // payload size: 3x uint64
		eb.uint64(rec.UncompressedSize)
		eb.uint64(rec.CompressedSize)
		eb.uint64(rec.StartOffset)
		extra = zbuf[:]
	}

	var buf [centralDirHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(centralDirHeaderSig)
	b.uint16(creatorUnix<<8 | versionMadeBy)
	b.uint16(versionNeeded)
	b.uint16(genPurposeFlags)
	b.uint16(method)
	b.uint16(dosTime)
	b.uint16(date)
	b.uint32(rec.CRC32)
	b.uint32(compressedSize)
	b.uint32(uncompressedSize)
	b.uint16(uint16(len(rec.Name)))
	b.uint16(uint16(len(extra)))
	b.uint16(uint16(len(rec.Comment)))
	b.uint16(0) // disk number start
	b.uint16(0) // internal file attributes
	b.uint32(externalAttrs(rec.Mode))
	b.uint32(offset)

	cw := &countWriter{w: w}
	if _, err := cw.Write(buf[:]); err != nil {
		return cw.count, err
	}
	if _, err := io.WriteString(cw, rec.Name); err != nil {
		return cw.count, err
	}
	if _, err := cw.Write(extra); err != nil {
		return cw.count, err
	}
	if _, err := io.WriteString(cw, rec.Comment); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// encodeEOCD writes the end-of-central-directory record (and, when
// promotion policy requires it, the ZIP64 EOCD record and locator that
// precede it), per spec.md §4.1 and §4.3.
func encodeEOCD(w io.Writer, entryCount int, cdSize, cdOffset uint64) error {
	cw := &countWriter{w: w}

	records := uint64(entryCount)
	size := cdSize
	offset := cdOffset

	if archiveNeedsZip64(entryCount, cdSize, cdOffset) {
		zip64End := cdOffset + cdSize

		var buf [zip64EOCDLen + zip64EOCDLocLen]byte
		b := writeBuf(buf[:])

		b.uint32(zip64EOCDSig)
		b.uint64(zip64EOCDLen - 12) // record size, excluding signature and this field
		b.uint16(versionNeededZip64)
		b.uint16(versionNeededZip64)
		b.uint32(0) // number of this disk
		b.uint32(0) // disk with the start of the central directory
		b.uint64(records)
		b.uint64(records)
		b.uint64(size)
		b.uint64(offset)

		b.uint32(zip64EOCDLocSig)
		b.uint32(0) // disk with the start of the zip64 EOCD
		b.uint64(zip64End)
		b.uint32(1) // total number of disks

		if _, err := cw.Write(buf[:]); err != nil {
			return err
		}

		records = maxUint16
		size = maxUint32AsU64
		offset = maxUint32AsU64
	}

	var buf [eocdLen]byte
	b := writeBuf(buf[:])
	b.uint32(eocdSig)
	b.uint16(0) // number of this disk
	b.uint16(0) // disk with the start of the central directory
	b.uint16(uint16(records))
	b.uint16(uint16(records))
	b.uint32(uint32(size))
	b.uint32(uint32(offset))
	b.uint16(0) // archive comment length
	_, err := cw.Write(buf[:])
	return err
}

const (
	maxUint32      = 1<<32 - 1
	maxUint32AsU64 = uint64(maxUint32)
)
