package streamzip

// entryNeedsZip64 reports whether an entry's physical fields require the
// ZIP64 format extensions, per spec.md §4.3: any of the three reaching the
// 2^32-1 sentinel value forces ZIP64, not just exceeding it, since that
// value is itself reserved as the "use ZIP64 instead" marker.
func entryNeedsZip64(uncompressedSize, compressedSize, startOffset uint64) bool {
	return uncompressedSize >= zip64Threshold ||
		compressedSize >= zip64Threshold ||
		startOffset >= zip64Threshold
}

// archiveNeedsZip64 reports whether the end-of-central-directory record
// must use the ZIP64 format extensions, per spec.md §4.3.
func archiveNeedsZip64(entryCount int, cdSize, cdOffset uint64) bool {
	return entryCount >= maxUint16 ||
		cdSize >= zip64Threshold ||
		cdOffset >= zip64Threshold
}
