package streamzip

import "os"

// EntryOptionsFromFileInfo builds an EntryOptions for a regular file from
// an os.FileInfo, the usual translation from a filesystem stat into zip
// header fields. name is the entry's path within the archive (fi.Name()
// alone is just the base name, so callers walking a directory tree must
// supply the full relative path).
//
// Unlike building a precomputed archive listing up front, this only fills
// the fields a streaming submission needs before the payload is read (Name,
// Mode, Date): UncompressedSize, CompressedSize and CRC32 aren't part of
// EntryOptions at all here, since the whole point of this package is that
// they're discovered while AddEntry streams the payload, not supplied in
// advance.
func EntryOptionsFromFileInfo(name string, fi os.FileInfo) EntryOptions {
	return EntryOptions{
		Name: name,
		Date: fi.ModTime(),
		Mode: uint16(fileModeToUnixMode(fi.Mode())),
	}
}
