// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package streamzip writes a PKZIP-format archive as a single byte stream while
each entry's data is still being supplied, without requiring the caller to
know entry sizes or checksums in advance and without buffering entry payloads
in memory.

Entries are submitted concurrently via Archive.AddEntry; the coordinator
serializes their bytes onto the output stream in submission order regardless
of the order in which their payload sources finish producing data. Once every
entry has been submitted, Finalize writes the central directory and the
end-of-central-directory records (promoting to ZIP64 automatically, as
required) and closes the output.

See https://www.pkware.com/appnote for the on-disk format this package
produces. This package does not read or parse existing archives, does not
support random-access updates, and does not support disk spanning or
encryption.
*/
package streamzip
