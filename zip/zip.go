// Copyright 2024 Google LLC.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package zip turns the central directory of a ZIP archive into
// entry.Entry values for the validator and materializer to process.
//
// It wraps github.com/klauspost/compress/zip rather than the standard
// library's archive/zip: the two are API-compatible (klauspost/compress
// is a drop-in, actively maintained superset with ZIP64 and a faster
// flate implementation), and the rest of this module already depends on
// klauspost/compress for gzip and zstd, so there is no reason to carry
// two independent DEFLATE implementations.
//
// Unlike the TAR side, ZIP needs random access to its central directory
// (the end-of-central-directory record is found by scanning backward
// from the end of the stream), so this package is handed an io.ReaderAt
// directly rather than going through package decompress's sequential
// readers: a ZIP member is never itself wrapped in an outer gzip/xz/bzip2
// layer the way a ".tar.gz" is, because the ZIP format already defines
// its own per-entry compression.
//
// Filename sanitization and symlink-traversal tracking are not this
// package's concern either; that responsibility belongs entirely to
// the validator package, so TAR and ZIP share one security policy
// instead of each owning a partial copy of it.
package zip

import (
	"io"
	"io/fs"

	kzip "github.com/klauspost/compress/zip"

	"github.com/exarch-dev/exarch/entry"
	"github.com/exarch-dev/exarch/errs"
)

// Reader provides access to the entries of a ZIP archive's central
// directory, in the order the archive declares them.
type Reader struct {
	zr            *kzip.Reader
	next          int
	curCompressed int64
}

// NewReader returns a new Reader reading from r, which is assumed to
// have the given size in bytes.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := kzip.NewReader(r, size)
	if err != nil {
		return nil, errs.New(errs.KindCorrupt, "", "invalid zip central directory", err)
	}
	return &Reader{zr: zr}, nil
}

// OpenReader opens the zip file at name and returns a ReadCloser that
// must be closed once the caller is done with it.
func OpenReader(name string) (*ReadCloser, error) {
	zr, err := kzip.OpenReader(name)
	if err != nil {
		return nil, errs.New(errs.KindCorrupt, name, "invalid zip central directory", err)
	}
	return &ReadCloser{Reader: Reader{zr: &zr.Reader}, rc: zr}, nil
}

// ReadCloser is a Reader that owns the underlying os.File and must be
// closed when no longer needed.
type ReadCloser struct {
	Reader
	rc *kzip.ReadCloser
}

// Close releases the resources associated with the archive.
func (rc *ReadCloser) Close() error {
	return rc.rc.Close()
}

// Next returns the next entry in central-directory order. It returns
// io.EOF once every entry has been returned.
//
// A compression method other than Store or Deflate (including any
// encrypted entry, which klauspost/compress/zip reports via a non-zero
// Flags bit) is reported as KindUnsupportedCompressionMethod. A
// directory is recognized by a trailing '/' in its name or by the
// external-attributes directory bit, matching spec behavior for
// archives produced by tools that only set one of the two.
func (r *Reader) Next() (entry.Entry, error) {
	if r.next >= len(r.zr.File) {
		return entry.Entry{}, io.EOF
	}
	f := r.zr.File[r.next]
	r.next++

	if isDirectory(f) {
		return entry.Entry{Kind: entry.Directory, Path: f.Name, Mode: uint32(f.Mode().Perm())}, nil
	}

	if isSymlink(f) {
		target, err := readSymlinkTarget(f)
		if err != nil {
			return entry.Entry{}, errs.New(errs.KindCorrupt, f.Name, "unreadable symlink target", err)
		}
		return entry.Entry{Kind: entry.Symlink, Path: f.Name, LinkTarget: target}, nil
	}

	if f.Method != kzip.Store && f.Method != kzip.Deflate {
		return entry.Entry{}, errs.New(errs.KindUnsupportedCompressionMethod, f.Name, "unsupported zip compression method", nil)
	}
	if f.Flags&0x1 != 0 {
		return entry.Entry{}, errs.New(errs.KindUnsupportedCompressionMethod, f.Name, "encrypted zip entries are not supported", nil)
	}

	rc, err := f.Open()
	if err != nil {
		return entry.Entry{}, errs.New(errs.KindCorrupt, f.Name, "failed to open zip entry stream", err)
	}
	r.curCompressed = int64(f.CompressedSize64)

	return entry.Entry{
		Kind:    entry.File,
		Path:    f.Name,
		Size:    int64(f.UncompressedSize64),
		Mode:    uint32(f.Mode().Perm()),
		Content: rc,
	}, nil
}

// CompressedSize returns the declared compressed size of the entry most
// recently returned by Next, the denominator ExtractArchive uses for
// this entry's compression-ratio check: unlike TAR's shared outer
// compression stream, each ZIP entry is compressed independently, so its
// own declared size is the exact denominator rather than an
// approximation from a running stream position.
func (r *Reader) CompressedSize() int64 {
	return r.curCompressed
}

func isDirectory(f *kzip.File) bool {
	if len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/' {
		return true
	}
	return f.Mode()&fs.ModeDir != 0
}

func isSymlink(f *kzip.File) bool {
	return f.Mode()&fs.ModeSymlink != 0
}

// readSymlinkTarget reads a symlink entry's full content, which ZIP
// stores as the link target in place of file data.
func readSymlinkTarget(f *kzip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
