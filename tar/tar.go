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

// Package tar turns a decompressed TAR byte stream into entry.Entry
// values for the validator and materializer to process.
//
// It wraps archive/tar for header and byte-layout parsing (ustar
// checksums, PAX/GNU long-name extensions, end-of-archive padding)
// rather than reimplementing that wire format: it is solved, fiddly
// code, and no package in this tree benefits from duplicating it.
//
// Filename sanitization and symlink-traversal tracking are not this
// package's concern: Next reports exactly what the archive declares,
// untouched. That responsibility belongs entirely to the validator
// package, so a single security policy is enforced uniformly across
// both TAR and ZIP.
package tar

import (
	stdtar "archive/tar"
	"io"

	"github.com/exarch-dev/exarch/entry"
	"github.com/exarch-dev/exarch/errs"
)

// Format represents the tar archive format (ustar, PAX, or GNU).
type Format = stdtar.Format

const (
	FormatUnknown = stdtar.FormatUnknown
	FormatUSTAR   = stdtar.FormatUSTAR
	FormatPAX     = stdtar.FormatPAX
	FormatGNU     = stdtar.FormatGNU
)

// Header is re-exported for callers that want the raw archive/tar
// header alongside the entry.Entry Next produces.
type Header = stdtar.Header

var (
	// ErrHeader is returned for an invalid tar header.
	ErrHeader = stdtar.ErrHeader
	// ErrFieldTooLong is returned when a header field overflows its
	// format's encoding.
	ErrFieldTooLong = stdtar.ErrFieldTooLong
)

// Reader provides sequential access to the entries of a TAR archive,
// already decompressed. Next advances to the next entry (including the
// first); the returned entry.Entry's Content, when non-nil, is the
// underlying archive/tar reader and must be fully read before the next
// call to Next.
type Reader struct {
	r *stdtar.Reader
}

// NewReader creates a new Reader reading from r, which must already be
// decompressed (see package decompress).
func NewReader(r io.Reader) *Reader {
	return &Reader{r: stdtar.NewReader(r)}
}

// Next advances to the next entry in the archive and returns it as an
// entry.Entry. It returns io.EOF at the end of the input, the same
// sentinel archive/tar itself returns, so callers can use errors.Is.
//
// A typeflag outside the supported set (character device, block
// device, FIFO, and similar) is reported as a *errs.Error with
// KindUnsupportedEntryType rather than skipped: format readers in this
// module never silently drop entries. Such an entry never reaches the
// validator; Next itself rejects it.
func (tr *Reader) Next() (entry.Entry, error) {
	h, err := tr.r.Next()
	if err == io.EOF {
		return entry.Entry{}, io.EOF
	}
	if err != nil {
		return entry.Entry{}, errs.New(errs.KindCorrupt, "", "invalid tar header", err)
	}

	kind, ok := entryKind(h.Typeflag)
	if !ok {
		return entry.Entry{}, errs.New(errs.KindUnsupportedEntryType, h.Name, "unsupported tar typeflag", nil)
	}

	e := entry.Entry{
		Kind:       kind,
		Path:       h.Name,
		LinkTarget: h.Linkname,
		Size:       h.Size,
		Mode:       uint32(h.Mode),
	}
	if kind == entry.File {
		e.Content = tr.r
	}
	return e, nil
}

// entryKind maps a tar typeflag to an entry.Kind. PAX/GNU long-name and
// long-link records (TypeXHeader, TypeGNULongName, ...) never reach
// here: archive/tar's own Reader.Next folds those into the Header of
// the entry that follows them before we ever see the typeflag.
func entryKind(typeflag byte) (entry.Kind, bool) {
	switch typeflag {
	case stdtar.TypeReg, stdtar.TypeRegA:
		return entry.File, true
	case stdtar.TypeDir:
		return entry.Directory, true
	case stdtar.TypeSymlink:
		return entry.Symlink, true
	case stdtar.TypeLink:
		return entry.Hardlink, true
	default:
		return entry.File, false
	}
}
