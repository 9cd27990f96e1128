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

// Package decompress identifies and strips the outer compression layer
// (gzip, bzip2, xz, zstd) that may wrap a TAR archive before the tar
// format reader ever sees it.
//
// Detection starts from a suffix guess based on the archive's declared
// name, then confirms or overrides that guess by sniffing the stream's
// first bytes, so a mislabeled ".tar" that is secretly gzip-compressed
// is still handled correctly.
package decompress

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/exarch-dev/exarch/errs"
)

// Kind identifies the outer compression codec wrapping a TAR stream.
type Kind int

const (
	// None means the stream is an uncompressed TAR stream.
	None Kind = iota
	Gzip
	Bzip2
	Xz
	Zstd
)

// String returns a lower-case codec name, used in ExtractionReport and
// log fields.
func (k Kind) String() string {
	switch k {
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case Xz:
		return "xz"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

// sniffLen is the number of leading bytes inspected to confirm or
// override a suffix-based guess. Long enough to cover every magic
// sequence below, including gzip's two-byte header.
const sniffLen = 6

// detectHeader reports whether buf (at least sniffLen bytes, or however
// many the stream actually had) starts with k's magic sequence.
func detectHeader(k Kind, buf []byte) bool {
	switch k {
	case Gzip:
		return len(buf) >= 2 && buf[0] == 0x1f && buf[1] == 0x8b
	case Bzip2:
		return len(buf) >= 4 && buf[0] == 'B' && buf[1] == 'Z' && buf[2] == 'h' && buf[3] >= '0' && buf[3] <= '9'
	case Xz:
		return len(buf) >= 6 && bytes.Equal(buf[:6], []byte{0xfd, '7', 'z', 'X', 'Z', 0x00})
	case Zstd:
		return len(buf) >= 4 && buf[0] == 0x28 && buf[1] == 0xb5 && buf[2] == 0x2f && buf[3] == 0xfd
	default:
		return false
	}
}

// fromSuffix guesses a Kind from the archive's declared file name. It is
// only a fallback: DetectStack uses it when no magic sequence matches.
func fromSuffix(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".tgz"):
		return Gzip
	case strings.HasSuffix(lower, ".bz2"), strings.HasSuffix(lower, ".tbz2"), strings.HasSuffix(lower, ".tb2"):
		return Bzip2
	case strings.HasSuffix(lower, ".xz"), strings.HasSuffix(lower, ".txz"):
		return Xz
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".tzst"):
		return Zstd
	default:
		return None
	}
}

// DetectStack peeks at the first bytes of r and returns the detected
// Kind and a reader that replays those peeked bytes ahead of the rest of
// the stream. name is the archive's declared file name; its suffix
// decides the Kind only when none of the known magic sequences matches
// (including when the stream is too short to sniff), and that suffix
// guess is not confirmed against the bytes. The byte-level sniff always
// wins when it matches.
func DetectStack(name string, r io.Reader) (Kind, io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffLen*4)
	buf, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return None, nil, errs.WrapIo(name, err)
	}

	switch {
	case detectHeader(Gzip, buf):
		return Gzip, br, nil
	case detectHeader(Bzip2, buf):
		return Bzip2, br, nil
	case detectHeader(Xz, buf):
		return Xz, br, nil
	case detectHeader(Zstd, buf):
		return Zstd, br, nil
	default:
		return fromSuffix(name), br, nil
	}
}

// zstdReadCloser adapts *zstd.Decoder (which exposes Close without
// returning an error) to io.ReadCloser.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// Open wraps r with the decompressor for k, or returns r unchanged (in a
// NopCloser) when k is None. The returned reader yields the decompressed
// TAR byte stream.
func Open(k Kind, r io.Reader) (io.ReadCloser, error) {
	switch k {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errs.New(errs.KindCorrupt, "", "invalid gzip stream", err)
		}
		return zr, nil
	case Bzip2:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, errs.New(errs.KindCorrupt, "", "invalid bzip2 stream", err)
		}
		return br, nil
	case Xz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, errs.New(errs.KindCorrupt, "", "invalid xz stream", err)
		}
		return io.NopCloser(xr), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errs.New(errs.KindCorrupt, "", "invalid zstd stream", err)
		}
		return zstdReadCloser{zr}, nil
	default:
		return nil, errs.New(errs.KindUnsupportedOperation, "", "unknown decompressor kind", nil)
	}
}
