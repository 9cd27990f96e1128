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

package zip

import (
	"bytes"
	"io"
	"io/fs"
	"testing"

	kzip "github.com/klauspost/compress/zip"

	"github.com/exarch-dev/exarch/entry"
	"github.com/exarch-dev/exarch/errs"
)

func buildZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := kzip.NewWriter(&buf)

	dirHdr := &kzip.FileHeader{Name: "dir/", Method: kzip.Store}
	dirHdr.SetMode(fs.ModeDir | 0750)
	if _, err := w.CreateHeader(dirHdr); err != nil {
		t.Fatalf("CreateHeader(dir): %v", err)
	}

	fileHdr := &kzip.FileHeader{Name: "dir/readme.txt", Method: kzip.Deflate}
	fileHdr.SetMode(0640)
	fw, err := w.CreateHeader(fileHdr)
	if err != nil {
		t.Fatalf("CreateHeader(file): %v", err)
	}
	if _, err := fw.Write([]byte("hello zip")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	linkHdr := &kzip.FileHeader{Name: "dir/link", Method: kzip.Store}
	linkHdr.SetMode(fs.ModeSymlink | 0777)
	lw, err := w.CreateHeader(linkHdr)
	if err != nil {
		t.Fatalf("CreateHeader(link): %v", err)
	}
	if _, err := lw.Write([]byte("readme.txt")); err != nil {
		t.Fatalf("Write(link target): %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestReaderEmitsDirectoryFileSymlink(t *testing.T) {
	raw := buildZip(t)
	r, err := NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	e, err := r.Next()
	if err != nil || e.Kind != entry.Directory || e.Path != "dir/" {
		t.Fatalf("1st entry = %+v, err = %v", e, err)
	}

	e, err = r.Next()
	if err != nil || e.Kind != entry.File || e.Path != "dir/readme.txt" {
		t.Fatalf("2nd entry = %+v, err = %v", e, err)
	}
	content, err := io.ReadAll(e.Content)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(content) != "hello zip" {
		t.Errorf("content = %q, want %q", content, "hello zip")
	}

	e, err = r.Next()
	if err != nil || e.Kind != entry.Symlink || e.LinkTarget != "readme.txt" {
		t.Fatalf("3rd entry = %+v, err = %v", e, err)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("final Next() = %v, want io.EOF", err)
	}
}

func TestReaderRejectsUnsupportedMethod(t *testing.T) {
	var buf bytes.Buffer
	w := kzip.NewWriter(&buf)
	fw, err := w.CreateHeader(&kzip.FileHeader{Name: "odd.bin", Method: kzip.Store})
	if err != nil {
		t.Fatalf("CreateHeader: %v", err)
	}
	if _, err := fw.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	raw := buf.Bytes()

	r, err := NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	// Simulate an archive declaring a method neither STORE nor DEFLATE,
	// e.g. BZIP2 or LZMA as sometimes seen from third-party zip tools.
	r.zr.File[0].Method = 99

	_, err = r.Next()
	if err == nil {
		t.Fatal("expected an unsupported-method error")
	}
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindUnsupportedCompressionMethod {
		t.Errorf("err = %v, want KindUnsupportedCompressionMethod", err)
	}
}

func TestNewReaderRejectsCorruptArchive(t *testing.T) {
	raw := []byte("not a zip archive")
	_, err := NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err == nil {
		t.Fatal("expected a corrupt-archive error")
	}
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindCorrupt {
		t.Errorf("err = %v, want KindCorrupt", err)
	}
}
