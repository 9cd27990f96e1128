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

package exarch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/exarch-dev/exarch/budget"
	"github.com/exarch-dev/exarch/decompress"
	"github.com/exarch-dev/exarch/entry"
	"github.com/exarch-dev/exarch/errs"
	"github.com/exarch-dev/exarch/exarchlog"
	"github.com/exarch-dev/exarch/materializer"
	"github.com/exarch-dev/exarch/policy"
	"github.com/exarch-dev/exarch/tar"
	"github.com/exarch-dev/exarch/validator"
	exzip "github.com/exarch-dev/exarch/zip"
)

// ExtractArchive extracts the TAR or ZIP archive at archivePath into
// destinationPath, creating it if necessary. The archive's format is
// detected from its own bytes (a leading "PK" local-file-header or
// end-of-central-directory signature means ZIP; anything else is tried
// as TAR, optionally wrapped in gzip/bzip2/xz/zstd), never from
// archivePath's extension. opts configure the policy.SecurityPolicy;
// any field left unset keeps its conservative default.
func ExtractArchive(ctx context.Context, archivePath, destinationPath string, opts ...policy.Option) (ExtractionReport, error) {
	return extractArchive(ctx, archivePath, destinationPath, exarchlog.Nop(), opts...)
}

// ExtractArchiveWithLogger is ExtractArchive but routes structured
// per-entry telemetry through log instead of discarding it.
func ExtractArchiveWithLogger(ctx context.Context, archivePath, destinationPath string, log *exarchlog.Logger, opts ...policy.Option) (ExtractionReport, error) {
	return extractArchive(ctx, archivePath, destinationPath, log, opts...)
}

// ExtractArchiveStaged extracts into a freshly named staging directory
// next to destinationPath and only renames it into place once every
// entry has materialized successfully, so a caller polling
// destinationPath never observes a partial extraction. On any failure
// the staging directory is removed and destinationPath is left
// untouched.
func ExtractArchiveStaged(ctx context.Context, archivePath, destinationPath string, opts ...policy.Option) (ExtractionReport, error) {
	parent := filepath.Dir(destinationPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return ExtractionReport{}, errs.WrapIo(parent, err)
	}
	staging := filepath.Join(parent, ".exarch-staging-"+uuid.NewString())

	report, err := extractArchive(ctx, archivePath, staging, exarchlog.Nop(), opts...)
	if err != nil {
		os.RemoveAll(staging)
		return report, err
	}
	if err := os.Rename(staging, destinationPath); err != nil {
		os.RemoveAll(staging)
		report.FirstError = errs.WrapIo(destinationPath, err)
		return report, report.FirstError
	}
	return report, nil
}

func extractArchive(ctx context.Context, archivePath, destinationPath string, log *exarchlog.Logger, opts ...policy.Option) (ExtractionReport, error) {
	if log == nil {
		log = exarchlog.Nop()
	}
	start := time.Now()

	pol, err := policy.NewBuilder().Apply(opts...).Build()
	if err != nil {
		return ExtractionReport{}, err
	}

	root, err := canonicalRoot(destinationPath)
	if err != nil {
		return ExtractionReport{}, err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return ExtractionReport{}, errs.WrapIo(archivePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ExtractionReport{}, errs.WrapIo(archivePath, err)
	}

	b := budget.New()
	v := validator.New(pol, root)
	mat := materializer.New(pol, b, root, log)

	log.ExtractionStarted(archivePath, destinationPath)

	format, decompressorName, dispatchErr := dispatch(ctx, f, info.Size(), archivePath, v, mat, b, log)

	report := ExtractionReport{
		FilesExtracted:     b.FilesExtracted(),
		DirectoriesCreated: b.DirectoriesCreated(),
		SymlinksCreated:    b.SymlinksCreated(),
		HardlinksCreated:   b.HardlinksCreated(),
		BytesWritten:       b.BytesWritten(),
		Elapsed:            time.Since(start),
		ArchiveFormat:      format,
		Decompressor:       decompressorName,
		FirstError:         dispatchErr,
	}
	if dispatchErr != nil {
		return report, dispatchErr
	}
	log.ExtractionFinished(report.FilesExtracted, report.BytesWritten)
	return report, nil
}

// canonicalRoot resolves destinationPath to an absolute, symlink-free
// path and ensures it exists. The validator compares every resolved
// entry path against this exact string, so it must be fully resolved
// once up front rather than re-derived mid-run.
func canonicalRoot(destinationPath string) (string, error) {
	abs, err := filepath.Abs(destinationPath)
	if err != nil {
		return "", errs.WrapIo(destinationPath, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", errs.WrapIo(destinationPath, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errs.WrapIo(destinationPath, err)
	}
	return filepath.ToSlash(resolved), nil
}

// dispatch sniffs archivePath's own bytes to choose the ZIP or TAR
// pipeline, runs it to completion, and reports the format name and the
// decompressor used (for TAR; "none" for ZIP, which never carries an
// outer compression layer of its own).
func dispatch(ctx context.Context, f *os.File, size int64, archivePath string, v *validator.EntryValidator, mat *materializer.Materializer, b *budget.Budget, log *exarchlog.Logger) (format, decompressorName string, err error) {
	if looksLikeZip(f) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", "", errs.WrapIo(archivePath, err)
		}
		zr, err := exzip.NewReader(f, size)
		if err != nil {
			return "", "", err
		}
		if err := runZip(ctx, zr, v, mat, b, log); err != nil {
			return "", "", err
		}
		return "zip", "none", nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", "", errs.WrapIo(archivePath, err)
	}
	kind, err := runTar(ctx, f, archivePath, v, mat, b, log)
	if err != nil {
		return "", "", err
	}
	return "tar", kind, nil
}

// looksLikeZip reports whether f begins with a ZIP local-file-header,
// empty-archive, or spanned-archive signature ("PK\x03\x04",
// "PK\x05\x06", "PK\x07\x08"). It never consumes f's read position.
func looksLikeZip(f *os.File) bool {
	var magic [4]byte
	n, err := f.ReadAt(magic[:], 0)
	if err != nil && err != io.EOF {
		return false
	}
	if n < 4 || magic[0] != 'P' || magic[1] != 'K' {
		return false
	}
	switch {
	case magic[2] == 0x03 && magic[3] == 0x04,
		magic[2] == 0x05 && magic[3] == 0x06,
		magic[2] == 0x07 && magic[3] == 0x08:
		return true
	default:
		return false
	}
}

func runTar(ctx context.Context, f *os.File, archivePath string, v *validator.EntryValidator, mat *materializer.Materializer, b *budget.Budget, log *exarchlog.Logger) (string, error) {
	cr := decompress.NewCountingReader(f)
	kind, peeked, err := decompress.DetectStack(archivePath, cr)
	if err != nil {
		return "", err
	}
	rc, err := decompress.Open(kind, peeked)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		e, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if e.Kind == entry.File {
			e.Content = &compressedTrackingReader{r: e.Content, cr: cr, budget: b}
		}
		if err := acceptEntry(e, v, mat, log); err != nil {
			return "", err
		}
	}
	return kind.String(), nil
}

func runZip(ctx context.Context, zr *exzip.Reader, v *validator.EntryValidator, mat *materializer.Materializer, b *budget.Budget, log *exarchlog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, err := zr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if e.Kind == entry.File {
			// Each ZIP entry carries its own declared compressed size,
			// an exact per-entry denominator unlike TAR's single shared
			// outer-compression stream.
			b.SetCompressedBytesConsumed(zr.CompressedSize())
		}
		if err := acceptEntry(e, v, mat, log); err != nil {
			return err
		}
	}
}

func acceptEntry(e entry.Entry, v *validator.EntryValidator, mat *materializer.Materializer, log *exarchlog.Logger) error {
	ve, err := v.Validate(e)
	if err != nil {
		log.EntryRejected(e.Path, err)
		return err
	}
	if err := mat.Materialize(ve); err != nil {
		log.EntryRejected(ve.ResolvedPath, err)
		return err
	}
	return nil
}

// compressedTrackingReader mirrors a TAR entry's shared CountingReader
// position into the run's Budget as the materializer streams its
// content, so MaxCompressionRatio compares the entry's bytes written so
// far against the archive's current compressed position rather than a
// stale snapshot taken before the entry was opened.
type compressedTrackingReader struct {
	r      io.Reader
	cr     *decompress.CountingReader
	budget *budget.Budget
}

func (t *compressedTrackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	t.budget.SetCompressedBytesConsumed(t.cr.CompressedBytesConsumed())
	return n, err
}
