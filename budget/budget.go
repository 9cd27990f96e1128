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

// Package budget implements the mutable resource accounting threaded
// through one extraction pipeline run.
//
// A Budget is created alongside the pipeline and dropped once the
// ExtractionReport has been produced. It is never shared across
// concurrent extractions; each ExtractArchive call owns its own Budget.
package budget

import "sync/atomic"

// Budget accumulates the running counters a policy.SecurityPolicy checks
// limits against. Every counter except CompressedBytesConsumed only ever
// increases during a run; that one holds whatever value
// SetCompressedBytesConsumed last stored.
type Budget struct {
	bytesWritten             atomic.Int64
	entriesMaterialized      atomic.Int64
	compressedBytesConsumed  atomic.Int64
	filesExtracted           atomic.Int64
	directoriesCreated       atomic.Int64
	symlinksCreated          atomic.Int64
	hardlinksCreated         atomic.Int64
}

// New returns a zeroed Budget ready for one extraction.
func New() *Budget {
	return &Budget{}
}

// BytesWritten returns the cumulative uncompressed bytes written so far.
func (b *Budget) BytesWritten() int64 { return b.bytesWritten.Load() }

// AddBytesWritten atomically bumps BytesWritten by n and returns the new
// total. n must be >= 0; every byte is counted before any limit is
// tested against the return value.
func (b *Budget) AddBytesWritten(n int64) int64 {
	return b.bytesWritten.Add(n)
}

// CompressedBytesConsumed returns the compressed-byte count most recently
// recorded, the denominator of the compression-ratio check.
func (b *Budget) CompressedBytesConsumed() int64 { return b.compressedBytesConsumed.Load() }

// SetCompressedBytesConsumed records the latest compressed-byte count:
// for TAR, the source position reported by a decompress.CountingReader;
// for ZIP, the current entry's declared compressed size.
func (b *Budget) SetCompressedBytesConsumed(n int64) {
	b.compressedBytesConsumed.Store(n)
}

// EntriesMaterialized returns how many entries have been accepted.
func (b *Budget) EntriesMaterialized() int64 { return b.entriesMaterialized.Load() }

// AddEntry bumps EntriesMaterialized and the kind-specific counter for
// kind ("file", "directory", "symlink", "hardlink") and returns the new
// EntriesMaterialized total. Called before any filesystem action for the
// entry, so FileCountExceeded is raised before any mutation occurs.
func (b *Budget) AddEntry(kind string) int64 {
	switch kind {
	case "file":
		b.filesExtracted.Add(1)
	case "directory":
		b.directoriesCreated.Add(1)
	case "symlink":
		b.symlinksCreated.Add(1)
	case "hardlink":
		b.hardlinksCreated.Add(1)
	}
	return b.entriesMaterialized.Add(1)
}

// FilesExtracted, DirectoriesCreated, SymlinksCreated, HardlinksCreated
// report the per-kind counters used to populate an ExtractionReport.
func (b *Budget) FilesExtracted() int64      { return b.filesExtracted.Load() }
func (b *Budget) DirectoriesCreated() int64  { return b.directoriesCreated.Load() }
func (b *Budget) SymlinksCreated() int64     { return b.symlinksCreated.Load() }
func (b *Budget) HardlinksCreated() int64    { return b.hardlinksCreated.Load() }
