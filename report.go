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
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ExtractionReport summarizes one ExtractArchive call. On a successful
// run, FirstError is nil and the counters reflect the whole archive. On
// an aborted run, the counters reflect everything materialized up to
// the point of failure and FirstError holds the error that stopped it.
type ExtractionReport struct {
	FilesExtracted     int64
	DirectoriesCreated int64
	SymlinksCreated    int64
	HardlinksCreated   int64
	BytesWritten       int64
	Elapsed            time.Duration
	ArchiveFormat      string
	Decompressor       string
	FirstError         error
}

// String renders a one-line human-readable summary, using
// go-humanize for byte counts the way a CLI's final status line would.
func (r ExtractionReport) String() string {
	s := fmt.Sprintf(
		"%s: %d files, %d dirs, %d symlinks, %d hardlinks, %s written in %s (decompressor: %s)",
		r.ArchiveFormat,
		r.FilesExtracted,
		r.DirectoriesCreated,
		r.SymlinksCreated,
		r.HardlinksCreated,
		humanize.Bytes(uint64(r.BytesWritten)),
		r.Elapsed,
		r.Decompressor,
	)
	if r.FirstError != nil {
		s += fmt.Sprintf(" — aborted: %v", r.FirstError)
	}
	return s
}
