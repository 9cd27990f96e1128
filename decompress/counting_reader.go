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

package decompress

import (
	"io"
	"sync/atomic"
)

// CountingReader wraps the raw, still-compressed archive Source and
// tracks how many compressed bytes have been consumed so far. The
// materializer compares this against decompressed bytes written to
// enforce SecurityPolicy.MaxCompressionRatio without buffering the
// whole archive.
type CountingReader struct {
	r    io.Reader
	read atomic.Int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.read.Add(int64(n))
	}
	return n, err
}

// CompressedBytesConsumed returns the number of bytes read from the
// underlying compressed stream so far.
func (c *CountingReader) CompressedBytesConsumed() int64 {
	return c.read.Load()
}
