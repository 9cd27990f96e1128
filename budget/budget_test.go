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

package budget

import (
	"sync"
	"testing"
)

func TestAddBytesWrittenAccumulates(t *testing.T) {
	b := New()
	if got := b.AddBytesWritten(10); got != 10 {
		t.Errorf("AddBytesWritten(10) = %d, want 10", got)
	}
	if got := b.AddBytesWritten(5); got != 15 {
		t.Errorf("AddBytesWritten(5) = %d, want 15", got)
	}
	if b.BytesWritten() != 15 {
		t.Errorf("BytesWritten() = %d, want 15", b.BytesWritten())
	}
}

func TestAddEntryBumpsKindCounters(t *testing.T) {
	b := New()
	b.AddEntry("file")
	b.AddEntry("file")
	b.AddEntry("directory")
	b.AddEntry("symlink")
	b.AddEntry("hardlink")

	if n := b.FilesExtracted(); n != 2 {
		t.Errorf("FilesExtracted = %d, want 2", n)
	}
	if n := b.DirectoriesCreated(); n != 1 {
		t.Errorf("DirectoriesCreated = %d, want 1", n)
	}
	if n := b.SymlinksCreated(); n != 1 {
		t.Errorf("SymlinksCreated = %d, want 1", n)
	}
	if n := b.HardlinksCreated(); n != 1 {
		t.Errorf("HardlinksCreated = %d, want 1", n)
	}
	if n := b.EntriesMaterialized(); n != 5 {
		t.Errorf("EntriesMaterialized = %d, want 5", n)
	}
}

func TestAddEntryReturnsRunningTotal(t *testing.T) {
	b := New()
	if got := b.AddEntry("file"); got != 1 {
		t.Errorf("1st AddEntry = %d, want 1", got)
	}
	if got := b.AddEntry("file"); got != 2 {
		t.Errorf("2nd AddEntry = %d, want 2", got)
	}
}

func TestCompressedBytesConsumedReflectsLatestSet(t *testing.T) {
	b := New()
	b.SetCompressedBytesConsumed(100)
	b.SetCompressedBytesConsumed(250)
	if got := b.CompressedBytesConsumed(); got != 250 {
		t.Errorf("CompressedBytesConsumed() = %d, want 250", got)
	}
}

// TestBudgetCountersAreConcurrencySafe exercises the counters the way a
// pipeline with a worker per archive entry would, confirming the atomic
// counters never lose an update under concurrent access.
func TestBudgetCountersAreConcurrencySafe(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	const goroutines = 50
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.AddEntry("file")
			b.AddBytesWritten(1)
		}()
	}
	wg.Wait()
	if n := b.FilesExtracted(); n != goroutines {
		t.Errorf("FilesExtracted = %d, want %d", n, goroutines)
	}
	if n := b.BytesWritten(); n != goroutines {
		t.Errorf("BytesWritten = %d, want %d", n, goroutines)
	}
}
