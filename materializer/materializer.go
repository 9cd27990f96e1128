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

// Package materializer turns a validated entry into an actual filesystem
// object under the extraction root.
//
// By the time Materialize is called, the validator has already proven
// ResolvedPath (and ResolvedLinkTarget, for links) lie lexically inside
// the root. This package's own job is narrower but just as load-bearing:
// make sure nothing planted on disk *during* this run — an earlier
// entry's symlink, say — can redirect a later entry outside the root
// before its destination is created. Every directory component along the
// way is opened with O_NOFOLLOW (see fsops_unix.go), so a race-planted
// symlink simply fails the open instead of being followed.
package materializer

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/exarch-dev/exarch/budget"
	"github.com/exarch-dev/exarch/entry"
	"github.com/exarch-dev/exarch/errs"
	"github.com/exarch-dev/exarch/exarchlog"
	"github.com/exarch-dev/exarch/policy"
)

const (
	copyChunkSize = 32 * 1024
	// ratioCheckFloor is the minimum compressed-byte count a file must
	// have consumed before its compression ratio is checked; below this
	// the ratio of a few-byte entry is too noisy to mean anything
	// (a 10-byte compressed header inflating to 200 bytes is not a bomb).
	ratioCheckFloor = 1024
)

// Materializer writes entry.ValidatedEntry values to disk under Root,
// updating Budget as it goes and consulting Policy for every limit.
type Materializer struct {
	Policy *policy.SecurityPolicy
	Budget *budget.Budget
	Root   string
	Log    *exarchlog.Logger

	mu           sync.Mutex
	materialized map[string]bool
}

// New returns a Materializer bound to p, b and root. A nil log falls
// back to exarchlog.Nop().
func New(p *policy.SecurityPolicy, b *budget.Budget, root string, log *exarchlog.Logger) *Materializer {
	if log == nil {
		log = exarchlog.Nop()
	}
	return &Materializer{
		Policy:       p,
		Budget:       b,
		Root:         root,
		Log:          log,
		materialized: make(map[string]bool),
	}
}

// Materialize writes ve's filesystem object. The entry and per-kind
// counters in m.Budget are bumped before any filesystem mutation is
// attempted, so a MaxFileCount breach is reported without side effects.
func (m *Materializer) Materialize(ve entry.ValidatedEntry) error {
	total := m.Budget.AddEntry(ve.Kind.String())
	if m.Policy.MaxFileCount > 0 && total > m.Policy.MaxFileCount {
		return errs.New(errs.KindFileCountExceeded, ve.ResolvedPath, "entry count exceeds limit", nil)
	}

	switch ve.Kind {
	case entry.Directory:
		return m.materializeDirectory(ve)
	case entry.File:
		return m.materializeFile(ve)
	case entry.Symlink:
		return m.materializeSymlink(ve)
	case entry.Hardlink:
		return m.materializeHardlink(ve)
	default:
		return errs.New(errs.KindUnsupportedEntryType, ve.ResolvedPath, "unknown entry kind", nil)
	}
}

func (m *Materializer) materializeDirectory(ve entry.ValidatedEntry) error {
	perm := os.FileMode(0o755)
	if m.Policy.PreservePermissions {
		perm = stripSpecialBits(os.FileMode(ve.Mode))
	}
	if err := createDirectory(m.Root, m.relOf(ve.ResolvedPath), perm); err != nil {
		return errs.WrapIo(ve.ResolvedPath, err)
	}
	m.markMaterialized(ve.ResolvedPath)
	m.Log.EntryAccepted(ve.ResolvedPath, "directory")
	return nil
}

func (m *Materializer) materializeFile(ve entry.ValidatedEntry) error {
	perm := os.FileMode(0o644)
	if m.Policy.PreservePermissions {
		perm = stripSpecialBits(os.FileMode(ve.Mode))
	}

	f, err := createFile(m.Root, m.relOf(ve.ResolvedPath), perm)
	if err != nil {
		return errs.WrapIo(ve.ResolvedPath, err)
	}

	if err := m.copyLimited(f, ve); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	f.Close()

	m.markMaterialized(ve.ResolvedPath)
	m.Log.EntryAccepted(ve.ResolvedPath, "file")
	return nil
}

// copyLimited streams ve.Content into dst, enforcing MaxFileSize,
// MaxTotalSize and MaxCompressionRatio as the bytes arrive rather than
// after the fact, so a bomb is caught partway through instead of after
// it has already been written to disk in full.
func (m *Materializer) copyLimited(dst *os.File, ve entry.ValidatedEntry) error {
	buf := make([]byte, copyChunkSize)
	var entryWritten int64

	for {
		n, rerr := ve.Content.Read(buf)
		if n > 0 {
			entryWritten += int64(n)
			if m.Policy.MaxFileSize > 0 && entryWritten > m.Policy.MaxFileSize {
				return errs.New(errs.KindFileTooLarge, ve.ResolvedPath, "entry exceeds max file size", nil)
			}

			total := m.Budget.AddBytesWritten(int64(n))
			if m.Policy.MaxTotalSize > 0 && total > m.Policy.MaxTotalSize {
				return errs.New(errs.KindTotalSizeExceeded, ve.ResolvedPath, "cumulative size exceeds limit", nil)
			}
			if err := m.checkCompressionRatio(ve.ResolvedPath, entryWritten); err != nil {
				return err
			}

			if _, werr := dst.Write(buf[:n]); werr != nil {
				return errs.WrapIo(ve.ResolvedPath, werr)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return errs.New(errs.KindIoError, ve.ResolvedPath, "failed reading entry content", rerr)
		}
	}
}

func (m *Materializer) checkCompressionRatio(path string, entryWritten int64) error {
	compressed := m.Budget.CompressedBytesConsumed()
	if compressed < ratioCheckFloor {
		return nil
	}
	if float64(entryWritten)/float64(compressed) > m.Policy.MaxCompressionRatio {
		return errs.New(errs.KindZipBomb, path, "compression ratio exceeds limit", nil)
	}
	return nil
}

func (m *Materializer) materializeSymlink(ve entry.ValidatedEntry) error {
	if err := createSymlink(m.Root, m.relOf(ve.ResolvedPath), ve.LinkTarget); err != nil {
		return errs.WrapIo(ve.ResolvedPath, err)
	}
	m.markMaterialized(ve.ResolvedPath)
	m.Log.EntryAccepted(ve.ResolvedPath, "symlink")
	return nil
}

// materializeHardlink requires that its target was already materialized
// earlier in this same run — not merely that some file happens to exist
// at that path. Without that check, an archive could hard-link to a file
// that predates the extraction (left over from a previous run, or
// planted by another process) and exfiltrate or corrupt it by proxy.
func (m *Materializer) materializeHardlink(ve entry.ValidatedEntry) error {
	relTarget := m.relOf(ve.ResolvedLinkTarget)

	m.mu.Lock()
	seen := m.materialized[relTarget]
	m.mu.Unlock()
	if !seen {
		return errs.New(errs.KindHardlinkTargetMissing, ve.ResolvedPath, "hardlink target has not been materialized in this extraction", nil)
	}

	if err := createHardlink(m.Root, m.relOf(ve.ResolvedPath), relTarget); err != nil {
		if hardlinkTargetMissing(err) {
			return errs.New(errs.KindHardlinkTargetMissing, ve.ResolvedPath, "hardlink target missing on disk", err)
		}
		return errs.WrapIo(ve.ResolvedPath, err)
	}
	m.markMaterialized(ve.ResolvedPath)
	m.Log.EntryAccepted(ve.ResolvedPath, "hardlink")
	return nil
}

func (m *Materializer) markMaterialized(resolvedPath string) {
	rel := m.relOf(resolvedPath)
	m.mu.Lock()
	m.materialized[rel] = true
	m.mu.Unlock()
}

// relOf returns resolvedPath relative to m.Root using '/' separators,
// the form fsops_*.go expects.
func (m *Materializer) relOf(resolvedPath string) string {
	rel := strings.TrimPrefix(resolvedPath, m.Root)
	return strings.TrimPrefix(rel, "/")
}

// stripSpecialBits masks out setuid, setgid and the sticky bit, which
// are never honored regardless of PreservePermissions: an archive should
// not be able to grant a materialized file more privilege than it would
// have had if created fresh.
func stripSpecialBits(mode os.FileMode) os.FileMode {
	return mode & 0o777
}
