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

// Package entry defines the archive entry types shared by the format
// readers, the validator, and the materializer.
//
// An Entry carries untrusted, declared data straight out of a TAR or ZIP
// stream. A ValidatedEntry carries the same data plus a resolved,
// jail-contained destination path that the validator has vouched for.
// Nothing in this package touches a filesystem.
package entry

import "io"

// Kind identifies which filesystem object an Entry describes.
type Kind int

const (
	// File is a regular file with content.
	File Kind = iota
	// Directory is an explicit directory entry.
	Directory
	// Symlink is a symbolic link; LinkTarget holds its declared target.
	Symlink
	// Hardlink is a hard link; LinkTarget holds its declared target.
	Hardlink
)

// String returns a lower-case name for k, used in log fields and errors.
func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	case Hardlink:
		return "hardlink"
	default:
		return "unknown"
	}
}

// Entry is one raw, untrusted record produced by a format reader.
//
// Path and LinkTarget are exactly as declared in the archive: they have
// not been normalized, joined with any root, or checked for escape. Size
// and Mode are likewise declared, not verified. Content is non-nil only
// for Kind == File, is lazy, and may be read at most once before the next
// entry is requested from the format reader.
type Entry struct {
	Kind       Kind
	Path       string
	LinkTarget string
	Size       int64
	Mode       uint32
	Content    io.Reader
}

// ValidatedEntry pairs an Entry with validator-approved, jail-contained
// paths. ResolvedPath is always set; ResolvedLinkTarget is only meaningful
// when Entry.Kind is Symlink or Hardlink. No filesystem access has
// occurred by the time a ValidatedEntry exists.
type ValidatedEntry struct {
	Entry
	ResolvedPath       string
	ResolvedLinkTarget string
}
