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

// Package errs defines the error taxonomy shared by every package in this
// module. It lives below the root package so that package exarch (which
// every other package may need to reference) can re-export these types
// as aliases without an import cycle.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies why an extraction failed.
type Kind int

const (
	// KindPathTraversal is raised on lexical path escape, absolute paths,
	// or ".." stack underflow. Raised under every SecurityPolicy preset.
	KindPathTraversal Kind = iota
	// KindSymlinkEscape is raised when a symlink target escapes the jail.
	KindSymlinkEscape
	// KindHardlinkEscape is raised when a hardlink target escapes the jail.
	KindHardlinkEscape
	// KindHardlinkTargetMissing is raised when a hardlink's target has not
	// yet been materialized.
	KindHardlinkTargetMissing
	// KindSecurityViolation is raised when a symlink or hardlink entry is
	// present but disallowed by policy.
	KindSecurityViolation
	// KindZipBomb is raised when the compression-ratio limit is exceeded.
	KindZipBomb
	// KindFileTooLarge is raised when a single entry exceeds MaxFileSize.
	KindFileTooLarge
	// KindTotalSizeExceeded is raised when cumulative size exceeds
	// MaxTotalSize.
	KindTotalSizeExceeded
	// KindFileCountExceeded is raised when MaxFileCount is exceeded.
	KindFileCountExceeded
	// KindDisallowedExtension is raised when an entry's extension is not
	// in AllowedExtensions.
	KindDisallowedExtension
	// KindInvalidPath is raised on null bytes, reserved device names, or
	// otherwise malformed paths.
	KindInvalidPath
	// KindUnsupportedEntryType is raised for TAR typeflags outside the
	// supported set (character/block devices, FIFOs).
	KindUnsupportedEntryType
	// KindUnsupportedCompressionMethod is raised for ZIP methods other
	// than STORE/DEFLATE, or for encrypted entries.
	KindUnsupportedCompressionMethod
	// KindCorrupt is raised on parse errors, checksum mismatches, or
	// truncation.
	KindCorrupt
	// KindIoError wraps an underlying filesystem or stream error.
	KindIoError
	// KindUnsupportedOperation is raised when the platform lacks a
	// required primitive (e.g. symlinks on a FAT destination).
	KindUnsupportedOperation
)

//go:generate stringer -type=Kind

func (k Kind) String() string {
	switch k {
	case KindPathTraversal:
		return "PathTraversal"
	case KindSymlinkEscape:
		return "SymlinkEscape"
	case KindHardlinkEscape:
		return "HardlinkEscape"
	case KindHardlinkTargetMissing:
		return "HardlinkTargetMissing"
	case KindSecurityViolation:
		return "SecurityViolation"
	case KindZipBomb:
		return "ZipBomb"
	case KindFileTooLarge:
		return "FileTooLarge"
	case KindTotalSizeExceeded:
		return "TotalSizeExceeded"
	case KindFileCountExceeded:
		return "FileCountExceeded"
	case KindDisallowedExtension:
		return "DisallowedExtension"
	case KindInvalidPath:
		return "InvalidPath"
	case KindUnsupportedEntryType:
		return "UnsupportedEntryType"
	case KindUnsupportedCompressionMethod:
		return "UnsupportedCompressionMethod"
	case KindCorrupt:
		return "Corrupt"
	case KindIoError:
		return "IoError"
	case KindUnsupportedOperation:
		return "UnsupportedOperation"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every exported function in
// this module. Path is the archive-relative or resolved path involved,
// when known; it is empty for policy-level errors that aren't tied to a
// single entry.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Path, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the wrapped cause, if any, for errors.As/errors.Is.
func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, exarch.ErrPathTraversal) style sentinel checks
// by comparing Kind against the sentinel errors declared below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error for the given kind/path/message, optionally
// wrapping a cause. Other packages in this module use this instead of
// constructing Error literals directly.
func New(kind Kind, path, msg string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Msg: msg, Err: cause}
}

// Sentinel errors, one per Kind, comparable with errors.Is. Each carries
// no path; wrap or compare against these with errors.Is, then use
// errors.As to recover the concrete *Error for its Path/Msg/Err fields.
var (
	ErrPathTraversal               = &Error{Kind: KindPathTraversal, Msg: "path escapes destination"}
	ErrSymlinkEscape               = &Error{Kind: KindSymlinkEscape, Msg: "symlink target escapes destination"}
	ErrHardlinkEscape              = &Error{Kind: KindHardlinkEscape, Msg: "hardlink target escapes destination"}
	ErrHardlinkTargetMissing       = &Error{Kind: KindHardlinkTargetMissing, Msg: "hardlink target not yet materialized"}
	ErrSecurityViolation           = &Error{Kind: KindSecurityViolation, Msg: "link type disallowed by policy"}
	ErrZipBomb                     = &Error{Kind: KindZipBomb, Msg: "compression ratio exceeds limit"}
	ErrFileTooLarge                = &Error{Kind: KindFileTooLarge, Msg: "entry exceeds max file size"}
	ErrTotalSizeExceeded           = &Error{Kind: KindTotalSizeExceeded, Msg: "cumulative size exceeds limit"}
	ErrFileCountExceeded           = &Error{Kind: KindFileCountExceeded, Msg: "entry count exceeds limit"}
	ErrDisallowedExtension         = &Error{Kind: KindDisallowedExtension, Msg: "extension not allow-listed"}
	ErrInvalidPath                 = &Error{Kind: KindInvalidPath, Msg: "invalid path"}
	ErrUnsupportedEntryType        = &Error{Kind: KindUnsupportedEntryType, Msg: "unsupported entry type"}
	ErrUnsupportedCompressionMethod = &Error{Kind: KindUnsupportedCompressionMethod, Msg: "unsupported compression method"}
	ErrCorrupt                     = &Error{Kind: KindCorrupt, Msg: "corrupt archive"}
	ErrIoError                     = &Error{Kind: KindIoError, Msg: "i/o error"}
	ErrUnsupportedOperation        = &Error{Kind: KindUnsupportedOperation, Msg: "unsupported on this platform"}
)

// WrapIo wraps cause as a KindIoError *Error, preserving path context
// for the caller without discarding the underlying OS error.
func WrapIo(path string, cause error) *Error {
	return New(KindIoError, path, "filesystem operation failed", cause)
}

// As extracts the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
