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

// Package exarch implements a secure archive extraction core for TAR and
// ZIP archives (including their gzip/bzip2/xz/zstd compressed variants).
//
// ExtractArchive is the primary entry point. It composes a pipeline of
// five collaborators (package decompress, the tar/zip format readers,
// validator.EntryValidator and materializer.Materializer, threaded
// through a policy.SecurityPolicy and a budget.Budget) that together
// reject path traversal, symlink/hardlink escape, zip bombs, and
// resource-exhaustion attempts before a single byte is written outside
// the destination directory.
package exarch

import "github.com/exarch-dev/exarch/errs"

// Kind classifies why an extraction failed. See errs.Kind.
type Kind = errs.Kind

// Error is the concrete error type returned by every exported function in
// this module. See errs.Error.
type Error = errs.Error

// The Kind values, re-exported from errs for callers that only import
// the root package.
const (
	KindPathTraversal                = errs.KindPathTraversal
	KindSymlinkEscape                = errs.KindSymlinkEscape
	KindHardlinkEscape                = errs.KindHardlinkEscape
	KindHardlinkTargetMissing        = errs.KindHardlinkTargetMissing
	KindSecurityViolation            = errs.KindSecurityViolation
	KindZipBomb                      = errs.KindZipBomb
	KindFileTooLarge                 = errs.KindFileTooLarge
	KindTotalSizeExceeded            = errs.KindTotalSizeExceeded
	KindFileCountExceeded            = errs.KindFileCountExceeded
	KindDisallowedExtension          = errs.KindDisallowedExtension
	KindInvalidPath                  = errs.KindInvalidPath
	KindUnsupportedEntryType         = errs.KindUnsupportedEntryType
	KindUnsupportedCompressionMethod = errs.KindUnsupportedCompressionMethod
	KindCorrupt                      = errs.KindCorrupt
	KindIoError                      = errs.KindIoError
	KindUnsupportedOperation         = errs.KindUnsupportedOperation
)

// Sentinel errors, one per Kind, comparable with errors.Is against any
// error returned from this module.
var (
	ErrPathTraversal                = errs.ErrPathTraversal
	ErrSymlinkEscape                = errs.ErrSymlinkEscape
	ErrHardlinkEscape               = errs.ErrHardlinkEscape
	ErrHardlinkTargetMissing        = errs.ErrHardlinkTargetMissing
	ErrSecurityViolation            = errs.ErrSecurityViolation
	ErrZipBomb                      = errs.ErrZipBomb
	ErrFileTooLarge                 = errs.ErrFileTooLarge
	ErrTotalSizeExceeded            = errs.ErrTotalSizeExceeded
	ErrFileCountExceeded            = errs.ErrFileCountExceeded
	ErrDisallowedExtension          = errs.ErrDisallowedExtension
	ErrInvalidPath                  = errs.ErrInvalidPath
	ErrUnsupportedEntryType         = errs.ErrUnsupportedEntryType
	ErrUnsupportedCompressionMethod = errs.ErrUnsupportedCompressionMethod
	ErrCorrupt                      = errs.ErrCorrupt
	ErrIoError                      = errs.ErrIoError
	ErrUnsupportedOperation         = errs.ErrUnsupportedOperation
)
