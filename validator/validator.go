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

// Package validator implements EntryValidator, the security heart of the
// pipeline: it turns an untrusted entry.Entry into an entry.ValidatedEntry
// whose ResolvedPath (and, for links, ResolvedLinkTarget) are guaranteed
// to lie lexically inside the extraction root, or it rejects the entry
// with a specific, typed error. No filesystem access occurs here — every
// check in this package is a pure function of its inputs, so the same
// entry always validates the same way regardless of what else has been
// extracted so far or what the filesystem currently looks like.
package validator

import (
	"path"
	"strings"

	errs "github.com/exarch-dev/exarch/errs"
	"github.com/exarch-dev/exarch/entry"
	"github.com/exarch-dev/exarch/policy"
	"github.com/exarch-dev/exarch/sanitizer"
)

// EntryValidator applies a policy.SecurityPolicy to each entry.Entry
// produced by a format reader.
type EntryValidator struct {
	Policy *policy.SecurityPolicy
	// Root is the absolute, canonicalized extraction root (the jail
	// boundary). It is captured once by the caller via filepath.Abs plus
	// symlink resolution and never re-derived mid-run.
	Root string
}

// New returns an EntryValidator bound to p and root.
func New(p *policy.SecurityPolicy, root string) *EntryValidator {
	return &EntryValidator{Policy: p, Root: root}
}

// Validate runs the full path-validation algorithm against e and, for
// Symlink/Hardlink kinds, the link-target algorithm that follows it. On
// success it returns an entry.ValidatedEntry whose
// ResolvedPath (and ResolvedLinkTarget, for links) are guaranteed
// lexically inside v.Root. No filesystem access occurs.
func (v *EntryValidator) Validate(e entry.Entry) (entry.ValidatedEntry, error) {
	resolvedRel, err := v.validatePath(e.Path)
	if err != nil {
		return entry.ValidatedEntry{}, err
	}

	ve := entry.ValidatedEntry{
		Entry:        e,
		ResolvedPath: joinRoot(v.Root, resolvedRel),
	}

	if e.Kind == entry.Symlink || e.Kind == entry.Hardlink {
		if e.Kind == entry.Symlink && !v.Policy.AllowSymlinks {
			return entry.ValidatedEntry{}, newSecErr(e.Path, "symlink")
		}
		if e.Kind == entry.Hardlink && !v.Policy.AllowHardlinks {
			return entry.ValidatedEntry{}, newSecErr(e.Path, "hardlink")
		}

		resolvedTarget, err := v.validateLinkTarget(resolvedRel, e.LinkTarget, e.Kind)
		if err != nil {
			return entry.ValidatedEntry{}, err
		}
		ve.ResolvedLinkTarget = joinRoot(v.Root, resolvedTarget)
	}

	return ve, nil
}

// validatePath checks a declared path for null bytes, absolute prefixes,
// reserved device names, and (after lexical normalization) excessive
// depth, length, or a disallowed extension. It returns the path's
// normalized, root-relative form using '/' separators.
func (v *EntryValidator) validatePath(p string) (string, error) {
	if strings.IndexByte(p, 0) >= 0 {
		return "", newErr(errs.KindInvalidPath, p, "path contains a null byte")
	}

	if strings.HasPrefix(p, "/") || sanitizer.HasWindowsAbsolutePrefix(p) {
		return "", newErr(errs.KindPathTraversal, p, "absolute paths are not permitted")
	}

	for _, component := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		if isReservedComponent(component) {
			return "", newErr(errs.KindInvalidPath, p, "path contains a reserved device name: "+component)
		}
	}

	if v.Policy.RejectWindowsShortNames && sanitizer.HasWindowsShortFilenames(p) {
		return "", newErr(errs.KindInvalidPath, p, "path contains a Windows short filename component")
	}

	normalized, ok := sanitizer.NormalizeStrict(p)
	if !ok {
		return "", newErr(errs.KindPathTraversal, p, "\"..\" component escapes the destination")
	}
	normalized = strings.TrimSuffix(normalized, "/")

	depth := 0
	if normalized != "" {
		depth = strings.Count(normalized, "/") + 1
	}
	if depth > v.Policy.MaxPathDepth {
		return "", newErr(errs.KindPathTraversal, p, "path exceeds maximum depth")
	}
	if len(normalized) > v.Policy.MaxPathLength {
		return "", newErr(errs.KindPathTraversal, p, "path exceeds maximum length")
	}

	if v.Policy.HasAllowedExtensions() {
		ext := path.Ext(normalized)
		if !v.Policy.ExtensionAllowed(ext) {
			return "", newErr(errs.KindDisallowedExtension, p, "extension "+ext+" is not allow-listed")
		}
	}

	return normalized, nil
}

// validateLinkTarget checks a link target for null bytes, absolute
// prefixes, and (after resolving it relative to the link's own parent
// directory, entryRel) lexical escape past the destination root or
// excessive depth/length. It returns the target's root-relative resolved
// form. kind selects whether escape is reported as SymlinkEscape or
// HardlinkEscape.
func (v *EntryValidator) validateLinkTarget(entryRel, target string, kind entry.Kind) (string, error) {
	escapeKind := errs.KindSymlinkEscape
	if kind == entry.Hardlink {
		escapeKind = errs.KindHardlinkEscape
	}

	if strings.IndexByte(target, 0) >= 0 {
		return "", newErr(errs.KindInvalidPath, target, "link target contains a null byte")
	}
	if strings.HasPrefix(target, "/") || sanitizer.HasWindowsAbsolutePrefix(target) {
		return "", newErr(escapeKind, target, "link target is absolute")
	}

	parent := path.Dir(strings.ReplaceAll(entryRel, `\`, "/"))
	if parent == "." {
		parent = ""
	}
	joined := target
	if parent != "" {
		joined = parent + "/" + target
	}

	normalized, ok := sanitizer.NormalizeStrict(joined)
	if !ok {
		return "", newErr(escapeKind, target, "link target escapes the destination")
	}

	depth := 0
	if normalized != "" {
		depth = strings.Count(normalized, "/") + 1
	}
	if depth > v.Policy.MaxPathDepth || len(normalized) > v.Policy.MaxPathLength {
		return "", newErr(escapeKind, target, "resolved link target exceeds policy limits")
	}

	return normalized, nil
}

// isReservedComponent reports whether a single path component (which may
// still carry an extension) is a reserved Windows device name. Unlike
// sanitizer.IsReservedWindowsName, it strips the extension first, since
// a reserved name is reserved whether or not something is appended to
// it (e.g. "con.txt" still addresses the console device on Windows).
func isReservedComponent(component string) bool {
	if component == "" {
		return false
	}
	base, _, _ := strings.Cut(component, ".")
	return sanitizer.IsReservedWindowsName(base)
}

func joinRoot(root, rel string) string {
	if rel == "" {
		return root
	}
	return root + "/" + rel
}

func newErr(kind errs.Kind, path, msg string) *errs.Error {
	return &errs.Error{Kind: kind, Path: path, Msg: msg}
}

func newSecErr(path, what string) *errs.Error {
	return &errs.Error{Kind: errs.KindSecurityViolation, Path: path, Msg: what + " entries are disallowed by policy"}
}
