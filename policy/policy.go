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

// Package policy implements SecurityPolicy: the frozen, immutable-after-
// construction configuration threaded through one extraction.
//
// A SecurityPolicy is built with a fluent Builder (each setter validates
// eagerly and returns the Builder for chaining), or via the functional-
// options alternative (Option) that ExtractArchive accepts directly. Either way,
// construction never relaxes the containment checks in the validator
// package: MaxFileSize and friends tune resources, never jail escape.
package policy

import (
	"fmt"
	"math"
	"strings"
)

// SecurityPolicy is the frozen configuration for one extraction. Build a
// value with NewBuilder or one of the preset constructors; the zero value
// is not meaningful.
type SecurityPolicy struct {
	MaxFileSize             int64
	MaxTotalSize            int64
	MaxCompressionRatio     float64
	MaxFileCount            int64
	MaxPathLength           int
	MaxPathDepth            int
	AllowSymlinks           bool
	AllowHardlinks          bool
	PreservePermissions     bool
	AllowedExtensions       map[string]struct{}
	RejectWindowsShortNames bool
}

// HasAllowedExtensions reports whether the allow-list is non-empty. An
// empty allow-list means every extension is permitted.
func (p *SecurityPolicy) HasAllowedExtensions() bool {
	return len(p.AllowedExtensions) > 0
}

// ExtensionAllowed reports whether ext (including its leading dot, e.g.
// ".txt") is permitted. Always true when the allow-list is empty.
func (p *SecurityPolicy) ExtensionAllowed(ext string) bool {
	if !p.HasAllowedExtensions() {
		return true
	}
	_, ok := p.AllowedExtensions[strings.ToLower(ext)]
	return ok
}

// Builder accumulates SecurityPolicy fields and the first validation
// error encountered. Each With* method is chainable; Build reports the
// first error seen by any setter, or validates the finished policy.
type Builder struct {
	p   SecurityPolicy
	err error
}

// NewBuilder returns a Builder seeded with conservative defaults.
func NewBuilder() *Builder {
	return &Builder{p: defaults()}
}

func defaults() SecurityPolicy {
	return SecurityPolicy{
		MaxFileSize:         50 * 1024 * 1024,
		MaxTotalSize:        500 * 1024 * 1024,
		MaxCompressionRatio: 100.0,
		MaxFileCount:        10_000,
		MaxPathLength:       4096,
		MaxPathDepth:        64,
		AllowSymlinks:       false,
		AllowHardlinks:      false,
		PreservePermissions: false,
		AllowedExtensions:   nil,
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// MaxFileSize sets the per-entry uncompressed byte limit. Must be >= 0.
func (b *Builder) MaxFileSize(n int64) *Builder {
	if n < 0 {
		return b.fail(fmt.Errorf("policy: max_file_size must be >= 0, got %d", n))
	}
	b.p.MaxFileSize = n
	return b
}

// MaxTotalSize sets the whole-archive uncompressed byte limit. Must be >= 0.
func (b *Builder) MaxTotalSize(n int64) *Builder {
	if n < 0 {
		return b.fail(fmt.Errorf("policy: max_total_size must be >= 0, got %d", n))
	}
	b.p.MaxTotalSize = n
	return b
}

// MaxCompressionRatio sets the per-entry uncompressed÷compressed limit.
// Must be finite and > 0.
func (b *Builder) MaxCompressionRatio(r float64) *Builder {
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return b.fail(fmt.Errorf("policy: max_compression_ratio must be finite, got %v", r))
	}
	if r <= 0 {
		return b.fail(fmt.Errorf("policy: max_compression_ratio must be > 0, got %v", r))
	}
	b.p.MaxCompressionRatio = r
	return b
}

// MaxFileCount sets the accepted-entry count limit. Must be >= 0.
func (b *Builder) MaxFileCount(n int64) *Builder {
	if n < 0 {
		return b.fail(fmt.Errorf("policy: max_file_count must be >= 0, got %d", n))
	}
	b.p.MaxFileCount = n
	return b
}

// MaxPathLength sets the maximum destination path length in characters.
// Must be >= 0.
func (b *Builder) MaxPathLength(n int) *Builder {
	if n < 0 {
		return b.fail(fmt.Errorf("policy: max_path_length must be >= 0, got %d", n))
	}
	b.p.MaxPathLength = n
	return b
}

// MaxPathDepth sets the maximum path component count. Must be >= 0.
func (b *Builder) MaxPathDepth(n int) *Builder {
	if n < 0 {
		return b.fail(fmt.Errorf("policy: max_path_depth must be >= 0, got %d", n))
	}
	b.p.MaxPathDepth = n
	return b
}

// AllowSymlinks toggles whether symbolic links are materialized at all.
func (b *Builder) AllowSymlinks(v bool) *Builder {
	b.p.AllowSymlinks = v
	return b
}

// AllowHardlinks toggles whether hard links are materialized at all.
func (b *Builder) AllowHardlinks(v bool) *Builder {
	b.p.AllowHardlinks = v
	return b
}

// PreservePermissions toggles whether archived POSIX mode bits are
// applied to materialized files and directories.
func (b *Builder) PreservePermissions(v bool) *Builder {
	b.p.PreservePermissions = v
	return b
}

// RejectWindowsShortNames toggles rejection of path components that look
// like Windows 8.3 short filenames (e.g. "GIT~1"), via
// sanitizer.HasWindowsShortFilenames. Off by default, as an explicit
// opt-in rather than an always-on check.
func (b *Builder) RejectWindowsShortNames(v bool) *Builder {
	b.p.RejectWindowsShortNames = v
	return b
}

// AllowedExtensions sets the extension allow-list. Each entry must
// contain no null bytes; entries are lower-cased and must include the
// leading dot (e.g. ".txt"). An empty list means unrestricted.
func (b *Builder) AllowedExtensions(exts ...string) *Builder {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if strings.ContainsRune(e, 0) {
			return b.fail(fmt.Errorf("policy: allowed extension contains a null byte"))
		}
		if len(e) > 255 {
			return b.fail(fmt.Errorf("policy: allowed extension exceeds maximum length"))
		}
		set[strings.ToLower(e)] = struct{}{}
	}
	b.p.AllowedExtensions = set
	return b
}

// Build validates the accumulated policy and returns it. Any setter error
// is returned first; otherwise the finished policy is checked as a whole
// (e.g. MaxCompressionRatio is re-checked in case a preset bypassed the
// setter).
func (b *Builder) Build() (*SecurityPolicy, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := validate(&b.p); err != nil {
		return nil, err
	}
	p := b.p
	if p.AllowedExtensions != nil {
		cp := make(map[string]struct{}, len(p.AllowedExtensions))
		for k := range p.AllowedExtensions {
			cp[k] = struct{}{}
		}
		p.AllowedExtensions = cp
	}
	return &p, nil
}

func validate(p *SecurityPolicy) error {
	if math.IsInf(p.MaxCompressionRatio, 0) || math.IsNaN(p.MaxCompressionRatio) || p.MaxCompressionRatio <= 0 {
		return fmt.Errorf("policy: max_compression_ratio must be finite and > 0, got %v", p.MaxCompressionRatio)
	}
	if p.MaxFileSize < 0 || p.MaxTotalSize < 0 || p.MaxFileCount < 0 || p.MaxPathLength < 0 || p.MaxPathDepth < 0 {
		return fmt.Errorf("policy: numeric limits must be >= 0")
	}
	return nil
}

// Option mutates a Builder in flight; ExtractArchive accepts a slice of
// these as its functional-options surface over the fluent Builder.
type Option func(*Builder)

// Apply runs every opt against b, in order, and returns b for chaining.
func (b *Builder) Apply(opts ...Option) *Builder {
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithMaxFileSize returns an Option setting MaxFileSize.
func WithMaxFileSize(n int64) Option { return func(b *Builder) { b.MaxFileSize(n) } }

// WithMaxTotalSize returns an Option setting MaxTotalSize.
func WithMaxTotalSize(n int64) Option { return func(b *Builder) { b.MaxTotalSize(n) } }

// WithMaxCompressionRatio returns an Option setting MaxCompressionRatio.
func WithMaxCompressionRatio(r float64) Option { return func(b *Builder) { b.MaxCompressionRatio(r) } }

// WithMaxFileCount returns an Option setting MaxFileCount.
func WithMaxFileCount(n int64) Option { return func(b *Builder) { b.MaxFileCount(n) } }

// WithAllowSymlinks returns an Option setting AllowSymlinks.
func WithAllowSymlinks(v bool) Option { return func(b *Builder) { b.AllowSymlinks(v) } }

// WithAllowHardlinks returns an Option setting AllowHardlinks.
func WithAllowHardlinks(v bool) Option { return func(b *Builder) { b.AllowHardlinks(v) } }

// WithPreservePermissions returns an Option setting PreservePermissions.
func WithPreservePermissions(v bool) Option { return func(b *Builder) { b.PreservePermissions(v) } }

// WithAllowedExtensions returns an Option setting AllowedExtensions.
func WithAllowedExtensions(exts ...string) Option {
	return func(b *Builder) { b.AllowedExtensions(exts...) }
}

// WithPolicy returns an Option that replaces the builder's accumulated
// state outright with a pre-built policy (e.g. one loaded via LoadYAML).
func WithPolicy(p *SecurityPolicy) Option {
	return func(b *Builder) { b.p = *p }
}
