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

package policy

// Default returns the Builder seeded with conservative defaults (50 MiB
// per file, 500 MiB total, ratio 100, 10,000 entries, depth 64, length
// 4096, links and permission-preservation off).
func Default() *Builder {
	return NewBuilder()
}

// Permissive raises size/count limits roughly 10x and enables
// PreservePermissions, but leaves AllowSymlinks, AllowHardlinks, and every
// containment check (depth, length, traversal) at their strict defaults.
// Path traversal, symlink escape, and hardlink escape are always raised
// regardless of preset; a permissive preset tunes resource limits only.
func Permissive() *Builder {
	b := NewBuilder()
	b.p.MaxFileSize = 500 * 1024 * 1024
	b.p.MaxTotalSize = 5 * 1024 * 1024 * 1024
	b.p.MaxCompressionRatio = 1000.0
	b.p.MaxFileCount = 100_000
	b.p.PreservePermissions = true
	return b
}

// Strict shrinks the default limits (10 MiB per file, 100 MiB total,
// 1,000 entries) for callers extracting untrusted archives from
// low-trust sources.
func Strict() *Builder {
	b := NewBuilder()
	b.p.MaxFileSize = 10 * 1024 * 1024
	b.p.MaxTotalSize = 100 * 1024 * 1024
	b.p.MaxCompressionRatio = 50.0
	b.p.MaxFileCount = 1_000
	return b
}
