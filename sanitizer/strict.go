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

package sanitizer

import "strings"

var strictSepReplacer = strings.NewReplacer(`\`, `/`)

// NormalizeStrict decomposes a path into a component stack, popping one
// level for each ".." component the way path/filepath.Clean does, but
// reports failure instead of silently re-rooting when a ".." component
// would pop past the start of the path. A validator rejecting an entry
// outright as path traversal needs to know the stack underflowed, not
// just get back some other confined path, so this walks the same
// algorithm a lossy path-confinement helper would but surfaces the
// underflow instead of swallowing it.
//
// The returned string uses '/' separators regardless of platform, has no
// leading '/', and preserves a trailing '/' from the input. ok is false
// when any ".." component underflows; the returned string is meaningless
// in that case and must be discarded.
func NormalizeStrict(in string) (out string, ok bool) {
	normalized := strictSepReplacer.Replace(in)
	trailingSlash := len(normalized) > 0 && normalized[len(normalized)-1] == '/'

	parts := strings.Split(normalized, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, part)
		}
	}

	out = strings.Join(stack, "/")
	if trailingSlash && out != "" {
		out += "/"
	}
	return out, true
}

// HasWindowsAbsolutePrefix reports whether p looks like a Windows
// absolute path: a drive letter ("C:\" or "C:/") or a UNC/device prefix
// ("\\server\share" or "//server/share"). Declared archive paths are
// checked against this on every platform, not only when GOOS=="windows":
// the archive itself may target a Windows destination regardless of
// which OS is running the extractor.
func HasWindowsAbsolutePrefix(p string) bool {
	if len(p) >= 2 && p[1] == ':' {
		c := p[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	if len(p) >= 2 && (p[0] == '\\' || p[0] == '/') && (p[1] == '\\' || p[1] == '/') {
		return true
	}
	return false
}
