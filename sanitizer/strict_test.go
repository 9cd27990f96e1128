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

import "testing"

func TestNormalizeStrict(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantOK  bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/./b", "a/b", true},
		{"a/b/../c", "a/c", true},
		{"a/b/", "a/b/", true},
		{"../escape", "", false},
		{"a/../../escape", "", false},
		{"./a/b", "a/b", true},
		{`a\b\c`, "a/b/c", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, ok := NormalizeStrict(tc.in)
		if ok != tc.wantOK {
			t.Errorf("NormalizeStrict(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("NormalizeStrict(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHasWindowsAbsolutePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{`C:\some\thing`, true},
		{"C:/some/thing", true},
		{"c:/some/thing", true},
		{`\\server\share`, true},
		{"//server/share", true},
		{"relative/path", false},
		{"no-colon-here", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := HasWindowsAbsolutePrefix(tc.in); got != tc.want {
			t.Errorf("HasWindowsAbsolutePrefix(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
