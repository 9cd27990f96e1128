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

func TestIsReservedWindowsName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"CON", true},
		{"con", true},
		{"PRN", true},
		{"AUX", true},
		{"NUL", true},
		{"COM1", true},
		{"COM9", true},
		{"LPT1", true},
		{"LPT9", true},
		{"CONIN$", true},
		{"CONOUT$", true},
		{"CONSOLE", false},
		{"COM", false},
		{"COM10", false}, // only COM1-9 are reserved by digit form
		{"normalfile.txt", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsReservedWindowsName(tc.in); got != tc.want {
			t.Errorf("IsReservedWindowsName(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
