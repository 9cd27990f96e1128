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

// Superscript digits used by some Windows releases as an alternate
// spelling of COM1-3/LPT1-3.
const (
	superscriptOne   = "¹"
	superscriptTwo   = "²"
	superscriptThree = "³"
)

// IsReservedWindowsName reports whether name is a Windows reserved device
// name or console handle (CON, PRN, AUX, NUL, COM1-9, LPT1-9, and the
// CONIN$/CONOUT$ console aliases). It does not detect names with an
// extension, which are also reserved on some Windows versions.
//
// IsReservedWindowsName runs on every platform rather than being gated
// to GOOS == "windows": an archive extracted on Linux today may be
// rsynced onto a Windows share tomorrow, and the check itself is pure
// and free, so the validator always runs it.
//
// For details, search for PRN in
// https://docs.microsoft.com/en-us/windows/desktop/fileio/naming-a-file.
// Ported from https://github.com/golang/go/blob/master/src/path/filepath/path_windows.go.
func IsReservedWindowsName(name string) bool {
	nameLen := len(name)
	if nameLen < 3 {
		return false
	}

	reservedNameLen := 0
	prefix := strings.ToUpper(name[0:3])
	switch prefix {
	case "CON":
		reservedNameLen = 3

		// Passing CONIN$ or CONOUT$ to CreateFile opens a console handle.
		// While CONIN$ and CONOUT$ aren't documented as being files, they
		// behave the same as CON.
		if nameLen >= 6 && name[5] == '$' && strings.EqualFold(name[3:6], "IN$") {
			reservedNameLen += 3
		}
		if nameLen >= 7 && name[6] == '$' && strings.EqualFold(name[3:7], "OUT$") {
			reservedNameLen += 4
		}

	case "PRN", "AUX", "NUL":
		reservedNameLen = 3
	case "COM", "LPT":
		// these two reserved names must be followed by a digit or a superscript
		if nameLen >= 4 {
			switch name[3] {
			case '1', '2', '3', '4', '5', '6', '7', '8', '9':
				reservedNameLen = 4
			case superscriptOne[0]: // unicode
				if nameLen >= 5 {
					switch name[4] {
					case superscriptOne[1], superscriptTwo[1], superscriptThree[1]:
						reservedNameLen = 5
					}
				}
			}
		}
	}

	// All the reserved names may be followed by optional whitespace.
	if reservedNameLen != 0 && strings.TrimSpace(name[reservedNameLen:]) == "" {
		return true
	}

	return false
}
