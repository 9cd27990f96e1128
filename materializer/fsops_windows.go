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

//go:build windows

package materializer

import (
	"os"
	"path/filepath"
)

// Windows has no openat/O_NOFOLLOW family of primitives, so this side
// falls back to plain path-based calls. The validator's lexical
// containment check still applies before any of these run; what's lost
// on this platform is protection against a symlink race planted between
// validation and materialization.

func createFile(root, relPath string, perm os.FileMode) (*os.File, error) {
	full := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
}

func createDirectory(root, relPath string, perm os.FileMode) error {
	full := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(full, 0o755); err != nil {
		return err
	}
	return os.Chmod(full, perm)
}

func createSymlink(root, relPath, target string) error {
	full := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.Symlink(filepath.FromSlash(target), full)
}

func createHardlink(root, relPath, relTarget string) error {
	full := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	targetFull := filepath.Join(root, filepath.FromSlash(relTarget))
	return os.Link(targetFull, full)
}

func hardlinkTargetMissing(err error) bool {
	return os.IsNotExist(err)
}
