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

//go:build !windows

package materializer

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// walkDir opens the directory relDir (interpreted relative to root, using
// '/' separators) and returns its file descriptor. Every component is
// opened with O_NOFOLLOW so a symlink planted mid-extraction at any
// ancestor — by an earlier, already-accepted archive entry — can never
// be walked through; the open simply fails instead. When create is
// true, missing components are created (mode 0755) as the walk proceeds.
// The empty string refers to root itself.
func walkDir(root, relDir string, create bool) (int, error) {
	fd, err := unix.Open(root, unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_RDONLY, 0)
	if err != nil {
		return -1, err
	}
	if relDir == "" || relDir == "." {
		return fd, nil
	}
	for _, c := range strings.Split(relDir, "/") {
		if c == "" {
			continue
		}
		if create {
			if err := unix.Mkdirat(fd, c, 0o755); err != nil && err != unix.EEXIST {
				unix.Close(fd)
				return -1, err
			}
		}
		next, err := unix.Openat(fd, c, unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_RDONLY, 0)
		unix.Close(fd)
		if err != nil {
			return -1, err
		}
		fd = next
	}
	return fd, nil
}

func splitRel(relPath string) (dir, base string) {
	dir, base = path.Split(relPath)
	return strings.TrimSuffix(dir, "/"), base
}

// createFile opens relPath for writing, creating any missing ancestor
// directories, and refuses to follow a symlink planted at the leaf.
func createFile(root, relPath string, perm os.FileMode) (*os.File, error) {
	dir, base := splitRel(relPath)
	parentFD, err := walkDir(root, dir, true)
	if err != nil {
		return nil, err
	}
	defer unix.Close(parentFD)

	fd, err := unix.Openat(parentFD, base, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC|unix.O_NOFOLLOW, uint32(perm))
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), filepath.Join(root, filepath.FromSlash(relPath))), nil
}

// createDirectory creates relPath and every missing ancestor at 0755,
// then chmods the leaf to perm.
func createDirectory(root, relPath string, perm os.FileMode) error {
	fd, err := walkDir(root, relPath, true)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fchmod(fd, uint32(perm))
}

// createSymlink creates a symlink at relPath pointing at target (which
// is whatever string the archive declared; the validator has already
// confirmed it resolves inside root).
func createSymlink(root, relPath, target string) error {
	dir, base := splitRel(relPath)
	parentFD, err := walkDir(root, dir, true)
	if err != nil {
		return err
	}
	defer unix.Close(parentFD)
	return unix.Symlinkat(target, parentFD, base)
}

// createHardlink links relPath to the already-materialized file at
// relTarget. Both paths are walked independently with O_NOFOLLOW so
// neither side can be redirected through a race-planted symlink.
func createHardlink(root, relPath, relTarget string) error {
	dir, base := splitRel(relPath)
	parentFD, err := walkDir(root, dir, true)
	if err != nil {
		return err
	}
	defer unix.Close(parentFD)

	tDir, tBase := splitRel(relTarget)
	targetParentFD, err := walkDir(root, tDir, false)
	if err != nil {
		return err
	}
	defer unix.Close(targetParentFD)

	return unix.Linkat(targetParentFD, tBase, parentFD, base, 0)
}

// hardlinkTargetMissing reports whether err indicates the hardlink
// target (or one of its ancestor directories) does not exist, as
// opposed to some other I/O failure.
func hardlinkTargetMissing(err error) bool {
	return err == unix.ENOENT
}
