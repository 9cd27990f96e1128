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

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	p, err := Default().Build()
	require.NoError(t, err)
	assert.Equal(t, int64(50*1024*1024), p.MaxFileSize)
	assert.Equal(t, int64(500*1024*1024), p.MaxTotalSize)
	assert.Equal(t, 100.0, p.MaxCompressionRatio)
	assert.Equal(t, int64(10_000), p.MaxFileCount)
	assert.Equal(t, 4096, p.MaxPathLength)
	assert.Equal(t, 64, p.MaxPathDepth)
	assert.False(t, p.AllowSymlinks)
	assert.False(t, p.AllowHardlinks)
	assert.False(t, p.PreservePermissions)
	assert.False(t, p.HasAllowedExtensions())
}

func TestPermissiveKeepsContainmentStrict(t *testing.T) {
	p, err := Permissive().Build()
	require.NoError(t, err)
	assert.Greater(t, p.MaxFileSize, int64(50*1024*1024))
	assert.True(t, p.PreservePermissions)
	assert.False(t, p.AllowSymlinks, "permissive must not enable symlinks")
	assert.False(t, p.AllowHardlinks, "permissive must not enable hardlinks")
}

func TestStrictShrinksLimits(t *testing.T) {
	p, err := Strict().Build()
	require.NoError(t, err)
	assert.Less(t, p.MaxFileSize, int64(50*1024*1024))
	assert.Less(t, p.MaxFileCount, int64(10_000))
}

func TestBuilderRejectsNegativeSizes(t *testing.T) {
	_, err := NewBuilder().MaxFileSize(-1).Build()
	assert.Error(t, err)
}

func TestBuilderRejectsNonFiniteRatio(t *testing.T) {
	for _, bad := range []float64{0, -10, math.Inf(1)} {
		_, err := NewBuilder().MaxCompressionRatio(bad).Build()
		assert.Error(t, err, "ratio %v should be rejected", bad)
	}
}

func TestAllowedExtensionsRejectsNullByte(t *testing.T) {
	_, err := NewBuilder().AllowedExtensions(".txt\x00").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null byte")
}

func TestAllowedExtensionsRejectsOverlong(t *testing.T) {
	_, err := NewBuilder().AllowedExtensions(strings.Repeat("x", 300)).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum length")
}

func TestExtensionAllowedEmptyListUnrestricted(t *testing.T) {
	p, err := Default().Build()
	require.NoError(t, err)
	assert.True(t, p.ExtensionAllowed(".anything"))
}

func TestExtensionAllowedCaseInsensitive(t *testing.T) {
	p, err := NewBuilder().AllowedExtensions(".TXT").Build()
	require.NoError(t, err)
	assert.True(t, p.ExtensionAllowed(".txt"))
	assert.False(t, p.ExtensionAllowed(".png"))
}

func TestLoadYAMLOverridesOnlyGivenFields(t *testing.T) {
	doc := strings.NewReader("max_file_size: 123\nallow_symlinks: true\n")
	opt, err := LoadYAML(doc)
	require.NoError(t, err)

	p, err := NewBuilder().Apply(opt).Build()
	require.NoError(t, err)
	assert.Equal(t, int64(123), p.MaxFileSize)
	assert.True(t, p.AllowSymlinks)
	assert.Equal(t, int64(500*1024*1024), p.MaxTotalSize, "unset fields keep builder defaults")
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	doc := strings.NewReader("not_a_real_field: 1\n")
	_, err := LoadYAML(doc)
	assert.Error(t, err)
}
