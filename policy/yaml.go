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
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlDoc mirrors SecurityPolicy field-for-field so a SecurityPolicy can
// be round-tripped to/from a config file. Fields are pointers so an
// omitted key leaves the corresponding Default() value untouched rather
// than silently zeroing it.
type yamlDoc struct {
	MaxFileSize             *int64   `yaml:"max_file_size"`
	MaxTotalSize            *int64   `yaml:"max_total_size"`
	MaxCompressionRatio     *float64 `yaml:"max_compression_ratio"`
	MaxFileCount            *int64   `yaml:"max_file_count"`
	MaxPathLength           *int     `yaml:"max_path_length"`
	MaxPathDepth            *int     `yaml:"max_path_depth"`
	AllowSymlinks           *bool    `yaml:"allow_symlinks"`
	AllowHardlinks          *bool    `yaml:"allow_hardlinks"`
	PreservePermissions     *bool    `yaml:"preserve_permissions"`
	AllowedExtensions       []string `yaml:"allowed_extensions"`
	RejectWindowsShortNames *bool    `yaml:"reject_windows_short_names"`
}

// LoadYAML decodes a SecurityPolicy document from r and returns it as an
// Option, layered on top of Default() for any field the document omits.
// This is a convenience for callers who keep extraction limits in a
// config file; it does not itself read any file or consult an env var —
// the caller supplies r.
func LoadYAML(r io.Reader) (Option, error) {
	var doc yamlDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("policy: decoding yaml: %w", err)
	}
	return func(b *Builder) {
		if doc.MaxFileSize != nil {
			b.MaxFileSize(*doc.MaxFileSize)
		}
		if doc.MaxTotalSize != nil {
			b.MaxTotalSize(*doc.MaxTotalSize)
		}
		if doc.MaxCompressionRatio != nil {
			b.MaxCompressionRatio(*doc.MaxCompressionRatio)
		}
		if doc.MaxFileCount != nil {
			b.MaxFileCount(*doc.MaxFileCount)
		}
		if doc.MaxPathLength != nil {
			b.MaxPathLength(*doc.MaxPathLength)
		}
		if doc.MaxPathDepth != nil {
			b.MaxPathDepth(*doc.MaxPathDepth)
		}
		if doc.AllowSymlinks != nil {
			b.AllowSymlinks(*doc.AllowSymlinks)
		}
		if doc.AllowHardlinks != nil {
			b.AllowHardlinks(*doc.AllowHardlinks)
		}
		if doc.PreservePermissions != nil {
			b.PreservePermissions(*doc.PreservePermissions)
		}
		if doc.RejectWindowsShortNames != nil {
			b.RejectWindowsShortNames(*doc.RejectWindowsShortNames)
		}
		if len(doc.AllowedExtensions) > 0 {
			b.AllowedExtensions(doc.AllowedExtensions...)
		}
	}, nil
}
