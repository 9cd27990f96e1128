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

// Package exarchlog provides the structured logging used across an
// extraction run. It is a thin wrapper over go.uber.org/zap: callers
// that don't configure a logger get zap.NewNop(), so the library is
// silent by default and only speaks when a caller opts in.
package exarchlog

import "go.uber.org/zap"

// Logger is the type the rest of this module depends on, so
// callers can substitute any *zap.Logger (including one assembled from
// their own production config) without this package caring how it was
// built.
type Logger struct {
	z *zap.Logger
}

// Nop returns a Logger that discards everything, used when no logger is
// supplied to ExtractArchive.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// New wraps an existing *zap.Logger.
func New(z *zap.Logger) *Logger {
	if z == nil {
		return Nop()
	}
	return &Logger{z: z}
}

// EntryAccepted logs, at debug level, that path was validated and
// materialized.
func (l *Logger) EntryAccepted(path, kind string) {
	l.z.Debug("entry accepted", zap.String("path", path), zap.String("kind", kind))
}

// EntryRejected logs, at warn level, that path was rejected and the
// extraction is about to abort.
func (l *Logger) EntryRejected(path string, err error) {
	l.z.Warn("entry rejected", zap.String("path", path), zap.Error(err))
}

// ExtractionStarted logs the archive and destination at the start of a
// run.
func (l *Logger) ExtractionStarted(archivePath, destinationPath string) {
	l.z.Info("extraction started", zap.String("archive", archivePath), zap.String("destination", destinationPath))
}

// ExtractionFinished logs summary counters at the end of a successful
// run.
func (l *Logger) ExtractionFinished(filesExtracted, bytesWritten int64) {
	l.z.Info("extraction finished", zap.Int64("files_extracted", filesExtracted), zap.Int64("bytes_written", bytesWritten))
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
