/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package transfer implements the on-disk chunk store for a single package:
// writing numbered chunks, assembling them in order, verifying the result's
// SHA-1, and exposing the assembled artifact's path (PackagePath) for a
// package manager to install; this package runs no installer itself.
package transfer

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/multierr"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

var (
	ErrChunkDecode      = fmt.Errorf("transfer: chunk payload is not valid base64")
	ErrAssembleFailed   = fmt.Errorf("transfer: assembly failed")
	ErrChecksumMismatch = fmt.Errorf("transfer: checksum mismatch")
)

// Transfer is the mutable per-package staging object described in
// spec.md §3. At most one live Transfer exists for a given request id; the
// interpreter enforces that by keying its Transfer map on request id.
type Transfer struct {
	mu sync.Mutex

	fs      afero.Fs
	log     *zap.SugaredLogger
	pkg     datatype.PackageId
	checksum string
	prefixDir string

	transferredChunks []uint64
}

// New creates a fresh Transfer for pkg, rooted at prefixDir. No chunks have
// been received yet.
func New(fs afero.Fs, log *zap.SugaredLogger, pkg datatype.PackageId, expectedChecksum, prefixDir string) *Transfer {
	return &Transfer{
		fs:        fs,
		log:       log,
		pkg:       pkg,
		checksum:  strings.ToLower(expectedChecksum),
		prefixDir: prefixDir,
	}
}

// FromDisk reconstructs a Transfer by scanning the chunk directory. File
// names that fail to parse as a decimal index are skipped with a warning.
// A missing directory yields an empty Transfer, not an error.
func FromDisk(fs afero.Fs, log *zap.SugaredLogger, pkg datatype.PackageId, expectedChecksum, prefixDir string) (*Transfer, error) {
	t := New(fs, log, pkg, expectedChecksum, prefixDir)

	entries, err := afero.ReadDir(fs, t.chunkDir())
	if err != nil {
		if isNotExist(err) {
			return t, nil
		}
		return nil, datatype.NewError(datatype.ErrorKindIO, "reading chunk directory", err)
	}

	indices := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		idx, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			log.Warnf("transfer: skipping unparsable chunk file %q in %s", entry.Name(), t.chunkDir())
			continue
		}
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	t.transferredChunks = indices
	return t, nil
}

// TransferredChunks returns the sorted set of chunk indices received so far.
func (t *Transfer) TransferredChunks() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint64, len(t.transferredChunks))
	copy(out, t.transferredChunks)
	return out
}

func (t *Transfer) chunkDir() string {
	return filepath.Join(t.prefixDir, "downloads", t.pkg.String())
}

func (t *Transfer) packagePath() string {
	return filepath.Join(t.prefixDir, "packages", t.pkg.String()+".spkg")
}

// PackagePath returns the path AssemblePackage writes the artifact to,
// for handing off to a packagemanager.PackageManager.
func (t *Transfer) PackagePath() string {
	return t.packagePath()
}

// WriteChunk base64-decodes payload and writes it to
// downloads/{pkg}/{index}. Duplicate writes for the same index overwrite
// and are not an error.
func (t *Transfer) WriteChunk(payload string, index uint64) error {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChunkDecode, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.fs.MkdirAll(t.chunkDir(), 0o755); err != nil {
		return datatype.NewError(datatype.ErrorKindIO, "creating chunk directory", err)
	}

	path := filepath.Join(t.chunkDir(), strconv.FormatUint(index, 10))
	if err := afero.WriteFile(t.fs, path, data, 0o644); err != nil {
		return datatype.NewError(datatype.ErrorKindIO, "writing chunk", err)
	}

	if !containsUint64(t.transferredChunks, index) {
		t.transferredChunks = append(t.transferredChunks, index)
		sort.Slice(t.transferredChunks, func(i, j int) bool { return t.transferredChunks[i] < t.transferredChunks[j] })
	}
	return nil
}

// AssemblePackage concatenates chunk files in ascending index order into
// the package artifact, truncating any prior contents.
func (t *Transfer) AssemblePackage() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := afero.ReadDir(t.fs, t.chunkDir())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssembleFailed, err)
	}

	type chunkFile struct {
		index uint64
		name  string
	}
	chunks := make([]chunkFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		idx, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		chunks = append(chunks, chunkFile{index: idx, name: entry.Name()})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })

	if err := t.fs.MkdirAll(filepath.Dir(t.packagePath()), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrAssembleFailed, err)
	}

	out, err := t.fs.OpenFile(t.packagePath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssembleFailed, err)
	}
	defer out.Close()

	for _, c := range chunks {
		in, err := t.fs.Open(filepath.Join(t.chunkDir(), c.name))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAssembleFailed, err)
		}
		_, copyErr := io.Copy(out, in)
		in.Close()
		if copyErr != nil {
			return fmt.Errorf("%w: %v", ErrAssembleFailed, copyErr)
		}
	}
	return nil
}

// Checksum reads the assembled package and compares its lowercase-hex SHA-1
// against the expected checksum. Any I/O error yields false, matching
// spec.md §8's boundary behavior for an unreadable artifact.
func (t *Transfer) Checksum() bool {
	t.mu.Lock()
	path := t.packagePath()
	expected := t.checksum
	t.mu.Unlock()

	f, err := t.fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	actual := hex.EncodeToString(h.Sum(nil))
	return actual == strings.ToLower(strings.TrimSpace(expected))
}

// AssembleAndVerify is AssemblePackage followed by Checksum.
func (t *Transfer) AssembleAndVerify() bool {
	if err := t.AssemblePackage(); err != nil {
		t.log.Warnw("assemble failed", "package", t.pkg.String(), "error", err)
		return false
	}
	return t.Checksum()
}

// Destroy deletes every file under downloads/{pkg}/ then removes the
// directory. Best-effort and idempotent: individual failures are logged but
// do not abort other deletions.
func (t *Transfer) Destroy() error {
	t.mu.Lock()
	dir := t.chunkDir()
	t.mu.Unlock()

	var combined error
	entries, err := afero.ReadDir(t.fs, dir)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return datatype.NewError(datatype.ErrorKindIO, "listing chunk directory for destroy", err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := t.fs.Remove(path); err != nil {
			t.log.Warnw("failed to remove chunk file during destroy", "path", path, "error", err)
			combined = multierr.Append(combined, err)
		}
	}
	if err := t.fs.Remove(dir); err != nil && !isNotExist(err) {
		t.log.Warnw("failed to remove chunk directory during destroy", "dir", dir, "error", err)
		combined = multierr.Append(combined, err)
	}
	return combined
}

func containsUint64(xs []uint64, v uint64) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
