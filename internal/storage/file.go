// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/incrime/incrime-tui/internal/util"
)

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileKV stores each key as a file in BaseDir.
type FileKV struct {
	// BaseDir is the directory holding one file per key.
	// Default: ~/.incrime/
	BaseDir string
}

// NewFileKV creates a file-backed store, creating dir if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("storage directory not set")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileKV{BaseDir: dir}, nil
}

// Get reads the file for key.
func (f *FileKV) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put replaces the file for key.
// SECURITY: Values may hold bearer tokens, so files are owner-only.
func (f *FileKV) Put(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFileWithDir(f.filePath(key), value, 0600, 0700)
}

// Delete removes the file for key.
func (f *FileKV) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(f.filePath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op.
func (f *FileKV) Close() error { return nil }

func (f *FileKV) filePath(key string) string {
	return filepath.Join(f.BaseDir, key)
}
