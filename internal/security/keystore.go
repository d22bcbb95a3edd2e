// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/incrime/incrime-tui/internal/util"
)

// =============================================================================
// KEYSTORE INTERFACE
// =============================================================================

// KeyStore defines the interface for master key storage.
type KeyStore interface {
	// Store saves the key material.
	Store(key []byte) error
	// Retrieve returns the stored key material.
	Retrieve() ([]byte, error)
	// Exists reports whether a key is stored.
	Exists() bool
}

// KeyFileName is the master key file name inside the data directory.
const KeyFileName = "master.key"

// =============================================================================
// FILE-BASED KEYSTORE
// =============================================================================

// FileKeyStore keeps the key in a file with restricted permissions (0600).
type FileKeyStore struct {
	path string
}

// NewFileKeyStore creates a file-based key store at path.
func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{path: path}
}

// NewFileKeyStoreInDir creates a key store at dir/master.key.
func NewFileKeyStoreInDir(dir string) *FileKeyStore {
	return NewFileKeyStore(filepath.Join(dir, KeyFileName))
}

// Store saves the key to a file with restricted permissions.
func (f *FileKeyStore) Store(key []byte) error {
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(f.path, key, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Retrieve reads the key from the file.
func (f *FileKeyStore) Retrieve() ([]byte, error) {
	key, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return key, nil
}

// Exists checks if the key file exists.
func (f *FileKeyStore) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}
