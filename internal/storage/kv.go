// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// KEY-VALUE INTERFACE
// =============================================================================

// KV is a durable key-value store. Put replaces any prior value in full.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores value under key.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases resources held by the backend.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrNotFound is returned by KV.Get when the key has no value.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = errors.New("key not found")

// Open returns the backend named by name rooted at dir.
func Open(name, dir string) (KV, error) {
	switch strings.ToLower(name) {
	case BackendFile, "":
		return NewFileKV(dir)
	case BackendSQLite:
		return NewSQLiteKV(dir)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
}

// validateKey rejects keys that cannot be stored safely by every backend.
func validateKey(key string) error {
	if key == "" {
		return errors.New("empty key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
