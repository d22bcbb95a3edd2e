// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// EncryptedPrefix marks a sealed value (format: ENC:base64(nonce|ciphertext|tag)).
const EncryptedPrefix = "ENC:"

// NonceSize is the size of the nonce for AES-GCM (12 bytes / 96 bits).
const NonceSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits).
const KeySize = 32

// SaltSize is the size of the salt for key derivation (32 bytes).
const SaltSize = 32

// PBKDF2Iterations is the iteration count for deriving the sealing key.
// The input is a random 256-bit master key, not a password, so a low count
// is enough.
const PBKDF2Iterations = 10000

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCiphertext indicates the sealed value is malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates the wrong key or tampered data.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
	// ErrKeyStoreFailed indicates the master key could not be loaded or created.
	ErrKeyStoreFailed = errors.New("key storage operation failed")
)

// =============================================================================
// KEY HELPERS
// =============================================================================

// ZeroBytes zeros sensitive byte slices.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateRandom returns n cryptographically secure random bytes.
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// DeriveKey derives a 256-bit key from secret and salt using PBKDF2-SHA-256.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, PBKDF2Iterations, KeySize, sha256.New)
}

// =============================================================================
// SEALER
// =============================================================================

// Sealer encrypts and decrypts short string values such as bearer tokens.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer loads the master key from ks, creating one on first use.
//
// The stored key material is salt|masterKey so both survive together.
func NewSealer(ks KeyStore) (*Sealer, error) {
	material, err := loadOrCreate(ks)
	if err != nil {
		return nil, err
	}
	// SECURITY: Zero key material to prevent memory disclosure
	defer ZeroBytes(material)

	key := DeriveKey(material[SaltSize:], material[:SaltSize])
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

func loadOrCreate(ks KeyStore) ([]byte, error) {
	if ks.Exists() {
		material, err := ks.Retrieve()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailed, err)
		}
		if len(material) != SaltSize+KeySize {
			return nil, fmt.Errorf("%w: key file has %d bytes, want %d", ErrKeyStoreFailed, len(material), SaltSize+KeySize)
		}
		return material, nil
	}

	material, err := GenerateRandom(SaltSize + KeySize)
	if err != nil {
		return nil, err
	}
	if err := ks.Store(material); err != nil {
		ZeroBytes(material)
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailed, err)
	}
	return material, nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// Seal encrypts plaintext. Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce, err := GenerateRandom(NonceSize)
	if err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Values without the prefix are returned
// unchanged so tokens stored before sealing was enabled keep working.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(raw) < NonceSize+s.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	plain, err := s.aead.Open(nil, raw[:NonceSize], raw[NonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}
