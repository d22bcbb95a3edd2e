// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security protects the bearer token at rest.
//
// A random per-install master key lives in a 0600 key file. The sealing key
// is derived from it with PBKDF2-SHA-256 and values are encrypted with
// AES-256-GCM. Sealed values carry the "ENC:" prefix so plain tokens written
// before sealing was enabled still read back.
package security
