// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable persistence for incrime.
//
// Values are kept behind a small key-value interface with three backends:
// one file per key, a single SQLite database, or process memory. The chat
// history is stored under one key as a single serialized blob and always
// rewritten in full.
//
// # Key Types
//
//   - KV: Get/Put/Delete over byte values
//   - Transcript, Message: the persisted conversation model
//   - TranscriptStore: loads and replaces the full transcript collection
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendFile, dataDir)
//	store := storage.NewTranscriptStore(kv, "crime_chats", logger)
//	transcripts := store.Load()
package storage
