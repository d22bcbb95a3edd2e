// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/incrime/incrime-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT TYPES
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a transcript.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	// Time is a display-formatted local time ("03:04 PM"), empty when the
	// reply could not be generated.
	Time string `json:"time"`
}

// Transcript is a persisted conversation.
type Transcript struct {
	// ID is minted from a millisecond timestamp and unique within the store.
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// CreatedAt recovers the creation time encoded in the ID.
// Returns the zero time for IDs that are not timestamps.
func (t Transcript) CreatedAt() time.Time {
	ms, err := strconv.ParseInt(t.ID, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Preview returns the latest non-empty message on one line, cut to
// maxWidth display columns.
func (t Transcript) Preview(maxWidth int) string {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if text := strings.TrimSpace(t.Messages[i].Text); text != "" {
			return util.TruncateWidth(util.SingleLine(text), maxWidth)
		}
	}
	return ""
}

// Clone returns a deep copy so callers cannot mutate stored entries.
func (t Transcript) Clone() Transcript {
	c := t
	c.Messages = append([]Message(nil), t.Messages...)
	return c
}

// =============================================================================
// SERIALIZED FORM
// =============================================================================

// SchemaVersion is the current serialized collection version.
const SchemaVersion = 1

type envelope struct {
	Version     int          `json:"version"`
	Transcripts []Transcript `json:"transcripts"`
}

// legacyTranscript is the unversioned form written by the browser client:
// a bare array with numeric ids and "bot" as the assistant role.
type legacyTranscript struct {
	ID       json.Number `json:"id"`
	Title    string      `json:"title"`
	Messages []struct {
		Role string `json:"role"`
		Text string `json:"text"`
		Time string `json:"time"`
	} `json:"messages"`
}

// Encode serializes transcripts in the current versioned form.
// Encoding is deterministic so Encode(Decode(b)) == b for values it wrote.
// A legacy array is rewritten into this form the first time it is saved.
func Encode(transcripts []Transcript) ([]byte, error) {
	env := envelope{Version: SchemaVersion, Transcripts: normalize(transcripts)}
	return json.Marshal(env)
}

// Decode parses either the versioned or the legacy serialized form.
func Decode(data []byte) ([]Transcript, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Transcript{}, nil
	}

	if trimmed[0] == '[' {
		return decodeLegacy(trimmed)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("failed to decode transcripts: %w", err)
	}
	if env.Version > SchemaVersion {
		return nil, fmt.Errorf("unsupported transcript schema version %d", env.Version)
	}
	for _, t := range env.Transcripts {
		if t.ID == "" {
			return nil, errors.New("transcript with empty id")
		}
	}
	return normalize(env.Transcripts), nil
}

func decodeLegacy(data []byte) ([]Transcript, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var legacy []legacyTranscript
	if err := dec.Decode(&legacy); err != nil {
		return nil, fmt.Errorf("failed to decode legacy transcripts: %w", err)
	}

	out := make([]Transcript, 0, len(legacy))
	for _, lt := range legacy {
		if lt.ID.String() == "" {
			return nil, errors.New("transcript with empty id")
		}
		t := Transcript{ID: lt.ID.String(), Title: lt.Title, Messages: []Message{}}
		for _, m := range lt.Messages {
			role := RoleAssistant
			if m.Role == string(RoleUser) {
				role = RoleUser
			}
			t.Messages = append(t.Messages, Message{Role: role, Text: m.Text, Time: m.Time})
		}
		out = append(out, t)
	}
	return out, nil
}

// normalize replaces nil slices so empty collections encode as [].
func normalize(transcripts []Transcript) []Transcript {
	out := make([]Transcript, len(transcripts))
	for i, t := range transcripts {
		if t.Messages == nil {
			t.Messages = []Message{}
		}
		out[i] = t
	}
	return out
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore persists the ordered transcript collection under one key.
type TranscriptStore struct {
	kv     KV
	key    string
	logger zerolog.Logger
}

// NewTranscriptStore creates a store over kv using key for the collection.
func NewTranscriptStore(kv KV, key string, logger zerolog.Logger) *TranscriptStore {
	return &TranscriptStore{kv: kv, key: key, logger: logger}
}

// Key returns the storage key of the collection.
func (s *TranscriptStore) Key() string { return s.key }

// Load reads the collection. A missing or unreadable value yields an empty
// collection; Load never fails.
func (s *TranscriptStore) Load() []Transcript {
	data, err := s.kv.Get(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", s.key).Msg("transcript read failed, starting empty")
		}
		return []Transcript{}
	}

	transcripts, err := Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Int("bytes", len(data)).
			Msg("transcript decode failed, starting empty")
		return []Transcript{}
	}
	s.logger.Debug().Str("key", s.key).Int("transcripts", len(transcripts)).Msg("transcripts loaded")
	return transcripts
}

// ReplaceAll serializes the full collection and overwrites the stored value.
func (s *TranscriptStore) ReplaceAll(transcripts []Transcript) error {
	data, err := Encode(transcripts)
	if err != nil {
		return fmt.Errorf("failed to encode transcripts: %w", err)
	}
	if err := s.kv.Put(s.key, data); err != nil {
		return fmt.Errorf("failed to write transcripts: %w", err)
	}
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search returns transcripts whose title or any message contains query
// (case-insensitive). An empty query returns everything.
func Search(transcripts []Transcript, query string) []Transcript {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return transcripts
	}

	var results []Transcript
	for _, t := range transcripts {
		if strings.Contains(strings.ToLower(t.Title), query) {
			results = append(results, t)
			continue
		}
		for _, msg := range t.Messages {
			if strings.Contains(strings.ToLower(msg.Text), query) {
				results = append(results, t)
				break
			}
		}
	}
	return results
}

// Find returns the transcript with id.
func Find(transcripts []Transcript, id string) (Transcript, bool) {
	for _, t := range transcripts {
		if t.ID == id {
			return t, true
		}
	}
	return Transcript{}, false
}
