// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// =============================================================================
// KV BACKEND TESTS
// =============================================================================

func backends(t *testing.T) map[string]KV {
	t.Helper()

	fileKV, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	sqliteKV, err := NewSQLiteKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteKV: %v", err)
	}
	t.Cleanup(func() { sqliteKV.Close() })

	return map[string]KV{
		BackendFile:   fileKV,
		BackendSQLite: sqliteKV,
		BackendMemory: NewMemoryKV(),
	}
}

func TestKV_Contract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := kv.Put("incrime_token", []byte("abc")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := kv.Get("incrime_token")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "abc" {
				t.Errorf("Get = %q, want %q", got, "abc")
			}

			// Put replaces in full.
			if err := kv.Put("incrime_token", []byte("z")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, _ = kv.Get("incrime_token")
			if string(got) != "z" {
				t.Errorf("Get after overwrite = %q, want %q", got, "z")
			}

			if err := kv.Delete("incrime_token"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := kv.Get("incrime_token"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
			}
			if err := kv.Delete("incrime_token"); err != nil {
				t.Errorf("Delete of missing key = %v, want nil", err)
			}
		})
	}
}

func TestKV_RejectsBadKeys(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../escape", "a/b", ".."} {
				if err := kv.Put(key, []byte("x")); err == nil {
					t.Errorf("Put(%q) should fail", key)
				}
				if _, err := kv.Get(key); err == nil || errors.Is(err, ErrNotFound) {
					t.Errorf("Get(%q) = %v, want an invalid key error", key, err)
				}
				if err := kv.Delete(key); err == nil {
					t.Errorf("Delete(%q) should fail", key)
				}
			}
		})
	}
}

func TestFileKV_Permissions(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Put("incrime_token", []byte("secret")); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(dir, "incrime_token"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestSQLiteKV_Persists(t *testing.T) {
	dir := t.TempDir()

	kv, err := NewSQLiteKV(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Put("crime_chats", []byte(`{"version":1,"transcripts":[]}`)); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	reopened, err := NewSQLiteKV(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.Get("crime_chats")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != `{"version":1,"transcripts":[]}` {
		t.Errorf("Get = %q", got)
	}
}

func TestOpen(t *testing.T) {
	for _, name := range []string{"file", "sqlite", "memory", "FILE"} {
		kv, err := Open(name, t.TempDir())
		if err != nil {
			t.Errorf("Open(%q) error = %v", name, err)
			continue
		}
		kv.Close()
	}
	if _, err := Open("tape", t.TempDir()); err == nil {
		t.Error("Open(tape) should fail")
	}
}

// =============================================================================
// TRANSCRIPT STORE TESTS
// =============================================================================

func sampleTranscripts() []Transcript {
	return []Transcript{
		{
			ID:    "1712345678902",
			Title: "What is Nikah Nama?",
			Messages: []Message{
				{Role: RoleUser, Text: "What is Nikah Nama?", Time: "10:15 AM"},
				{Role: RoleAssistant, Text: "A Nikah Nama is the marriage contract.", Time: "10:15 AM"},
			},
		},
		{
			ID:    "1712345678901",
			Title: "How to file a bail application?",
			Messages: []Message{
				{Role: RoleUser, Text: "How to file a bail application?", Time: "09:00 AM"},
				{Role: RoleAssistant, Text: "Sorry, I could not process your request. Please try again.", Time: ""},
			},
		},
	}
}

func TestTranscriptStore_LoadMissingIsEmpty(t *testing.T) {
	store := NewTranscriptStore(NewMemoryKV(), "crime_chats", zerolog.Nop())

	got := store.Load()
	if got == nil || len(got) != 0 {
		t.Errorf("Load() = %#v, want empty non-nil slice", got)
	}
}

func TestTranscriptStore_LoadCorruptIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not json at all"},
		{"truncated", `{"version":1,"transcripts":[{"id":"1"`},
		{"wrong shape", `{"version":1,"transcripts":"nope"}`},
		{"future version", `{"version":99,"transcripts":[]}`},
		{"empty id", `{"version":1,"transcripts":[{"id":"","title":"x","messages":[]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV()
			kv.Put("crime_chats", []byte(tt.data))
			store := NewTranscriptStore(kv, "crime_chats", zerolog.Nop())

			if got := store.Load(); len(got) != 0 {
				t.Errorf("Load() = %d transcripts, want 0", len(got))
			}
		})
	}
}

func TestTranscriptStore_ReplaceAllThenLoad(t *testing.T) {
	kv := NewMemoryKV()
	store := NewTranscriptStore(kv, "crime_chats", zerolog.Nop())

	want := sampleTranscripts()
	if err := store.ReplaceAll(want); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got := store.Load()
	if len(got) != len(want) {
		t.Fatalf("Load() = %d transcripts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Title != want[i].Title {
			t.Errorf("transcript %d = %+v, want %+v", i, got[i], want[i])
		}
		if len(got[i].Messages) != len(want[i].Messages) {
			t.Errorf("transcript %d has %d messages, want %d", i, len(got[i].Messages), len(want[i].Messages))
		}
	}
	if got[1].Messages[1].Time != "" {
		t.Errorf("failed reply time = %q, want empty", got[1].Messages[1].Time)
	}
}

func TestTranscriptStore_RoundTripIsByteIdentical(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewTranscriptStore(kv, "crime_chats", zerolog.Nop())
			if err := store.ReplaceAll(sampleTranscripts()); err != nil {
				t.Fatal(err)
			}
			before, _ := kv.Get("crime_chats")

			if err := store.ReplaceAll(store.Load()); err != nil {
				t.Fatal(err)
			}
			after, _ := kv.Get("crime_chats")

			if !bytes.Equal(before, after) {
				t.Errorf("round trip changed bytes:\nbefore %s\nafter  %s", before, after)
			}
		})
	}
}

func TestTranscriptStore_EmptyCollection(t *testing.T) {
	kv := NewMemoryKV()
	store := NewTranscriptStore(kv, "crime_chats", zerolog.Nop())

	if err := store.ReplaceAll(nil); err != nil {
		t.Fatal(err)
	}
	got, _ := kv.Get("crime_chats")
	if string(got) != `{"version":1,"transcripts":[]}` {
		t.Errorf("stored = %s", got)
	}
}

func TestDecode_Legacy(t *testing.T) {
	legacy := `[{"id":1712345678901,"title":"How to report theft to po","messages":[
		{"role":"user","text":"How to report theft to police?","time":"09:00 AM"},
		{"role":"bot","text":"Visit the nearest police station.","time":"09:01 AM"}]}]`

	got, err := Decode([]byte(legacy))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ID != "1712345678901" {
		t.Errorf("ID = %q, want %q", got[0].ID, "1712345678901")
	}
	if got[0].Messages[1].Role != RoleAssistant {
		t.Errorf("bot role mapped to %q, want %q", got[0].Messages[1].Role, RoleAssistant)
	}
	if got[0].CreatedAt().IsZero() {
		t.Error("CreatedAt() should decode the timestamp id")
	}
}

func TestTranscriptStore_LegacyMigratesOnFirstRewrite(t *testing.T) {
	legacy := `[{"id":1712345678901,"title":"How to report theft to po","messages":[` +
		`{"role":"user","text":"How to report theft to police?","time":"09:00 AM"},` +
		`{"role":"bot","text":"Visit the nearest police station.","time":"09:01 AM"}]}]`

	kv := NewMemoryKV()
	if err := kv.Put("crime_chats", []byte(legacy)); err != nil {
		t.Fatal(err)
	}
	store := NewTranscriptStore(kv, "crime_chats", zerolog.Nop())

	if err := store.ReplaceAll(store.Load()); err != nil {
		t.Fatal(err)
	}
	migrated, _ := kv.Get("crime_chats")
	if !bytes.HasPrefix(migrated, []byte(`{"version":1,`)) {
		t.Fatalf("first rewrite should store the versioned form, got %s", migrated)
	}
	if bytes.Contains(migrated, []byte(`"bot"`)) {
		t.Errorf("legacy role survived the rewrite: %s", migrated)
	}

	if err := store.ReplaceAll(store.Load()); err != nil {
		t.Fatal(err)
	}
	again, _ := kv.Get("crime_chats")
	if !bytes.Equal(migrated, again) {
		t.Errorf("second rewrite changed bytes:\nbefore %s\nafter  %s", migrated, again)
	}
}

func TestSearchAndFind(t *testing.T) {
	ts := sampleTranscripts()

	if got := Search(ts, "NIKAH"); len(got) != 1 || got[0].ID != "1712345678902" {
		t.Errorf("Search(NIKAH) = %+v", got)
	}
	if got := Search(ts, "could not process"); len(got) != 1 || got[0].ID != "1712345678901" {
		t.Errorf("Search(message text) = %+v", got)
	}
	if got := Search(ts, "  "); len(got) != 2 {
		t.Errorf("Search(blank) = %d results, want 2", len(got))
	}
	if got := Search(ts, "zzz"); len(got) != 0 {
		t.Errorf("Search(zzz) = %d results, want 0", len(got))
	}

	if _, ok := Find(ts, "1712345678901"); !ok {
		t.Error("Find existing id failed")
	}
	if _, ok := Find(ts, "nope"); ok {
		t.Error("Find unknown id succeeded")
	}
}

func TestTranscript_Clone(t *testing.T) {
	orig := sampleTranscripts()[0]
	c := orig.Clone()
	c.Messages[0].Text = "changed"

	if orig.Messages[0].Text == "changed" {
		t.Error("Clone shares message storage with the original")
	}
}

// =============================================================================
// FORMAT / EXPORT TESTS
// =============================================================================

func TestFormatSessionList(t *testing.T) {
	if got := FormatSessionList(nil); got != "No sessions found." {
		t.Errorf("FormatSessionList(nil) = %q", got)
	}

	out := FormatSessionList(sampleTranscripts())
	for _, want := range []string{
		"Sessions:",
		"1712345678902",
		"What is Nikah Nama?",
		"1    ",
		"Last message",
		"A Nikah Nama is the marriage contract.",
		"Sorry, I could not process your reque...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatSessionList missing %q:\n%s", want, out)
		}
	}
}

func TestTranscriptPreview(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		width    int
		want     string
	}{
		{"latest message wins", sampleTranscripts()[0].Messages, 40, "A Nikah Nama is the marriage contract."},
		{"cut to width", sampleTranscripts()[0].Messages, 12, "A Nikah N..."},
		{"blank reply skipped", []Message{{Role: RoleUser, Text: "line one\nline two"}, {Role: RoleAssistant, Text: "  "}}, 40, "line one line two"},
		{"empty transcript", nil, 40, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transcript{Messages: tt.messages}.Preview(tt.width)
			if got != tt.want {
				t.Errorf("Preview(%d) = %q, want %q", tt.width, got, tt.want)
			}
		})
	}
}

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown(sampleTranscripts()[1])

	for _, want := range []string{
		"# How to file a bail application?",
		"**User** (09:00 AM):",
		"**Assistant**:",
		"Sorry, I could not process your request.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("ExportMarkdown missing %q:\n%s", want, md)
		}
	}
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(Transcript{ID: "1", Title: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"messages": []`) {
		t.Errorf("ExportJSON should render empty messages as []:\n%s", data)
	}
}

func TestRoleLabel(t *testing.T) {
	if got := RoleLabel(RoleAssistant); got != "Assistant" {
		t.Errorf("RoleLabel(assistant) = %q", got)
	}
	if got := RoleLabel(RoleUser); got != "User" {
		t.Errorf("RoleLabel(user) = %q", got)
	}
}
