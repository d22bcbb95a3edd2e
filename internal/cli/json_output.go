// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripting against incrime.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/incrime/incrime-tui/internal/storage"
)

// JSONResponse is the envelope of every --json output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error is always null here; failures are written by DisplayErrorJSON
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response to w as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// OutputJSON runs handler and, in JSON mode, wraps its result in a
// response. In text mode the handler prints for itself. Errors are
// returned unprinted; exitOnError reports them once.
func OutputJSON(w io.Writer, jsonMode bool, command string, handler func() (interface{}, error)) error {
	data, err := handler()
	if err != nil || !jsonMode {
		return err
	}
	return NewJSONResponse(command, data).Print(w)
}

// StderrPrint prints to stderr, keeping stdout clean in JSON mode.
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData is the data of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// AskData is the data of the ask command.
type AskData struct {
	TranscriptID string `json:"transcript_id"`
	Question     string `json:"question"`
	Reply        string `json:"reply"`
	Time         string `json:"time,omitempty"`
}

// UserData is the data of the login, signup and whoami commands.
type UserData struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Role          string `json:"role,omitempty"`
	Admin         bool   `json:"admin"`
}

// SessionSummary is one row of the sessions list.
type SessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Preview   string    `json:"preview"`
}

// summarize converts transcripts into list rows.
func summarize(ts []storage.Transcript) []SessionSummary {
	out := make([]SessionSummary, 0, len(ts))
	for _, t := range ts {
		out = append(out, SessionSummary{
			ID:        t.ID,
			Title:     t.Title,
			Messages:  len(t.Messages),
			CreatedAt: t.CreatedAt(),
			Preview:   t.Preview(storage.PreviewWidth),
		})
	}
	return out
}
