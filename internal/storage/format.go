// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/incrime/incrime-tui/internal/util"
)

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

var titleCaser = cases.Title(language.English)

// RoleLabel returns the display label for a role ("User", "Assistant").
func RoleLabel(r Role) string {
	return titleCaser.String(string(r))
}

// PreviewWidth is the width of the last-message column in session lists.
const PreviewWidth = 40

// FormatSessionList formats transcripts as a numbered table.
// Numbers are 1-based positions, usable with "sessions show N".
func FormatSessionList(transcripts []Transcript) string {
	if len(transcripts) == 0 {
		return "No sessions found."
	}

	rule := strings.Repeat("-", 4+1+14+1+17+1+5+1+30+1+PreviewWidth) + "\n"

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString(rule)
	sb.WriteString(util.PadRight("#", 4) + " " + util.PadRight("ID", 14) + " " +
		util.PadRight("Created", 17) + " " + util.PadRight("Msgs", 5) + " " +
		util.PadRight("Title", 30) + " Last message\n")
	sb.WriteString(rule)

	for i, t := range transcripts {
		created := "-"
		if ts := t.CreatedAt(); !ts.IsZero() {
			created = ts.Format("2006-01-02 15:04")
		}
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4) + " " +
			util.PadRight(util.TruncateRunesNoEllipsis(t.ID, 14), 14) + " " +
			util.PadRight(created, 17) + " " +
			util.PadRight(strconv.Itoa(len(t.Messages)), 5) + " " +
			util.PadRight(util.TruncateWidth(util.SingleLine(t.Title), 30), 30) + " " +
			t.Preview(PreviewWidth) + "\n")
	}
	return sb.String()
}

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown renders the transcript as Markdown with role labels and times.
func ExportMarkdown(t Transcript) string {
	var sb strings.Builder
	title := t.Title
	if title == "" {
		title = "Untitled session"
	}
	sb.WriteString("# " + util.SingleLine(title) + "\n\n")
	sb.WriteString("Session: " + t.ID + "\n")
	if ts := t.CreatedAt(); !ts.IsZero() {
		sb.WriteString("Created: " + ts.Format(time.RFC3339) + "\n")
	}
	sb.WriteString("\n---\n\n")

	for _, msg := range t.Messages {
		sb.WriteString("**" + RoleLabel(msg.Role) + "**")
		if msg.Time != "" {
			sb.WriteString(" (" + msg.Time + ")")
		}
		sb.WriteString(":\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders the transcript as indented JSON.
func ExportJSON(t Transcript) ([]byte, error) {
	return json.MarshalIndent(normalize([]Transcript{t})[0], "", "  ")
}
