// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/incrime/incrime-tui/internal/ui/styles"
)

// markdownRenderer renders assistant replies. Renderers are rebuilt only
// when the theme mode or wrap width changes.
type markdownRenderer struct {
	mode     styles.Mode
	width    int
	renderer *glamour.TermRenderer
}

func (r *markdownRenderer) ensure(mode styles.Mode, width int) {
	if r.renderer != nil && r.mode == mode && r.width == width {
		return
	}
	style := "light"
	if mode == styles.ModeDark {
		style = "dark"
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Fall back to plain text.
		tr = nil
	}
	r.mode, r.width, r.renderer = mode, width, tr
}

// Render returns text as styled markdown, or text unchanged if rendering
// is unavailable or fails.
func (r *markdownRenderer) Render(text string, mode styles.Mode, width int) string {
	if width < 10 {
		return text
	}
	r.ensure(mode, width)
	if r.renderer == nil {
		return text
	}
	out, err := r.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
