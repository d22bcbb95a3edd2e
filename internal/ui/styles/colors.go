// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// BRAND COLORS
// =============================================================================

// Navy is the primary brand color.
var Navy = lipgloss.Color("#0d2a3a")

// Gold is the accent: user bubbles, highlights, the user badge.
var Gold = lipgloss.Color("#FFD700")

// GoldDeep is the hover shade of Gold, used for the sidebar cursor.
var GoldDeep = lipgloss.Color("#e6c200")

// =============================================================================
// STATUS COLORS
// =============================================================================

var (
	Danger  = lipgloss.Color("#e53935")
	Warning = lipgloss.Color("#fb8c00")
	Success = lipgloss.Color("#43a047")
)

// =============================================================================
// PALETTES
// =============================================================================

// Palette is the set of surface and text colors for one theme mode.
type Palette struct {
	Background lipgloss.Color // main background
	ChatArea   lipgloss.Color // transcript pane
	Bubble     lipgloss.Color // assistant bubble and suggestion chips
	Border     lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color // timestamps, hints, disclaimer
	Heading    lipgloss.Color
	Sidebar    lipgloss.Color
	Selected   lipgloss.Color // active transcript in the sidebar
}

// LightPalette is the default look.
var LightPalette = Palette{
	Background: "#ffffff",
	ChatArea:   "#fafafa",
	Bubble:     "#ffffff",
	Border:     "#e0e0e0",
	Text:       "#333333",
	Muted:      "#999999",
	Heading:    Navy,
	Sidebar:    "#f6f7f8",
	Selected:   "#eceef0",
}

// DarkPalette is used after the user toggles dark mode.
var DarkPalette = Palette{
	Background: "#0f1115",
	ChatArea:   "#181a20",
	Bubble:     "#23262d",
	Border:     "#333333",
	Text:       "#e5e7eb",
	Muted:      "#888888",
	Heading:    Gold,
	Sidebar:    "#1e2129",
	Selected:   "#2c3038",
}

// =============================================================================
// TYPING INDICATOR
// =============================================================================

// TypingDots animates the "assistant is typing" bubble.
var TypingDots = spinner.Spinner{
	Frames: []string{"   ", ".  ", ".. ", "...", " ..", "  ."},
	FPS:    time.Second / 6,
}
