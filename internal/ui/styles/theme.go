// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects a palette.
type Mode int

const (
	ModeLight Mode = iota
	ModeDark
)

// String returns the config spelling of the mode.
func (m Mode) String() string {
	if m == ModeDark {
		return "dark"
	}
	return "light"
}

// ParseMode maps a config value to a Mode. Anything but "dark" is light.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "dark") {
		return ModeDark
	}
	return ModeLight
}

// Theme holds all the styled components for the application.
type Theme struct {
	Mode         Mode
	Palette      Palette
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// CHROME
	// ==========================================================================

	App        lipgloss.Style
	Header     lipgloss.Style
	Brand      lipgloss.Style
	UserBadge  lipgloss.Style
	AdminBadge lipgloss.Style
	Disclaimer lipgloss.Style
	StatusBar  lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	ChatArea        lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	Timestamp       lipgloss.Style
	Typing          lipgloss.Style

	// ==========================================================================
	// WELCOME VIEW
	// ==========================================================================

	WelcomeTitle lipgloss.Style
	WelcomeText  lipgloss.Style
	Suggestion   lipgloss.Style
	SuggestKey   lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputBox      lipgloss.Style
	InputDisabled lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SessionItem     lipgloss.Style
	SessionSelected lipgloss.Style
	SessionActive   lipgloss.Style
	SidebarEmpty    lipgloss.Style

	// ==========================================================================
	// STATUS
	// ==========================================================================

	ErrorText   lipgloss.Style
	WarningText lipgloss.Style
	SuccessText lipgloss.Style
	ShortcutKey lipgloss.Style
	HelpText    lipgloss.Style
}

// NewTheme creates a theme for mode with all styles configured.
func NewTheme(mode Mode) *Theme {
	t := &Theme{
		Mode:         mode,
		Palette:      LightPalette,
		ColorProfile: termenv.ColorProfile(),
	}
	if mode == ModeDark {
		t.Palette = DarkPalette
	}
	t.initStyles()
	return t
}

// Toggle returns a theme in the other mode, keeping the size.
func (t *Theme) Toggle() *Theme {
	next := ModeDark
	if t.Mode == ModeDark {
		next = ModeLight
	}
	nt := NewTheme(next)
	nt.SetSize(t.Width, t.Height)
	return nt
}

// initStyles initializes all the lip gloss styles from the palette.
func (t *Theme) initStyles() {
	p := t.Palette

	t.App = lipgloss.NewStyle().
		Foreground(p.Text)

	t.Header = lipgloss.NewStyle().
		Background(Navy).
		Foreground(lipgloss.Color("#ffffff")).
		Padding(0, 1)

	t.Brand = lipgloss.NewStyle().
		Background(Navy).
		Foreground(Gold).
		Bold(true)

	t.UserBadge = lipgloss.NewStyle().
		Foreground(Gold).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Gold).
		Padding(0, 1).
		Bold(true)

	t.AdminBadge = lipgloss.NewStyle().
		Foreground(Navy).
		Background(Gold).
		Padding(0, 1).
		Bold(true)

	t.Disclaimer = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true).
		Align(lipgloss.Center)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(p.Muted).
		Padding(0, 1)

	// Messages
	t.ChatArea = lipgloss.NewStyle().
		Padding(1, 2)

	t.UserBubble = lipgloss.NewStyle().
		Background(Gold).
		Foreground(Navy).
		Padding(0, 2)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(p.Text).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(p.Muted)

	t.Typing = lipgloss.NewStyle().
		Foreground(p.Muted).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 2)

	// Welcome view
	t.WelcomeTitle = lipgloss.NewStyle().
		Foreground(p.Heading).
		Bold(true)

	t.WelcomeText = lipgloss.NewStyle().
		Foreground(p.Muted)

	t.Suggestion = lipgloss.NewStyle().
		Foreground(p.Text).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	t.SuggestKey = lipgloss.NewStyle().
		Foreground(Gold).
		Bold(true)

	// Input
	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	t.InputDisabled = t.InputBox.
		BorderForeground(p.Muted)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(p.Border).
		Padding(0, 1)

	t.SidebarTitle = lipgloss.NewStyle().
		Foreground(p.Heading).
		Bold(true).
		MarginBottom(1)

	t.SessionItem = lipgloss.NewStyle().
		Foreground(p.Text)

	t.SessionSelected = lipgloss.NewStyle().
		Foreground(Navy).
		Background(GoldDeep).
		Bold(true)

	t.SessionActive = lipgloss.NewStyle().
		Foreground(p.Heading).
		Bold(true)

	t.SidebarEmpty = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)

	// Status
	t.ErrorText = lipgloss.NewStyle().Foreground(Danger).Bold(true)
	t.WarningText = lipgloss.NewStyle().Foreground(Warning)
	t.SuccessText = lipgloss.NewStyle().Foreground(Success)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Gold).Bold(true)
	t.HelpText = lipgloss.NewStyle().Foreground(p.Muted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)

// SidebarWidth returns the history pane width for the current layout.
// Narrow terminals get no side-by-side pane.
func (t *Theme) SidebarWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return 0
	case LayoutMedium:
		return 26
	default:
		return 32
	}
}

// StrengthColor returns the meter color for a password strength label.
func StrengthColor(label string) lipgloss.Color {
	switch {
	case strings.HasPrefix(label, "Strong"):
		return Success
	case strings.HasPrefix(label, "Normal"):
		return Warning
	default:
		return Danger
	}
}
