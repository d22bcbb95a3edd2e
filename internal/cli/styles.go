// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for incrime command output.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/incrime/incrime-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles: brand gold, bold
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Gold).
			MarginBottom(1)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14)

	// ValueStyle is used for regular values
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// UserStyle prefixes the user's lines in transcripts
	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Gold)

	// AssistantStyle prefixes the assistant's lines in transcripts
	AssistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Danger).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Warning)

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// RenderSeparator renders a horizontal rule of width (default 60).
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("─", w))
}

// RenderLabel renders a fixed-width label.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}

// RenderStrength colors a password strength label.
func RenderStrength(label string) string {
	return lipgloss.NewStyle().Foreground(styles.StrengthColor(label)).Render(label)
}
