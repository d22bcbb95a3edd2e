// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the InCrime TUI.

# Palettes (colors.go)

The brand pairs a deep navy with a gold accent. Two palettes exist, one per
theme mode, and the user switches between them at runtime:

	LightPalette - white surfaces, navy headings, gold user bubbles
	DarkPalette  - near-black surfaces, gold headings, gold user bubbles

Status colors (Danger, Warning, Success) are shared by both palettes and
also drive the password strength meter.

# Theme System (theme.go)

A Theme is built from a mode and exposes ready-made lipgloss styles:

	theme := styles.NewTheme(styles.ModeLight)
	theme = theme.Toggle() // now dark

ParseMode accepts the config values "light" and "dark".

# Typing Indicator

TypingDots is the frame set for the bubbles spinner shown while a reply
is outstanding.
*/
package styles
