// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme(t *testing.T) {
	light := NewTheme(ModeLight)
	if light.Palette != LightPalette {
		t.Error("light theme should use LightPalette")
	}

	dark := NewTheme(ModeDark)
	if dark.Palette != DarkPalette {
		t.Error("dark theme should use DarkPalette")
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme(ModeLight)

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserBubble", theme.UserBubble},
		{"AssistantBubble", theme.AssistantBubble},
		{"InputBox", theme.InputBox},
		{"Sidebar", theme.Sidebar},
		{"Disclaimer", theme.Disclaimer},
	}

	for _, s := range styles {
		if s.style.Render("test") == "" {
			t.Errorf("%s style should be initialized", s.name)
		}
	}
}

func TestToggle(t *testing.T) {
	theme := NewTheme(ModeLight)
	theme.SetSize(120, 40)

	dark := theme.Toggle()
	if dark.Mode != ModeDark {
		t.Errorf("Toggle() mode = %v, want dark", dark.Mode)
	}
	if dark.Width != 120 || dark.Height != 40 {
		t.Errorf("Toggle() lost size: %dx%d", dark.Width, dark.Height)
	}
	if theme.Mode != ModeLight {
		t.Error("Toggle() must not mutate the receiver")
	}
	if back := dark.Toggle(); back.Mode != ModeLight {
		t.Errorf("second Toggle() mode = %v, want light", back.Mode)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"dark", ModeDark},
		{" DARK ", ModeDark},
		{"light", ModeLight},
		{"", ModeLight},
		{"solarized", ModeLight},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ModeDark.String() != "dark" || ModeLight.String() != "light" {
		t.Error("Mode.String() should match config spelling")
	}
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width       int
		wantMode    LayoutMode
		wantSidebar int
	}{
		{40, LayoutNarrow, 0},
		{59, LayoutNarrow, 0},
		{60, LayoutMedium, 26},
		{99, LayoutMedium, 26},
		{100, LayoutWide, 32},
		{200, LayoutWide, 32},
	}

	theme := NewTheme(ModeLight)
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.wantMode {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tt.width, got, tt.wantMode)
		}
		if got := theme.SidebarWidth(); got != tt.wantSidebar {
			t.Errorf("width %d: SidebarWidth() = %d, want %d", tt.width, got, tt.wantSidebar)
		}
	}
}

func TestStrengthColor(t *testing.T) {
	if StrengthColor("Strong password") != Success {
		t.Error("strong should be green")
	}
	if StrengthColor("Normal password") != Warning {
		t.Error("normal should be orange")
	}
	if StrengthColor("Weak password") != Danger {
		t.Error("weak should be red")
	}
}

func TestTypingDots(t *testing.T) {
	if len(TypingDots.Frames) == 0 || TypingDots.FPS <= 0 {
		t.Error("TypingDots should have frames and a positive frame interval")
	}
}
