// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/incrime/incrime-tui/internal/conversation"
	"github.com/incrime/incrime-tui/internal/storage"
	"github.com/incrime/incrime-tui/internal/util"
)

// assistantMark prefixes assistant replies.
const assistantMark = "⚖ "

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete screen.
// Layout: header (1) + body (viewport) + input box + disclaimer (1) + hints (1).
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	input := m.renderInput()
	disclaimer := m.theme.Disclaimer.Width(m.width).Render(util.TruncateWidth(Disclaimer, m.width))
	hints := m.renderHints()

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(input) - 2
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var main string
	if m.ctrl.State() == conversation.StateIdle {
		main = m.renderWelcome(m.mainWidth(), bodyHeight)
	} else {
		main = m.viewport.View()
	}

	body := main
	if m.sidebarOpen {
		sidebar := m.renderSidebar(bodyHeight)
		if m.theme.SidebarWidth() == 0 {
			body = sidebar
		} else {
			body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
		}
	}
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, disclaimer, hints)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	brand := m.theme.Brand.Render(assistantMark + "InCrime")

	badge := "Guest"
	if m.user != nil {
		badge = m.user.DisplayName()
	}
	badgeStyle := m.theme.Brand.Foreground(lipgloss.Color("#ffffff"))
	right := badgeStyle.Render(badge)
	if m.user.IsAdmin() {
		right = m.theme.AdminBadge.Render("admin") + " " + right
	}

	gap := m.width - lipgloss.Width(brand) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(brand + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// WELCOME VIEW
// =============================================================================

func (m Model) renderWelcome(width, height int) string {
	var b strings.Builder
	b.WriteString(m.theme.WelcomeTitle.Render(assistantMark + "InCrime Legal AI Assistant"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeText.Width(min(width-4, 60)).Align(lipgloss.Center).Render(
		"Ask me anything about Pakistani law: bail applications, family cases, FIR drafting, and more."))
	b.WriteString("\n\n")

	if m.showSugg {
		for i, s := range conversation.Suggestions() {
			chip := m.theme.SuggestKey.Render(fmt.Sprintf("%d ", i+1)) + s
			b.WriteString(m.theme.Suggestion.Render(chip))
			b.WriteString("\n")
		}
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Align(lipgloss.Center).Render(b.String()))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the active transcript for a pane of width.
func (m Model) renderTranscript(width int) string {
	msgs := m.ctrl.Messages()
	if width < 20 {
		width = 20
	}
	bubbleMax := width * 4 / 5

	parts := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		parts = append(parts, m.renderMessage(msg, width, bubbleMax))
	}
	if m.ctrl.State() == conversation.StateAwaiting {
		parts = append(parts, m.theme.Typing.Render(m.spinner.View()))
	}
	return m.theme.ChatArea.Render(strings.Join(parts, "\n\n"))
}

func (m Model) renderMessage(msg storage.Message, width, bubbleMax int) string {
	inner := width - 4 // ChatArea padding

	var bubble string
	align := lipgloss.Left
	if msg.Role == storage.RoleUser {
		align = lipgloss.Right
		w := min(util.StringWidth(msg.Text)+4, bubbleMax)
		bubble = m.theme.UserBubble.Width(w).Render(msg.Text)
	} else {
		text := msg.Text
		if m.useMD {
			text = m.markdown.Render(text, m.theme.Mode, bubbleMax-4)
		}
		w := min(lipgloss.Width(assistantMark+text)+2, bubbleMax)
		bubble = m.theme.AssistantBubble.Width(w).Render(assistantMark + text)
	}

	if m.showTimes && msg.Time != "" {
		stamp := m.theme.Timestamp.Render(msg.Time)
		bubble = lipgloss.JoinVertical(align, bubble, stamp)
	}
	return lipgloss.PlaceHorizontal(inner, align, bubble)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(height int) string {
	width := m.theme.SidebarWidth()
	if width == 0 {
		width = m.width
	}
	inner := width - 3 // padding + border

	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Chat History"))
	b.WriteString("\n")

	sessions := m.ctrl.Sessions()
	if len(sessions) == 0 {
		b.WriteString(m.theme.SidebarEmpty.Render("No chat history yet"))
	}

	active := m.ctrl.ActiveID()
	for i, s := range sessions {
		title := util.TruncateWidth(util.SingleLine(s.Title), inner-2)
		line := "  " + title
		style := m.theme.SessionItem
		if s.ID == active {
			line = "› " + title
			style = m.theme.SessionActive
		}
		if m.sidebarFocus && i == m.sidebarCursor {
			style = m.theme.SessionSelected
		}
		b.WriteString(style.Width(inner).Render(line))
		b.WriteString("\n")
	}

	return m.theme.Sidebar.Width(width - 1).Height(height).MaxHeight(height).Render(b.String())
}

// =============================================================================
// INPUT AND FOOTER
// =============================================================================

func (m Model) renderInput() string {
	style := m.theme.InputBox
	if m.ctrl.Busy() {
		style = m.theme.InputDisabled
	}
	return style.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderHints() string {
	if m.statusMsg != "" {
		style := m.theme.StatusBar
		if m.statusIsErr {
			style = m.theme.ErrorText.Padding(0, 1)
		}
		return style.Render(util.TruncateWidth(m.statusMsg, m.width-2))
	}
	if m.sidebarFocus {
		k := m.keys
		return m.theme.StatusBar.Render(m.help.ShortHelpView([]key.Binding{k.Up, k.Down, k.Submit, k.Delete, k.FocusSidebar, k.Back}))
	}
	return m.theme.StatusBar.Render(m.help.View(m.keys))
}

func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	title := m.theme.WelcomeTitle.Render("Keyboard shortcuts")
	content := lipgloss.JoinVertical(lipgloss.Left, title, "", h.View(m.keys), "", m.theme.HelpText.Render("Esc or F1 to close"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		m.theme.InputBox.Padding(1, 2).Render(content))
}
