// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/incrime/incrime-tui/internal/api"
	"github.com/incrime/incrime-tui/internal/auth"
	"github.com/incrime/incrime-tui/internal/config"
	"github.com/incrime/incrime-tui/internal/conversation"
	"github.com/incrime/incrime-tui/internal/storage"
	"github.com/incrime/incrime-tui/internal/ui/styles"
)

// sessionCheckTimeout bounds the startup /me call.
const sessionCheckTimeout = 15 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// replyMsg carries the outcome of Controller.Finish.
type replyMsg struct {
	Turn  *conversation.Turn
	Reply storage.Message
	// Err is a storage failure; remote failures are already folded into
	// the fallback reply.
	Err error
}

// sessionCheckedMsg carries the outcome of auth.Context.Init.
type sessionCheckedMsg struct {
	User *api.User
	Err  error
}

// configReloadedMsg is emitted by the config watcher.
type configReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// COMMANDS
// =============================================================================

// finishCmd completes a send off the UI goroutine.
func finishCmd(ctx context.Context, ctrl *conversation.Controller, turn *conversation.Turn) tea.Cmd {
	return func() tea.Msg {
		reply, err := ctrl.Finish(ctx, turn)
		return replyMsg{Turn: turn, Reply: reply, Err: err}
	}
}

// checkSessionCmd confirms the stored token with the server.
func checkSessionCmd(ctx context.Context, a *auth.Context) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, sessionCheckTimeout)
		defer cancel()
		err := a.Init(ctx)
		return sessionCheckedMsg{User: a.User(), Err: err}
	}
}

// watchConfigCmd starts the watcher goroutine and waits for its first event.
func watchConfigCmd(ctx context.Context, path string, ch chan configReloadedMsg, logger zerolog.Logger) tea.Cmd {
	return func() tea.Msg {
		go func() {
			err := config.Watch(ctx, path, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
				select {
				case ch <- configReloadedMsg{Config: cfg, Err: err}:
				case <-ctx.Done():
				}
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Str("path", path).Msg("config watch stopped")
			}
		}()
		return waitForReload(ctx, ch)()
	}
}

// waitForReload blocks until the next config event.
func waitForReload(ctx context.Context, ch chan configReloadedMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case replyMsg:
		if msg.Err != nil {
			m.setStatus("Could not save chat history: "+msg.Err.Error(), true)
		}
		m.refresh(true)
		return m, nil

	case sessionCheckedMsg:
		m.user = msg.User
		if msg.Err != nil {
			m.logger.Info().Err(msg.Err).Msg("stored session rejected")
			if errors.Is(msg.Err, auth.ErrSessionExpired) || api.IsUnauthorized(msg.Err) {
				m.setStatus("Your session has expired. Run 'incrime login' to sign in again.", false)
			} else {
				m.setStatus(api.UserMessage(msg.Err), true)
			}
		}
		return m, nil

	case configReloadedMsg:
		if msg.Err != nil {
			m.setStatus("Config reload failed: "+msg.Err.Error(), true)
		} else if msg.Config != nil {
			m.applyConfig(msg.Config)
			m.setStatus("Config reloaded", false)
		}
		return m, waitForReload(m.ctx, m.reloads)

	case spinner.TickMsg:
		if !m.ctrl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey routes a key press. Global bindings win over the focused widget.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Back):
		switch {
		case m.showHelp:
			m.showHelp = false
		case m.sidebarFocus:
			m.sidebarFocus = false
		case m.sidebarOpen:
			m.sidebarOpen = false
			m.handleResize(m.width, m.height)
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleTheme):
		m.theme = m.theme.Toggle()
		m.applyTheme()
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.StartNewChat()
		m.input.Reset()
		m.sidebarFocus = false
		m.clearStatus()
		m.refresh(true)
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.sidebarOpen = !m.sidebarOpen
		m.sidebarFocus = m.sidebarOpen
		m.syncCursor()
		m.handleResize(m.width, m.height)
		return m, nil
	}

	if m.showHelp {
		return m, nil
	}
	if m.sidebarFocus {
		return m.handleSidebarKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.FocusSidebar) && m.sidebarOpen:
		m.sidebarFocus = true
		m.syncCursor()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Suggest) && m.showSugg && m.input.Value() == "" && m.ctrl.State() == conversation.StateIdle:
		idx := int(msg.Runes[0] - '1')
		if s := conversation.Suggestions(); idx >= 0 && idx < len(s) {
			m.input.SetValue(s[idx])
			m.input.CursorEnd()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSidebarKey handles keys while the history list has focus.
func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.ctrl.Sessions()

	switch {
	case key.Matches(msg, m.keys.FocusSidebar):
		m.sidebarFocus = false

	case key.Matches(msg, m.keys.Up):
		if m.sidebarCursor > 0 {
			m.sidebarCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.sidebarCursor < len(sessions)-1 {
			m.sidebarCursor++
		}

	case key.Matches(msg, m.keys.Submit):
		if m.sidebarCursor < len(sessions) {
			m.ctrl.LoadSession(sessions[m.sidebarCursor].ID)
			m.sidebarFocus = false
			m.clearStatus()
			m.refresh(true)
		}

	case key.Matches(msg, m.keys.Delete):
		if m.sidebarCursor < len(sessions) {
			id := sessions[m.sidebarCursor].ID
			if _, err := m.ctrl.DeleteSession(id); err != nil {
				m.setStatus("Could not save chat history: "+err.Error(), true)
			}
			if m.sidebarCursor >= len(sessions)-1 && m.sidebarCursor > 0 {
				m.sidebarCursor--
			}
			m.refresh(true)
		}
	}
	return m, nil
}

// submit starts a send. Sending is disabled while a reply is outstanding
// and for blank input.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.ctrl.Busy() {
		return m, nil
	}

	turn, err := m.ctrl.Begin(m.input.Value())
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	if turn == nil {
		return m, nil
	}

	m.input.Reset()
	m.clearStatus()
	m.refresh(true)
	return m, tea.Batch(m.spinner.Tick, finishCmd(m.ctx, m.ctrl, turn))
}

// =============================================================================
// HELPERS
// =============================================================================

// handleResize recomputes widget sizes from the terminal size.
func (m *Model) handleResize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.ready = width > 0 && height > 0

	mainWidth := m.mainWidth()
	m.input.SetWidth(max(mainWidth-4, 10))
	m.help.Width = width

	// header 1 + input box (rows + 2 border) + disclaimer 1 + hint bar 1
	chrome := 1 + inputHeight + 2 + 1 + 1
	m.viewport.Width = mainWidth
	m.viewport.Height = max(height-chrome, 1)
	m.refresh(false)
}

// mainWidth is the width left for the transcript pane.
func (m Model) mainWidth() int {
	if !m.sidebarOpen {
		return m.width
	}
	sw := m.theme.SidebarWidth()
	if sw == 0 {
		// Narrow: the sidebar takes the whole screen.
		return m.width
	}
	return max(m.width-sw-1, 10)
}

// refresh re-renders the transcript into the viewport.
func (m *Model) refresh(toBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if toBottom {
		m.viewport.GotoBottom()
	}
}

// syncCursor moves the sidebar cursor onto the active transcript.
func (m *Model) syncCursor() {
	sessions := m.ctrl.Sessions()
	active := m.ctrl.ActiveID()
	m.sidebarCursor = 0
	for i, s := range sessions {
		if s.ID == active {
			m.sidebarCursor = i
			return
		}
	}
}

// applyConfig re-applies the settings that can change at runtime.
func (m *Model) applyConfig(cfg *config.Config) {
	mode := styles.ParseMode(cfg.UI.Theme)
	if mode != m.theme.Mode {
		m.theme = m.theme.Toggle()
		m.applyTheme()
	}
	m.showTimes = cfg.UI.ShowTimes
	m.showSugg = cfg.UI.ShowSuggestions
	m.useMD = cfg.UI.RenderMarkdown
	m.refresh(false)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.statusMsg = text
	m.statusIsErr = isErr
}

func (m *Model) clearStatus() {
	m.statusMsg = ""
	m.statusIsErr = false
}
