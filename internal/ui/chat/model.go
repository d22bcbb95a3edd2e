// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/incrime/incrime-tui/internal/api"
	"github.com/incrime/incrime-tui/internal/auth"
	"github.com/incrime/incrime-tui/internal/config"
	"github.com/incrime/incrime-tui/internal/conversation"
	"github.com/incrime/incrime-tui/internal/ui/styles"
)

// Placeholder is shown in the empty input.
const Placeholder = "Message InCrime Legal AI..."

// Disclaimer is the footer under the input.
const Disclaimer = "InCrime provides general legal information, not professional legal advice. " +
	"Consult a licensed advocate for your specific case."

// inputHeight is the number of text rows in the input box.
const inputHeight = 2

// =============================================================================
// CHAT MODEL
// =============================================================================

// Deps are the collaborators a Model needs.
type Deps struct {
	Controller *conversation.Controller

	// Auth is optional; without it the badge shows "Guest".
	Auth *auth.Context

	Config *config.Config
	// ConfigPath is watched for edits; "" disables watching.
	ConfigPath string

	Logger zerolog.Logger
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl   *conversation.Controller
	auth   *auth.Context
	logger zerolog.Logger

	// Styling
	theme     *styles.Theme
	markdown  *markdownRenderer
	showTimes bool
	showSugg  bool
	useMD     bool

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	keys KeyMap

	// Sidebar
	sidebarOpen   bool
	sidebarFocus  bool
	sidebarCursor int

	showHelp bool

	// Status line
	statusMsg   string
	statusIsErr bool

	// Session
	user *api.User

	// Config watching
	configPath string
	reloads    chan configReloadedMsg

	// ctx is cancelled when the program quits; it bounds remote calls and
	// the config watcher.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the chat model.
func New(deps Deps) Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	ta := textarea.New()
	ta.Placeholder = Placeholder
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	// Enter sends; the textarea must not swallow it.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(styles.TypingDots))

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctrl:       deps.Controller,
		auth:       deps.Auth,
		logger:     deps.Logger,
		theme:      styles.NewTheme(styles.ParseMode(cfg.UI.Theme)),
		markdown:   &markdownRenderer{},
		showTimes:  cfg.UI.ShowTimes,
		showSugg:   cfg.UI.ShowSuggestions,
		useMD:      cfg.UI.RenderMarkdown,
		viewport:   viewport.New(0, 0),
		input:      ta,
		spinner:    sp,
		help:       help.New(),
		keys:       DefaultKeyMap(),
		configPath: deps.ConfigPath,
		reloads:    make(chan configReloadedMsg, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
	if m.auth != nil {
		m.user = m.auth.User()
	}
	m.applyTheme()
	return m
}

// Init starts the background work: the session check and the config
// watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.auth != nil && m.auth.Token() != "" && m.user == nil {
		cmds = append(cmds, checkSessionCmd(m.ctx, m.auth))
	}
	if m.configPath != "" {
		cmds = append(cmds, watchConfigCmd(m.ctx, m.configPath, m.reloads, m.logger))
	}
	return tea.Batch(cmds...)
}

// applyTheme pushes theme colors into the widgets.
func (m *Model) applyTheme() {
	m.spinner.Style = m.theme.Typing.UnsetBorderStyle().UnsetPadding()
	m.help.Styles.ShortKey = m.theme.ShortcutKey
	m.help.Styles.FullKey = m.theme.ShortcutKey
	m.help.Styles.ShortDesc = m.theme.HelpText
	m.help.Styles.FullDesc = m.theme.HelpText
	m.help.Styles.ShortSeparator = m.theme.HelpText
	m.help.Styles.FullSeparator = m.theme.HelpText
}
