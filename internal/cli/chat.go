// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-oriented chat command.
//
// Command: chat
//
// Interactive commands (during chat):
//
//	/new              Start a new chat
//	/history          List saved chats
//	/load N           Open chat N from /history (or by ID)
//	/delete N         Delete chat N
//	/suggest [N]      Show starter questions, or pre-fill question N
//	/help, /h         Show available commands
//	/quit, /q         Exit chat
//	Ctrl+C            Cancel a pending reply, or exit at the prompt
//	Ctrl+D            Exit chat
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/incrime/incrime-tui/internal/config"
	"github.com/incrime/incrime-tui/internal/conversation"
	"github.com/incrime/incrime-tui/internal/storage"
	"github.com/incrime/incrime-tui/internal/util"
)

// chatPrompt is shown before each line of input.
const chatPrompt = "you› "

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads chat input. ChatCLI is the terminal implementation.
type lineReader interface {
	// ReadInput reads one line; io.EOF or liner.ErrPromptAborted ends the chat.
	ReadInput(prompt string) (string, error)
	// ReadInputWithText reads one line pre-filled with text.
	ReadInputWithText(prompt, text string) (string, error)
	Close()
}

// ChatCLI provides line editing and input history for the chat command.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives in dir.
func NewChatCLI(dir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line and records it in the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// ReadInputWithText reads a line that starts out containing text.
func (c *ChatCLI) ReadInputWithText(prompt, text string) (string, error) {
	input, err := c.line.PromptWithSuggestion(prompt, text, -1)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// Chat runs the interactive chat loop on the terminal.
func (a *App) Chat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	if args.Ephemeral {
		// Nothing typed in an ephemeral chat is written to disk.
		dir = os.TempDir()
	}
	r := NewChatCLI(dir)
	defer r.Close()
	return a.runChat(r)
}

// runChat is the chat loop over r.
func (a *App) runChat(r lineReader) error {
	a.printChatWelcome()

	prefill := ""
	for {
		var input string
		var err error
		if prefill != "" {
			input, err = r.ReadInputWithText(chatPrompt, prefill)
			prefill = ""
		} else {
			input, err = r.ReadInput(chatPrompt)
		}
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(a.Out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			next, quit := a.handleSlashCommand(input)
			if quit {
				return nil
			}
			prefill = next
			continue
		}

		a.chatSend(input)
	}
}

// chatSend sends one message and prints the reply.
func (a *App) chatSend(text string) {
	ctx, cancel := a.context()
	defer cancel()

	turn, err := a.Controller.Begin(text)
	if err != nil || turn == nil {
		if err != nil {
			fmt.Fprintf(a.Out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		return
	}

	fmt.Fprintln(a.Out, DimStyle.Render("InCrime is typing..."))
	reply, err := a.Controller.Finish(ctx, turn)
	fmt.Fprint(a.Out, AssistantStyle.Render("InCrime› "))
	a.displayReply(reply.Text)
	if err != nil {
		fmt.Fprintf(a.Out, "%s could not save chat history: %v\n", WarningStyle.Render("[Warning]"), err)
	}
	fmt.Fprintln(a.Out)
}

// handleSlashCommand runs a /command. It returns text to pre-fill the next
// prompt with, and whether to leave the chat.
func (a *App) handleSlashCommand(input string) (prefill string, quit bool) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "/quit", "/q", "/exit":
		return "", true

	case "/help", "/h", "/?":
		a.printChatHelp()

	case "/new", "/n":
		a.Controller.StartNewChat()
		fmt.Fprintln(a.Out, SuccessStyle.Render("Started a new chat."))

	case "/history", "/sessions":
		a.printChatHistory()

	case "/load", "/open":
		t, err := resolveSession(a.Controller.Sessions(), arg)
		if err != nil {
			fmt.Fprintf(a.Out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			return "", false
		}
		a.Controller.LoadSession(t.ID)
		a.printTranscript(t)

	case "/delete", "/rm":
		t, err := resolveSession(a.Controller.Sessions(), arg)
		if err != nil {
			fmt.Fprintf(a.Out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			return "", false
		}
		if _, err := a.Controller.DeleteSession(t.ID); err != nil {
			fmt.Fprintf(a.Out, "%s could not save chat history: %v\n", ErrorStyle.Render("[Error]"), err)
			return "", false
		}
		fmt.Fprintf(a.Out, "Deleted %q.\n", t.Title)

	case "/suggest", "/s":
		suggestions := conversation.Suggestions()
		if arg == "" {
			for i, s := range suggestions {
				fmt.Fprintf(a.Out, "  %s %s\n", UserStyle.Render(strconv.Itoa(i+1)), s)
			}
			fmt.Fprintln(a.Out, DimStyle.Render("Type /suggest N to use one."))
			return "", false
		}
		n, err := ParseIntWithValidation(arg, "suggestion")
		if err != nil || n > len(suggestions) {
			fmt.Fprintf(a.Out, "%s choose a suggestion from 1 to %d\n", ErrorStyle.Render("[Error]"), len(suggestions))
			return "", false
		}
		return suggestions[n-1], false

	default:
		fmt.Fprintf(a.Out, "%s unknown command %s (try /help)\n", ErrorStyle.Render("[Error]"), cmd)
	}
	return "", false
}

// =============================================================================
// OUTPUT
// =============================================================================

func (a *App) printChatWelcome() {
	fmt.Fprintln(a.Out, TitleStyle.Render("⚖ InCrime Legal AI Assistant"))
	name := "Guest"
	if a.Auth.IsAuthenticated() {
		name = a.Auth.User().DisplayName()
	}
	fmt.Fprintf(a.Out, "Signed in as %s. Type /help for commands, /quit to leave.\n", name)
	fmt.Fprintln(a.Out, DimStyle.Render(chatDisclaimer))
	fmt.Fprintln(a.Out)
}

// chatDisclaimer matches the footer of the chat UI.
const chatDisclaimer = "InCrime provides general legal information, not professional legal advice. " +
	"Consult a licensed advocate for your specific case."

func (a *App) printChatHelp() {
	rows := [][2]string{
		{"/new", "Start a new chat"},
		{"/history", "List saved chats"},
		{"/load N", "Open chat N"},
		{"/delete N", "Delete chat N"},
		{"/suggest [N]", "Show or use a starter question"},
		{"/help", "Show this help"},
		{"/quit", "Leave"},
	}
	for _, r := range rows {
		fmt.Fprintf(a.Out, "  %s %s\n", RenderLabel(r[0]), r[1])
	}
}

func (a *App) printChatHistory() {
	sessions := a.Controller.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(a.Out, DimStyle.Render("No chat history yet"))
		return
	}
	active := a.Controller.ActiveID()
	for i, s := range sessions {
		mark := "  "
		if s.ID == active {
			mark = "› "
		}
		fmt.Fprintf(a.Out, "%s%3d  %s\n", mark, i+1, util.TruncateRunes(util.SingleLine(s.Title), 60))
	}
}

// printTranscript writes every message of t.
func (a *App) printTranscript(t storage.Transcript) {
	fmt.Fprintln(a.Out, TitleStyle.Render(util.SingleLine(t.Title)))
	fmt.Fprintln(a.Out, RenderSeparator())
	for _, m := range t.Messages {
		label := UserStyle.Render("You")
		if m.Role == storage.RoleAssistant {
			label = AssistantStyle.Render("InCrime")
		}
		if m.Time != "" {
			label += " " + DimStyle.Render(m.Time)
		}
		fmt.Fprintln(a.Out, label)
		if m.Role == storage.RoleAssistant {
			a.displayReply(m.Text)
		} else {
			fmt.Fprintln(a.Out, m.Text)
		}
		fmt.Fprintln(a.Out)
	}
}
