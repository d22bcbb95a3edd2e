// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command.
//
// Command: ask [question]
//
// Examples:
//
//	incrime ask "How do I register an FIR?"
//	echo "What is khula?" | incrime ask
//	incrime ask --json "Bail in a non-bailable offence"
//
// The question is stored as a new chat, exactly as if it had been typed in
// the chat UI.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// maxStdinQuestion caps a question piped on stdin.
const maxStdinQuestion = 16 * 1024

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	mdOnce     sync.Once
	mdRenderer *glamour.TermRenderer
)

// renderMarkdown renders content for the terminal, or returns it unchanged
// when rendering is unavailable.
func renderMarkdown(content string) string {
	mdOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
		)
		if err == nil {
			mdRenderer = r
		}
	})
	if mdRenderer == nil {
		return content
	}
	out, err := mdRenderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

// displayReply prints a reply, rendering markdown only on a TTY so piped
// output stays clean.
func (a *App) displayReply(text string) {
	if a.Config.UI.RenderMarkdown && a.Out == io.Writer(os.Stdout) && IsStdoutTTY() {
		fmt.Fprint(a.Out, renderMarkdown(text))
		return
	}
	fmt.Fprintln(a.Out, text)
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// Ask sends args.Query as a new chat and prints the reply. A failed call
// still prints the fallback reply; only storage failures are errors.
func (a *App) Ask(args Args) error {
	question := args.Query
	if question == "" && !IsTTY() {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinQuestion))
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if strings.TrimSpace(question) == "" {
		return ErrMissingArgument("question", `incrime ask "How do I file a bail application?"`)
	}

	ctx, cancel := a.context()
	defer cancel()

	a.Controller.StartNewChat()
	sendErr := a.Controller.SendMessage(ctx, question)
	msgs := a.Controller.Messages()
	if len(msgs) < 2 {
		return sendErr
	}
	asked, reply := msgs[len(msgs)-2], msgs[len(msgs)-1]

	return OutputJSON(a.Out, args.JSON, "ask", func() (interface{}, error) {
		if !args.JSON {
			a.displayReply(reply.Text)
		}
		if sendErr != nil {
			return nil, &CommandError{Command: "ask", Action: "save", Reason: "the reply was not saved to history", Err: sendErr}
		}
		return AskData{
			TranscriptID: a.Controller.ActiveID(),
			Question:     asked.Text,
			Reply:        reply.Text,
			Time:         asked.Time,
		}, nil
	})
}
