// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Saved chat management.
//
// Command: sessions [subcommand]
// Aliases: session, history
//
// Subcommands:
//
//	list (default)      List saved chats, newest first (aliases: ls, l)
//	show <ref>          Print one chat
//	delete <ref>        Delete one chat (alias: rm)
//	export <ref>        Export one chat as Markdown or JSON
//	search <query>      Find chats by title or message text
//
// A <ref> is the position shown by list (1 is the newest) or the chat ID.
//
// Flags:
//
//	--format md|json    Export format (default: md)
//	--output FILE       Write the export to FILE instead of stdout
//	--confirm, -y       Delete without asking
//	--json              Output in JSON format
package cli

import (
	"fmt"
	"strings"

	"github.com/incrime/incrime-tui/internal/storage"
	"github.com/incrime/incrime-tui/internal/util"
)

// exportFormats are the formats accepted by "sessions export".
var exportFormats = []string{"md", "json"}

// Sessions dispatches the sessions subcommands.
func (a *App) Sessions(args Args) error {
	switch args.Subcommand {
	case "", "list", "ls", "l":
		return a.sessionsList(args)
	case "show", "view":
		return a.sessionsShow(args)
	case "delete", "rm", "del":
		return a.sessionsDelete(args)
	case "export":
		return a.sessionsExport(args)
	case "search", "find":
		return a.sessionsSearch(args)
	default:
		return &ValidationError{
			Field:   "subcommand",
			Value:   args.Subcommand,
			Reason:  "unknown sessions subcommand",
			Example: "incrime sessions [list|show|delete|export|search]",
		}
	}
}

// =============================================================================
// LIST AND SEARCH
// =============================================================================

func (a *App) sessionsList(args Args) error {
	return a.printSessionList("sessions list", a.Controller.Sessions(), args.JSON)
}

func (a *App) sessionsSearch(args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("query", "incrime sessions search bail")
	}
	return a.printSessionList("sessions search", storage.Search(a.Controller.Sessions(), args.Query), args.JSON)
}

func (a *App) printSessionList(command string, ts []storage.Transcript, jsonMode bool) error {
	if jsonMode {
		return NewJSONResponse(command, summarize(ts)).Print(a.Out)
	}
	fmt.Fprintln(a.Out, storage.FormatSessionList(ts))
	return nil
}

// =============================================================================
// SHOW
// =============================================================================

func (a *App) sessionsShow(args Args) error {
	t, err := a.lookupSession(args.Query, "incrime sessions show 1")
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("sessions show", t).Print(a.Out)
	}
	a.printTranscript(t)
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

func (a *App) sessionsDelete(args Args) error {
	t, err := a.lookupSession(args.Query, "incrime sessions delete 1 --confirm")
	if err != nil {
		return err
	}

	if args.Options["confirm"] != "true" {
		if !IsTTY() {
			return &ValidationError{
				Field:   "confirm",
				Reason:  "deleting without a terminal requires --confirm",
				Example: fmt.Sprintf("incrime sessions delete %s --confirm", t.ID),
			}
		}
		answer, err := a.readLine(fmt.Sprintf("Delete %q? [y/N] ", util.SingleLine(t.Title)))
		if err != nil {
			return err
		}
		if ans := strings.ToLower(answer); ans != "y" && ans != "yes" {
			return nil
		}
	}

	if _, err := a.Controller.DeleteSession(t.ID); err != nil {
		return &CommandError{Command: "sessions", Action: "delete", Reason: "could not save chat history", Err: err}
	}

	if args.JSON {
		return NewJSONResponse("sessions delete", map[string]interface{}{
			"deleted": true,
			"id":      t.ID,
			"title":   t.Title,
		}).Print(a.Out)
	}
	fmt.Fprintf(a.Out, "Deleted %q (%s).\n", t.Title, t.ID)
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

func (a *App) sessionsExport(args Args) error {
	format := strings.ToLower(args.Options["format"])
	switch format {
	case "", "md", "markdown":
		format = "md"
	case "json":
	default:
		return ErrUnsupportedFormat(format, exportFormats)
	}

	// The ref is the first word; the rest of the line is ignored.
	ref := strings.Fields(args.Query)
	if len(ref) == 0 {
		return ErrMissingArgument("chat", "incrime sessions export 1 --format json")
	}
	t, err := a.lookupSession(ref[0], "incrime sessions export 1 --format json")
	if err != nil {
		return err
	}

	var data []byte
	if format == "json" {
		if data, err = storage.ExportJSON(t); err != nil {
			return fmt.Errorf("failed to encode chat: %w", err)
		}
		data = append(data, '\n')
	} else {
		data = []byte(storage.ExportMarkdown(t))
	}

	if out := args.Options["output"]; out != "" {
		if err := util.AtomicWriteFile(out, data, 0600); err != nil {
			return &CommandError{Command: "sessions", Action: "export", Reason: "could not write " + out, Err: err}
		}
		StderrPrint("Exported %q to %s\n", t.Title, out)
		return nil
	}
	_, err = a.Out.Write(data)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// lookupSession resolves ref against the saved chats.
func (a *App) lookupSession(ref, example string) (storage.Transcript, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return storage.Transcript{}, ErrMissingArgument("chat", example)
	}
	return resolveSession(a.Controller.Sessions(), ref)
}

// resolveSession finds a chat by ID, then by 1-based list position.
// IDs are millisecond timestamps, so they never collide with positions.
func resolveSession(ts []storage.Transcript, ref string) (storage.Transcript, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return storage.Transcript{}, ErrMissingArgument("chat", "/load 1")
	}
	if t, ok := storage.Find(ts, ref); ok {
		return t, nil
	}
	if n, err := ParseIntWithValidation(ref, "position"); err == nil && n <= len(ts) {
		return ts[n-1], nil
	}
	return storage.Transcript{}, ErrNotFound("chat", ref)
}
