// incrime - InCrime Legal AI assistant for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/incrime/incrime-tui/internal/cli"
	"github.com/incrime/incrime-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdLogin:
		cli.HandleLogin(args)
	case cli.CmdSignup:
		cli.HandleSignup(args)
	case cli.CmdLogout:
		cli.HandleLogout(args)
	case cli.CmdWhoami:
		cli.HandleWhoami(args)
	case cli.CmdSessions:
		cli.HandleSessions(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		runTUI(args)
	}
}

// runTUI starts the chat UI.
func runTUI(args cli.Args) {
	if err := cli.RequiresTTY("start the chat UI"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nUse 'incrime ask' for non-interactive use.\n", err)
		os.Exit(cli.ExitUsageError)
	}

	app, err := cli.NewApp(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
	defer app.Close()

	watchPath := app.ConfigPath
	if args.Ephemeral {
		watchPath = ""
	}

	m := chat.New(chat.Deps{
		Controller: app.Controller,
		Auth:       app.Auth,
		Config:     app.Config,
		ConfigPath: watchPath,
		Logger:     app.Logger,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Mouse wheel scrolls the transcript
	)

	app.Logger.Info().Str("version", Version).Msg("chat UI started")
	if _, err := p.Run(); err != nil {
		app.Close()
		fmt.Fprintf(os.Stderr, "Error running incrime: %v\n", err)
		os.Exit(1)
	}
}
