// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// incrime.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: parsed global flags plus command-specific values
//   - App: the wired application (config, storage, API client, auth
//     context and conversation controller) shared by every command
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - ask: send one question and print the reply
//   - chat: line-oriented chat with history commands
//   - login, signup, logout, whoami: account management
//   - sessions: list, show, delete, export and search saved chats
//   - config: show the effective configuration
//
// Commands that print data accept --json for machine-readable output.
package cli
