// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view for the InCrime TUI.

The view is a Bubble Tea model layered over a conversation.Controller. The
controller owns all transcript state; the model only renders it and turns
key presses into controller calls.

# Key Components

## Model (model.go)

Holds the widgets (textarea input, viewport transcript, typing spinner),
the theme, and the sidebar cursor. New wires the controller, the optional
auth context and the config file watcher.

## Update (update.go)

A send is split in two so the UI never blocks: Begin runs inside Update
and appends the user entry immediately, Finish runs as a tea.Cmd and
delivers a replyMsg. While a reply is outstanding the input refuses to
submit and the typing indicator animates.

## View Rendering (view.go)

Header with brand and user badge, optional history sidebar, welcome view
with suggestion chips or the transcript, input box, disclaimer and a key
hint bar. Assistant replies render through glamour (markdown.go).

# Key Bindings (keys.go)

	Enter    send
	Ctrl+N   new chat
	Ctrl+H   toggle history sidebar (Tab moves focus into it)
	Ctrl+D   delete the selected transcript (sidebar focused)
	Ctrl+T   toggle dark/light theme
	1-4      fill a suggestion (welcome view, empty input)
	F1       help
	Ctrl+C   quit
*/
package chat
