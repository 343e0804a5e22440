// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view component for the pymolchat TUI.

The Model is a Bubble Tea model that owns the session state machine:

	idle --send--> busy --success--> idle
	                busy --failure--> error

While busy, new sends are rejected; the next send after an error starts
a fresh cycle. The spinner runs exactly while the session is busy.

# Sending

sendMessage ignores empty and whitespace-only input, appends the user
turn optimistically before the network call, resets and re-focuses the
input, and dispatches the request through the gateway client. A
structured backend failure produces an error turn carrying the server's
own text; a transport failure produces an error turn with a generic
fallback.

# Clearing

Ctrl+L asks the backend to drop its history. Only a confirmed clear
touches the visible transcript, so the display never disagrees with the
server. A failed clear is logged and otherwise ignored.

# Copying

Ctrl+Y copies the most recent assistant turn's commands, joined by
newlines, exactly as generated. The system clipboard is the primary
path with an OSC 52 terminal escape fallback; the command block shows a
transient "Copied" indication that reverts after about two seconds.

# Exporting and saving

Ctrl+E writes the transcript to a file in the working directory, in the
configured format (Markdown by default, HTML and JSON via
SetExportFormat). Ctrl+S saves the most recent assistant turn's
commands as a .pml script after safety filtering.

# Input ergonomics

Enter sends; Alt+Enter inserts a literal newline. The input grows with
its content up to a bounded height.

# Usage

Create a model and run it as a Bubble Tea program:

	client := gateway.NewClient()
	theme := styles.NewTheme()
	m := chat.New(client, theme, version)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
