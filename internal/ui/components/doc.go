// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the pymolchat TUI.

This package contains styled display components built on top of the Lip
Gloss library. Each component is render-only: the chat controller owns the
state and passes it in.

# Components

CommandBlock (commandblock.go) - Syntax-highlighted PyMOL command block
with a copy affordance. Text() returns exactly what the copy action places
on the clipboard.

StatusBar (statusbar.go) - Bottom status line with session state, backend
health, and key hints. Truncation is display-width aware.

WelcomeBanner (welcome.go) - Startup banner shown above the first turn.

# Theme Integration

All components accept a *styles.Theme for consistent styling:

	theme := styles.NewTheme()
	block := components.NewCommandBlock([]string{"fetch 1abc", "show cartoon"})
	block.SetMaxWidth(80)
	view := block.Render()

	bar := components.NewStatusBar(80)
	bar.Status = model.StatusIdle
	line := bar.Render(theme)
*/
package components
