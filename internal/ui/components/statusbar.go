// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jharlan/pymolchat/internal/model"
	"github.com/jharlan/pymolchat/internal/ui/styles"
	"github.com/jharlan/pymolchat/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar renders the bottom status line: session state, backend
// health, and key hints. Display-only; it holds no state of its own.
type StatusBar struct {
	Width int

	// Session state
	Status model.SessionStatus

	// Backend health
	BackendHealthy bool
	BackendKnown   bool // false until the first health probe settles

	// Optional transient note (e.g. "Copied", "History cleared")
	Note string
}

// NewStatusBar creates a status bar with the given width.
func NewStatusBar(width int) StatusBar {
	return StatusBar{Width: width}
}

// Render renders the status bar as a single line.
func (s StatusBar) Render(theme *styles.Theme) string {
	status := s.renderStatus(theme)
	backend := s.renderBackend(theme)

	hints := theme.ShortcutKey.Render("Enter") + theme.ShortcutDesc.Render(" send  ") +
		theme.ShortcutKey.Render("Alt+Enter") + theme.ShortcutDesc.Render(" newline  ") +
		theme.ShortcutKey.Render("C-l") + theme.ShortcutDesc.Render(" clear  ") +
		theme.ShortcutKey.Render("C-c") + theme.ShortcutDesc.Render(" quit")

	left := status + "  " + backend
	if s.Note != "" {
		left += "  " + theme.ShortcutDesc.Render(s.Note)
	}

	// Right-align the hints when there is room; drop them when the
	// terminal is too narrow rather than wrapping the bar.
	leftWidth := lipgloss.Width(left)
	hintWidth := lipgloss.Width(hints)
	gap := s.Width - leftWidth - hintWidth - 2

	var line string
	switch {
	case gap >= 1:
		line = left + strings.Repeat(" ", gap) + hints
	case s.Width > leftWidth+2:
		line = left
	default:
		line = util.TruncateWidth(left, s.Width-2)
	}

	return theme.StatusBar.Width(s.Width).Render(line)
}

// renderStatus renders the session status segment.
func (s StatusBar) renderStatus(theme *styles.Theme) string {
	label := s.Status.Icon() + " " + s.Status.String()
	switch s.Status {
	case model.StatusBusy:
		return theme.StatusBusy.Render(label)
	case model.StatusError:
		return theme.StatusError.Render(label)
	default:
		return theme.StatusIdle.Render(label)
	}
}

// renderBackend renders the backend health segment.
func (s StatusBar) renderBackend(theme *styles.Theme) string {
	switch {
	case !s.BackendKnown:
		return theme.ShortcutDesc.Render("backend: ...")
	case s.BackendHealthy:
		return theme.StatusIdle.Render("backend: up")
	default:
		return theme.StatusError.Render("backend: down")
	}
}
