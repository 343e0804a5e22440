// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jharlan/pymolchat/internal/model"
	"github.com/jharlan/pymolchat/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen: header, transcript viewport, thinking
// indicator, input area, and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	if m.status == model.StatusBusy {
		sb.WriteString(m.spinner.View())
		sb.WriteString(m.theme.ThinkingText.Render(" Thinking..."))
		sb.WriteString("\n")
	}

	sb.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusBar())

	return sb.String()
}

// renderHeader renders the title bar.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("pymolchat")
	subtitle := m.theme.HeaderSubtitle.Render(" natural-language PyMOL scripting")
	return m.theme.Header.Width(m.width - 2).Render(title + subtitle)
}

// renderStatusBar renders the bottom status line.
func (m Model) renderStatusBar() string {
	bar := components.NewStatusBar(m.width)
	bar.Status = m.status
	bar.BackendKnown = m.backendKnown
	bar.BackendHealthy = m.backendHealthy
	bar.Note = m.note
	return bar.Render(m.theme)
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// refreshViewport re-renders the transcript into the viewport. When
// follow is true the view scrolls to the bottom, which is what every
// append does; resizes keep the current position.
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

// renderTranscript renders all turns, oldest first.
func (m *Model) renderTranscript() string {
	var parts []string

	banner := components.NewWelcomeBanner(m.version, m.client.BaseURL())
	banner.MaxWidth = contentWidth(m.width)
	parts = append(parts, banner.Render(m.theme))

	for _, turn := range m.transcript.Turns {
		parts = append(parts, m.renderTurn(turn))
	}

	return strings.Join(parts, "\n\n")
}

// renderTurn renders a single turn as a labeled bubble, plus the
// command block for assistant turns that carry one.
func (m *Model) renderTurn(turn *model.Turn) string {
	width := contentWidth(m.width)

	label := m.theme.RoleLabel.Render(turn.Role.DisplayName()) +
		" " + m.theme.Timestamp.Render(formatTimestamp(turn.Timestamp))

	var body string
	var bubble lipgloss.Style
	switch turn.Role {
	case model.RoleUser:
		body = wrapText(turn.Text, width-8)
		bubble = m.theme.UserBubble
	case model.RoleError:
		body = wrapText(turn.Text, width-4)
		bubble = m.theme.ErrorBubble
	default:
		body = m.renderAssistantText(turn.Text, width-8)
		bubble = m.theme.AssistantBubble
	}

	out := label + "\n" + bubble.MaxWidth(width).Render(body)

	if turn.HasCommands() {
		block := components.NewCommandBlock(turn.Commands)
		block.SetMaxWidth(width)
		block.Copied = turn.ID == m.copiedTurnID
		out += "\n" + block.Render()
	}

	return out
}

// renderAssistantText renders an explanation through the markdown
// renderer, falling back to plain wrapped text if rendering fails.
func (m *Model) renderAssistantText(text string, width int) string {
	if m.mdRenderer != nil {
		if out, err := m.mdRenderer.Render(text); err == nil {
			return strings.TrimSpace(out)
		}
	}
	return wrapText(text, width)
}

// contentWidth returns the usable width for transcript content.
func contentWidth(total int) int {
	w := total - 4
	if w < 20 {
		w = 20
	}
	return w
}
