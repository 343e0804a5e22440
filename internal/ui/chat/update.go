// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"log"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jharlan/pymolchat/internal/gateway"
	"github.com/jharlan/pymolchat/internal/model"
)

// transportFallbackText is shown when the backend could not be reached
// at all, so there is no server-provided error text to display.
const transportFallbackText = "Could not reach the PyMOL backend. Is the server running?"

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		// Only animate while a request is in flight.
		if m.status == model.StatusBusy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case ChatResponseMsg:
		return m.handleChatResponse(msg)

	case ClearResultMsg:
		return m.handleClearResult(msg)

	case HealthStatusMsg:
		m.backendKnown = true
		m.backendHealthy = msg.Healthy
		if msg.Err != nil {
			log.Printf("HEALTH_PROBE_FAILED | error=%v", msg.Err)
		}
		return m, nil

	case CopyResultMsg:
		if msg.Err != nil {
			// Both copy paths failed. Swallow it; the affordance stays
			// in its normal state.
			log.Printf("COPY_FAILED | error=%v", msg.Err)
			return m, nil
		}
		m.copiedTurnID = msg.TurnID
		m.refreshViewport(false)
		return m, CopyExpireCmd(msg.TurnID)

	case CopyExpiredMsg:
		if m.copiedTurnID == msg.TurnID {
			m.copiedTurnID = ""
			m.refreshViewport(false)
		}
		return m, nil

	case ExportResultMsg:
		if msg.Err != nil {
			m.note = "Export failed"
			log.Printf("EXPORT_FAILED | error=%v", msg.Err)
		} else {
			m.note = "Exported to " + msg.Path
		}
		return m, NoteExpireCmd()

	case ScriptSavedMsg:
		if msg.Err != nil {
			m.note = "Script save failed"
			log.Printf("SCRIPT_SAVE_FAILED | error=%v", msg.Err)
		} else {
			m.note = "Script saved to " + msg.Path
		}
		return m, NoteExpireCmd()

	case NoteExpiredMsg:
		m.note = ""
		return m, nil
	}

	// Forward everything else to the focused components.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey routes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m, m.sendMessage()

	case key.Matches(msg, m.keyMap.Newline):
		m.input.InsertString("\n")
		m.growInput()
		return m, nil

	case key.Matches(msg, m.keyMap.Clear):
		return m, m.clearChat()

	case key.Matches(msg, m.keyMap.Copy):
		return m, m.copyLastCommands()

	case key.Matches(msg, m.keyMap.Export):
		return m, ExportTranscriptCmd(m.transcript, m.exportFormat)

	case key.Matches(msg, m.keyMap.SaveScript):
		return m, m.saveScript()

	case key.Matches(msg, m.keyMap.Up),
		key.Matches(msg, m.keyMap.Down),
		key.Matches(msg, m.keyMap.PageUp),
		key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Everything else is typing.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.growInput()
	return m, cmd
}

// handleChatResponse settles an in-flight request. The spinner stops on
// every exit path because leaving StatusBusy stops the tick loop.
func (m Model) handleChatResponse(msg ChatResponseMsg) (Model, tea.Cmd) {
	if msg.Err != nil {
		m.status = model.StatusError
		m.transcript.AddErrorTurn(failureText(msg.Err))
		m.refreshViewport(true)
		return m, nil
	}

	m.status = model.StatusIdle
	m.transcript.AddAssistantTurn(msg.Result.Message, msg.Result.Commands)
	m.refreshViewport(true)
	return m, nil
}

// handleClearResult settles a clear request. Only a confirmed clear
// touches the visible transcript.
func (m Model) handleClearResult(msg ClearResultMsg) (Model, tea.Cmd) {
	if msg.Err != nil {
		log.Printf("CLEAR_FAILED | error=%v", msg.Err)
		return m, nil
	}

	m.transcript.Clear()
	m.status = model.StatusIdle
	m.note = "History cleared"
	m.refreshViewport(true)
	return m, NoteExpireCmd()
}

// failureText picks the error turn text. Structured backend failures
// carry the server's own message; transport failures get a generic
// fallback since there is nothing trustworthy to show.
func failureText(err error) string {
	if gateway.IsBackendError(err) {
		return err.Error()
	}
	return transportFallbackText
}
