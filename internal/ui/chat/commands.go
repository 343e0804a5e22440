// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/jharlan/pymolchat/internal/export"
	"github.com/jharlan/pymolchat/internal/gateway"
	"github.com/jharlan/pymolchat/internal/model"
	"github.com/jharlan/pymolchat/internal/pymol"
)

// =============================================================================
// GATEWAY COMMANDS
// =============================================================================

// SendChatCmd creates a command that sends a message to the backend and
// delivers the outcome as a ChatResponseMsg.
func SendChatCmd(client *gateway.Client, message string) tea.Cmd {
	return func() tea.Msg {
		result, err := client.Chat(context.Background(), message)
		return ChatResponseMsg{Result: result, Err: err}
	}
}

// ClearHistoryCmd creates a command that asks the backend to drop its
// conversation history.
func ClearHistoryCmd(client *gateway.Client) tea.Cmd {
	return func() tea.Msg {
		return ClearResultMsg{Err: client.ClearHistory(context.Background())}
	}
}

// CheckHealthCmd creates a command that probes the backend health
// endpoint with a short deadline.
func CheckHealthCmd(client *gateway.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		status, err := client.Health(ctx)
		if err != nil {
			return HealthStatusMsg{Healthy: false, Err: err}
		}
		return HealthStatusMsg{Healthy: status.Healthy()}
	}
}

// =============================================================================
// CLIPBOARD COMMANDS
// =============================================================================

// CopyCommandsCmd copies a turn's commands, joined by newlines, to the
// clipboard. The system clipboard is the primary path; when it is
// unavailable (headless sessions, SSH) the OSC 52 terminal escape is the
// fallback. A failure of both paths is reported but never surfaced as an
// error turn.
func CopyCommandsCmd(turn *model.Turn) tea.Cmd {
	turnID := turn.ID
	text := turn.CommandText()
	return func() tea.Msg {
		err := clipboard.WriteAll(text)
		if err != nil {
			termenv.DefaultOutput().Copy(text)
			// OSC 52 gives no confirmation; treat emitting it as success.
			err = nil
		}
		return CopyResultMsg{TurnID: turnID, Err: err}
	}
}

// CopyExpireCmd reverts the "Copied" indication after the transient
// display window.
func CopyExpireCmd(turnID string) tea.Cmd {
	return tea.Tick(copiedIndicatorDuration, func(time.Time) tea.Msg {
		return CopyExpiredMsg{TurnID: turnID}
	})
}

// =============================================================================
// EXPORT COMMANDS
// =============================================================================

// ExportTranscriptCmd writes the transcript to a file in the current
// directory, in the configured format.
func ExportTranscriptCmd(tr *model.Transcript, format string) tea.Cmd {
	snapshot := tr.Clone()
	return func() tea.Msg {
		opts := export.DefaultOptions()
		opts.OpenAfterExport = false
		path, err := export.ExportAs(snapshot, format, opts)
		return ExportResultMsg{Path: path, Err: err}
	}
}

// =============================================================================
// SCRIPT COMMANDS
// =============================================================================

// SaveScriptCmd writes a turn's commands to a .pml script in the current
// directory. Commands pass through the safety filter first; a turn whose
// commands are all rejected reports a failure rather than writing an
// empty script.
func SaveScriptCmd(turn *model.Turn) tea.Cmd {
	commands := pymol.FilterCommands(turn.Commands)
	return func() tea.Msg {
		if len(commands) == 0 {
			return ScriptSavedMsg{Err: errors.New("no commands passed safety filtering")}
		}
		path := fmt.Sprintf("pymol_script_%s.pml", time.Now().Format("20060102_150405"))
		if err := pymol.WriteScript(path, commands); err != nil {
			return ScriptSavedMsg{Err: err}
		}
		return ScriptSavedMsg{Path: path}
	}
}

// =============================================================================
// STATUS NOTE COMMANDS
// =============================================================================

// NoteExpireCmd clears the transient status bar note after noteDuration.
func NoteExpireCmd() tea.Cmd {
	return tea.Tick(noteDuration, func(time.Time) tea.Msg {
		return NoteExpiredMsg{}
	})
}
