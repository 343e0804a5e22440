// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Gateway: chat responses, history clearing, health probes
//   - Copy: clipboard operations and their transient indicator
//   - Export: transcript export and script save results
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"github.com/jharlan/pymolchat/internal/gateway"
)

// =============================================================================
// GATEWAY MESSAGES
// =============================================================================

// ChatResponseMsg delivers the outcome of a gateway Chat call.
// Exactly one of Result and Err is set.
type ChatResponseMsg struct {
	Result *gateway.ChatResult
	Err    error
}

// ClearResultMsg delivers the outcome of a gateway ClearHistory call.
type ClearResultMsg struct {
	Err error
}

// HealthStatusMsg reports the result of a backend health probe.
type HealthStatusMsg struct {
	Healthy bool
	Err     error
}

// =============================================================================
// COPY MESSAGES
// =============================================================================

// CopyResultMsg reports that a copy attempt settled. Err is non-nil when
// both the system clipboard and the OSC 52 fallback failed; the failure
// is swallowed and the affordance simply stays in its normal state.
type CopyResultMsg struct {
	TurnID string
	Err    error
}

// CopyExpiredMsg reverts the transient "Copied" indication.
type CopyExpiredMsg struct {
	TurnID string
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportResultMsg delivers the outcome of a transcript export.
type ExportResultMsg struct {
	Path string
	Err  error
}

// ScriptSavedMsg delivers the outcome of saving the last command block
// as a PyMOL script file.
type ScriptSavedMsg struct {
	Path string
	Err  error
}

// =============================================================================
// STATUS NOTE MESSAGES
// =============================================================================

// NoteExpiredMsg clears the transient status bar note.
type NoteExpiredMsg struct{}
