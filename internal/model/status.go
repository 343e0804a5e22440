// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// SESSION STATUS
// =============================================================================

// SessionStatus is the controller state of a chat session.
//
// The session is Busy from the moment a message is dispatched until the
// reply (or failure) lands. While Busy, new sends are rejected. Error is
// sticky only until the next successful exchange.
type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusBusy
	StatusError
)

// String returns the display string for the status.
func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "Ready"
	case StatusBusy:
		return "Thinking..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns an icon for the status.
// ACCESSIBILITY: Uses distinct shapes alongside colors for colorblind users
func (s SessionStatus) Icon() string {
	switch s {
	case StatusIdle:
		return "+"
	case StatusBusy:
		return "~"
	case StatusError:
		return "x"
	default:
		return "?"
	}
}

// CanSend reports whether a new message may be dispatched in this state.
// Only Busy blocks sending; an error state still accepts input.
func (s SessionStatus) CanSend() bool {
	return s != StatusBusy
}
