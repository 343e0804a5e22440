// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts and turns.
//
// This package defines the core domain types used throughout the
// application for representing a chat session with the PyMOL assistant.
//
// # Key Types
//
//   - Transcript: Container for a session's ordered turns; the first turn
//     is always the welcome turn and survives Clear
//   - Turn: Single transcript entry with role, text, timestamp, and any
//     PyMOL commands attached to an assistant reply
//   - Role: Turn author enumeration (user, assistant, error)
//   - SessionStatus: Controller state (idle, busy, error)
//
// # Usage
//
// Create a new transcript and append turns:
//
//	tr := model.NewTranscript()
//	tr.AddUserTurn("show me 1abc as cartoon")
//	tr.AddAssistantTurn("Here you go.", []string{"fetch 1abc", "show cartoon"})
//
// Clear the session without losing the greeting:
//
//	tr.Clear() // only the welcome turn remains
package model
