// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts and turns.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jharlan/pymolchat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "PyMOL Assistant"
	case RoleError:
		return "Error"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is a single entry in a chat transcript: one message from one
// author, plus any PyMOL commands the assistant produced alongside it.
type Turn struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Text string `json:"text"`

	// Commands the assistant generated for this turn. Rendered as a
	// copyable block below the text; nil for user and error turns.
	Commands []string `json:"commands,omitempty"`

	// Welcome marks the greeting turn that survives a transcript clear.
	Welcome bool `json:"welcome,omitempty"`
}

// NewTurn creates a new turn with a generated ID.
func NewTurn(role Role, text string) *Turn {
	return &Turn{
		ID:        generateTurnID(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewUserTurn creates a new user turn.
func NewUserTurn(text string) *Turn {
	return NewTurn(RoleUser, text)
}

// NewAssistantTurn creates a new assistant turn with optional commands.
func NewAssistantTurn(text string, commands []string) *Turn {
	t := NewTurn(RoleAssistant, text)
	t.Commands = commands
	return t
}

// NewErrorTurn creates a new error turn.
func NewErrorTurn(text string) *Turn {
	return NewTurn(RoleError, text)
}

// NewWelcomeTurn creates the greeting turn shown when a session starts.
func NewWelcomeTurn(text string) *Turn {
	t := NewTurn(RoleAssistant, text)
	t.Welcome = true
	return t
}

// =============================================================================
// TURN METHODS
// =============================================================================

// HasCommands reports whether the turn carries a command block.
func (t *Turn) HasCommands() bool {
	return len(t.Commands) > 0
}

// CommandText returns the command block as a single newline-joined string,
// one command per line. This is exactly what the copy action places on the
// clipboard.
func (t *Turn) CommandText() string {
	if len(t.Commands) == 0 {
		return ""
	}
	out := t.Commands[0]
	for _, cmd := range t.Commands[1:] {
		out += "\n" + cmd
	}
	return out
}

// Preview returns a truncated preview of the turn text.
// Uses rune-based truncation to handle Unicode correctly.
func (t *Turn) Preview(maxLen int) string {
	return util.TruncateRunes(t.Text, maxLen)
}

// IsEmpty returns true if the turn has no text and no commands.
func (t *Turn) IsEmpty() bool {
	return len(t.Text) == 0 && len(t.Commands) == 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateTurnID creates a unique turn ID.
func generateTurnID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "turn_" + hex.EncodeToString(bytes)
}
