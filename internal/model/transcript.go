// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// MaxTurns is the maximum number of turns kept in a transcript.
// When exceeded, the oldest non-welcome turns are pruned to prevent
// unbounded memory growth in long sessions.
const MaxTurns = 1000

// DefaultWelcomeText is the greeting shown when a session starts and
// restored after every clear.
const DefaultWelcomeText = "Hello! I'm your PyMOL assistant. Ask me to load structures, " +
	"apply representations, color selections, or run analyses, and I'll " +
	"generate the commands for you."

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript holds the ordered turns of a chat session.
//
// Invariant: the first turn is always the welcome turn. Clear removes
// everything else but never the welcome turn, so a freshly cleared
// transcript looks identical to a brand new one.
type Transcript struct {
	// Identity
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Turns, oldest first. Turns[0] is the welcome turn.
	Turns []*Turn `json:"turns"`
}

// NewTranscript creates a transcript seeded with the default welcome turn.
func NewTranscript() *Transcript {
	return NewTranscriptWithWelcome(DefaultWelcomeText)
}

// NewTranscriptWithWelcome creates a transcript seeded with a custom
// welcome message.
func NewTranscriptWithWelcome(welcomeText string) *Transcript {
	now := time.Now()
	return &Transcript{
		ID:        generateTranscriptID(),
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     []*Turn{NewWelcomeTurn(welcomeText)},
	}
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// Append adds a turn to the end of the transcript.
func (tr *Transcript) Append(turn *Turn) {
	tr.Turns = append(tr.Turns, turn)
	tr.UpdatedAt = time.Now()
	tr.pruneOldTurns()
}

// AddUserTurn creates and appends a user turn.
func (tr *Transcript) AddUserTurn(text string) *Turn {
	turn := NewUserTurn(text)
	tr.Append(turn)
	return turn
}

// AddAssistantTurn creates and appends an assistant turn.
func (tr *Transcript) AddAssistantTurn(text string, commands []string) *Turn {
	turn := NewAssistantTurn(text, commands)
	tr.Append(turn)
	return turn
}

// AddErrorTurn creates and appends an error turn.
func (tr *Transcript) AddErrorTurn(text string) *Turn {
	turn := NewErrorTurn(text)
	tr.Append(turn)
	return turn
}

// LastTurn returns the most recent turn. A transcript always has at
// least the welcome turn, so this never returns nil.
func (tr *Transcript) LastTurn() *Turn {
	return tr.Turns[len(tr.Turns)-1]
}

// LastAssistantTurn returns the most recent non-welcome assistant turn,
// or nil if none exists.
func (tr *Transcript) LastAssistantTurn() *Turn {
	for i := len(tr.Turns) - 1; i >= 0; i-- {
		if tr.Turns[i].Role == RoleAssistant && !tr.Turns[i].Welcome {
			return tr.Turns[i]
		}
	}
	return nil
}

// GetTurnByID returns a turn by its ID, or nil if not found.
func (tr *Transcript) GetTurnByID(id string) *Turn {
	for _, turn := range tr.Turns {
		if turn.ID == id {
			return turn
		}
	}
	return nil
}

// Clear removes every turn except the welcome turn.
// Clearing an already-clear transcript is a no-op.
func (tr *Transcript) Clear() {
	if len(tr.Turns) <= 1 {
		return
	}
	welcome := tr.Turns[0]
	tr.Turns = []*Turn{welcome}
	tr.UpdatedAt = time.Now()
}

// TurnCount returns the number of turns, welcome turn included.
func (tr *Transcript) TurnCount() int {
	return len(tr.Turns)
}

// IsEmpty returns true if the transcript holds only the welcome turn.
func (tr *Transcript) IsEmpty() bool {
	return len(tr.Turns) <= 1
}

// =============================================================================
// SERIALIZATION HELPERS
// =============================================================================

// Preview returns a short preview of the conversation for listings.
func (tr *Transcript) Preview() string {
	for i := len(tr.Turns) - 1; i >= 0; i-- {
		if tr.Turns[i].Role == RoleUser {
			return tr.Turns[i].Preview(100)
		}
	}
	return "Empty session"
}

// Clone creates a deep copy of the transcript.
func (tr *Transcript) Clone() *Transcript {
	clone := &Transcript{
		ID:        tr.ID,
		CreatedAt: tr.CreatedAt,
		UpdatedAt: tr.UpdatedAt,
		Turns:     make([]*Turn, len(tr.Turns)),
	}
	for i, turn := range tr.Turns {
		turnCopy := *turn
		turnCopy.Commands = append([]string(nil), turn.Commands...)
		clone.Turns[i] = &turnCopy
	}
	return clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateTranscriptID creates a unique transcript ID.
func generateTranscriptID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "sess_" + hex.EncodeToString(bytes)
}

// pruneOldTurns drops the oldest non-welcome turns when the transcript
// exceeds MaxTurns.
func (tr *Transcript) pruneOldTurns() {
	if len(tr.Turns) <= MaxTurns {
		return
	}
	welcome := tr.Turns[0]
	rest := tr.Turns[1:]
	excess := len(tr.Turns) - MaxTurns
	rest = rest[excess:]

	tr.Turns = make([]*Turn, 0, len(rest)+1)
	tr.Turns = append(tr.Turns, welcome)
	tr.Turns = append(tr.Turns, rest...)
}
