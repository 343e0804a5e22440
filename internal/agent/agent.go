// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent turns natural-language requests into PyMOL commands.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jharlan/pymolchat/internal/llm"
	"github.com/jharlan/pymolchat/internal/pymol"
	"github.com/jharlan/pymolchat/internal/util"
)

const (
	// maxHistory is how many conversation messages are retained.
	maxHistory = 20

	// contextWindow is how many trailing history messages accompany
	// each generation request.
	contextWindow = 6

	// generationTemperature keeps command output deterministic-ish.
	generationTemperature = 0.1

	// generationMaxTokens caps a single completion.
	generationMaxTokens = 2000
)

// ChatCompleter is the slice of the LLM client the agent needs.
// Satisfied by *llm.Client; tests substitute a fake.
type ChatCompleter interface {
	Chat(ctx context.Context, messages []llm.ChatMessage) (*llm.ChatResponse, error)
	Model() string
}

// Result is the outcome of one generation request.
type Result struct {
	Explanation string    `json:"explanation"`
	Commands    []string  `json:"pymol_commands"`
	Model       string    `json:"model_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// Agent wraps the LLM client with conversation history, the structure
// registry, and command extraction. Safe for concurrent use.
type Agent struct {
	client ChatCompleter

	mu         sync.Mutex
	history    []llm.ChatMessage
	structures map[string]Structure
}

// New creates an agent backed by the given completer.
func New(client ChatCompleter) *Agent {
	return &Agent{
		client:     client,
		structures: make(map[string]Structure),
	}
}

// NewWithClient creates an agent from an API key using the default
// client configuration.
func NewWithClient(apiKey, model string) *Agent {
	client := llm.NewClient(apiKey).
		WithModel(model).
		WithTemperature(generationTemperature).
		WithMaxTokens(generationMaxTokens)
	return New(client)
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate produces PyMOL commands for a natural-language request.
//
// The prompt carries the system instructions, the last few history
// messages for context, and the request itself (annotated with any
// loaded structures). On success both sides of the exchange are added
// to the history.
func (a *Agent) Generate(ctx context.Context, request string) (*Result, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, fmt.Errorf("empty request")
	}

	messages := []llm.ChatMessage{llm.NewSystemMessage(systemPrompt)}
	messages = append(messages, a.recentHistory()...)
	messages = append(messages, llm.NewUserMessage(a.buildUserPrompt(request)))

	resp, err := a.client.Chat(ctx, messages)
	if err != nil {
		log.Printf("AGENT_ERROR | request=%q err=%v", util.TruncateRunes(request, 50), err)
		return nil, err
	}

	generated := strings.TrimSpace(resp.GetContent())
	if generated == "" {
		return nil, llm.ErrEmptyCompletion
	}

	commands := repairCommands(pymol.ExtractCommands(generated))

	a.addToHistory(llm.NewUserMessage(request))
	a.addToHistory(llm.NewAssistantMessage(generated))

	log.Printf("AGENT_OK | request=%q commands=%d", util.TruncateRunes(request, 50), len(commands))

	return &Result{
		Explanation: generated,
		Commands:    commands,
		Model:       a.client.Model(),
		Timestamp:   time.Now(),
	}, nil
}

// repairCommands runs extracted commands through validation and, for
// the ones that fail, attempts an automatic correction. A correction is
// only substituted when the corrected form itself validates; otherwise
// the original command is kept so the user sees what the model wrote.
func repairCommands(commands []string) []string {
	for i, cmd := range commands {
		ok, reason := pymol.ValidateCommand(cmd)
		if ok {
			continue
		}
		fixed, repaired := pymol.CorrectCommand(cmd, reason)
		if !repaired {
			continue
		}
		if ok, _ := pymol.ValidateCommand(fixed); !ok {
			continue
		}
		log.Printf("AGENT_REPAIR | from=%q to=%q", cmd, fixed)
		commands[i] = fixed
	}
	return commands
}

// buildUserPrompt appends loaded-structure context to the raw request.
func (a *Agent) buildUserPrompt(request string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.structures) == 0 {
		return request
	}

	var b strings.Builder
	b.WriteString(request)
	b.WriteString("\n\nCurrently loaded structures:\n")
	for _, s := range a.sortedStructuresLocked() {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return b.String()
}

// =============================================================================
// HISTORY
// =============================================================================

// recentHistory returns the trailing context window of the history.
func (a *Agent) recentHistory() []llm.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := len(a.history) - contextWindow
	if start < 0 {
		start = 0
	}
	out := make([]llm.ChatMessage, len(a.history)-start)
	copy(out, a.history[start:])
	return out
}

// addToHistory appends a message, trimming to the retention cap.
func (a *Agent) addToHistory(msg llm.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, msg)
	if len(a.history) > maxHistory {
		a.history = a.history[len(a.history)-maxHistory:]
	}
}

// SeedHistory replaces the conversation history with messages restored
// from persistence, trimmed to the retention cap. Meant for startup;
// later exchanges append as usual.
func (a *Agent) SeedHistory(messages []llm.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(messages) > maxHistory {
		messages = messages[len(messages)-maxHistory:]
	}
	a.history = append([]llm.ChatMessage(nil), messages...)
}

// HistoryLen returns the current history length.
func (a *Agent) HistoryLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}

// Reset clears the conversation history. Loaded structures are kept;
// they describe engine state, not conversation state.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}
