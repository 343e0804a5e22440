// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jharlan/pymolchat/internal/llm"
)

// fakeCompleter is a scripted ChatCompleter for tests.
type fakeCompleter struct {
	reply    string
	err      error
	lastReq  []llm.ChatMessage
	numCalls int
}

func (f *fakeCompleter) Chat(_ context.Context, messages []llm.ChatMessage) (*llm.ChatResponse, error) {
	f.numCalls++
	f.lastReq = messages
	if f.err != nil {
		return nil, f.err
	}
	resp := &llm.ChatResponse{}
	resp.Choices = append(resp.Choices, struct {
		Message      llm.ChatMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}{
		Message: llm.NewAssistantMessage(f.reply),
	})
	return resp, nil
}

func (f *fakeCompleter) Model() string { return "fake-model" }

func TestAgent_Generate(t *testing.T) {
	fake := &fakeCompleter{reply: "fetch 1abc\nshow cartoon\nzoom"}
	a := New(fake)

	result, err := a.Generate(context.Background(), "show me 1abc as cartoon")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Explanation != "fetch 1abc\nshow cartoon\nzoom" {
		t.Errorf("Explanation = %q", result.Explanation)
	}
	want := []string{"fetch 1abc", "show cartoon", "zoom"}
	if len(result.Commands) != len(want) {
		t.Fatalf("Commands = %v, want %v", result.Commands, want)
	}
	for i := range want {
		if result.Commands[i] != want[i] {
			t.Errorf("Commands[%d] = %q, want %q", i, result.Commands[i], want[i])
		}
	}
	if result.Model != "fake-model" {
		t.Errorf("Model = %q", result.Model)
	}
}

func TestAgent_Generate_RepairsTypos(t *testing.T) {
	fake := &fakeCompleter{reply: "fetc 1abc\nsho cartoon"}
	a := New(fake)

	result, err := a.Generate(context.Background(), "show me 1abc as cartoon")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := []string{"fetch 1abc", "show cartoon"}
	if len(result.Commands) != len(want) {
		t.Fatalf("Commands = %v, want %v", result.Commands, want)
	}
	for i := range want {
		if result.Commands[i] != want[i] {
			t.Errorf("Commands[%d] = %q, want %q", i, result.Commands[i], want[i])
		}
	}
}

func TestRepairCommands_KeepsUnrepairable(t *testing.T) {
	got := repairCommands([]string{"frobnicate the protein", "zoom"})
	if got[0] != "frobnicate the protein" {
		t.Errorf("unrepairable command rewritten to %q", got[0])
	}
	if got[1] != "zoom" {
		t.Errorf("valid command rewritten to %q", got[1])
	}
}

func TestAgent_Generate_SystemPromptFirst(t *testing.T) {
	fake := &fakeCompleter{reply: "zoom"}
	a := New(fake)

	if _, err := a.Generate(context.Background(), "zoom in"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(fake.lastReq) < 2 {
		t.Fatalf("got %d messages, want system + user", len(fake.lastReq))
	}
	if fake.lastReq[0].Role != "system" {
		t.Errorf("first message role = %q, want system", fake.lastReq[0].Role)
	}
	if !strings.Contains(fake.lastReq[0].Content, "ONLY PyMOL commands") {
		t.Error("system prompt missing command-only instruction")
	}
	if fake.lastReq[len(fake.lastReq)-1].Role != "user" {
		t.Error("last message should be the user request")
	}
}

func TestAgent_Generate_EmptyRequest(t *testing.T) {
	a := New(&fakeCompleter{reply: "zoom"})
	if _, err := a.Generate(context.Background(), "   "); err == nil {
		t.Error("whitespace-only request should fail")
	}
}

func TestAgent_Generate_PropagatesError(t *testing.T) {
	wantErr := errors.New("backend down")
	a := New(&fakeCompleter{err: wantErr})

	_, err := a.Generate(context.Background(), "do something")
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
	if a.HistoryLen() != 0 {
		t.Error("failed generations should not enter history")
	}
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestAgent_HistoryGrowsAndCaps(t *testing.T) {
	fake := &fakeCompleter{reply: "zoom"}
	a := New(fake)

	for i := 0; i < 15; i++ {
		if _, err := a.Generate(context.Background(), "request"); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
	}

	// 15 exchanges = 30 messages, capped at maxHistory
	if got := a.HistoryLen(); got != maxHistory {
		t.Errorf("HistoryLen() = %d, want %d", got, maxHistory)
	}
}

func TestAgent_ContextWindow(t *testing.T) {
	fake := &fakeCompleter{reply: "zoom"}
	a := New(fake)

	for i := 0; i < 10; i++ {
		if _, err := a.Generate(context.Background(), "request"); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
	}

	// system + contextWindow history + current user message
	wantLen := 1 + contextWindow + 1
	if len(fake.lastReq) != wantLen {
		t.Errorf("request carried %d messages, want %d", len(fake.lastReq), wantLen)
	}
}

func TestAgent_SeedHistory(t *testing.T) {
	fake := &fakeCompleter{reply: "zoom"}
	a := New(fake)

	seed := []llm.ChatMessage{
		llm.NewUserMessage("color it blue"),
		llm.NewAssistantMessage("color blue"),
	}
	a.SeedHistory(seed)

	if got := a.HistoryLen(); got != 2 {
		t.Fatalf("HistoryLen() = %d, want 2", got)
	}

	// Seeded context accompanies the next generation request.
	if _, err := a.Generate(context.Background(), "now zoom"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	found := false
	for _, msg := range fake.lastReq {
		if msg.Role == "assistant" && msg.Content == "color blue" {
			found = true
		}
	}
	if !found {
		t.Error("seeded history missing from generation request")
	}
}

func TestAgent_SeedHistoryTrims(t *testing.T) {
	a := New(&fakeCompleter{reply: "zoom"})

	seed := make([]llm.ChatMessage, maxHistory+10)
	for i := range seed {
		seed[i] = llm.NewUserMessage("msg")
	}
	a.SeedHistory(seed)

	if got := a.HistoryLen(); got != maxHistory {
		t.Errorf("HistoryLen() = %d, want %d", got, maxHistory)
	}
}

func TestAgent_Reset(t *testing.T) {
	fake := &fakeCompleter{reply: "zoom"}
	a := New(fake)

	if _, err := a.Generate(context.Background(), "request"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if a.HistoryLen() == 0 {
		t.Fatal("history should have grown")
	}

	a.Reset()
	if a.HistoryLen() != 0 {
		t.Errorf("HistoryLen() after Reset = %d, want 0", a.HistoryLen())
	}
}

// =============================================================================
// STRUCTURE REGISTRY TESTS
// =============================================================================

func TestAgent_LoadStructure_PDB(t *testing.T) {
	a := New(&fakeCompleter{reply: "zoom"})

	commands, err := a.LoadStructure("6HRE", "", "tau")
	if err != nil {
		t.Fatalf("LoadStructure failed: %v", err)
	}
	if commands[0] != "fetch 6HRE" {
		t.Errorf("commands[0] = %q, want fetch", commands[0])
	}
	if len(commands) < 2 || !strings.Contains(commands[1], "set_name") {
		t.Errorf("commands = %v, want a rename to tau", commands)
	}

	structures := a.Structures()
	if len(structures) != 1 || structures[0].Name != "tau" {
		t.Errorf("Structures() = %v, want one named tau", structures)
	}
}

func TestAgent_LoadStructure_File(t *testing.T) {
	a := New(&fakeCompleter{reply: "zoom"})

	commands, err := a.LoadStructure("", "/data/proteins/model.pdb", "")
	if err != nil {
		t.Fatalf("LoadStructure failed: %v", err)
	}
	if commands[0] != "load /data/proteins/model.pdb" {
		t.Errorf("commands[0] = %q", commands[0])
	}

	structures := a.Structures()
	if len(structures) != 1 || structures[0].Name != "model" {
		t.Errorf("Structures() = %v, want one named model", structures)
	}
}

func TestAgent_LoadStructure_Validation(t *testing.T) {
	a := New(&fakeCompleter{reply: "zoom"})

	if _, err := a.LoadStructure("", "", ""); err == nil {
		t.Error("neither source should be an error")
	}
	if _, err := a.LoadStructure("1abc", "/tmp/x.pdb", ""); err == nil {
		t.Error("both sources should be an error")
	}
}

func TestAgent_StructuresAnnotatePrompt(t *testing.T) {
	fake := &fakeCompleter{reply: "zoom"}
	a := New(fake)

	if _, err := a.LoadStructure("6HRE", "", "tau"); err != nil {
		t.Fatalf("LoadStructure failed: %v", err)
	}
	if _, err := a.Generate(context.Background(), "rotate it"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	userMsg := fake.lastReq[len(fake.lastReq)-1].Content
	if !strings.Contains(userMsg, "Currently loaded structures") {
		t.Errorf("user prompt missing structure context: %q", userMsg)
	}
	if !strings.Contains(userMsg, "tau") {
		t.Errorf("user prompt missing structure name: %q", userMsg)
	}
}

func TestAgent_ResetKeepsStructures(t *testing.T) {
	a := New(&fakeCompleter{reply: "zoom"})
	if _, err := a.LoadStructure("1abc", "", ""); err != nil {
		t.Fatalf("LoadStructure failed: %v", err)
	}

	a.Reset()
	if len(a.Structures()) != 1 {
		t.Error("Reset should not drop loaded structures")
	}
}
