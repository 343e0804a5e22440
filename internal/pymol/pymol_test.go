// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pymol

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidateCommand_Valid(t *testing.T) {
	valid := []string{
		"fetch 1abc",
		"show cartoon",
		"hide everything",
		"color red, chain A",
		"color 0xFF0000, chain B",
		"zoom",
		"orient",
		"bg_color white",
		"mset 1 x120",
		"mview store 1",
		"translate [10, 0, 0], copy1",
		"cmd.show cartoon",
	}

	for _, cmd := range valid {
		t.Run(cmd, func(t *testing.T) {
			ok, reason := ValidateCommand(cmd)
			if !ok {
				t.Errorf("ValidateCommand(%q) failed: %s", cmd, reason)
			}
		})
	}
}

func TestValidateCommand_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		command string
		reason  string
	}{
		{"empty", "", "empty command"},
		{"whitespace", "   ", "empty command"},
		{"unknown", "frobnicate all", "unknown command"},
		{"bad color", "color blurple, chain A", "invalid color"},
		{"show no rep", "show", "requires a representation type"},
		{"fetch no id", "fetch", "requires a PDB ID"},
		{"mset no frames", "mset", "requires frame specification"},
		{"mview store no frame", "mview store", "requires frame number"},
		{"translate no vector", "translate copy1", "requires coordinate vector"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := ValidateCommand(tc.command)
			if ok {
				t.Fatalf("ValidateCommand(%q) should fail", tc.command)
			}
			if !strings.Contains(reason, tc.reason) {
				t.Errorf("reason = %q, want it to contain %q", reason, tc.reason)
			}
		})
	}
}

func TestValidateCommand_TypoSuggestions(t *testing.T) {
	ok, reason := ValidateCommand("cartoom everything")
	if ok {
		t.Fatal("misspelled command should fail validation")
	}
	if !strings.Contains(reason, "did you mean") {
		t.Errorf("reason = %q, want a suggestion", reason)
	}
	if !strings.Contains(reason, "cartoon") {
		t.Errorf("reason = %q, want it to suggest cartoon", reason)
	}
}

// =============================================================================
// CORRECTION TESTS
// =============================================================================

func TestCorrectCommand_TypoTable(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"cartoom", "cartoon"},
		{"stiks all", "sticks all"},
		{"colr red, chain A", "color red, chain A"},
		{"fetc 1abc", "fetch 1abc"},
		{"zoo all", "zoom all"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := CorrectCommand(tc.input, "unknown command")
			if !ok {
				t.Fatalf("CorrectCommand(%q) found no correction", tc.input)
			}
			if got != tc.want {
				t.Errorf("CorrectCommand(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCorrectCommand_MissingArguments(t *testing.T) {
	tests := []struct {
		input  string
		errMsg string
		want   string
	}{
		{"show", "'show' requires a representation type", "show cartoon"},
		{"hide", "'hide' requires a representation type", "hide everything"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := CorrectCommand(tc.input, tc.errMsg)
			if !ok {
				t.Fatalf("CorrectCommand(%q) found no correction", tc.input)
			}
			if got != tc.want {
				t.Errorf("CorrectCommand(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCorrectCommand_InvalidColor(t *testing.T) {
	got, ok := CorrectCommand("color blurple, chain A", "invalid color 'blurple'")
	if !ok {
		t.Fatal("expected a color correction")
	}
	if !strings.HasPrefix(got, "color red") {
		t.Errorf("CorrectCommand() = %q, want a red fallback", got)
	}
}

func TestCorrectCommand_NoCorrection(t *testing.T) {
	if got, ok := CorrectCommand("xyzzy foo", "unknown command 'xyzzy'"); ok {
		// xyzzy has no close match in the registry
		if IsValidCommandName(strings.Fields(got)[0]) == false {
			t.Errorf("CorrectCommand returned invalid command %q", got)
		}
	}

	if _, ok := CorrectCommand("", "whatever"); ok {
		t.Error("empty command should not be correctable")
	}
}

// =============================================================================
// EXTRACTION TESTS
// =============================================================================

func TestExtractCommands_CleanOutput(t *testing.T) {
	text := "fetch 1abc\nshow cartoon\ncolor red, chain A\nzoom"
	got := ExtractCommands(text)
	want := []string{"fetch 1abc", "show cartoon", "color red, chain A", "zoom"}

	if len(got) != len(want) {
		t.Fatalf("ExtractCommands returned %d commands, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("commands[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractCommands_SkipsNoise(t *testing.T) {
	text := strings.Join([]string{
		"Here are the commands you need:",
		"",
		"# a comment",
		"// another comment",
		"fetch 1abc",
		"Note: this loads the structure",
		"show cartoon",
		"Explanation: cartoon looks nice",
		"   ",
		"zoom",
	}, "\n")

	got := ExtractCommands(text)
	want := []string{"fetch 1abc", "show cartoon", "zoom"}

	if len(got) != len(want) {
		t.Fatalf("ExtractCommands returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("commands[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractCommands_KeepsInvalidLines(t *testing.T) {
	// Unknown commands are kept (engine decides) but logged.
	got := ExtractCommands("frobnicate all\nzoom")
	if len(got) != 2 {
		t.Fatalf("ExtractCommands returned %v, want 2 commands", got)
	}
	if got[0] != "frobnicate all" {
		t.Errorf("commands[0] = %q, want the invalid line preserved", got[0])
	}
}

func TestExtractCommands_Empty(t *testing.T) {
	if got := ExtractCommands(""); len(got) != 0 {
		t.Errorf("ExtractCommands(\"\") = %v, want none", got)
	}
	if got := ExtractCommands("\n\n  \n"); len(got) != 0 {
		t.Errorf("ExtractCommands(blank) = %v, want none", got)
	}
}

// =============================================================================
// FILTER TESTS
// =============================================================================

func TestFilterCommands_AllowList(t *testing.T) {
	in := []string{
		"fetch 1abc",
		"show cartoon",
		"delete all",            // blocked token
		"run script.py",         // blocked token
		"import os",             // blocked token
		"cmd.do('zoom')",        // blocked token
		"frobnicate everything", // not on allow-list
		"ray 1920, 1080",        // valid command but not allow-listed
		"as cartoon, structure",
		"zoom all",
	}

	got := FilterCommands(in)
	want := []string{"fetch 1abc", "show cartoon", "as cartoon, structure", "zoom all"}

	if len(got) != len(want) {
		t.Fatalf("FilterCommands returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("filtered[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFilterCommands_BlockedTokensAnywhere(t *testing.T) {
	in := []string{
		"color red, python_object",
		"select bad, eval(x)",
		"show cartoon",
	}

	got := FilterCommands(in)
	if len(got) != 1 || got[0] != "show cartoon" {
		t.Errorf("FilterCommands returned %v, want only the clean line", got)
	}
}

// =============================================================================
// SCRIPT TESTS
// =============================================================================

func TestWriteScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pml")
	commands := []string{"fetch 1abc", "show cartoon  ", "zoom all"}

	if err := WriteScript(path, commands); err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read script: %v", err)
	}
	want := "fetch 1abc\nshow cartoon\nzoom all\n"
	if string(content) != want {
		t.Errorf("script = %q, want %q", string(content), want)
	}
}

func TestBuildPythonScript(t *testing.T) {
	script := BuildPythonScript("stack two copies", []string{
		"fetch 1abc",
		"cmd.zoom()",
	})

	for _, want := range []string{
		"import pymol",
		"pymol.finish_launching",
		`cmd.do("fetch 1abc")`,
		"cmd.zoom()",
		"# Request: stack two copies",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}
