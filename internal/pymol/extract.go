// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pymol

import (
	"log"
	"strings"
)

// =============================================================================
// COMMAND EXTRACTION
// =============================================================================

// skipPhrases marks prose lines the model sometimes emits despite being
// told to output commands only.
var skipPhrases = []string{
	"here are the",
	"the commands are",
	"pymol commands",
	"to accomplish",
	"explanation:",
	"note:",
	"warning:",
	"tip:",
	"remember:",
}

// ExtractCommands pulls PyMOL commands out of generated text. The model
// is prompted to emit one command per line with no prose, so every
// non-empty line is a candidate; blank lines, comments, and known prose
// patterns are skipped. Lines that fail validation are kept anyway (the
// receiving engine is the final arbiter) but logged for diagnosis.
func ExtractCommands(text string) []string {
	var commands []string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		lower := strings.ToLower(line)
		skip := false
		for _, phrase := range skipPhrases {
			if strings.Contains(lower, phrase) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		commands = append(commands, line)
	}

	for _, cmd := range commands {
		if ok, reason := ValidateCommand(cmd); !ok {
			log.Printf("EXTRACT_WARN | cmd=%q reason=%q", cmd, reason)
		}
	}

	return commands
}

// =============================================================================
// SAFETY FILTER
// =============================================================================

// allowedCommands is the strict allow-list applied before commands are
// written to a script or sent anywhere executable. Narrower than
// validCommands on purpose.
var allowedCommands = map[string]bool{
	"fetch": true, "load": true, "set_name": true, "hide": true,
	"show": true, "as": true, "color": true, "spectrum": true,
	"bg_color": true, "create": true, "translate": true, "rotate": true,
	"zoom": true, "orient": true, "center": true, "set": true,
	"select": true, "sele": true, "save": true,
}

// blockedTokens reject any line that could escape into arbitrary code
// execution, whatever its leading command is.
var blockedTokens = []string{
	"python", "cmd.", "run ", "@", "import", "exec", "eval",
	"system", "delete", "remove",
}

// FilterCommands returns only the lines that pass the safety allow-list:
// no blocked tokens anywhere in the line, and a leading command present
// in the allow-list. A trailing comma on the leading token (as in
// "as cartoon,") is tolerated.
func FilterCommands(commands []string) []string {
	var out []string

	for _, raw := range commands {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		blocked := false
		for _, tok := range blockedTokens {
			if strings.Contains(lower, tok) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}

		first := strings.Fields(lower)[0]
		first = strings.TrimSuffix(first, ",")
		if !allowedCommands[first] {
			continue
		}

		out = append(out, line)
	}

	return out
}
