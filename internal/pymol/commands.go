// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pymol validates, corrects, and filters generated PyMOL commands.
package pymol

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// COMMAND AND COLOR REGISTRIES
// =============================================================================

// validCommands is the set of recognized top-level PyMOL commands.
var validCommands = map[string]bool{
	"fetch": true, "load": true, "show": true, "hide": true, "color": true,
	"select": true, "create": true, "delete": true, "zoom": true,
	"orient": true, "center": true, "rotate": true, "translate": true,
	"ray": true, "png": true, "save": true, "cartoon": true, "sticks": true,
	"spheres": true, "surface": true, "mesh": true, "lines": true,
	"dots": true, "align": true, "super": true, "distance": true,
	"angle": true, "dihedral": true, "set": true, "bg_color": true,
	"group": true, "ungroup": true, "enable": true, "disable": true,
	"refresh": true, "reinitialize": true, "mset": true, "mview": true,
	"mplay": true, "mstop": true, "mclear": true, "frame": true,
	"movie": true, "remove": true, "extract": true, "copy": true,
	"symexp": true, "split_states": true, "morph": true,
	"interpolate": true, "smooth": true, "rock": true, "turn": true,
	"move": true, "clip": true,
}

// validColors is the set of recognized color names for the color command.
// Hex values (0x prefixed) are accepted separately.
var validColors = map[string]bool{
	"red": true, "green": true, "blue": true, "yellow": true,
	"orange": true, "purple": true, "cyan": true, "magenta": true,
	"white": true, "black": true, "gray": true, "grey": true,
	"brown": true, "pink": true, "lime": true, "olive": true,
	"navy": true, "teal": true, "silver": true, "maroon": true,
	"aqua": true, "fuchsia": true,
}

// IsValidCommandName reports whether name is a recognized PyMOL command.
func IsValidCommandName(name string) bool {
	return validCommands[strings.ToLower(name)]
}

// IsValidColor reports whether name is a recognized color or a hex value.
func IsValidColor(name string) bool {
	name = strings.ToLower(name)
	return validColors[name] || strings.HasPrefix(name, "0x")
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateCommand checks a single command line for common errors:
// unknown command names (with typo suggestions), invalid colors, and
// missing required arguments. It returns ok plus a human-readable reason
// when validation fails.
func ValidateCommand(command string) (bool, string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return false, "empty command"
	}

	// Strip a cmd. prefix before validating
	clean := strings.TrimSpace(strings.ReplaceAll(command, "cmd.", ""))
	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return false, "invalid command format"
	}

	mainCmd := strings.ToLower(parts[0])

	if !validCommands[mainCmd] {
		suggestions := suggestCommands(mainCmd)
		if len(suggestions) > 0 {
			return false, fmt.Sprintf("unknown command %q, did you mean: %s?",
				mainCmd, strings.Join(suggestions, ", "))
		}
		return false, fmt.Sprintf("unknown command %q", mainCmd)
	}

	if mainCmd == "color" && len(parts) >= 2 {
		colorName := strings.ToLower(strings.TrimRight(parts[1], ","))
		if !IsValidColor(colorName) {
			return false, fmt.Sprintf(
				"invalid color %q, use standard color names or hex values", colorName)
		}
	}

	switch mainCmd {
	case "show", "hide":
		if len(parts) < 2 {
			return false, fmt.Sprintf("%q command requires a representation type", mainCmd)
		}
	case "fetch":
		if len(parts) < 2 {
			return false, "fetch command requires a PDB ID"
		}
	case "mset":
		if len(parts) < 2 {
			return false, "mset command requires frame specification"
		}
	case "mview":
		if strings.Contains(command, "store") && len(parts) < 3 {
			return false, "mview store command requires frame number"
		}
	case "translate":
		if !strings.Contains(command, "[") {
			return false, "translate command requires coordinate vector [x, y, z]"
		}
	}

	return true, ""
}

// suggestCommands finds valid commands within a small edit distance of
// the given (presumably misspelled) command name. Results are sorted for
// deterministic output.
func suggestCommands(mainCmd string) []string {
	var suggestions []string
	for valid := range validCommands {
		diff := len(mainCmd) - len(valid)
		if diff < 0 {
			diff = -diff
		}
		if diff > 2 {
			continue
		}
		// Positional character mismatch over the shared prefix length.
		n := len(mainCmd)
		if len(valid) < n {
			n = len(valid)
		}
		mismatches := 0
		for i := 0; i < n; i++ {
			if mainCmd[i] != valid[i] {
				mismatches++
			}
		}
		if mismatches <= 2 {
			suggestions = append(suggestions, valid)
		}
	}
	sort.Strings(suggestions)
	return suggestions
}

// =============================================================================
// CORRECTION
// =============================================================================

// typoCorrections maps common misspellings to the intended command.
var typoCorrections = map[string]string{
	"cartoom": "cartoon",
	"cartton": "cartoon",
	"stiks":   "sticks",
	"sphres":  "spheres",
	"surfce":  "surface",
	"colr":    "color",
	"selet":   "select",
	"fetc":    "fetch",
	"lod":     "load",
	"sho":     "show",
	"hid":     "hide",
	"zoo":     "zoom",
	"oriet":   "orient",
	"ceter":   "center",
}

// CorrectCommand attempts to repair a command that failed validation,
// guided by the validation error text. Returns the corrected command and
// true, or "" and false when no correction applies.
func CorrectCommand(command, errMsg string) (string, bool) {
	command = strings.TrimSpace(command)
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", false
	}

	mainCmd := strings.ToLower(parts[0])
	lowerErr := strings.ToLower(errMsg)

	// Direct typo table hit
	if fixed, ok := typoCorrections[mainCmd]; ok {
		corrected := append([]string{fixed}, parts[1:]...)
		return strings.Join(corrected, " "), true
	}

	// Closest-match repair for unknown commands. Candidates are walked
	// in sorted order so the repair is deterministic.
	if strings.Contains(lowerErr, "unknown command") {
		sorted := make([]string, 0, len(validCommands))
		for valid := range validCommands {
			sorted = append(sorted, valid)
		}
		sort.Strings(sorted)
		for _, valid := range sorted {
			diff := len(mainCmd) - len(valid)
			if diff < 0 {
				diff = -diff
			}
			if diff > 2 {
				continue
			}
			n := len(mainCmd)
			if len(valid) < n {
				n = len(valid)
			}
			matches := 0
			for i := 0; i < n; i++ {
				if mainCmd[i] == valid[i] {
					matches++
				}
			}
			if matches >= len(mainCmd)-2 {
				corrected := append([]string{valid}, parts[1:]...)
				return strings.Join(corrected, " "), true
			}
		}
	}

	// Fill in missing required arguments with safe defaults
	if strings.Contains(lowerErr, "requires") && len(parts) == 1 {
		switch mainCmd {
		case "show":
			return command + " cartoon", true
		case "hide":
			return command + " everything", true
		case "color":
			return command + " red", true
		}
	}

	// Swap an invalid color for a safe default
	if strings.Contains(lowerErr, "invalid color") && mainCmd == "color" && len(parts) >= 2 {
		corrected := append([]string{}, parts...)
		corrected[1] = "red"
		return strings.Join(corrected, " "), true
	}

	return "", false
}
