// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pymol validates, corrects, and filters generated PyMOL commands.
//
// The LLM is prompted to emit bare PyMOL commands, one per line; this
// package is the defensive layer between the model's output and anything
// that displays, stores, or executes those commands.
//
// # Pipeline
//
//   - ExtractCommands: split generated text into command lines, dropping
//     blanks, comments, and known prose patterns
//   - ValidateCommand: check a single line against the known command and
//     color registries, with typo suggestions
//   - CorrectCommand: best-effort repair of a failing line (typo table,
//     closest match, default arguments)
//   - FilterCommands: strict allow-list applied before commands reach a
//     script file; blocks tokens that could escape into code execution
//   - WriteScript / BuildPythonScript: persist commands as a .pml script
//     or a standalone headless Python driver
package pymol
