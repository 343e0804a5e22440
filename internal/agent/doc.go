// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent turns natural-language requests into PyMOL commands.
//
// Agent composes the LLM client, a rolling conversation history, and
// the command extraction layer:
//
//   - Generate: system prompt + recent history + annotated request in,
//     explanation text and extracted command list out
//   - LoadStructure / Structures: registry of loaded structures so
//     follow-up requests can refer to them by name
//   - Reset: drops conversation history (structures survive; they
//     describe engine state, not conversation state)
//
// History is capped at maxHistory messages and only a trailing
// contextWindow accompanies each request. All methods are safe for
// concurrent use; the HTTP layer calls them from multiple handlers.
package agent
