// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format converts raw assistant replies into safe HTML markup.
//
// The package is two pure functions with no I/O:
//
//   - Escape: entity-escapes &, <, >, " and ' for safe embedding
//   - Render: Escape plus lightweight markup (bold, italic, inline code,
//     headings, newlines) in a fixed substitution order
//
// Render is the one place reply text is converted to markup; everything
// that embeds raw text directly (error strings, command text) goes
// through Escape. Both are deterministic and independently testable.
package format
