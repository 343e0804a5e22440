// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat sessions in a local SQLite database.
//
// The store keeps two tables, sessions and messages, with cascade
// deletes so clearing a session removes its messages in one statement.
// WAL mode and a single connection follow SQLite's one-writer model.
//
// Append creates the session row lazily on first write; Recent returns
// a session's newest n messages in chronological order for display or
// context reconstruction.
package history
