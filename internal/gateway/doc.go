// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway implements the HTTP contract between the chat client
// and the pymolchat backend.
//
// Three operations cover the whole surface:
//
//   - Chat posts a user message and returns the explanation plus the
//     generated PyMOL commands.
//   - ClearHistory resets the backend's conversation state.
//   - Health probes liveness with a short, independent deadline.
//
// Failures are typed. A structured failure in a well-formed response is
// a backend error and carries the backend's own error text. A non-2xx
// status, or a body that does not parse as the expected shape, is a
// transport error: when the contract cannot be confirmed the exchange
// is treated as failed rather than guessed at. Callers branch with
// IsBackendError, IsTransportError, IsTimeout, and IsBackendDown.
package gateway
