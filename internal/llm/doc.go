// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the OpenAI chat completions client used to turn
// natural-language requests into PyMOL commands.
//
// The client is deliberately small: Chat posts a message list and
// returns the parsed completion. Transient failures (429, 5xx) retry
// with exponential backoff;
// authentication and client errors surface immediately as typed errors
// (ErrAuthFailed, ErrRateLimited, *APIError) so callers can branch with
// errors.Is / errors.As.
//
// All requests share one pooled HTTP client with TLS 1.2+ enforced, and
// response bodies are size-limited before parsing.
package llm
