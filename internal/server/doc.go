// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the local HTTP backend for pymolchat.
//
// The server turns natural-language chat messages into PyMOL commands
// by delegating to the agent, and exposes a small JSON API:
//
//   - POST /api/chat       - generate commands from a message
//   - POST /api/clear      - reset the conversation and start a new session
//   - POST /api/structures - register a structure with the agent
//   - GET  /api/structures - list registered structures
//   - POST /api/script     - render commands as a standalone PyMOL script
//   - GET  /api/health     - liveness and agent availability
//   - GET  /stats          - usage counters
//
// Failures are encoded in the response body, not the status: a request
// the server understood but could not serve returns 200 with
// {"success": false, "error": ...}, while 4xx is reserved for requests
// that were malformed in the first place. Front ends treat any non-2xx
// or unparseable body as a transport failure.
//
// The handler stack layers panic recovery, security headers, CORS,
// request logging, per-IP rate limiting, and optional bearer-token
// authentication around the mux. The server binds loopback by default.
package server
