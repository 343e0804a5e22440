// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client for the pymolchat backend.
package gateway

import "time"

// =============================================================================
// WIRE TYPES
// =============================================================================

// chatRequest is the request body for the chat endpoint.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponseBody is the raw chat endpoint response. Success is a
// pointer so a body missing the tag entirely can be told apart from an
// explicit false and rejected as malformed.
type chatResponseBody struct {
	Success       *bool    `json:"success"`
	Message       string   `json:"message"`
	PyMOLCommands []string `json:"pymol_commands"`
	Error         string   `json:"error"`
	Timestamp     string   `json:"timestamp"`
	SessionID     string   `json:"session_id"`
}

// healthResponseBody is the raw health endpoint response.
type healthResponseBody struct {
	Status              string `json:"status"`
	PyMOLAgentAvailable bool   `json:"pymol_agent_available"`
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// ChatResult is a successful exchange with the backend: the explanation
// text plus the ordered list of generated PyMOL commands.
type ChatResult struct {
	Message   string
	Commands  []string
	SessionID string
	Timestamp time.Time
}

// HealthStatus reports backend liveness and whether the PyMOL agent is
// initialized behind it.
type HealthStatus struct {
	Status         string
	AgentAvailable bool
}

// Healthy reports whether the backend considers itself ready.
func (h *HealthStatus) Healthy() bool {
	return h != nil && h.Status == "healthy"
}
