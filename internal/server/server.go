// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local HTTP backend for pymolchat.
//
// Endpoints:
//   - POST /api/chat       - Turn a natural-language request into PyMOL commands
//   - POST /api/clear      - Reset the conversation
//   - POST /api/structures - Register a structure (PDB fetch or file load)
//   - GET  /api/structures - List registered structures
//   - POST /api/script     - Render commands as a standalone PyMOL script
//   - GET  /api/health     - Health check
//   - GET  /stats          - Usage statistics
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jharlan/pymolchat/internal/agent"
	"github.com/jharlan/pymolchat/internal/history"
	"github.com/jharlan/pymolchat/internal/llm"
	"github.com/jharlan/pymolchat/internal/pymol"
	"github.com/jharlan/pymolchat/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default bind address. Explicit IPv4 loopback so
	// the address matches what the chat client dials.
	DefaultAddr = "127.0.0.1:5001"

	// MaxMessageLength caps a single chat message to prevent DoS.
	MaxMessageLength = 10000

	// MaxRequestBodySize caps the request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// generateTimeout bounds a single command-generation round-trip.
	generateTimeout = 120 * time.Second

	// Version is the server version.
	Version = "0.2.0"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks server usage statistics.
type ServerStats struct {
	TotalRequests     int64     `json:"total_requests"`
	ChatRequests      int64     `json:"chat_requests"`
	ClearRequests     int64     `json:"clear_requests"`
	StructureRequests int64     `json:"structure_requests"`
	ScriptRequests    int64     `json:"script_requests"`
	CommandsGenerated int64     `json:"commands_generated"`
	Errors            int64     `json:"errors"`
	StartTime         time.Time `json:"start_time"`
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{
		StartTime: time.Now(),
	}
}

// RecordChat records a completed chat request.
func (s *ServerStats) RecordChat(commands int, failed bool) {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.ChatRequests, 1)
	atomic.AddInt64(&s.CommandsGenerated, int64(commands))
	if failed {
		atomic.AddInt64(&s.Errors, 1)
	}
}

// RecordClear records a conversation reset.
func (s *ServerStats) RecordClear() {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.ClearRequests, 1)
}

// RecordStructure records a structure registration or listing.
func (s *ServerStats) RecordStructure(failed bool) {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.StructureRequests, 1)
	if failed {
		atomic.AddInt64(&s.Errors, 1)
	}
}

// RecordScript records a script rendering request.
func (s *ServerStats) RecordScript(failed bool) {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.ScriptRequests, 1)
	if failed {
		atomic.AddInt64(&s.Errors, 1)
	}
}

// Snapshot returns a copy of the current stats.
func (s *ServerStats) Snapshot() ServerStats {
	return ServerStats{
		TotalRequests:     atomic.LoadInt64(&s.TotalRequests),
		ChatRequests:      atomic.LoadInt64(&s.ChatRequests),
		ClearRequests:     atomic.LoadInt64(&s.ClearRequests),
		StructureRequests: atomic.LoadInt64(&s.StructureRequests),
		ScriptRequests:    atomic.LoadInt64(&s.ScriptRequests),
		CommandsGenerated: atomic.LoadInt64(&s.CommandsGenerated),
		Errors:            atomic.LoadInt64(&s.Errors),
		StartTime:         s.StartTime,
	}
}

// Uptime returns the server uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// CommandGenerator is the interface the server needs from the agent.
type CommandGenerator interface {
	Generate(ctx context.Context, message string) (*agent.Result, error)
	LoadStructure(pdbID, filePath, name string) ([]string, error)
	Structures() []agent.Structure
	SeedHistory(messages []llm.ChatMessage)
	Reset()
	HistoryLen() int
}

// Server is the pymolchat HTTP backend.
type Server struct {
	addr   string
	router *http.ServeMux
	server *http.Server

	agent   CommandGenerator
	store   *history.Store
	stats   *ServerStats
	auth    *AuthConfig
	cors    *CORSConfig
	limiter *RateLimiter

	// sessionID identifies the current conversation. A clear starts a
	// fresh one.
	sessionID string

	mu sync.RWMutex
}

// NewServer creates a new Server bound to addr. An empty addr uses
// DefaultAddr.
func NewServer(addr string, gen CommandGenerator) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		addr:      addr,
		router:    http.NewServeMux(),
		agent:     gen,
		stats:     NewServerStats(),
		auth:      DefaultAuthConfig(),
		cors:      DefaultCORSConfig(),
		limiter:   DefaultRateLimiter(),
		sessionID: uuid.NewString(),
	}

	s.setupRoutes()
	return s
}

// WithHistoryStore sets the transcript persistence store.
func (s *Server) WithHistoryStore(store *history.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	return s
}

// WithAuth sets the authentication configuration.
func (s *Server) WithAuth(config *AuthConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = config
	return s
}

// WithRateLimiter sets a custom rate limiter.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = rl
	return s
}

// Addr returns the server bind address.
func (s *Server) Addr() string {
	return s.addr
}

// SessionID returns the current conversation's session ID.
func (s *Server) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/clear", s.handleClear)
	s.router.HandleFunc("POST /api/structures", s.handleLoadStructure)
	s.router.HandleFunc("GET /api/structures", s.handleListStructures)
	s.router.HandleFunc("POST /api/script", s.handleScript)
	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body of POST /api/chat responses, success or not.
type ChatResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message,omitempty"`
	PyMOLCommands []string `json:"pymol_commands,omitempty"`
	ModelUsed     string   `json:"model_used,omitempty"`
	Error         string   `json:"error,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

// ClearResponse is the body of POST /api/clear responses.
type ClearResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HealthResponse is the body of GET /api/health responses.
type HealthResponse struct {
	Status              string `json:"status"`
	Version             string `json:"version"`
	PyMOLAgentAvailable bool   `json:"pymol_agent_available"`
	HistoryEnabled      bool   `json:"history_enabled"`
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			s.writeChatError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		// Log full details internally, return a generic message.
		log.Printf("CHAT_BAD_REQUEST | err=%v", err)
		s.writeChatError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.writeChatError(w, http.StatusBadRequest, "No message provided")
		return
	}
	// Counted in runes to match the client's input limit.
	if util.RuneLen(message) > MaxMessageLength {
		s.writeChatError(w, http.StatusBadRequest,
			fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	s.mu.RLock()
	gen := s.agent
	store := s.store
	sessionID := s.sessionID
	s.mu.RUnlock()

	if gen == nil {
		// Agent never initialized: the transport works, the request
		// cannot be served. Well-formed failure, not a 5xx.
		s.stats.RecordChat(0, true)
		s.writeJSON(w, http.StatusOK, ChatResponse{
			Success: false,
			Error:   "PyMOL agent is not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	start := time.Now()
	result, err := gen.Generate(ctx, message)
	if err != nil {
		s.stats.RecordChat(0, true)
		log.Printf("CHAT_FAILED | session=%s err=%v", sessionID, err)
		// Generation failures are structured failures carrying the error
		// text. The status stays 2xx: the exchange itself succeeded.
		s.writeJSON(w, http.StatusOK, ChatResponse{
			Success:   false,
			Error:     err.Error(),
			SessionID: sessionID,
		})
		return
	}

	s.stats.RecordChat(len(result.Commands), false)
	log.Printf("CHAT_OK | session=%s commands=%d latency=%dms",
		sessionID, len(result.Commands), time.Since(start).Milliseconds())

	if store != nil {
		s.persistExchange(r.Context(), store, sessionID, message, result)
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{
		Success:       true,
		Message:       result.Explanation,
		PyMOLCommands: result.Commands,
		ModelUsed:     result.Model,
		Timestamp:     result.Timestamp.Format(time.RFC3339),
		SessionID:     sessionID,
	})
}

// persistExchange writes both sides of an exchange to the history store.
// Persistence failures are logged, never surfaced to the client.
func (s *Server) persistExchange(ctx context.Context, store *history.Store, sessionID, message string, result *agent.Result) {
	if err := store.Append(ctx, sessionID, "user", message, nil); err != nil {
		log.Printf("HISTORY_WRITE_FAILED | session=%s role=user err=%v", sessionID, err)
		return
	}
	if err := store.Append(ctx, sessionID, "assistant", result.Explanation, result.Commands); err != nil {
		log.Printf("HISTORY_WRITE_FAILED | session=%s role=assistant err=%v", sessionID, err)
	}
}

// writeChatError writes a structured chat failure with the given status.
func (s *Server) writeChatError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ChatResponse{
		Success: false,
		Error:   message,
	})
}

// ============================================================================
// CLEAR HANDLER
// ============================================================================

// handleClear handles POST /api/clear.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	gen := s.agent
	store := s.store
	oldSession := s.sessionID
	s.sessionID = uuid.NewString()
	newSession := s.sessionID
	s.mu.Unlock()

	if gen != nil {
		gen.Reset()
	}
	if store != nil {
		if err := store.ClearSession(r.Context(), oldSession); err != nil {
			// Non-fatal: the in-memory conversation is already reset.
			log.Printf("HISTORY_CLEAR_FAILED | session=%s err=%v", oldSession, err)
		}
	}

	s.stats.RecordClear()
	log.Printf("CONVERSATION_CLEARED | old_session=%s new_session=%s client_ip=%s",
		oldSession, newSession, GetClientIP(r))

	s.writeJSON(w, http.StatusOK, ClearResponse{
		Success:   true,
		Message:   "Conversation history cleared",
		SessionID: newSession,
	})
}

// ============================================================================
// STRUCTURE HANDLERS
// ============================================================================

// StructureRequest is the body of POST /api/structures. Exactly one of
// PDBID and FilePath must be set.
type StructureRequest struct {
	PDBID    string `json:"pdb_id,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Name     string `json:"name,omitempty"`
}

// StructureResponse is the body of POST /api/structures responses.
type StructureResponse struct {
	Success       bool     `json:"success"`
	PyMOLCommands []string `json:"pymol_commands,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// StructureListResponse is the body of GET /api/structures responses.
type StructureListResponse struct {
	Success    bool              `json:"success"`
	Structures []agent.Structure `json:"structures"`
}

// handleLoadStructure handles POST /api/structures. The registered
// structure annotates every later generation request, so the model
// knows what is loaded.
func (s *Server) handleLoadStructure(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req StructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("STRUCTURE_BAD_REQUEST | err=%v", err)
		s.stats.RecordStructure(true)
		s.writeJSON(w, http.StatusBadRequest, StructureResponse{
			Success: false,
			Error:   "Invalid request format",
		})
		return
	}

	s.mu.RLock()
	gen := s.agent
	s.mu.RUnlock()

	if gen == nil {
		s.stats.RecordStructure(true)
		s.writeJSON(w, http.StatusOK, StructureResponse{
			Success: false,
			Error:   "PyMOL agent is not configured",
		})
		return
	}

	commands, err := gen.LoadStructure(req.PDBID, req.FilePath, req.Name)
	if err != nil {
		s.stats.RecordStructure(true)
		s.writeJSON(w, http.StatusBadRequest, StructureResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	s.stats.RecordStructure(false)
	log.Printf("STRUCTURE_LOADED | pdb_id=%q file=%q name=%q", req.PDBID, req.FilePath, req.Name)

	s.writeJSON(w, http.StatusOK, StructureResponse{
		Success:       true,
		PyMOLCommands: commands,
	})
}

// handleListStructures handles GET /api/structures.
func (s *Server) handleListStructures(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	gen := s.agent
	s.mu.RUnlock()

	resp := StructureListResponse{Success: true, Structures: []agent.Structure{}}
	if gen != nil {
		if structures := gen.Structures(); structures != nil {
			resp.Structures = structures
		}
	}

	s.stats.RecordStructure(false)
	s.writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// SCRIPT HANDLER
// ============================================================================

// ScriptRequest is the body of POST /api/script. Request is an optional
// description recorded in the script header.
type ScriptRequest struct {
	Request  string   `json:"request,omitempty"`
	Commands []string `json:"commands"`
}

// ScriptResponse is the body of POST /api/script responses. Commands
// holds the subset that survived safety filtering.
type ScriptResponse struct {
	Success  bool     `json:"success"`
	Script   string   `json:"script,omitempty"`
	Commands []string `json:"commands,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// handleScript handles POST /api/script. Commands pass through the
// safety filter before being rendered; a request whose commands are all
// rejected is a structured failure.
func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("SCRIPT_BAD_REQUEST | err=%v", err)
		s.stats.RecordScript(true)
		s.writeJSON(w, http.StatusBadRequest, ScriptResponse{
			Success: false,
			Error:   "Invalid request format",
		})
		return
	}

	if len(req.Commands) == 0 {
		s.stats.RecordScript(true)
		s.writeJSON(w, http.StatusBadRequest, ScriptResponse{
			Success: false,
			Error:   "No commands provided",
		})
		return
	}

	safe := pymol.FilterCommands(req.Commands)
	if len(safe) == 0 {
		s.stats.RecordScript(true)
		log.Printf("SCRIPT_REJECTED | submitted=%d", len(req.Commands))
		s.writeJSON(w, http.StatusOK, ScriptResponse{
			Success: false,
			Error:   "No commands passed safety filtering",
		})
		return
	}

	s.stats.RecordScript(false)
	log.Printf("SCRIPT_OK | submitted=%d kept=%d", len(req.Commands), len(safe))

	s.writeJSON(w, http.StatusOK, ScriptResponse{
		Success:  true,
		Script:   pymol.BuildPythonScript(req.Request, safe),
		Commands: safe,
	})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	gen := s.agent
	store := s.store
	s.mu.RUnlock()

	health := HealthResponse{
		Status:              "healthy",
		Version:             Version,
		PyMOLAgentAvailable: gen != nil,
		HistoryEnabled:      store != nil,
	}
	if gen == nil {
		health.Status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// StatsResponse is the body of GET /stats responses.
type StatsResponse struct {
	TotalRequests     int64   `json:"total_requests"`
	ChatRequests      int64   `json:"chat_requests"`
	ClearRequests     int64   `json:"clear_requests"`
	StructureRequests int64   `json:"structure_requests"`
	ScriptRequests    int64   `json:"script_requests"`
	CommandsGenerated int64   `json:"commands_generated"`
	Errors            int64   `json:"errors"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
	ErrorRate         float64 `json:"error_rate_percent"`
	HistoryMessages   int     `json:"history_messages"`
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.Snapshot()

	var errorRate float64
	if stats.ChatRequests > 0 {
		errorRate = float64(stats.Errors) / float64(stats.ChatRequests) * 100
	}

	resp := StatsResponse{
		TotalRequests:     stats.TotalRequests,
		ChatRequests:      stats.ChatRequests,
		ClearRequests:     stats.ClearRequests,
		StructureRequests: stats.StructureRequests,
		ScriptRequests:    stats.ScriptRequests,
		CommandsGenerated: stats.CommandsGenerated,
		Errors:            stats.Errors,
		UptimeSeconds:     int64(s.stats.Uptime().Seconds()),
		ErrorRate:         errorRate,
	}

	s.mu.RLock()
	store := s.store
	sessionID := s.sessionID
	s.mu.RUnlock()

	if store != nil {
		if n, err := store.MessageCount(r.Context(), sessionID); err == nil {
			resp.HistoryMessages = n
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// SESSION RESUME
// ============================================================================

// resumeWindow is how many persisted messages seed the agent's context
// when a prior session is resumed.
const resumeWindow = 20

// ResumeSession adopts the most recently used session from the history
// store and seeds the agent's conversation context from its tail, so a
// restarted server picks up where the last conversation left off.
// Without a store, or without prior sessions, the fresh session is kept.
func (s *Server) ResumeSession(ctx context.Context) error {
	s.mu.RLock()
	store := s.store
	gen := s.agent
	s.mu.RUnlock()

	if store == nil || gen == nil {
		return nil
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	// Sessions are listed newest first.
	last := sessions[0]
	entries, err := store.Recent(ctx, last.ID, resumeWindow)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", last.ID, err)
	}

	messages := make([]llm.ChatMessage, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, llm.ChatMessage{Role: e.Role, Content: e.Text})
	}
	gen.SeedHistory(messages)

	s.mu.Lock()
	s.sessionID = last.ID
	s.mu.Unlock()

	log.Printf("SESSION_RESUMED | session=%s messages=%d", last.ID, len(messages))
	return nil
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Handler returns the fully assembled handler with the middleware chain
// applied. Exposed so tests can drive the server through httptest.
func (s *Server) Handler() http.Handler {
	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.cors),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(s.limiter),
	)(s.router)

	if s.auth != nil && s.auth.Enabled {
		handler = AuthMiddleware(s.auth)(handler)
	}
	return handler
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", s.addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")

	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store != nil {
		defer store.Close()
	}

	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
