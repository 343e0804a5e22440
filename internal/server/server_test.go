// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jharlan/pymolchat/internal/agent"
	"github.com/jharlan/pymolchat/internal/history"
	"github.com/jharlan/pymolchat/internal/llm"
)

// fakeGenerator is a CommandGenerator stub for handler tests.
type fakeGenerator struct {
	result     *agent.Result
	err        error
	resets     int
	lastInput  string
	structures []agent.Structure
	seeded     []llm.ChatMessage
}

func (f *fakeGenerator) Generate(ctx context.Context, message string) (*agent.Result, error) {
	f.lastInput = message
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGenerator) LoadStructure(pdbID, filePath, name string) ([]string, error) {
	if pdbID == "" && filePath == "" {
		return nil, errors.New("either pdb_id or file_path is required")
	}
	if pdbID != "" && filePath != "" {
		return nil, errors.New("pdb_id and file_path are mutually exclusive")
	}
	if name == "" {
		name = pdbID
	}
	f.structures = append(f.structures, agent.Structure{Name: name, Source: pdbID + filePath})
	if pdbID != "" {
		return []string{"fetch " + pdbID}, nil
	}
	return []string{"load " + filePath}, nil
}

func (f *fakeGenerator) Structures() []agent.Structure      { return f.structures }
func (f *fakeGenerator) SeedHistory(msgs []llm.ChatMessage) { f.seeded = msgs }
func (f *fakeGenerator) Reset()                             { f.resets++ }
func (f *fakeGenerator) HistoryLen() int                    { return len(f.seeded) }

func okResult() *agent.Result {
	return &agent.Result{
		Explanation: "Showing as cartoon.",
		Commands:    []string{"show cartoon", "color red"},
		Model:       "gpt-4o",
		Timestamp:   time.Now(),
	}
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestChatSuccess(t *testing.T) {
	gen := &fakeGenerator{result: okResult()}
	srv := NewServer("", gen)

	rec := postJSON(t, srv.Handler(), "/api/chat", `{"message": "show cartoon in red"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	resp := decodeChat(t, rec)
	if !resp.Success {
		t.Fatalf("success = false: %q", resp.Error)
	}
	if resp.Message != "Showing as cartoon." {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.PyMOLCommands) != 2 || resp.PyMOLCommands[0] != "show cartoon" {
		t.Errorf("pymol_commands = %v", resp.PyMOLCommands)
	}
	if resp.SessionID != srv.SessionID() {
		t.Errorf("session_id = %q, want %q", resp.SessionID, srv.SessionID())
	}
	if gen.lastInput != "show cartoon in red" {
		t.Errorf("agent received %q", gen.lastInput)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	for _, body := range []string{`{"message": ""}`, `{"message": "   "}`, `{}`} {
		rec := postJSON(t, srv.Handler(), "/api/chat", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		resp := decodeChat(t, rec)
		if resp.Success {
			t.Errorf("body %s: success = true, want false", body)
		}
		if resp.Error == "" {
			t.Errorf("body %s: error text missing", body)
		}
	}
}

func TestChatMalformedBody(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	rec := postJSON(t, srv.Handler(), "/api/chat", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("completion request failed")}
	srv := NewServer("", gen)

	rec := postJSON(t, srv.Handler(), "/api/chat", `{"message": "show cartoon"}`)
	// The exchange worked even though generation did not: structured
	// failure on a 2xx, so clients can show the error text.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeChat(t, rec)
	if resp.Success {
		t.Error("success = true for a failed generation")
	}
	if resp.Error != "completion request failed" {
		t.Errorf("error = %q, want the generation error text", resp.Error)
	}
}

func TestChatNilAgent(t *testing.T) {
	srv := NewServer("", nil)

	rec := postJSON(t, srv.Handler(), "/api/chat", `{"message": "show cartoon"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeChat(t, rec)
	if resp.Success {
		t.Error("success = true with no agent configured")
	}
}

func TestClearResetsConversation(t *testing.T) {
	gen := &fakeGenerator{result: okResult()}
	srv := NewServer("", gen)
	before := srv.SessionID()

	rec := postJSON(t, srv.Handler(), "/api/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ClearResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if gen.resets != 1 {
		t.Errorf("agent resets = %d, want 1", gen.resets)
	}
	if srv.SessionID() == before {
		t.Error("session id unchanged after clear")
	}
	if resp.SessionID != srv.SessionID() {
		t.Errorf("response session_id = %q, want the new session", resp.SessionID)
	}
}

func TestHealth(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if !resp.PyMOLAgentAvailable {
		t.Error("pymol_agent_available = false with an agent configured")
	}
}

func TestHealthDegradedWithoutAgent(t *testing.T) {
	srv := NewServer("", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.PyMOLAgentAvailable {
		t.Error("pymol_agent_available = true with no agent")
	}
}

func TestStats(t *testing.T) {
	gen := &fakeGenerator{result: okResult()}
	srv := NewServer("", gen)
	handler := srv.Handler()

	postJSON(t, handler, "/api/chat", `{"message": "show cartoon"}`)
	postJSON(t, handler, "/api/chat", `{"message": "color it blue"}`)
	postJSON(t, handler, "/api/clear", "")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ChatRequests != 2 {
		t.Errorf("chat_requests = %d, want 2", resp.ChatRequests)
	}
	if resp.ClearRequests != 1 {
		t.Errorf("clear_requests = %d, want 1", resp.ClearRequests)
	}
	if resp.CommandsGenerated != 4 {
		t.Errorf("commands_generated = %d, want 4", resp.CommandsGenerated)
	}
	if resp.Errors != 0 {
		t.Errorf("errors = %d, want 0", resp.Errors)
	}
}

func TestChatPersistsHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	gen := &fakeGenerator{result: okResult()}
	srv := NewServer("", gen).WithHistoryStore(store)

	rec := postJSON(t, srv.Handler(), "/api/chat", `{"message": "show cartoon"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	entries, err := store.Recent(context.Background(), srv.SessionID(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("persisted entries = %d, want user + assistant", len(entries))
	}
	if entries[0].Role != "user" || entries[0].Text != "show cartoon" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Role != "assistant" || len(entries[1].Commands) != 2 {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestResumeSessionAdoptsLatest(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Append(ctx, "session-old", "user", "old request", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, "session-new", "user", "show cartoon", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, "session-new", "assistant", "show cartoon", []string{"show cartoon"}); err != nil {
		t.Fatal(err)
	}

	gen := &fakeGenerator{result: okResult()}
	srv := NewServer("", gen).WithHistoryStore(store)

	if err := srv.ResumeSession(ctx); err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}

	if got := srv.SessionID(); got != "session-new" {
		t.Errorf("SessionID() = %q, want session-new", got)
	}
	if len(gen.seeded) != 2 {
		t.Fatalf("seeded %d messages, want 2", len(gen.seeded))
	}
	if gen.seeded[0].Role != "user" || gen.seeded[0].Content != "show cartoon" {
		t.Errorf("seeded[0] = %+v", gen.seeded[0])
	}
}

func TestResumeSessionEmptyStore(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	srv := NewServer("", &fakeGenerator{result: okResult()}).WithHistoryStore(store)
	before := srv.SessionID()

	if err := srv.ResumeSession(context.Background()); err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}
	if got := srv.SessionID(); got != before {
		t.Errorf("SessionID changed to %q with no prior sessions", got)
	}
}

// ============================================================================
// STRUCTURE AND SCRIPT HANDLER TESTS
// ============================================================================

func TestLoadStructure(t *testing.T) {
	gen := &fakeGenerator{result: okResult()}
	srv := NewServer("", gen)

	rec := postJSON(t, srv.Handler(), "/api/structures", `{"pdb_id": "6HRE", "name": "tau"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %q)", rec.Code, rec.Body.String())
	}

	var resp StructureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("success = false: %q", resp.Error)
	}
	if len(resp.PyMOLCommands) != 1 || resp.PyMOLCommands[0] != "fetch 6HRE" {
		t.Errorf("commands = %v", resp.PyMOLCommands)
	}
}

func TestLoadStructureAmbiguousSource(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	rec := postJSON(t, srv.Handler(), "/api/structures",
		`{"pdb_id": "6HRE", "file_path": "/tmp/x.pdb"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var resp StructureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("success = true for ambiguous source")
	}
}

func TestListStructures(t *testing.T) {
	gen := &fakeGenerator{result: okResult()}
	srv := NewServer("", gen)

	postJSON(t, srv.Handler(), "/api/structures", `{"pdb_id": "6HRE", "name": "tau"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/structures", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp StructureListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Structures) != 1 || resp.Structures[0].Name != "tau" {
		t.Errorf("structures = %v, want one named tau", resp.Structures)
	}
}

func TestScriptRendersFilteredCommands(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	rec := postJSON(t, srv.Handler(), "/api/script",
		`{"request": "cartoon view", "commands": ["show cartoon", "import os", "zoom"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %q)", rec.Code, rec.Body.String())
	}

	var resp ScriptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("success = false: %q", resp.Error)
	}
	if len(resp.Commands) != 2 {
		t.Errorf("kept commands = %v, want the two safe ones", resp.Commands)
	}
	if !strings.Contains(resp.Script, `cmd.do("show cartoon")`) {
		t.Errorf("script missing command: %q", resp.Script)
	}
	if strings.Contains(resp.Script, "import os") {
		t.Error("script carries a blocked command")
	}
}

func TestScriptAllCommandsBlocked(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	rec := postJSON(t, srv.Handler(), "/api/script", `{"commands": ["import os"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp ScriptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("success = true with every command blocked")
	}
}

func TestScriptNoCommands(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	rec := postJSON(t, srv.Handler(), "/api/script", `{"commands": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/chat status = %d, want 405", rec.Code)
	}
}

// ============================================================================
// MIDDLEWARE TESTS
// ============================================================================

func TestSecurityHeaders(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()}).
		WithRateLimiter(NewRateLimiter(2, time.Minute))
	handler := srv.Handler()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}
}

func TestAuthMiddleware(t *testing.T) {
	auth := &AuthConfig{Enabled: true, BearerToken: "secret-token"}
	srv := NewServer("", &fakeGenerator{result: okResult()}).WithAuth(auth)
	handler := srv.Handler()

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// Wrong token.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", rec.Code)
	}
}

func TestValidateBearerToken(t *testing.T) {
	if ValidateBearerToken("", "expected") {
		t.Error("empty token accepted")
	}
	if ValidateBearerToken("token", "") {
		t.Error("empty expected token accepted")
	}
	if ValidateBearerToken("a", "b") {
		t.Error("mismatched tokens accepted")
	}
	if !ValidateBearerToken("same", "same") {
		t.Error("matching tokens rejected")
	}
}

func TestGetClientIPIgnoresSpoofedHeaders(t *testing.T) {
	// Direct connection from an untrusted address: forwarded headers
	// must be ignored.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:4444"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := GetClientIP(req); got != "198.51.100.9" {
		t.Errorf("GetClientIP() = %q, want connection IP", got)
	}

	// From a trusted proxy the header is honored.
	req.RemoteAddr = "127.0.0.1:4444"
	if got := GetClientIP(req); got != "1.2.3.4" {
		t.Errorf("GetClientIP() via proxy = %q, want forwarded IP", got)
	}
}

func TestCORSPreflightAndOrigin(t *testing.T) {
	srv := NewServer("", &fakeGenerator{result: okResult()})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}

	// Unknown origin gets no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for unlisted origin, want empty", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := RecoveryMiddleware()(panicky)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 after recovered panic", rec.Code)
	}
}
