// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// completionBody builds a minimal successful chat completions payload.
func completionBody(content string) string {
	resp := map[string]any{
		"id":    "chatcmpl-test",
		"model": "gpt-4o",
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Stream should be false")
		}
		if len(req.Messages) != 2 {
			t.Errorf("got %d messages, want 2", len(req.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("fetch 1abc\nshow cartoon")))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL)
	resp, err := client.Chat(context.Background(), []ChatMessage{
		NewSystemMessage("generate commands"),
		NewUserMessage("show me 1abc"),
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got := resp.GetContent(); got != "fetch 1abc\nshow cartoon" {
		t.Errorf("GetContent() = %q", got)
	}
}

func TestClient_Chat_NotConfigured(t *testing.T) {
	client := NewClient("")
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestClient_Chat_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"invalid_api_key","message":"Incorrect API key"}}`))
	}))
	defer server.Close()

	client := NewClient("bad-key").WithBaseURL(server.URL)
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("err = %v, want API message included", err)
	}
}

func TestClient_Chat_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"upstream hiccup"}}`))
			return
		}
		w.Write([]byte(completionBody("zoom")))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL).WithMaxRetries(3)
	resp, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("zoom in")})
	if err != nil {
		t.Fatalf("Chat failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if resp.GetContent() != "zoom" {
		t.Errorf("GetContent() = %q, want zoom", resp.GetContent())
	}
}

func TestClient_Chat_NoRetryOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL)
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (400 is not retryable)", attempts)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}
}

func TestClient_Chat_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL)
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClient_APIKeyMasked(t *testing.T) {
	client := NewClient("sk-secret-key-value")
	masked := client.APIKeyMasked()
	if strings.Contains(masked, "secret") {
		t.Errorf("APIKeyMasked() leaked key material: %q", masked)
	}
	if !strings.Contains(masked, "REDACTED") {
		t.Errorf("APIKeyMasked() = %q, want REDACTED marker", masked)
	}

	if got := NewClient("").APIKeyMasked(); got != "[not set]" {
		t.Errorf("APIKeyMasked() = %q, want [not set]", got)
	}
}

func TestClient_WithModel(t *testing.T) {
	client := NewClient("k").WithModel("gpt-4o-mini")
	if client.Model() != "gpt-4o-mini" {
		t.Errorf("Model() = %q", client.Model())
	}

	// Empty model keeps the default
	client = NewClient("k").WithModel("")
	if client.Model() != DefaultModel {
		t.Errorf("Model() = %q, want default", client.Model())
	}
}
