package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"voicebridge/internal/infra/anthropic"
)

func TestClaudeClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key: got %q", got)
		}

		var req struct {
			Model    string `json:"model"`
			System   string `json:"system"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "claude-test" {
			t.Errorf("model: got %q", req.Model)
		}
		if req.System != "be brief" {
			t.Errorf("system: got %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "what's the weather like?" {
			t.Errorf("messages: %+v", req.Messages)
		}

		response := map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "  I can't check the weather, sorry.  "},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "be brief", server.URL)

	reply, err := client.Generate(context.Background(), "claude-test", "what's the weather like?")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if reply != "I can't check the weather, sorry." {
		t.Errorf("reply: got %q", reply)
	}
}

func TestClaudeClient_ErrorStatusIsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, 529)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "", server.URL)

	if _, err := client.Generate(context.Background(), "claude-test", "hi"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
}

func TestClaudeClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "", server.URL)

	if _, err := client.Generate(context.Background(), "claude-test", "hi"); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestClaudeClient_MissingKey(t *testing.T) {
	client := anthropic.NewClaudeClientWithURL("", "", "http://127.0.0.1:0")

	if _, err := client.Generate(context.Background(), "claude-test", "hi"); err == nil {
		t.Error("expected error without api key")
	}
}
