package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream == nil || *req.Stream {
			t.Error("expected non-streaming request")
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "add" {
			t.Errorf("tools = %+v", req.Tools)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"qwen2.5:7b","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"add","arguments":{"a":5,"b":10}}}]},"done":true}`))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"qwen2.5:7b"},{"name":"llama3.1:latest"}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Chat(t *testing.T) {
	srv := newTestServer(t)

	client, err := NewClient(Config{BaseURL: srv.URL, Model: "qwen2.5:7b"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	tools := []api.Tool{{Type: "function", Function: api.ToolFunction{Name: "add"}}}
	msg, err := client.Chat(context.Background(), []api.Message{{Role: "user", Content: "5+10"}}, tools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Name != "add" {
		t.Fatalf("tool calls = %+v", msg.ToolCalls)
	}
	if msg.ToolCalls[0].Function.Arguments["b"] != 10.0 {
		t.Errorf("arguments = %+v", msg.ToolCalls[0].Function.Arguments)
	}
}

func TestClient_ListModelsAndPing(t *testing.T) {
	srv := newTestServer(t)

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[1] != "llama3.1:latest" {
		t.Errorf("models = %v", models)
	}
	if client.Model() != DefaultConfig().Model {
		t.Errorf("expected default model, got %s", client.Model())
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "://bad"}); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
