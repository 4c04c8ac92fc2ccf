// Package ollama provides a client for interacting with the Ollama LLM API.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// Client handles communication with the Ollama API.
type Client struct {
	client      *api.Client
	baseURL     string
	model       string
	temperature float64
}

// Config holds client configuration.
type Config struct {
	BaseURL     string        // e.g., "http://localhost:11434" or remote endpoint
	Model       string        // e.g., "qwen2.5:7b"
	Timeout     time.Duration // Request timeout
	Temperature float64
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:11434",
		Model:       "qwen2.5:7b",
		Timeout:     60 * time.Second,
		Temperature: 0.2,
	}
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) (*Client, error) {
	d := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = d.Timeout
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:      api.NewClient(parsed, &http.Client{Timeout: cfg.Timeout}),
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Chat sends a conversation with optional tool definitions and returns the
// assistant message. Streaming is disabled so the reply arrives in one piece.
func (c *Client) Chat(ctx context.Context, messages []api.Message, tools []api.Tool) (api.Message, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": c.temperature,
		},
	}

	var reply api.Message
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.Role = resp.Message.Role
		reply.Content += resp.Message.Content
		reply.ToolCalls = append(reply.ToolCalls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		return api.Message{}, fmt.Errorf("ollama chat: %w", err)
	}
	return reply, nil
}

// Ping checks if the Ollama server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}
	return nil
}

// ListModels returns the available models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	names := make([]string, len(resp.Models))
	for i, m := range resp.Models {
		names[i] = m.Name
	}
	return names, nil
}

// ModelInfo returns information about the configured model.
func (c *Client) ModelInfo() string {
	return fmt.Sprintf("%s @ %s", c.model, c.baseURL)
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
