package llm

import (
	"context"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/internal/ollama"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Ollama decides with a local model. Capabilities are offered both as native
// tools and as prompt text, since many local models answer with JSON instead.
type Ollama struct {
	client *ollama.Client
	logger *zap.Logger
}

// NewOllama creates the Ollama decider.
func NewOllama(cfg config.LLMConfig, logger *zap.Logger) (*Ollama, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := ollama.NewClient(ollama.Config{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout(),
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &Ollama{client: client, logger: logger}, nil
}

// Client returns the underlying Ollama client.
func (o *Ollama) Client() *ollama.Client { return o.client }

// Decide implements engine.Decider.
func (o *Ollama) Decide(ctx context.Context, req engine.Request) (models.Decision, error) {
	reply, err := o.client.Chat(ctx, toOllamaMessages(SystemText(req, true), req.Messages), toOllamaTools(req.Capabilities))
	if err != nil {
		return models.Decision{}, err
	}

	if len(reply.ToolCalls) > 0 {
		calls := make([]models.CapabilityCall, len(reply.ToolCalls))
		for i, tc := range reply.ToolCalls {
			args := map[string]any(tc.Function.Arguments)
			if args == nil {
				args = map[string]any{}
			}
			calls[i] = models.CapabilityCall{Name: tc.Function.Name, Arguments: args}
		}
		d := models.Calls(calls...)
		d.Content = reply.Content
		return d, nil
	}

	return parseLeaked(reply.Content, o.logger), nil
}

func toOllamaMessages(system string, msgs []models.Message) []api.Message {
	var out []api.Message
	if system != "" {
		out = append(out, api.Message{Role: string(models.RoleSystem), Content: system})
	}

	for _, m := range conversation(msgs) {
		switch m.Role {
		case models.RoleAssistant:
			msg := api.Message{Role: string(models.RoleAssistant), Content: m.Content}
			for _, c := range m.Calls {
				msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
					Function: api.ToolCallFunction{Name: c.Name, Arguments: c.Arguments},
				})
			}
			out = append(out, msg)
		case models.RoleTool:
			out = append(out, api.Message{Role: string(models.RoleTool), Content: toolResultText(m)})
		default:
			out = append(out, api.Message{Role: string(m.Role), Content: m.Content})
		}
	}
	return out
}

func toOllamaTools(defs []capability.Definition) []api.Tool {
	if len(defs) == 0 {
		return nil
	}

	tools := make([]api.Tool, 0, len(defs))
	for _, def := range defs {
		params := api.ToolFunctionParameters{
			Type:       capability.TypeObject,
			Required:   def.Schema.Required(),
			Properties: make(map[string]api.ToolProperty, len(def.Schema)),
		}
		for _, p := range def.Schema {
			params.Properties[p.Name] = api.ToolProperty{
				Type:        api.PropertyType{p.Type},
				Description: strings.TrimSpace(p.Description),
				Enum:        p.Enum,
			}
		}

		tools = append(tools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}
