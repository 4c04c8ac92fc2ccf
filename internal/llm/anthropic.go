package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Anthropic decides through the Messages API with native tool use.
type Anthropic struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	logger      *zap.Logger
}

// NewAnthropic creates the Anthropic decider.
func NewAnthropic(cfg config.LLMConfig, logger *zap.Logger) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Decide implements engine.Decider.
func (a *Anthropic) Decide(ctx context.Context, req engine.Request) (models.Decision, error) {
	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Messages:    toAnthropicMessages(req.Messages),
		Tools:       toAnthropicTools(req.Capabilities),
		Temperature: anthropic.Float(a.temperature),
	}
	if system := SystemText(req, false); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return models.Decision{}, fmt.Errorf("anthropic messages: %w", err)
	}

	a.logger.Debug("Anthropic response",
		zap.String("agent", req.Agent),
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens))

	return anthropicDecision(resp.Content), nil
}

func anthropicDecision(blocks []anthropic.ContentBlockUnion) models.Decision {
	var text strings.Builder
	var calls []models.CapabilityCall

	for _, block := range blocks {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			calls = append(calls, models.CapabilityCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: parseArguments(variant.Input),
			})
		}
	}

	if len(calls) > 0 {
		d := models.Calls(calls...)
		d.Content = text.String()
		return d
	}
	return models.Final(text.String())
}

// toAnthropicMessages converts the non-system conversation. Consecutive tool
// messages become one user turn of tool_result blocks.
func toAnthropicMessages(msgs []models.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range conversation(msgs) {
		switch m.Role {
		case models.RoleTool:
			results = append(results, anthropic.NewToolResultBlock(m.CallID, m.Content, m.Failed))
		case models.RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, c := range m.Calls {
				blocks = append(blocks, anthropic.NewToolUseBlock(c.ID, c.Arguments, c.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	flush()
	return out
}

func toAnthropicTools(defs []capability.Definition) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}

	tools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		schema := anthropic.ToolInputSchemaParam{
			Properties: def.Schema.Properties(),
		}
		if req := def.Schema.Required(); len(req) > 0 {
			schema.Required = req
		}

		tools[i] = anthropic.ToolUnionParamOfTool(schema, def.Name)
		if def.Description != "" {
			tools[i].OfTool.Description = anthropic.String(def.Description)
		}
	}
	return tools
}
