package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// OpenAI decides through streaming chat completions with function tools.
// History is sent as plain turns: prior calls are rendered as JSON text and
// capability results as user messages.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

// NewOpenAI creates the OpenAI decider.
func NewOpenAI(cfg config.LLMConfig, logger *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAI{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(cfg.APIKey),
		),
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Decide implements engine.Decider.
func (o *OpenAI) Decide(ctx context.Context, req engine.Request) (models.Decision, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    toOpenAIMessages(SystemText(req, false), req.Messages),
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(o.temperature),
	}
	if tools := toOpenAITools(req.Capabilities); len(tools) > 0 {
		params.Tools = tools
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	var calls []models.CapabilityCall
	var content strings.Builder

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tool, ok := acc.JustFinishedToolCall(); ok {
			calls = append(calls, models.CapabilityCall{
				Name:      tool.Name,
				Arguments: parseArguments([]byte(tool.Arguments)),
			})
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			content.WriteString(chunk.Choices[0].Delta.Content)
		}
	}

	if err := stream.Err(); err != nil {
		return models.Decision{}, fmt.Errorf("OpenAI streaming error: %w", err)
	}

	if len(calls) > 0 {
		d := models.Calls(calls...)
		d.Content = content.String()
		return d, nil
	}
	return parseLeaked(content.String(), o.logger), nil
}

func toOpenAIMessages(system string, msgs []models.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}

	for _, m := range conversation(msgs) {
		switch m.Role {
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(callsText(m)))
		case models.RoleTool:
			out = append(out, openai.UserMessage(toolResultText(m)))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toOpenAITools(defs []capability.Definition) []openai.ChatCompletionToolUnionParam {
	if len(defs) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(defs))
	for i, def := range defs {
		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.Schema.JSONSchema()),
			},
		)
	}
	return result
}
