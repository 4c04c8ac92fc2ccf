// Package llm provides the decision step collaborators backed by hosted and
// local language models.
package llm

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/internal/validator"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// New builds the decider for the configured provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (engine.Decider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))

	var (
		d   engine.Decider
		err error
	)
	switch cfg.Provider {
	case config.ProviderAnthropic:
		d, err = NewAnthropic(cfg, logger)
	case config.ProviderOpenAI:
		d, err = NewOpenAI(cfg, logger)
	case config.ProviderOllama:
		d, err = NewOllama(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// parseLeaked recovers calls from models that write capability JSON into their
// text instead of using native tool calls. Anything else is a final answer.
func parseLeaked(text string, logger *zap.Logger) models.Decision {
	d, err := validator.NewOutputValidator().Validate(text)
	if err != nil {
		return models.Final(text)
	}
	if !d.IsFinal() {
		logger.Debug("Recovered capability calls from text output", zap.Int("calls", len(d.Calls)))
	}
	return d
}

func parseArguments(raw []byte) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
