// Package engine implements the graph executor that drives agents through
// dispatch, capability execution and context aggregation.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/types"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

const (
	// DefaultMaxSteps bounds Execute->Dispatch rounds for looping agents.
	DefaultMaxSteps = 8
	// DefaultConcurrency caps the worker pool used for calls within one decision.
	DefaultConcurrency = 4
	// DefaultDecideTimeout bounds a single decision step.
	DefaultDecideTimeout = 60 * time.Second
	// DefaultCallTimeout bounds a single capability call, nested agent runs included.
	DefaultCallTimeout = 120 * time.Second
)

// Request is everything a decision step sees.
type Request struct {
	Agent        string
	Messages     []models.Message
	Context      string
	Capabilities []capability.Definition
}

// Decider produces the next Decision for a conversation.
type Decider interface {
	Decide(ctx context.Context, req Request) (models.Decision, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, req Request) (models.Decision, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, req Request) (models.Decision, error) {
	return f(ctx, req)
}

// Observer receives progress events. It may be called from several goroutines.
type Observer func(types.AgentEvent)

// Config holds agent configuration.
type Config struct {
	Name         string
	Description  string
	SystemPrompt string
	Registry     *capability.Registry
	Decider      Decider

	// Loop selects the ReAct shape. Without it the agent decides once,
	// optionally executes, aggregates and stops.
	Loop bool

	MaxSteps      int
	Concurrency   int
	DecideTimeout time.Duration
	CallTimeout   time.Duration

	Observer Observer
	Logger   *zap.Logger
}

// Agent binds a capability set and a decision policy to the graph executor.
// It holds no per-run state and is safe for concurrent runs.
type Agent struct {
	name          string
	description   string
	systemPrompt  string
	registry      *capability.Registry
	decider       Decider
	loop          bool
	maxSteps      int
	concurrency   int
	decideTimeout time.Duration
	callTimeout   time.Duration
	observer      Observer
	logger        *zap.Logger
}

// NewAgent validates cfg and applies defaults.
func NewAgent(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Decider == nil {
		return nil, fmt.Errorf("agent %s: decider is required", cfg.Name)
	}
	if cfg.Registry == nil {
		cfg.Registry = capability.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.DecideTimeout <= 0 {
		cfg.DecideTimeout = DefaultDecideTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	return &Agent{
		name:          cfg.Name,
		description:   cfg.Description,
		systemPrompt:  cfg.SystemPrompt,
		registry:      cfg.Registry,
		decider:       cfg.Decider,
		loop:          cfg.Loop,
		maxSteps:      cfg.MaxSteps,
		concurrency:   cfg.Concurrency,
		decideTimeout: cfg.DecideTimeout,
		callTimeout:   cfg.CallTimeout,
		observer:      cfg.Observer,
		logger:        cfg.Logger.With(zap.String("agent", cfg.Name)),
	}, nil
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent description.
func (a *Agent) Description() string { return a.description }

// Loop reports whether the agent uses the looping shape.
func (a *Agent) Loop() bool { return a.loop }

// MaxSteps returns the loop budget.
func (a *Agent) MaxSteps() int { return a.maxSteps }

// Capabilities returns the agent's capability definitions sorted by name.
func (a *Agent) Capabilities() []capability.Definition {
	return a.registry.Definitions()
}

// Ask runs the agent on a fresh conversation holding userText and returns the final answer.
func (a *Agent) Ask(ctx context.Context, userText string) (string, *models.State, error) {
	state, err := a.Run(ctx, models.NewState(userText))
	if err != nil {
		return "", state, err
	}
	return state.FinalAnswer(), state, nil
}

func (a *Agent) emit(event types.AgentEvent) {
	if a.observer == nil {
		return
	}
	event.Agent = a.name
	a.observer(event)
}
