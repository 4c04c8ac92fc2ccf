// Package orchestrator assembles the specialist agents, the top-level
// orchestrator and the classification router, and exposes the request entry point.
package orchestrator

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/delivery"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/internal/journal"
	"github.com/ashutoshrp06/switchboard/internal/tools"
	"github.com/ashutoshrp06/switchboard/internal/validator"
	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run journal.Run) error
}

// Options wires a System. Config, Decider (or Deciders), Sender and
// Forecaster are required; the rest is optional.
type Options struct {
	Config  *config.Config
	Catalog *Catalog

	// Decider serves every agent without an entry in Deciders.
	Decider  engine.Decider
	Deciders map[string]engine.Decider

	Sender     delivery.Sender
	Forecaster tools.Forecaster
	Journal    Recorder
	Observer   engine.Observer
	Logger     *zap.Logger
}

// Result describes one handled request.
type Result struct {
	RunID    string
	Mode     string
	Answer   string
	State    *models.State
	Route    string
	Err      error
	Duration time.Duration
}

// System is the assembled agent tree. It is safe for concurrent requests.
type System struct {
	cfg          *config.Config
	catalog      *Catalog
	orchestrator *engine.Agent
	specialists  []*engine.Agent
	router       *Router
	allow        *capability.AllowList
	input        *validator.InputValidator
	journal      Recorder
	logger       *zap.Logger
}

// New builds the specialists from the catalog, wraps them as orchestrator
// capabilities and prepares the router.
func New(opts Options) (*System, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Sender == nil || opts.Forecaster == nil {
		return nil, fmt.Errorf("sender and forecaster are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = LoadCatalog(opts.Config.Orchestrator.Catalog); err != nil {
			return nil, err
		}
	}

	allow, err := capability.NewAllowList(opts.Config.Messaging.Destinations)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "messaging.destinations")
	}

	s := &System{
		cfg:     opts.Config,
		catalog: catalog,
		allow:   allow,
		input:   validator.NewInputValidator(),
		journal: opts.Journal,
		logger:  opts.Logger,
	}

	decider := func(name string) (engine.Decider, error) {
		if d, ok := opts.Deciders[name]; ok {
			return d, nil
		}
		if opts.Decider == nil {
			return nil, fmt.Errorf("no decider for agent %s", name)
		}
		return opts.Decider, nil
	}

	orchestratorTools := capability.NewRegistry()
	routes := make(map[string]*engine.Agent)

	for _, spec := range catalog.Agents {
		registry, err := tools.NewRegistry(s.toolset(spec.Toolset, opts)...)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", spec.Name, err)
		}
		d, err := decider(spec.Name)
		if err != nil {
			return nil, err
		}

		maxSteps := spec.MaxSteps
		if maxSteps <= 0 {
			maxSteps = opts.Config.Engine.MaxSteps
		}

		agent, err := engine.NewAgent(s.agentConfig(spec, registry, d, spec.Looping(), maxSteps, opts))
		if err != nil {
			return nil, err
		}
		s.specialists = append(s.specialists, agent)

		if err := orchestratorTools.Register(engine.AsCapability(agent, spec.Capability, spec.Description)); err != nil {
			return nil, fmt.Errorf("agent %s: %w", spec.Name, err)
		}
		for _, m := range spec.Markers {
			routes[m] = agent
		}
	}

	d, err := decider(catalog.Orchestrator.Name)
	if err != nil {
		return nil, err
	}
	s.orchestrator, err = engine.NewAgent(s.agentConfig(catalog.Orchestrator, orchestratorTools, d,
		opts.Config.Orchestrator.Loop, opts.Config.Orchestrator.MaxSteps, opts))
	if err != nil {
		return nil, err
	}

	d, err = decider(catalog.Router.Name)
	if err != nil {
		return nil, err
	}
	classifier, err := engine.NewAgent(s.agentConfig(catalog.Router, nil, d, false, 1, opts))
	if err != nil {
		return nil, err
	}
	s.router = NewRouter(classifier, routes)

	return s, nil
}

func (s *System) agentConfig(spec AgentSpec, registry *capability.Registry, d engine.Decider, loop bool, maxSteps int, opts Options) engine.Config {
	return engine.Config{
		Name:          spec.Name,
		Description:   spec.Description,
		SystemPrompt:  render(spec.SystemPrompt, s.allow.Names()),
		Registry:      registry,
		Decider:       d,
		Loop:          loop,
		MaxSteps:      maxSteps,
		Concurrency:   s.cfg.Engine.Concurrency,
		DecideTimeout: s.cfg.LLM.Timeout(),
		CallTimeout:   s.cfg.Engine.CallTimeout(),
		Observer:      opts.Observer,
		Logger:        opts.Logger,
	}
}

func (s *System) toolset(name string, opts Options) []tools.Tool {
	switch name {
	case ToolsetArithmetic:
		return tools.Arithmetic()
	case ToolsetWeather:
		return []tools.Tool{tools.NewWeatherTool(opts.Forecaster)}
	case ToolsetMessaging:
		return []tools.Tool{tools.NewMessageTool(s.allow, opts.Sender)}
	}
	return nil
}

// Orchestrator returns the top-level agent.
func (s *System) Orchestrator() *engine.Agent { return s.orchestrator }

// Specialists returns the specialist agents in catalog order.
func (s *System) Specialists() []*engine.Agent {
	return append([]*engine.Agent(nil), s.specialists...)
}

// Destinations returns the permitted delivery destinations in configured order.
func (s *System) Destinations() []string { return s.allow.Names() }

// Mode returns the configured orchestration mode.
func (s *System) Mode() string { return s.cfg.Orchestrator.Mode }

// Handle answers one user request with text. Only an inference failure before
// any result exists is returned as an error.
func (s *System) Handle(ctx context.Context, userText string) (string, error) {
	res := s.Run(ctx, userText)
	if res.Err != nil {
		return "", res.Err
	}
	return res.Answer, nil
}

// Run handles a request and reports the details. Result.Err is set only for
// hard failures.
func (s *System) Run(ctx context.Context, userText string) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString(), Mode: s.cfg.Orchestrator.Mode}
	logger := s.logger.With(zap.String("run_id", res.RunID), zap.String("mode", res.Mode))

	text := s.input.Sanitize(userText)
	if err := s.input.Validate(text); err != nil {
		res.Answer = fmt.Sprintf("Invalid input: %v", err)
		res.Duration = time.Since(start)
		return res
	}

	var err error
	switch s.cfg.Orchestrator.Mode {
	case config.ModeClassify:
		var route Route
		res.Answer, res.State, route, err = s.router.Handle(ctx, text)
		res.Route = route.Marker
	default:
		res.Answer, res.State, err = s.orchestrator.Ask(ctx, text)
	}

	if err != nil {
		res.Answer, res.Err = s.explain(res.State, err)
		if res.Err != nil {
			logger.Error("Request failed", zap.Error(err))
		} else {
			logger.Warn("Request finished with recovered error",
				zap.String("error_kind", string(xerrors.CodeOf(err))), zap.Error(err))
		}
	}

	res.Duration = time.Since(start)
	s.record(ctx, text, res, err, logger)
	return res
}

// explain turns a run error into user-visible text. An inference failure with
// no prior result has nothing to fall back on and stays an error.
func (s *System) explain(state *models.State, err error) (string, error) {
	latest := ""
	if state != nil {
		latest = state.Context
	}

	switch {
	case stdErrors.Is(err, xerrors.ErrLoopBudgetExceeded):
		msg := "I could not finish this request within the step budget."
		if latest != "" {
			msg += "\nLatest result: " + latest
		}
		return msg, nil
	case stdErrors.Is(err, xerrors.ErrInferenceFailure):
		if state == nil || len(state.Steps) == 0 {
			return "", err
		}
		return fmt.Sprintf("I ran into a problem before finishing (%s).\nLatest result: %s",
			xerrors.CodeOf(err), latest), nil
	}
	return "", err
}

func (s *System) record(ctx context.Context, input string, res Result, runErr error, logger *zap.Logger) {
	if s.journal == nil {
		return
	}

	run := journal.Run{
		ID:        res.RunID,
		CreatedAt: time.Now(),
		Input:     input,
		Answer:    res.Answer,
		Mode:      res.Mode,
		Duration:  res.Duration,
	}
	if res.State != nil {
		run.Steps = res.State.Steps
		run.Transcript = res.State.Messages
	}
	if runErr != nil {
		run.ErrorCode = xerrors.CodeOf(runErr)
		run.Error = runErr.Error()
	}

	if err := s.journal.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to record run", zap.Error(err))
	}
}
