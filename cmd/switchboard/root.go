package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/delivery"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/internal/journal"
	"github.com/ashutoshrp06/switchboard/internal/llm"
	"github.com/ashutoshrp06/switchboard/internal/orchestrator"
	"github.com/ashutoshrp06/switchboard/internal/types"
	"github.com/ashutoshrp06/switchboard/internal/ui"
	"github.com/ashutoshrp06/switchboard/internal/weather"
)

var (
	configPath  string
	verbose     bool
	interactive bool
)

var rootCmd = &cobra.Command{
	Use:   "switchboard [query]",
	Short: "Multi-agent orchestration from the terminal",
	Long: `
  ┌─┐┬ ┬┬┌┬┐┌─┐┬ ┬┌┐ ┌─┐┌─┐┬─┐┌┬┐
  └─┐││││ │ │  ├─┤├┴┐│ │├─┤├┬┘ ││
  └─┘└┴┘┴ ┴ └─┘┴ ┴└─┘└─┘┴ ┴┴└──┴┘

  An orchestrator agent delegates each request to specialist agents
  for arithmetic, weather and team messaging.

Usage:
  switchboard "What is 5+10?"
  switchboard "Send the weather in London to team"
  switchboard --it`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if interactive {
			runInteractive()
			return
		}
		if len(args) > 0 {
			runOneShot(args)
			return
		}
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&interactive, "it", false, "Start interactive mode")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(versionCmd)
}

// app is a wired system plus the resources it owns.
type app struct {
	cfg     *config.Config
	system  *orchestrator.System
	router  *delivery.Router
	journal *journal.Store
	logger  *zap.Logger
}

func (a *app) Close() {
	if a.router != nil {
		if err := a.router.Close(); err != nil {
			a.logger.Warn("Failed to close delivery connections", zap.Error(err))
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Failed to close journal", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func runInteractive() {
	var program *tea.Program

	a := initApp(true, func(ev types.AgentEvent) {
		if program != nil {
			program.Send(ev)
		}
	})
	defer a.Close()

	model := ui.NewModel(a.system.Handle, systemInfo(a.system), 0)
	program = tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		printError("Error running UI", err)
		os.Exit(1)
	}
}

func runOneShot(args []string) {
	query := strings.Join(args, " ")

	callStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var mu sync.Mutex
	a := initApp(false, func(ev types.AgentEvent) {
		if ev.State != types.StateExecuting || ev.Call == nil || ev.Result == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		line := fmt.Sprintf("  %s › %s", ev.Agent, ev.Call.Name)
		if ev.Result.Failed {
			fmt.Println(failStyle.Render(line + " failed: " + ev.Result.ErrorDetail))
			return
		}
		fmt.Println(callStyle.Render(line))
	})
	defer a.Close()

	fmt.Printf("%s %s\n\n", lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true).Render("Query:"), query)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res := a.system.Run(ctx, query)
	if res.Err != nil {
		printError("Request failed", res.Err)
		a.Close()
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(res.Answer)
	if verbose {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).
			Render(fmt.Sprintf("\nrun %s (%s, %s)", res.RunID, res.Mode, res.Duration.Round(time.Millisecond))))
	}
}

// initApp loads config, connects collaborators and returns a ready system.
func initApp(tui bool, observer engine.Observer) *app {
	cfg, err := loadConfig()
	if err != nil {
		printError("Could not load config", err)
		os.Exit(1)
	}
	if err := cfg.RequireCredentials(); err != nil {
		printError("Missing credentials", err)
		os.Exit(1)
	}

	logger := createLogger(cfg.Logging.Level, tui)

	decider, err := llm.New(cfg.LLM, logger)
	if err != nil {
		printError("Failed to create model client", err)
		os.Exit(1)
	}

	if o, ok := decider.(*llm.Ollama); ok {
		fmt.Print(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("Connecting to Ollama... "))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := o.Client().Ping(ctx)
		cancel()
		if err != nil {
			fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("✗"))
			fmt.Println()
			printConnectionHelp(cfg)
			os.Exit(1)
		}
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("✓"))
	}

	a := &app{
		cfg:    cfg,
		router: delivery.NewRouter(cfg.Engine.CallTimeout(), logger),
		logger: logger,
	}

	opts := orchestrator.Options{
		Config:  cfg,
		Decider: decider,
		Sender:  a.router,
		Forecaster: weather.NewClient(weather.Config{
			GeocodeURL:  cfg.Weather.GeocodeURL,
			ForecastURL: cfg.Weather.ForecastURL,
			Timeout:     time.Duration(cfg.Weather.TimeoutSeconds) * time.Second,
		}),
		Observer: observer,
		Logger:   logger,
	}

	if cfg.Journal.Driver != "" {
		a.journal, err = journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			logger.Warn("Journal disabled", zap.Error(err))
		} else {
			opts.Journal = a.journal
		}
	}

	a.system, err = orchestrator.New(opts)
	if err != nil {
		printError("Failed to build agents", err)
		a.Close()
		os.Exit(1)
	}

	fmt.Printf("Using %s model: %s\n", cfg.LLM.Provider, cfg.LLM.Model)
	return a
}

func systemInfo(s *orchestrator.System) ui.Info {
	info := ui.Info{Mode: s.Mode(), Destinations: s.Destinations()}

	agents := append([]*engine.Agent{s.Orchestrator()}, s.Specialists()...)
	for _, a := range agents {
		ai := ui.AgentInfo{Name: a.Name()}
		for _, def := range a.Capabilities() {
			ai.Capabilities = append(ai.Capabilities, def.Name)
		}
		info.Agents = append(info.Agents, ai)
	}
	return info
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromPaths(
		"config.local.yaml",
		"config.yaml",
	)
}

// createLogger builds the zap logger. The interactive session owns the
// terminal, so its logs go to a file in the config directory.
func createLogger(level string, tui bool) *zap.Logger {
	var zcfg zap.Config
	if verbose {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			zcfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	if tui {
		if dir, err := config.ConfigDir(); err == nil && os.MkdirAll(dir, 0o755) == nil {
			path := filepath.Join(dir, "switchboard.log")
			zcfg.OutputPaths = []string{path}
			zcfg.ErrorOutputPaths = []string{path}
		}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printError(msg string, err error) {
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
		Render(fmt.Sprintf("Error: %s: %v", msg, err)))
}

func printConnectionHelp(cfg *config.Config) {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	endpoint := cfg.LLM.BaseURL
	if endpoint == "" {
		endpoint = "the default Ollama address"
	}
	fmt.Println(errStyle.Render("Could not connect to Ollama at " + endpoint))
	fmt.Println()
	fmt.Println(helpStyle.Render("Make sure Ollama is running:"))
	fmt.Println(cmdStyle.Render("  ollama serve"))
	fmt.Println()
	fmt.Println(helpStyle.Render("And pull the configured model:"))
	fmt.Println(cmdStyle.Render("  ollama pull " + cfg.LLM.Model))
	fmt.Println()
	fmt.Println(helpStyle.Render("Or switch provider:"))
	fmt.Println(cmdStyle.Render("  Edit config.yaml and set llm.provider to anthropic or openai"))
}
