package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/config"
	"github.com/ashutoshrp06/switchboard/internal/delivery"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/internal/orchestrator"
	"github.com/ashutoshrp06/switchboard/internal/weather"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

var capabilitiesCmd = &cobra.Command{
	Use:     "capabilities",
	Aliases: []string{"agents", "tools"},
	Short:   "List agents and their capabilities",
	Long: `List every agent in the catalog and the capabilities it can call.

Examples:
  switchboard capabilities           # List agents
  switchboard capabilities --verbose # Show parameter details`,
	Run: func(cmd *cobra.Command, args []string) {
		runCapabilities()
	},
}

// offline is a decider for commands that only inspect the agent tree.
var offline = engine.DeciderFunc(func(context.Context, engine.Request) (models.Decision, error) {
	return models.Decision{}, fmt.Errorf("no model connected")
})

func inspectSystem(cfg *config.Config) (*orchestrator.System, error) {
	return orchestrator.New(orchestrator.Options{
		Config:     cfg,
		Decider:    offline,
		Sender:     delivery.NewRouter(0, nil),
		Forecaster: weather.NewClient(weather.Config{}),
		Logger:     zap.NewNop(),
	})
}

func runCapabilities() {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	agentStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	capStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF"))

	paramStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	cfg, err := loadConfig()
	if err != nil {
		printError("Could not load config", err)
		os.Exit(1)
	}

	sys, err := inspectSystem(cfg)
	if err != nil {
		printError("Failed to build agents", err)
		os.Exit(1)
	}

	fmt.Println(headerStyle.Render("Agents"))
	fmt.Println(descStyle.Render(fmt.Sprintf("  mode: %s", sys.Mode())))
	fmt.Println()

	agents := append([]*engine.Agent{sys.Orchestrator()}, sys.Specialists()...)
	total := 0
	for _, a := range agents {
		loop := "single step"
		if a.Loop() {
			loop = fmt.Sprintf("loop, max %d steps", a.MaxSteps())
		}
		fmt.Printf("  %s %s\n", agentStyle.Render(a.Name()), descStyle.Render("("+loop+")"))

		for _, def := range a.Capabilities() {
			total++
			fmt.Printf("    %s\n", capStyle.Render(def.Name))
			fmt.Printf("      %s\n", descStyle.Render(def.Description))

			if verbose && len(def.Schema) > 0 {
				fmt.Println("      Parameters:")
				for _, p := range def.Schema {
					req := ""
					if p.Required {
						req = " (required)"
					}
					fmt.Printf("        %s %s%s\n", paramStyle.Render(p.Name), descStyle.Render(p.Type), req)
					if p.Description != "" {
						fmt.Printf("          %s\n", descStyle.Render(p.Description))
					}
				}
			}
		}
		fmt.Println()
	}

	fmt.Println(descStyle.Render(fmt.Sprintf("  Total: %d capabilities across %d agents", total, len(agents))))
	fmt.Println(descStyle.Render(fmt.Sprintf("  Permitted destinations: %v", sys.Destinations())))
	if !verbose {
		fmt.Println(descStyle.Render("  Use --verbose for parameter details"))
	}
}
