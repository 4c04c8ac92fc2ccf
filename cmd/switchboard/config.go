package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshrp06/switchboard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create configuration",
	Long:  "View the effective configuration or write a default config file.",
	Run:   runConfig,
}

var (
	configInit bool
	configShow bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", true, "Show current configuration")
}

func runConfig(cmd *cobra.Command, args []string) {
	if configInit {
		initConfig()
		return
	}
	if configShow {
		showConfig()
	}
}

func initConfig() {
	path := configPath
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(path + " already exists. Use --show to view it."))
		return
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		printError("Failed to create config", err)
		os.Exit(1)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).
		Render("Created " + path + " with default settings."))
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - LLM provider and model (API keys come from ANTHROPIC_API_KEY or OPENAI_API_KEY)")
	fmt.Println("  - Orchestrator mode and step budgets")
	fmt.Println("  - Messaging destinations and their endpoints")
	fmt.Println("  - Run journal database")
}

func showConfig() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(fmt.Sprintf("Could not load config (%v). Showing defaults:\n", err)))
		cfg = config.DefaultConfig()
	} else {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true).
			Render("Current Configuration:\n"))
	}

	shown := *cfg
	if shown.LLM.APIKey != "" {
		shown.LLM.APIKey = "********"
	}

	data, err := yaml.Marshal(shown)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(string(data))

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).
		Render("\nConfig file locations (in order of precedence):"))
	fmt.Println("  1. --config flag")
	fmt.Println("  2. ./config.local.yaml")
	fmt.Println("  3. ./config.yaml")
	fmt.Println("  4. ~/.switchboard/config.yaml")
}
