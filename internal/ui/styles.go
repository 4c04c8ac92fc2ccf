package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the session palette.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	Success lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#7C3AED"),
		Secondary: lipgloss.Color("#06B6D4"),
		Accent:    lipgloss.Color("#F59E0B"),

		Success: lipgloss.Color("#10B981"),
		Error:   lipgloss.Color("#EF4444"),
		Muted:   lipgloss.Color("#6B7280"),

		Text:    lipgloss.Color("#F9FAFB"),
		TextDim: lipgloss.Color("#9CA3AF"),
	}
}

// Styles groups the rendered components of the session.
type Styles struct {
	App         lipgloss.Style
	BannerTitle lipgloss.Style
	Prompt      lipgloss.Style

	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style
	SystemMessage    lipgloss.Style

	// A capability call box: "agent › capability (args)" followed by its outcome.
	AgentName   lipgloss.Style
	ToolBox     lipgloss.Style
	ToolName    lipgloss.Style
	ToolParams  lipgloss.Style
	ToolOutput  lipgloss.Style
	ToolSuccess lipgloss.Style
	ToolError   lipgloss.Style

	StatusText lipgloss.Style
	StateLabel lipgloss.Style

	HelpKey   lipgloss.Style
	HelpValue lipgloss.Style
	HelpBar   lipgloss.Style
}

// NewStyles builds Styles from a theme.
func NewStyles(t Theme) Styles {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return Styles{
		App:         lipgloss.NewStyle().Padding(1, 2),
		BannerTitle: fg(t.Primary).Bold(true),
		Prompt:      fg(t.Secondary).Bold(true),

		UserMessage:      fg(t.Secondary).Bold(true).PaddingLeft(2),
		AssistantMessage: fg(t.Text).PaddingLeft(2),
		SystemMessage:    fg(t.Muted).Italic(true).PaddingLeft(2),

		AgentName: fg(t.Secondary),
		ToolBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Accent).
			Padding(0, 1).
			MarginLeft(2),
		ToolName:    fg(t.Accent).Bold(true),
		ToolParams:  fg(t.TextDim),
		ToolOutput:  fg(t.Text).PaddingLeft(1),
		ToolSuccess: fg(t.Success).Bold(true),
		ToolError:   fg(t.Error).Bold(true),

		StatusText: fg(t.TextDim),
		StateLabel: fg(t.Primary).Bold(true),

		HelpKey:   fg(t.Muted),
		HelpValue: fg(t.TextDim),
		HelpBar:   fg(t.Muted).MarginTop(1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() Styles {
	return NewStyles(DefaultTheme())
}

// Banner returns the session banner.
func Banner() string {
	return `
 ╭──────────────────────────────────────────────────────────╮
 │                                                          │
 │   ┌─┐┬ ┬┬┌┬┐┌─┐┬ ┬┌┐ ┌─┐┌─┐┬─┐┌┬┐                         │
 │   └─┐││││ │ │  ├─┤├┴┐│ │├─┤├┬┘ ││                         │
 │   └─┘└┴┘┴ ┴ └─┘┴ ┴└─┘└─┘┴ ┴┴└──┴┘                         │
 │                                                          │
 │         Multi-agent orchestration in your terminal       │
 ╰──────────────────────────────────────────────────────────╯`
}
