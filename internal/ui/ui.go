// Package ui provides the interactive terminal session using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashutoshrp06/switchboard/internal/types"
)

// HandleFunc answers one request.
type HandleFunc func(ctx context.Context, query string) (string, error)

// AnswerMsg carries the outcome of a request back to the model.
type AnswerMsg struct {
	Answer string
	Err    error
}

// Info describes the running system for the help and capabilities commands.
type Info struct {
	Mode         string
	Agents       []AgentInfo
	Destinations []string
}

// AgentInfo lists one agent and its capability names.
type AgentInfo struct {
	Name         string
	Capabilities []string
}

// Model is the Bubble Tea model for the interactive session.
type Model struct {
	textInput textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	styles    Styles

	state    types.AgentState
	messages []chatMessage
	inflight map[string]*callView
	order    []string
	width    int
	height   int
	ready    bool
	quitting bool
	err      error

	info    Info
	handle  HandleFunc
	timeout time.Duration
}

type chatMessage struct {
	role    string // "user", "assistant", "system", "call"
	content string
	call    *callView
}

// callView tracks one capability call and its result.
type callView struct {
	agent    string
	name     string
	args     map[string]any
	output   string
	failed   bool
	kind     string
	duration time.Duration
	done     bool
}

// NewModel creates a new UI model. handle may be nil for a display-only model.
func NewModel(handle HandleFunc, info Info, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask something... (e.g., 'What is 5+10?' or 'Send the London weather to team')"
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 80

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(DefaultTheme().Primary)

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.DefaultKeyMap()

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return Model{
		textInput: ti,
		spinner:   s,
		viewport:  vp,
		styles:    DefaultStyles(),
		state:     types.StateIdle,
		inflight:  make(map[string]*callView),
		info:      info,
		handle:    handle,
		timeout:   timeout,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

func (m Model) headerHeight() int {
	banner := m.styles.BannerTitle.Render(Banner())
	return lipgloss.Height(banner) + 2
}

// footerHeight covers the blank line, the input line and the help bar.
func (m Model) footerHeight() int {
	return 4
}

func (m *Model) updateViewport() {
	var b strings.Builder

	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	for _, id := range m.order {
		if c := m.inflight[id]; c != nil && !c.done {
			b.WriteString(m.renderCallInProgress(c))
			b.WriteString("\n")
		}
	}

	if m.state != types.StateIdle {
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.state == types.StateIdle {
				m.quitting = true
				return m, tea.Quit
			}
			m.state = types.StateIdle
			return m, nil

		case tea.KeyEnter:
			if m.state != types.StateIdle {
				return m, nil
			}

			query := strings.TrimSpace(m.textInput.Value())
			if query == "" {
				return m, nil
			}

			if handled, cmd := m.handleCommand(query); handled {
				m.updateViewport()
				return m, cmd
			}

			m.messages = append(m.messages, chatMessage{role: "user", content: query})
			m.textInput.SetValue("")
			m.state = types.StateThinking
			m.updateViewport()

			if m.handle != nil {
				cmds = append(cmds, m.ask(query))
			}
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10

		vpHeight := msg.Height - m.headerHeight() - m.footerHeight()
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.viewport.KeyMap = viewport.DefaultKeyMap()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}

		m.ready = true
		m.updateViewport()

	case types.AgentEvent:
		m.handleAgentEvent(msg)
		m.updateViewport()
		return m, nil

	case AnswerMsg:
		m.finish(msg)
		m.updateViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		m.updateViewport()
	}

	if m.state == types.StateIdle {
		var tiCmd tea.Cmd
		m.textInput, tiCmd = m.textInput.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) ask(query string) tea.Cmd {
	handle, timeout := m.handle, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		answer, err := handle(ctx, query)
		return AnswerMsg{Answer: answer, Err: err}
	}
}

// handleCommand processes session commands. It reports whether input was a command.
func (m *Model) handleCommand(input string) (bool, tea.Cmd) {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		m.quitting = true
		return true, tea.Quit

	case "clear":
		m.messages = nil
		m.textInput.SetValue("")
		return true, nil

	case "help", "?":
		m.messages = append(m.messages, chatMessage{role: "system", content: m.helpText()})
		m.textInput.SetValue("")
		return true, nil

	case "agents", "capabilities":
		m.messages = append(m.messages, chatMessage{role: "system", content: m.agentsText()})
		m.textInput.SetValue("")
		return true, nil
	}
	return false, nil
}

func (m Model) helpText() string {
	return fmt.Sprintf(`Available commands:
  help, ?     Show this help
  agents      List agents and their capabilities
  clear       Clear chat history
  exit, quit  Exit

Mode: %s
Permitted destinations: %s

Example queries:
  "What is 5+10?"
  "What's the weather in London?"
  "Send 'deploy finished' to team"
  "Send the weather in Paris to development"`, m.info.Mode, strings.Join(m.info.Destinations, ", "))
}

func (m Model) agentsText() string {
	if len(m.info.Agents) == 0 {
		return "No agents configured."
	}
	var b strings.Builder
	b.WriteString("Agents:\n")
	for _, a := range m.info.Agents {
		fmt.Fprintf(&b, "  %s: %s\n", a.Name, strings.Join(a.Capabilities, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// handleAgentEvent records progress reported by any agent in the tree.
func (m *Model) handleAgentEvent(event types.AgentEvent) {
	switch event.State {
	case types.StateThinking:
		if m.state != types.StateIdle {
			m.state = types.StateThinking
		}

	case types.StateCapabilityCall:
		if event.Call == nil {
			return
		}
		m.state = types.StateExecuting
		key := event.Agent + "/" + event.Call.ID
		if _, seen := m.inflight[key]; !seen {
			m.order = append(m.order, key)
		}
		m.inflight[key] = &callView{agent: event.Agent, name: event.Call.Name, args: event.Call.Arguments}

	case types.StateExecuting:
		if event.Call == nil || event.Result == nil {
			return
		}
		key := event.Agent + "/" + event.Call.ID
		c := m.inflight[key]
		if c == nil {
			c = &callView{agent: event.Agent, name: event.Call.Name, args: event.Call.Arguments}
		}
		c.output = event.Result.Output
		c.failed = event.Result.Failed
		c.kind = string(event.Result.Kind)
		c.duration = event.Result.Duration
		c.done = true
		delete(m.inflight, key)
		m.order = removeKey(m.order, key)
		m.messages = append(m.messages, chatMessage{role: "call", call: c})

	case types.StateError:
		if event.Error != nil {
			m.err = event.Error
		}
	}
}

func (m *Model) finish(msg AnswerMsg) {
	m.state = types.StateIdle
	m.inflight = make(map[string]*callView)
	m.order = nil

	if msg.Err != nil {
		m.err = msg.Err
		m.messages = append(m.messages, chatMessage{role: "system", content: "Error: " + msg.Err.Error()})
		return
	}
	m.err = nil
	m.messages = append(m.messages, chatMessage{role: "assistant", content: msg.Answer})
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return m.styles.SystemMessage.Render("Goodbye!\n")
	}

	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(m.styles.BannerTitle.Render(Banner()))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.styles.Prompt.Render("> "))
	if m.state == types.StateIdle {
		b.WriteString(m.textInput.View())
	} else {
		b.WriteString(m.styles.StatusText.Render("(processing...)"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())

	return m.styles.App.Render(b.String())
}

func (m Model) renderMessage(msg chatMessage) string {
	switch msg.role {
	case "user":
		return m.styles.UserMessage.Render("You: " + msg.content)
	case "assistant":
		return m.styles.AssistantMessage.Render("Assistant: " + msg.content)
	case "system":
		return m.styles.SystemMessage.Render(msg.content)
	case "call":
		if msg.call != nil {
			return m.renderCallResult(msg.call)
		}
	}
	return ""
}

func (m Model) renderCallHeader(c *callView) string {
	var b strings.Builder
	b.WriteString(m.styles.AgentName.Render(c.agent))
	b.WriteString(m.styles.ToolParams.Render(" › "))
	b.WriteString(m.styles.ToolName.Render(c.name))
	if args := formatArgs(c.args); args != "" {
		b.WriteString(" ")
		b.WriteString(m.styles.ToolParams.Render("(" + args + ")"))
	}
	return b.String()
}

func (m Model) renderCallResult(c *callView) string {
	var b strings.Builder
	b.WriteString(m.renderCallHeader(c))
	b.WriteString("\n")

	if c.failed {
		label := "  Failed"
		if c.kind != "" {
			label += " [" + c.kind + "]"
		}
		b.WriteString(m.styles.ToolError.Render(label))
		b.WriteString("\n")
	} else {
		b.WriteString(m.styles.ToolSuccess.Render("  Success"))
		if c.duration > 0 {
			b.WriteString(m.styles.ToolParams.Render(fmt.Sprintf(" (%s)", c.duration.Round(time.Millisecond))))
		}
		b.WriteString("\n")
	}

	output := c.output
	if len(output) > 300 {
		output = output[:300] + "..."
	}
	for _, line := range strings.Split(output, "\n") {
		if line != "" {
			b.WriteString(m.styles.ToolOutput.Render("  | " + line))
			b.WriteString("\n")
		}
	}

	return m.styles.ToolBox.Render(b.String())
}

func (m Model) renderCallInProgress(c *callView) string {
	var b strings.Builder
	b.WriteString(m.renderCallHeader(c))
	b.WriteString("\n")
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.styles.StatusText.Render("Executing..."))
	return m.styles.ToolBox.Render(b.String())
}

func (m Model) renderStatus() string {
	return fmt.Sprintf("%s %s",
		m.spinner.View(),
		m.styles.StateLabel.Render(m.state.String()+"..."),
	)
}

func (m Model) renderHelpBar() string {
	help := []string{
		m.styles.HelpKey.Render("enter") + m.styles.HelpValue.Render(" send"),
		m.styles.HelpKey.Render("ctrl+c") + m.styles.HelpValue.Render(" quit"),
		m.styles.HelpKey.Render("help") + m.styles.HelpValue.Render(" commands"),
		m.styles.HelpKey.Render("agents") + m.styles.HelpValue.Render(" list agents"),
	}
	return m.styles.HelpBar.Render(strings.Join(help, "  |  "))
}

// formatArgs renders arguments sorted by key.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprintf("%v", args[k])
		if len(v) > 60 {
			v = v[:60] + "..."
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ", ")
}
