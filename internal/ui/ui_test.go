package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashutoshrp06/switchboard/internal/types"
	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

func testInfo() Info {
	return Info{
		Mode:         "capabilities",
		Destinations: []string{"team", "development"},
		Agents: []AgentInfo{
			{Name: "orchestrator", Capabilities: []string{"math_agent", "messaging_agent", "weather_agent"}},
			{Name: "arithmetic", Capabilities: []string{"add", "divide", "multiply", "subtract"}},
		},
	}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return next.(Model)
}

func typeAndEnter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestBanner(t *testing.T) {
	banner := Banner()
	if !strings.Contains(banner, "Multi-agent orchestration") {
		t.Error("banner should carry the tagline")
	}
	if lines := strings.Split(banner, "\n"); len(lines) < 3 {
		t.Errorf("banner has %d lines", len(lines))
	}
}

func TestModel_ViewBeforeAndAfterResize(t *testing.T) {
	m := NewModel(nil, testInfo(), 0)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View before resize = %q", got)
	}

	m = sized(t, m)
	if !strings.Contains(m.View(), "Multi-agent orchestration") {
		t.Error("view should contain the banner")
	}
}

func TestModel_SubmitRunsHandler(t *testing.T) {
	var got string
	handle := func(_ context.Context, q string) (string, error) {
		got = q
		return "15", nil
	}
	m := sized(t, NewModel(handle, testInfo(), time.Second))

	m, cmd := typeAndEnter(t, m, "What is 5+10?")
	if m.state != types.StateThinking {
		t.Errorf("state = %v", m.state)
	}
	if cmd == nil {
		t.Fatal("expected a command")
	}

	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if a, ok := c().(AnswerMsg); ok {
				msg = a
			}
		}
	}
	answer, ok := msg.(AnswerMsg)
	if !ok {
		t.Fatalf("command produced %T", msg)
	}
	if got != "What is 5+10?" || answer.Answer != "15" {
		t.Errorf("handler saw %q, answered %+v", got, answer)
	}

	next, _ := m.Update(answer)
	m = next.(Model)
	if m.state != types.StateIdle {
		t.Errorf("state after answer = %v", m.state)
	}
	last := m.messages[len(m.messages)-1]
	if last.role != "assistant" || last.content != "15" {
		t.Errorf("last message = %+v", last)
	}
}

func TestModel_AnswerError(t *testing.T) {
	m := sized(t, NewModel(nil, testInfo(), 0))
	m.state = types.StateThinking

	next, _ := m.Update(AnswerMsg{Err: xerrors.New(xerrors.CodeInferenceFailure, "provider offline")})
	m = next.(Model)

	if m.err == nil || m.state != types.StateIdle {
		t.Errorf("err = %v, state = %v", m.err, m.state)
	}
	if last := m.messages[len(m.messages)-1]; !strings.Contains(last.content, "provider offline") {
		t.Errorf("last message = %+v", last)
	}
}

func TestModel_CapabilityEvents(t *testing.T) {
	m := sized(t, NewModel(nil, testInfo(), 0))
	m.state = types.StateThinking

	call := models.CapabilityCall{ID: "c1", Name: "send_message", Arguments: map[string]any{"destination": "random", "message": "hello"}}
	next, _ := m.Update(types.AgentEvent{Agent: "messaging", State: types.StateCapabilityCall, Call: &call})
	m = next.(Model)

	if len(m.inflight) != 1 || m.state != types.StateExecuting {
		t.Fatalf("inflight = %d, state = %v", len(m.inflight), m.state)
	}
	if !strings.Contains(m.viewport.View(), "Executing") {
		t.Error("in-flight call should be rendered")
	}

	res := models.FailedResult(call, xerrors.New(xerrors.CodeUnauthorized, "allowed destinations: team, development"))
	next, _ = m.Update(types.AgentEvent{Agent: "messaging", State: types.StateExecuting, Call: &call, Result: &res})
	m = next.(Model)

	if len(m.inflight) != 0 || len(m.order) != 0 {
		t.Errorf("call should be complete, inflight = %d", len(m.inflight))
	}
	last := m.messages[len(m.messages)-1]
	if last.role != "call" || !last.call.failed || last.call.kind != string(xerrors.CodeUnauthorized) {
		t.Errorf("last message = %+v", last.call)
	}

	rendered := m.renderCallResult(last.call)
	for _, want := range []string{"messaging", "send_message", "destination=random", "UNAUTHORIZED", "team, development"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered call missing %q:\n%s", want, rendered)
		}
	}
}

func TestModel_Commands(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"help", "Permitted destinations: team, development"},
		{"?", "Available commands"},
		{"agents", "arithmetic: add, divide, multiply, subtract"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := sized(t, NewModel(nil, testInfo(), 0))
			m, _ = typeAndEnter(t, m, tt.input)

			if m.state != types.StateIdle {
				t.Errorf("commands must not start a request, state = %v", m.state)
			}
			if last := m.messages[len(m.messages)-1]; !strings.Contains(last.content, tt.want) {
				t.Errorf("output = %q, want %q", last.content, tt.want)
			}
		})
	}

	t.Run("clear", func(t *testing.T) {
		m := sized(t, NewModel(nil, testInfo(), 0))
		m, _ = typeAndEnter(t, m, "help")
		m, _ = typeAndEnter(t, m, "clear")
		if len(m.messages) != 0 {
			t.Errorf("messages = %d", len(m.messages))
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := sized(t, NewModel(nil, testInfo(), 0))
		m, cmd := typeAndEnter(t, m, "exit")
		if !m.quitting || cmd == nil {
			t.Error("exit should quit")
		}
		if m.View() != m.styles.SystemMessage.Render("Goodbye!\n") {
			t.Error("quitting view should say goodbye")
		}
	})
}

func TestModel_EnterIgnoredWhileBusy(t *testing.T) {
	calls := 0
	handle := func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("unused")
	}
	m := sized(t, NewModel(handle, testInfo(), 0))
	m.state = types.StateExecuting

	m, cmd := typeAndEnter(t, m, "What is 5+10?")
	if cmd != nil || len(m.messages) != 0 {
		t.Errorf("busy model accepted input: cmd=%v messages=%d", cmd != nil, len(m.messages))
	}
	if calls != 0 {
		t.Errorf("handler called %d times", calls)
	}
}

func TestFormatArgs(t *testing.T) {
	got := formatArgs(map[string]any{"b": 10, "a": 5})
	if got != "a=5, b=10" {
		t.Errorf("formatArgs = %q", got)
	}
	if formatArgs(nil) != "" {
		t.Error("empty args should render empty")
	}
}
