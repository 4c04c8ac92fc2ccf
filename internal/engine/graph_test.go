package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/types"
	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// script returns decisions in order and fails once exhausted.
type script struct {
	mu        sync.Mutex
	decisions []models.Decision
	requests  []Request
}

func (s *script) Decide(ctx context.Context, req Request) (models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.decisions) {
		return models.Decision{}, fmt.Errorf("script exhausted at step %d", idx)
	}
	return s.decisions[idx], nil
}

func call(id, name string, args map[string]any) models.CapabilityCall {
	return models.CapabilityCall{ID: id, Name: name, Arguments: args}
}

func newTestAgent(t *testing.T, cfg Config) *Agent {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a test agent."
	}
	cfg.Logger = zaptest.NewLogger(t)
	a, err := NewAgent(cfg)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return a
}

func adderRegistry(counter *atomic.Int32) *capability.Registry {
	registry := capability.NewRegistry()
	registry.MustRegister(capability.Definition{
		Name:        "add",
		Description: "Add two numbers",
		Schema: capability.Schema{
			{Name: "a", Type: capability.TypeNumber, Required: true},
			{Name: "b", Type: capability.TypeNumber, Required: true},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			if counter != nil {
				counter.Add(1)
			}
			sum := capability.Number(args, "a") + capability.Number(args, "b")
			return strconv.FormatFloat(sum, 'f', -1, 64), nil
		},
	})
	return registry
}

func TestNewAgent_Validation(t *testing.T) {
	if _, err := NewAgent(Config{Decider: &script{}}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewAgent(Config{Name: "x"}); err == nil {
		t.Error("expected error for missing decider")
	}

	a, err := NewAgent(Config{Name: "x", Decider: &script{}})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	if a.MaxSteps() != DefaultMaxSteps {
		t.Errorf("MaxSteps() = %d, want %d", a.MaxSteps(), DefaultMaxSteps)
	}
}

func TestRun_SystemMessageUniqueAndFirst(t *testing.T) {
	var counter atomic.Int32
	dec := &script{decisions: []models.Decision{
		models.Calls(call("1", "add", map[string]any{"a": 1, "b": 2})),
		models.Final("3"),
	}}
	a := newTestAgent(t, Config{Registry: adderRegistry(&counter), Decider: dec, Loop: true})

	state, err := a.Run(context.Background(), models.NewState("add 1 and 2"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, req := range dec.requests {
		systems := 0
		for _, m := range req.Messages {
			if m.Role == models.RoleSystem {
				systems++
			}
		}
		if systems != 1 || req.Messages[0].Role != models.RoleSystem {
			t.Fatalf("dispatch %d saw %d system messages, first role %s", i, systems, req.Messages[0].Role)
		}
	}

	existing := &models.State{Messages: []models.Message{
		{Role: models.RoleSystem, Content: "custom"},
		{Role: models.RoleUser, Content: "hi"},
	}}
	dec2 := &script{decisions: []models.Decision{models.Final("hello")}}
	b := newTestAgent(t, Config{Decider: dec2, Loop: true})
	if _, err := b.Run(context.Background(), existing); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if existing.Messages[0].Content != "custom" || existing.Messages[1].Role == models.RoleSystem {
		t.Errorf("existing system message must be kept and not duplicated: %+v", existing.Messages)
	}
	if state.FinalAnswer() != "3" {
		t.Errorf("FinalAnswer() = %q", state.FinalAnswer())
	}

	misplaced := &models.State{Messages: []models.Message{
		{Role: models.RoleUser, Content: "q"},
		{Role: models.RoleSystem, Content: "late"},
		{Role: models.RoleSystem, Content: "dup"},
	}}
	dec3 := &script{decisions: []models.Decision{models.Final("ok")}}
	c := newTestAgent(t, Config{Decider: dec3, Loop: true})
	if _, err := c.Run(context.Background(), misplaced); err != nil {
		t.Fatalf("Run: %v", err)
	}
	seen := dec3.requests[0].Messages
	systems := 0
	for _, m := range seen {
		if m.Role == models.RoleSystem {
			systems++
		}
	}
	if systems != 1 || seen[0].Role != models.RoleSystem || seen[0].Content != "late" {
		t.Errorf("dispatch saw %d system messages, first %+v", systems, seen[0])
	}
	if seen[1].Role != models.RoleUser || seen[1].Content != "q" {
		t.Errorf("user message should follow the system message: %+v", seen)
	}
}

func TestRun_FinalDecisionSkipsExecute(t *testing.T) {
	tests := []struct {
		name      string
		loop      bool
		wantSteps int
	}{
		{"single pass aggregates", false, 1},
		{"looping stops at done", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var counter atomic.Int32
			dec := &script{decisions: []models.Decision{models.Final("Hello there")}}
			a := newTestAgent(t, Config{Registry: adderRegistry(&counter), Decider: dec, Loop: tt.loop})

			state, err := a.Run(context.Background(), models.NewState("hi"))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if counter.Load() != 0 {
				t.Fatal("capability executed for a final decision")
			}
			for _, m := range state.Messages {
				if m.Role == models.RoleTool {
					t.Fatal("tool message appended for a final decision")
				}
			}
			if len(state.Steps) != tt.wantSteps {
				t.Fatalf("steps = %d, want %d", len(state.Steps), tt.wantSteps)
			}
			if tt.wantSteps == 1 && state.Context != "Hello there" {
				t.Errorf("Context = %q", state.Context)
			}
			if state.FinalAnswer() != "Hello there" {
				t.Errorf("FinalAnswer() = %q", state.FinalAnswer())
			}
		})
	}
}

func TestRun_ResultsKeepCallOrder(t *testing.T) {
	const n = 6
	registry := capability.NewRegistry()
	var running, peak atomic.Int32
	registry.MustRegister(capability.Definition{
		Name:   "sleep",
		Schema: capability.Schema{{Name: "ms", Type: capability.TypeInteger, Required: true}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			cur := running.Add(1)
			defer running.Add(-1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			ms := capability.Number(args, "ms")
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return fmt.Sprintf("slept %v", ms), nil
		},
	})

	calls := make([]models.CapabilityCall, n)
	for i := range calls {
		// Later calls finish first.
		calls[i] = call(strconv.Itoa(i), "sleep", map[string]any{"ms": float64((n - i) * 10)})
	}
	dec := &script{decisions: []models.Decision{models.Calls(calls...)}}
	a := newTestAgent(t, Config{Registry: registry, Decider: dec, Concurrency: 3})

	state, err := a.Run(context.Background(), models.NewState("sleep"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var tools []models.Message
	for _, m := range state.Messages {
		if m.Role == models.RoleTool {
			tools = append(tools, m)
		}
	}
	if len(tools) != n {
		t.Fatalf("expected %d tool messages, got %d", n, len(tools))
	}
	for i, m := range tools {
		if m.CallID != strconv.Itoa(i) {
			t.Errorf("tool message %d answers call %s", i, m.CallID)
		}
	}
	if state.Context != tools[n-1].Content {
		t.Errorf("context should be the last tool output, got %q", state.Context)
	}
	if peak.Load() > 3 {
		t.Errorf("pool exceeded its limit: %d concurrent calls", peak.Load())
	}
}

func TestRun_FailedCallsAreAppended(t *testing.T) {
	var counter atomic.Int32
	dec := &script{decisions: []models.Decision{
		models.Calls(
			call("1", "add", map[string]any{"a": "five", "b": 2}),
			call("2", "missing", nil),
			call("3", "add", map[string]any{"a": 5, "b": 2}),
		),
	}}
	a := newTestAgent(t, Config{Registry: adderRegistry(&counter), Decider: dec})

	state, err := a.Run(context.Background(), models.NewState("mixed"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counter.Load() != 1 {
		t.Fatalf("expected only the valid call to execute, got %d", counter.Load())
	}

	tools := state.Messages[len(state.Messages)-3:]
	if !tools[0].Failed || !tools[1].Failed || tools[2].Failed {
		t.Fatalf("unexpected failure flags: %+v", tools)
	}
	if state.Context != "7" {
		t.Errorf("Context = %q, want 7", state.Context)
	}
}

func TestRun_LoopBudgetExceeded(t *testing.T) {
	var counter atomic.Int32
	dec := DeciderFunc(func(ctx context.Context, req Request) (models.Decision, error) {
		return models.Calls(call("x", "add", map[string]any{"a": 1, "b": 1})), nil
	})
	a := newTestAgent(t, Config{Registry: adderRegistry(&counter), Decider: dec, Loop: true, MaxSteps: 3})

	state, err := a.Run(context.Background(), models.NewState("forever"))
	if !errors.Is(err, xerrors.ErrLoopBudgetExceeded) {
		t.Fatalf("expected LoopBudgetExceeded, got %v", err)
	}
	if counter.Load() != 3 {
		t.Errorf("expected 3 executions before the cap, got %d", counter.Load())
	}
	if len(state.Steps) != 3 {
		t.Errorf("expected 3 recorded steps, got %d", len(state.Steps))
	}
}

func TestRun_FinalAnswerAllowedAtBudget(t *testing.T) {
	dec := &script{decisions: []models.Decision{
		models.Calls(call("1", "add", map[string]any{"a": 1, "b": 1})),
		models.Final("done"),
	}}
	a := newTestAgent(t, Config{Registry: adderRegistry(nil), Decider: dec, Loop: true, MaxSteps: 1})

	answer, _, err := a.Ask(context.Background(), "go")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "done" {
		t.Errorf("answer = %q", answer)
	}
}

func TestRun_InferenceFailure(t *testing.T) {
	a := newTestAgent(t, Config{Decider: DeciderFunc(func(ctx context.Context, req Request) (models.Decision, error) {
		return models.Decision{}, errors.New("503 from provider")
	})})

	_, err := a.Run(context.Background(), models.NewState("hi"))
	if !errors.Is(err, xerrors.ErrInferenceFailure) {
		t.Fatalf("expected InferenceFailure, got %v", err)
	}
}

func TestRun_InferenceTimeout(t *testing.T) {
	a := newTestAgent(t, Config{
		DecideTimeout: 10 * time.Millisecond,
		Decider: DeciderFunc(func(ctx context.Context, req Request) (models.Decision, error) {
			<-ctx.Done()
			return models.Decision{}, ctx.Err()
		}),
	})

	_, err := a.Run(context.Background(), models.NewState("hi"))
	if xerrors.CodeOf(err) != xerrors.CodeInferenceTimeout {
		t.Fatalf("expected InferenceTimeout, got %v", err)
	}
}

func TestRun_CallTimeout(t *testing.T) {
	registry := capability.NewRegistry()
	registry.MustRegister(capability.Definition{
		Name: "hang",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})
	dec := &script{decisions: []models.Decision{models.Calls(call("1", "hang", nil))}}
	a := newTestAgent(t, Config{Registry: registry, Decider: dec, CallTimeout: 10 * time.Millisecond})

	state, err := a.Run(context.Background(), models.NewState("hang"))
	if err != nil {
		t.Fatalf("a timed out capability must not fail the run: %v", err)
	}
	last, _ := state.Last()
	if !last.Failed || !strings.Contains(last.Content, "timed out") {
		t.Errorf("expected a failed timeout message, got %+v", last)
	}
}

func TestRun_AssignsUniqueCallIDs(t *testing.T) {
	dec := &script{decisions: []models.Decision{models.Calls(
		call("", "add", map[string]any{"a": 1, "b": 1}),
		call("dup", "add", map[string]any{"a": 1, "b": 2}),
		call("dup", "add", map[string]any{"a": 1, "b": 3}),
	)}}
	a := newTestAgent(t, Config{Registry: adderRegistry(nil), Decider: dec})

	state, err := a.Run(context.Background(), models.NewState("ids"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := map[string]bool{}
	for _, m := range state.Messages {
		if m.Role != models.RoleTool {
			continue
		}
		if m.CallID == "" || seen[m.CallID] {
			t.Fatalf("call id %q is empty or repeated", m.CallID)
		}
		seen[m.CallID] = true
	}
}

func TestRun_EmitsEvents(t *testing.T) {
	var mu sync.Mutex
	var states []types.AgentState
	dec := &script{decisions: []models.Decision{
		models.Calls(call("1", "add", map[string]any{"a": 1, "b": 1})),
		models.Final("2"),
	}}
	a := newTestAgent(t, Config{
		Registry: adderRegistry(nil),
		Decider:  dec,
		Loop:     true,
		Observer: func(e types.AgentEvent) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, e.State)
		},
	})

	if _, err := a.Run(context.Background(), models.NewState("1+1")); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []types.AgentState{
		types.StateThinking,
		types.StateCapabilityCall,
		types.StateExecuting,
		types.StateThinking,
		types.StateResponding,
	}
	if len(states) != len(want) {
		t.Fatalf("events = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, states[i], want[i])
		}
	}
}

func TestNode_String(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{NodeDispatch, "dispatch"},
		{NodeExecute, "execute"},
		{NodeAggregate, "aggregate"},
		{NodeDone, "done"},
		{Node(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.node.String(); got != tt.want {
			t.Errorf("Node(%d).String() = %q, want %q", tt.node, got, tt.want)
		}
	}
}
