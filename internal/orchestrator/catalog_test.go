package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCatalog_Default(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if c.Orchestrator.Name != "orchestrator" || c.Router.Name != "router" {
		t.Errorf("names = %q, %q", c.Orchestrator.Name, c.Router.Name)
	}

	want := map[string]string{
		"arithmetic": "math_agent",
		"weather":    "weather_agent",
		"messaging":  "messaging_agent",
	}
	if len(c.Agents) != len(want) {
		t.Fatalf("agents = %d", len(c.Agents))
	}
	for name, capName := range want {
		spec, ok := c.Agent(name)
		if !ok {
			t.Errorf("agent %s missing", name)
			continue
		}
		if spec.Capability != capName || !spec.Looping() {
			t.Errorf("agent %s = %+v", name, spec)
		}
	}

	msg, _ := c.Agent("messaging")
	if strings.Join(msg.Markers, ",") != "MESSAGING,SLACK" {
		t.Errorf("markers = %v", msg.Markers)
	}
	if !strings.Contains(msg.SystemPrompt, "{{destinations}}") {
		t.Error("messaging prompt should carry the destinations placeholder")
	}
}

func TestLoadCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	data := `
agents:
  - name: calc
    toolset: arithmetic
    loop: false
    max_steps: 3
    markers: [math]
    description: Calculator
    system_prompt: Calculate.
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	spec := c.Agents[0]
	if spec.Capability != "calc_agent" || spec.Looping() || spec.MaxSteps != 3 {
		t.Errorf("spec = %+v", spec)
	}
	if spec.Markers[0] != "MATH" {
		t.Errorf("markers = %v", spec.Markers)
	}
	if c.Orchestrator.Name != "orchestrator" {
		t.Errorf("orchestrator name = %q", c.Orchestrator.Name)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"malformed", "agents: [", "parse catalog"},
		{"empty", "orchestrator:\n  name: o\n", "no agents"},
		{"unnamed", "agents:\n  - toolset: weather\n", "name is required"},
		{"unknown toolset", "agents:\n  - name: a\n    toolset: email\n", "unknown toolset"},
		{"duplicate name", "agents:\n  - name: a\n    toolset: weather\n  - name: a\n    toolset: arithmetic\n", "duplicate agent name"},
		{"clashes with router", "agents:\n  - name: router\n    toolset: weather\n", "duplicate agent name"},
		{"duplicate capability", "agents:\n  - name: a\n    capability: x\n    toolset: weather\n  - name: b\n    capability: x\n    toolset: arithmetic\n", "duplicate capability"},
		{"duplicate marker", "agents:\n  - name: a\n    toolset: weather\n    markers: [X]\n  - name: b\n    toolset: arithmetic\n    markers: [x]\n", "marker X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	got := render("Permitted destinations: {{destinations}}.", []string{"team", "development"})
	if got != "Permitted destinations: team, development." {
		t.Errorf("render = %q", got)
	}
}
