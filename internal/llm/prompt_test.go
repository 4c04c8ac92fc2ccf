package llm

import (
	"strings"
	"testing"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

func adderDefinitions() []capability.Definition {
	return []capability.Definition{{
		Name:        "add",
		Description: "Add two numbers",
		Schema: capability.Schema{
			{Name: "a", Type: capability.TypeNumber, Required: true},
			{Name: "b", Type: capability.TypeNumber, Required: true},
		},
	}}
}

func TestSystemText(t *testing.T) {
	req := engine.Request{
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: "You route requests."},
			{Role: models.RoleUser, Content: "hi"},
		},
		Context:      "London is 12C",
		Capabilities: adderDefinitions(),
	}

	got := SystemText(req, false)
	want := "You route requests.\n\nLatest result: London is 12C"
	if got != want {
		t.Errorf("SystemText() = %q, want %q", got, want)
	}

	described := SystemText(req, true)
	if !strings.HasPrefix(described, want) || !strings.Contains(described, "### add") {
		t.Errorf("described prompt missing capabilities: %q", described)
	}

	req.Context = ""
	if got := SystemText(req, false); got != "You route requests." {
		t.Errorf("no context line expected, got %q", got)
	}
}

func TestCallsText_RoundTripsThroughValidator(t *testing.T) {
	msg := models.Message{
		Role: models.RoleAssistant,
		Calls: []models.CapabilityCall{
			{ID: "1", Name: "add", Arguments: map[string]any{"a": 5.0, "b": 10.0}},
		},
	}

	d := parseLeaked(callsText(msg), zapNop())
	if d.IsFinal() || d.Calls[0].Name != "add" || d.Calls[0].Arguments["a"] != 5.0 {
		t.Errorf("decision = %+v", d)
	}
}

func TestToolResultText(t *testing.T) {
	got := toolResultText(models.Message{Role: models.RoleTool, Name: "send_message", CallID: "c1", Content: "Error: denied", Failed: true})
	if !strings.Contains(got, "send_message") || !strings.Contains(got, "failed") || !strings.Contains(got, "Error: denied") {
		t.Errorf("toolResultText() = %q", got)
	}
}
