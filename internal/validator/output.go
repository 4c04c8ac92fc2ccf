package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// OutputValidator turns raw collaborator text into a Decision. Text that does not
// encode capability calls is a final answer.
type OutputValidator struct{}

// NewOutputValidator creates an OutputValidator.
func NewOutputValidator() *OutputValidator {
	return &OutputValidator{}
}

type rawCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`

	// Older single-tool format: {"tool": "...", "params": {...}}
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

type rawDecision struct {
	Calls []rawCall `json:"calls"`
	rawCall
}

// Validate parses response. Capability names are not checked here; unknown names
// reach the registry and come back as failed results the collaborator can read.
func (v *OutputValidator) Validate(response string) (models.Decision, error) {
	text := strings.TrimSpace(response)
	if text == "" {
		return models.Decision{}, fmt.Errorf("empty response")
	}

	payload := stripFence(text)
	if !strings.HasPrefix(payload, "{") && !strings.HasPrefix(payload, "[") {
		return models.Final(text), nil
	}

	calls, ok := parseCalls(payload)
	if !ok {
		return models.Final(text), nil
	}
	return models.Calls(calls...), nil
}

func parseCalls(payload string) ([]models.CapabilityCall, bool) {
	var raws []rawCall

	if strings.HasPrefix(payload, "[") {
		if err := json.Unmarshal([]byte(payload), &raws); err != nil {
			return nil, false
		}
	} else {
		var d rawDecision
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, false
		}
		raws = d.Calls
		if len(raws) == 0 {
			raws = []rawCall{d.rawCall}
		}
	}

	calls := make([]models.CapabilityCall, 0, len(raws))
	for _, r := range raws {
		name, args := r.Name, r.Arguments
		if name == "" {
			name, args = r.Tool, r.Params
		}
		if name == "" {
			return nil, false
		}
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, models.CapabilityCall{ID: r.ID, Name: name, Arguments: args})
	}
	return calls, len(calls) > 0
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
