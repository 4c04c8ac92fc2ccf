package llm

import (
	"strings"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// latestResultPrefix introduces the aggregated context in the system text.
const latestResultPrefix = "Latest result: "

// SystemText joins the conversation's system messages and appends the latest
// aggregated result. With describe set, the capability list is rendered as text
// for models without native tool support.
func SystemText(req engine.Request, describe bool) string {
	var parts []string
	for _, m := range req.Messages {
		if m.Role == models.RoleSystem && strings.TrimSpace(m.Content) != "" {
			parts = append(parts, m.Content)
		}
	}

	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		parts = append(parts, latestResultPrefix+ctx)
	}

	if describe {
		if text := capability.Describe(req.Capabilities); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n\n")
}

// conversation returns the non-system messages in order.
func conversation(msgs []models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != models.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// toolResultText renders a tool message for providers that only accept plain turns.
func toolResultText(m models.Message) string {
	status := "succeeded"
	if m.Failed {
		status = "failed"
	}
	return "Capability " + m.Name + " (" + m.CallID + ") " + status + ":\n" + m.Content
}

// callsText renders an assistant message's calls in the JSON form the output
// validator accepts, so history stays readable for text-only providers.
func callsText(m models.Message) string {
	if len(m.Calls) == 0 {
		return m.Content
	}
	var b strings.Builder
	if m.Content != "" {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString(`{"calls": [`)
	for i, c := range m.Calls {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`{"name": "` + c.Name + `", "arguments": ` + mustJSON(c.Arguments) + `}`)
	}
	b.WriteString("]}")
	return b.String()
}
