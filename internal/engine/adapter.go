package engine

import (
	"context"
	"fmt"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Argument names accepted by an agent wrapped as a capability.
const (
	ArgQuery   = "query"
	ArgContext = "context"
)

// AgentSchema is the fixed input schema of a wrapped agent.
var AgentSchema = capability.Schema{
	{Name: ArgQuery, Type: capability.TypeString, Description: "The question or instruction for the agent", Required: true},
	{Name: ArgContext, Type: capability.TypeString, Description: "Result of a previous step the agent should take into account", Default: ""},
}

// AsCapability wraps an agent so another agent can invoke it. Each invocation
// runs the wrapped agent on its own private conversation. An empty name uses
// the agent's name.
func AsCapability(a *Agent, name, description string) capability.Definition {
	if name == "" {
		name = a.Name()
	}
	if description == "" {
		description = a.Description()
	}

	return capability.Definition{
		Name:        name,
		Description: description,
		Schema:      AgentSchema,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			state := models.NewState(NestedPrompt(capability.String(args, ArgQuery), capability.String(args, ArgContext)))

			final, err := a.Run(ctx, state)
			if err != nil {
				return "", fmt.Errorf("agent %s: %w", a.Name(), err)
			}
			return final.FinalAnswer(), nil
		},
	}
}

// NestedPrompt builds the user message for a nested run.
func NestedPrompt(query, prior string) string {
	if prior == "" {
		return query
	}
	return "Previous context: " + prior + "\n\n" + query
}
