// Package tools provides the capability executors the specialist agents call.
package tools

import (
	"context"
	"fmt"

	"github.com/ashutoshrp06/switchboard/internal/capability"
)

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description for the collaborator.
	Description() string

	// Parameters returns the argument schema used for validation.
	Parameters() capability.Schema

	// Execute runs the tool with validated arguments.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Authorizing is implemented by tools with a side effect that must be gated
// before Execute runs.
type Authorizing interface {
	Authorize(args map[string]any) error
}

// Definition converts a tool into a capability definition.
func Definition(tool Tool) capability.Definition {
	def := capability.Definition{
		Name:        tool.Name(),
		Description: tool.Description(),
		Schema:      tool.Parameters(),
		Execute:     tool.Execute,
	}
	if auth, ok := tool.(Authorizing); ok {
		def.Authorize = auth.Authorize
	}
	return def
}

// Register adds every tool to registry.
func Register(registry *capability.Registry, tools ...Tool) error {
	for _, tool := range tools {
		if err := registry.Register(Definition(tool)); err != nil {
			return fmt.Errorf("register tool %s: %w", tool.Name(), err)
		}
	}
	return nil
}

// NewRegistry builds a registry holding tools.
func NewRegistry(tools ...Tool) (*capability.Registry, error) {
	registry := capability.NewRegistry()
	if err := Register(registry, tools...); err != nil {
		return nil, err
	}
	return registry, nil
}
