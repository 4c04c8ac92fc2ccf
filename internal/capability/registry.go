// Package capability provides the capability registry, argument validation and authorization gates.
package capability

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"
	"time"

	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Executor runs a capability with validated arguments and returns its textual output.
type Executor func(ctx context.Context, args map[string]any) (string, error)

// Authorizer vets arguments before a side-effecting Executor runs.
type Authorizer func(args map[string]any) error

// Definition describes a capability that can be registered.
type Definition struct {
	Name        string
	Description string
	Schema      Schema

	// Authorize is optional. When it fails the Executor is never called.
	Authorize Authorizer
	Execute   Executor
}

// Registry maps capability names to definitions. Definitions are immutable once registered.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]Definition),
	}
}

// Register adds a definition. Names must be unique and non-empty.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("capability name is required")
	}
	if def.Execute == nil {
		return fmt.Errorf("capability %s has no executor", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("capability already registered: %s", def.Name)
	}
	def.Schema = append(Schema(nil), def.Schema...)
	r.defs[def.Name] = def
	return nil
}

// MustRegister adds a definition, panicking on error.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.defs[name]
	if !exists {
		return Definition{}, xerrors.Newf(xerrors.CodeNotFound, "capability not found: %s", name)
	}
	return def, nil
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.defs)
}

// Definitions returns all definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.defs))
	for _, name := range sortedKeys(r.defs) {
		out = append(out, r.defs[name])
	}
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Invoke runs the named capability: lookup, validation, authorization, then execution.
// Every failure is returned as a failed result; Invoke itself never fails.
func (r *Registry) Invoke(ctx context.Context, call models.CapabilityCall) models.CapabilityResult {
	start := time.Now()
	result := r.invoke(ctx, call)
	result.CallID = call.ID
	result.Name = call.Name
	result.Duration = time.Since(start)
	return result
}

func (r *Registry) invoke(ctx context.Context, call models.CapabilityCall) models.CapabilityResult {
	def, err := r.Lookup(call.Name)
	if err != nil {
		return models.FailedResult(call, xerrors.Newf(xerrors.CodeUnknownCapability,
			"unknown capability: %s (available: %v)", call.Name, r.List()))
	}

	if err := def.Schema.Validate(call.Arguments); err != nil {
		return models.FailedResult(call, err)
	}
	args := def.Schema.ApplyDefaults(call.Arguments)

	if def.Authorize != nil {
		if err := def.Authorize(args); err != nil {
			if xerrors.CodeOf(err) != xerrors.CodeUnauthorized {
				err = xerrors.Wrap(xerrors.CodeUnauthorized, err, "authorization failed")
			}
			return models.FailedResult(call, err)
		}
	}

	output, err := execute(ctx, def, args)
	if err != nil {
		return models.FailedResult(call, executionError(ctx, err))
	}
	return models.CapabilityResult{Output: output}
}

func execute(ctx context.Context, def Definition, args map[string]any) (output string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("capability %s panicked: %v", def.Name, rec)
		}
	}()
	return def.Execute(ctx, args)
}

// executionError keeps the kind an executor reported for its own arguments;
// anything else is a collaborator failure.
func executionError(ctx context.Context, err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) || stdErrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeExecution, err, "capability timed out")
	}
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArguments, xerrors.CodeUnauthorized, xerrors.CodeUnknownCapability, xerrors.CodeExecution:
		return err
	}
	return xerrors.Wrap(xerrors.CodeExecution, err, "capability failed")
}
