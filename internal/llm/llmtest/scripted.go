// Package llmtest provides deterministic deciders for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Response configures one decision in a scripted sequence.
type Response struct {
	Decision models.Decision
	Err      error
}

// Scripted returns its responses in order and records every request.
type Scripted struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []engine.Request
}

var _ engine.Decider = (*Scripted)(nil)

// NewScripted creates a Scripted decider.
func NewScripted(responses ...Response) *Scripted {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &Scripted{responses: cloned}
}

// Decisions is a shorthand for a script without errors.
func Decisions(decisions ...models.Decision) *Scripted {
	responses := make([]Response, len(decisions))
	for i, d := range decisions {
		responses[i] = Response{Decision: d}
	}
	return NewScripted(responses...)
}

// Decide implements engine.Decider.
func (s *Scripted) Decide(_ context.Context, req engine.Request) (models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Messages = models.CloneMessages(req.Messages)
	s.requests = append(s.requests, req)

	if s.index >= len(s.responses) {
		return models.Decision{}, fmt.Errorf("script exhausted at step %d", s.index+1)
	}
	current := s.responses[s.index]
	s.index++
	if current.Err != nil {
		return models.Decision{}, current.Err
	}
	return current.Decision, nil
}

// Requests returns the requests seen so far.
func (s *Scripted) Requests() []engine.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns how many decisions were requested.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Call builds a CapabilityCall.
func Call(id, name string, args map[string]any) models.CapabilityCall {
	if args == nil {
		args = map[string]any{}
	}
	return models.CapabilityCall{ID: id, Name: name, Arguments: args}
}

// EchoTool decides to call name once with args, then answers with the tool output.
func EchoTool(name string, args map[string]any) engine.Decider {
	return engine.DeciderFunc(func(_ context.Context, req engine.Request) (models.Decision, error) {
		if last := req.Messages[len(req.Messages)-1]; last.Role == models.RoleTool {
			return models.Final(last.Content), nil
		}
		return models.Calls(models.CloneCall(Call("", name, args))), nil
	})
}
