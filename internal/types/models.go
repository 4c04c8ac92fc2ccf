// Package types defines shared event types between the engine and the terminal UI.
package types

import "github.com/ashutoshrp06/switchboard/pkg/models"

// AgentState represents the current state of agent processing.
type AgentState int

const (
	StateIdle AgentState = iota
	StateThinking
	StateCapabilityCall
	StateExecuting
	StateResponding
	StateError
)

// String returns a human-readable state name.
func (s AgentState) String() string {
	names := [...]string{
		"Idle",
		"Thinking",
		"Planning capability call",
		"Executing capability",
		"Responding",
		"Error",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// AgentEvent is emitted while a request is processed.
type AgentEvent struct {
	Agent       string
	State       AgentState
	Call        *models.CapabilityCall
	Result      *models.CapabilityResult
	FinalAnswer string
	Error       error
}
