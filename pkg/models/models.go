package models

import (
	"maps"
	"time"

	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation. Tool messages carry the CallID they answer.
type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Calls     []CapabilityCall `json:"capability_calls,omitempty"`
	CallID    string           `json:"call_id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Failed    bool             `json:"failed,omitempty"`
	Timestamp time.Time        `json:"timestamp,omitempty"`
}

// CapabilityCall is a request to invoke a named capability.
type CapabilityCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	ID        string         `json:"call_id"`
}

// CapabilityResult is the outcome of one CapabilityCall.
type CapabilityResult struct {
	CallID      string        `json:"call_id"`
	Name        string        `json:"name"`
	Output      string        `json:"output"`
	Failed      bool          `json:"failed"`
	Kind        xerrors.Code  `json:"error_kind,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// ToolMessage converts the result into the tool-role Message appended to a conversation.
func (r CapabilityResult) ToolMessage() Message {
	return Message{
		Role:      RoleTool,
		Content:   r.Output,
		CallID:    r.CallID,
		Name:      r.Name,
		Failed:    r.Failed,
		Timestamp: time.Now(),
	}
}

// FailedResult builds a failed CapabilityResult from a coded error. The output text
// repeats the detail so the deciding collaborator can read why the call failed.
func FailedResult(call CapabilityCall, err error) CapabilityResult {
	code := xerrors.CodeExecution
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	if e, ok := xerrors.From(err); ok {
		code = e.Code()
		detail = e.Detail()
	}
	return CapabilityResult{
		CallID:      call.ID,
		Name:        call.Name,
		Output:      "Error: " + detail,
		Failed:      true,
		Kind:        code,
		ErrorDetail: detail,
	}
}

// CloneCall returns a deep copy of the call's argument map.
func CloneCall(c CapabilityCall) CapabilityCall {
	out := c
	if c.Arguments != nil {
		out.Arguments = make(map[string]any, len(c.Arguments))
		maps.Copy(out.Arguments, c.Arguments)
	}
	return out
}

// CloneMessage copies a message and its capability calls.
func CloneMessage(m Message) Message {
	out := m
	if len(m.Calls) > 0 {
		out.Calls = make([]CapabilityCall, len(m.Calls))
		for i, c := range m.Calls {
			out.Calls[i] = CloneCall(c)
		}
	}
	return out
}

// CloneMessages copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = CloneMessage(m)
	}
	return out
}
