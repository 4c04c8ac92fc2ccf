package models

// DecisionKind tags the variant held by a Decision.
type DecisionKind int

const (
	DecisionFinal DecisionKind = iota + 1
	DecisionCalls
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionFinal:
		return "final"
	case DecisionCalls:
		return "calls"
	}
	return "invalid"
}

// Decision is the output of a decision step: either final content or a list of calls.
// Content may accompany calls as the assistant's visible reasoning.
type Decision struct {
	Kind    DecisionKind
	Content string
	Calls   []CapabilityCall
}

// Final builds a terminal decision.
func Final(content string) Decision {
	return Decision{Kind: DecisionFinal, Content: content}
}

// Calls builds a decision that requests capability invocations.
// With no calls it degrades to a final decision with empty content.
func Calls(calls ...CapabilityCall) Decision {
	if len(calls) == 0 {
		return Final("")
	}
	return Decision{Kind: DecisionCalls, Calls: calls}
}

// IsFinal reports whether the decision requests no capability.
func (d Decision) IsFinal() bool {
	return d.Kind != DecisionCalls || len(d.Calls) == 0
}

// Message renders the decision as the assistant message appended to the conversation.
func (d Decision) Message() Message {
	msg := Message{Role: RoleAssistant, Content: d.Content}
	if !d.IsFinal() {
		msg.Calls = make([]CapabilityCall, len(d.Calls))
		for i, c := range d.Calls {
			msg.Calls[i] = CloneCall(c)
		}
	}
	return msg
}
