package models

// StepResult is one entry of the aggregation log.
type StepResult struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// State is the conversation threaded through one engine run. It is owned by a
// single run; nested runs build their own.
type State struct {
	Messages []Message    `json:"messages"`
	Context  string       `json:"context,omitempty"`
	Steps    []StepResult `json:"step_results,omitempty"`
}

// NewState starts a conversation from a single user message.
func NewState(userText string) *State {
	return &State{Messages: []Message{{Role: RoleUser, Content: userText}}}
}

// Append adds messages in order.
func (s *State) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Last returns the most recently appended message.
func (s *State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// RecordStep appends content under the next step index and makes it the current context.
func (s *State) RecordStep(content string) int {
	idx := len(s.Steps)
	s.Steps = append(s.Steps, StepResult{Index: idx, Content: content})
	s.Context = content
	return idx
}

// EnsureSystem leaves exactly one system message, at the front. With none, prompt
// is inserted; otherwise the first system message is moved to the front and later
// ones are dropped. It reports whether the messages changed.
func (s *State) EnsureSystem(prompt string) bool {
	first, count := -1, 0
	for i, m := range s.Messages {
		if m.Role != RoleSystem {
			continue
		}
		if first < 0 {
			first = i
		}
		count++
	}

	switch {
	case first < 0:
		s.Messages = append([]Message{{Role: RoleSystem, Content: prompt}}, s.Messages...)
		return true
	case first == 0 && count == 1:
		return false
	}

	msgs := make([]Message, 0, len(s.Messages)-count+1)
	msgs = append(msgs, s.Messages[first])
	for _, m := range s.Messages {
		if m.Role != RoleSystem {
			msgs = append(msgs, m)
		}
	}
	s.Messages = msgs
	return true
}

// FinalAnswer is the run's visible answer: the last assistant message when the run
// ended on a terminal decision, otherwise the aggregated context.
func (s *State) FinalAnswer() string {
	if last, ok := s.Last(); ok && last.Role == RoleAssistant && len(last.Calls) == 0 {
		return last.Content
	}
	return s.Context
}
