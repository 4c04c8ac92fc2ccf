package validator

import (
	"strings"
	"testing"
)

func TestInputValidator(t *testing.T) {
	v := NewInputValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"short arithmetic", "5+10", false},
		{"sentence", "Send 'hello' to team", false},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", 4001), true},
		{"invalid utf8", string([]byte{0xff, 0xfe}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}

	if got := v.Sanitize("  what   is\n 5+10 "); got != "what is 5+10" {
		t.Errorf("Sanitize() = %q", got)
	}
}

func TestOutputValidator(t *testing.T) {
	v := NewOutputValidator()

	tests := []struct {
		name      string
		raw       string
		wantFinal bool
		wantCalls []string
	}{
		{"plain text", "The answer is 15.", true, nil},
		{"calls object", `{"calls":[{"name":"add","arguments":{"a":5,"b":10}},{"name":"multiply","arguments":{"a":2,"b":3}}]}`, false, []string{"add", "multiply"}},
		{"single call object", `{"name":"get_weather","arguments":{"location":"London"}}`, false, []string{"get_weather"}},
		{"legacy tool format", `{"tool":"send_message","params":{"destination":"team","message":"hi"}}`, false, []string{"send_message"}},
		{"fenced json", "```json\n{\"calls\":[{\"name\":\"add\",\"arguments\":{}}]}\n```", false, []string{"add"}},
		{"call array", `[{"name":"add","arguments":{"a":1,"b":2}}]`, false, []string{"add"}},
		{"json without calls", `{"answer": 42}`, true, nil},
		{"broken json", `{"calls": [`, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := v.Validate(tt.raw)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if d.IsFinal() != tt.wantFinal {
				t.Fatalf("IsFinal() = %v, want %v", d.IsFinal(), tt.wantFinal)
			}
			if tt.wantFinal {
				if d.Content != strings.TrimSpace(tt.raw) {
					t.Errorf("final content = %q", d.Content)
				}
				return
			}
			if len(d.Calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %+v", d.Calls)
			}
			for i, name := range tt.wantCalls {
				if d.Calls[i].Name != name || d.Calls[i].Arguments == nil {
					t.Errorf("call %d = %+v, want %s", i, d.Calls[i], name)
				}
			}
		})
	}

	if _, err := v.Validate("  "); err == nil {
		t.Error("expected error for empty response")
	}
}
