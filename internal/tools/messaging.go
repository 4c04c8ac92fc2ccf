package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/delivery"
	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
)

// MessageTool delivers a message to an allow-listed destination.
type MessageTool struct {
	allow  *capability.AllowList
	sender delivery.Sender
}

func NewMessageTool(allow *capability.AllowList, sender delivery.Sender) *MessageTool {
	return &MessageTool{allow: allow, sender: sender}
}

func (m *MessageTool) Name() string { return "send_message" }

func (m *MessageTool) Description() string {
	return fmt.Sprintf("Send a message to a team destination. Permitted destinations: %s.",
		strings.Join(m.allow.Names(), ", "))
}

func (m *MessageTool) Parameters() capability.Schema {
	names := m.allow.Names()
	return capability.Schema{
		// No enum on destination: a rejected name must reach the gate so the
		// caller sees the permitted list.
		{Name: "destination", Type: capability.TypeString, Description: "Destination name, one of: " + strings.Join(names, ", "), Required: true},
		{Name: "message", Type: capability.TypeString, Description: "Message text", Required: true},
	}
}

// Authorize rejects destinations outside the allow-list.
func (m *MessageTool) Authorize(args map[string]any) error {
	return m.allow.Gate("destination")(args)
}

func (m *MessageTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	name := capability.String(args, "destination")
	text := capability.String(args, "message")
	if text == "" {
		return "", xerrors.New(xerrors.CodeInvalidArguments, "message is empty")
	}

	endpoint, ok := m.allow.Endpoint(name)
	if !ok {
		return "", m.allow.Check(name)
	}

	dest := strings.TrimPrefix(strings.TrimSpace(name), "#")
	if err := m.sender.Send(ctx, endpoint, delivery.Message{Destination: dest, Text: text}); err != nil {
		return "", fmt.Errorf("deliver to %s: %w", dest, err)
	}
	return fmt.Sprintf("Message sent to %s: %q", dest, text), nil
}
