package capability

import (
	"fmt"
	"strings"
)

// Describe renders definitions for collaborators that take capabilities as plain prompt text.
func Describe(defs []Definition) string {
	if len(defs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("You have access to the following capabilities:\n\n")
	for _, def := range defs {
		fmt.Fprintf(&b, "### %s\n%s\n", def.Name, def.Description)
		if len(def.Schema) > 0 {
			b.WriteString("Parameters:\n")
			for _, p := range def.Schema {
				req := ""
				if p.Required {
					req = " (required)"
				}
				fmt.Fprintf(&b, "  - %s (%s): %s%s\n", p.Name, p.Type, p.Description, req)
				if p.Default != nil && p.Default != "" {
					fmt.Fprintf(&b, "    Default: %v\n", p.Default)
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(`To use capabilities, respond with ONLY a JSON object in this exact format:
{"calls": [{"name": "capability_name", "arguments": {"param1": "value1"}}]}

Important:
- Output ONLY the JSON when using capabilities, no other text
- Several independent calls may be listed in one response
- If you don't need a capability, respond normally with plain text
- After receiving capability output, answer the user`)

	return b.String()
}
