package orchestrator

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Toolsets a specialist agent can be built with.
const (
	ToolsetArithmetic = "arithmetic"
	ToolsetWeather    = "weather"
	ToolsetMessaging  = "messaging"
)

// AgentSpec describes one agent in the catalog.
type AgentSpec struct {
	Name         string   `yaml:"name"`
	Capability   string   `yaml:"capability,omitempty"`
	Toolset      string   `yaml:"toolset,omitempty"`
	Loop         *bool    `yaml:"loop,omitempty"`
	MaxSteps     int      `yaml:"max_steps,omitempty"`
	Markers      []string `yaml:"markers,omitempty"`
	Description  string   `yaml:"description"`
	SystemPrompt string   `yaml:"system_prompt"`
}

// Looping reports the agent's loop flag. Specialists loop unless disabled.
func (s AgentSpec) Looping() bool {
	return s.Loop == nil || *s.Loop
}

// Catalog holds the orchestrator, router and specialist agent definitions.
type Catalog struct {
	Orchestrator AgentSpec   `yaml:"orchestrator"`
	Router       AgentSpec   `yaml:"router"`
	Agents       []AgentSpec `yaml:"agents"`
}

// LoadCatalog reads a catalog file, or the built-in catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.Orchestrator.Name == "" {
		c.Orchestrator.Name = "orchestrator"
	}
	if c.Router.Name == "" {
		c.Router.Name = "router"
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("catalog defines no agents")
	}

	names := map[string]bool{c.Orchestrator.Name: true, c.Router.Name: true}
	capabilities := map[string]bool{}
	markers := map[string]string{}

	for i := range c.Agents {
		a := &c.Agents[i]
		if a.Name == "" {
			return fmt.Errorf("agent %d: name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate agent name: %s", a.Name)
		}
		names[a.Name] = true

		switch a.Toolset {
		case ToolsetArithmetic, ToolsetWeather, ToolsetMessaging:
		default:
			return fmt.Errorf("agent %s: unknown toolset %q", a.Name, a.Toolset)
		}

		if a.Capability == "" {
			a.Capability = a.Name + "_agent"
		}
		if capabilities[a.Capability] {
			return fmt.Errorf("duplicate capability name: %s", a.Capability)
		}
		capabilities[a.Capability] = true

		for j, m := range a.Markers {
			m = strings.ToUpper(strings.TrimSpace(m))
			if owner, dup := markers[m]; dup {
				return fmt.Errorf("marker %s used by both %s and %s", m, owner, a.Name)
			}
			markers[m] = a.Name
			a.Markers[j] = m
		}
	}
	return nil
}

// Agent returns the specialist with the given name.
func (c *Catalog) Agent(name string) (AgentSpec, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentSpec{}, false
}

// render fills catalog placeholders in a prompt.
func render(prompt string, destinations []string) string {
	return strings.ReplaceAll(prompt, "{{destinations}}", strings.Join(destinations, ", "))
}
