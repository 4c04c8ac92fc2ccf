package capability

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
)

// Parameter types accepted in a Schema.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Parameter defines one argument field with validation rules.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// Schema is the ordered set of parameters a capability accepts.
type Schema []Parameter

// Validate checks args against the schema. Fields the schema does not declare are ignored.
func (s Schema) Validate(args map[string]any) error {
	for _, p := range s {
		value, exists := args[p.Name]
		if !exists || value == nil {
			if p.Required {
				return xerrors.Newf(xerrors.CodeInvalidArguments, "missing required parameter: %s", p.Name)
			}
			continue
		}

		if !matchesType(value, p.Type) {
			return xerrors.Newf(xerrors.CodeInvalidArguments,
				"parameter %s must be %s, got %s", p.Name, p.Type, describeType(value))
		}

		if len(p.Enum) > 0 && !slices.ContainsFunc(p.Enum, func(allowed any) bool {
			return fmt.Sprint(allowed) == fmt.Sprint(value)
		}) {
			return xerrors.Newf(xerrors.CodeInvalidArguments,
				"invalid value for %s: must be one of %v", p.Name, p.Enum)
		}
	}
	return nil
}

// ApplyDefaults returns a copy of args with defaults filled in for absent optional fields.
func (s Schema) ApplyDefaults(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(s))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range s {
		if _, exists := out[p.Name]; !exists && p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}

// Required returns the names of required parameters in declaration order.
func (s Schema) Required() []string {
	var names []string
	for _, p := range s {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Properties renders the schema as JSON-schema "properties".
func (s Schema) Properties() map[string]any {
	props := make(map[string]any, len(s))
	for _, p := range s {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
	}
	return props
}

// JSONSchema renders the schema as a JSON-schema object definition.
func (s Schema) JSONSchema() map[string]any {
	out := map[string]any{
		"type":       TypeObject,
		"properties": s.Properties(),
	}
	if req := s.Required(); len(req) > 0 {
		out["required"] = req
	}
	return out
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "", "any":
		return true
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeNumber:
		_, ok := toFloat(value)
		return ok
	case TypeInteger:
		f, ok := toFloat(value)
		return ok && f == math.Trunc(f)
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func describeType(value any) string {
	switch value.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	}
	if _, ok := toFloat(value); ok {
		return TypeNumber
	}
	return fmt.Sprintf("%T", value)
}

// Number reads a numeric argument that has already passed validation.
func Number(args map[string]any, name string) float64 {
	f, _ := toFloat(args[name])
	return f
}

// String reads a string argument, trimming surrounding whitespace.
func String(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// sortedKeys is used for deterministic listings.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
