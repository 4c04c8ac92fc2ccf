package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/ashutoshrp06/switchboard/internal/capability"
)

// ArithmeticTool applies one binary operation to two numbers.
type ArithmeticTool struct {
	name        string
	description string
	apply       func(a, b float64) (float64, error)
}

// Arithmetic returns add, subtract, multiply and divide.
func Arithmetic() []Tool {
	return []Tool{
		&ArithmeticTool{
			name:        "add",
			description: "Add two numbers and return the sum.",
			apply:       func(a, b float64) (float64, error) { return a + b, nil },
		},
		&ArithmeticTool{
			name:        "subtract",
			description: "Subtract b from a and return the difference.",
			apply:       func(a, b float64) (float64, error) { return a - b, nil },
		},
		&ArithmeticTool{
			name:        "multiply",
			description: "Multiply two numbers and return the product.",
			apply:       func(a, b float64) (float64, error) { return a * b, nil },
		},
		&ArithmeticTool{
			name:        "divide",
			description: "Divide a by b and return the quotient.",
			apply: func(a, b float64) (float64, error) {
				if b == 0 {
					return 0, fmt.Errorf("division by zero")
				}
				return a / b, nil
			},
		},
	}
}

func (t *ArithmeticTool) Name() string { return t.name }

func (t *ArithmeticTool) Description() string { return t.description }

func (t *ArithmeticTool) Parameters() capability.Schema {
	return capability.Schema{
		{Name: "a", Type: capability.TypeNumber, Description: "First operand", Required: true},
		{Name: "b", Type: capability.TypeNumber, Description: "Second operand", Required: true},
	}
}

func (t *ArithmeticTool) Execute(_ context.Context, args map[string]any) (string, error) {
	v, err := t.apply(capability.Number(args, "a"), capability.Number(args, "b"))
	if err != nil {
		return "", err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", fmt.Errorf("result out of range")
	}
	return FormatNumber(v), nil
}

// FormatNumber renders v without trailing zeros: 15, 2.5, -0.125.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
