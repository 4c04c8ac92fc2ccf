// Package validator checks user input before a run and parses raw decision output.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// spaceRegexp is compiled once at package init and reused across all Sanitize calls.
var spaceRegexp = regexp.MustCompile(`\s+`)

// InputValidator bounds the user text accepted by the entry point.
type InputValidator struct {
	maxLength int
}

// NewInputValidator creates a validator with the default length limit.
func NewInputValidator() *InputValidator {
	return &InputValidator{
		maxLength: 4000,
	}
}

// Validate rejects empty, oversized or non-UTF-8 input.
func (v *InputValidator) Validate(query string) error {
	if !utf8.ValidString(query) {
		return errors.New("invalid UTF-8 encoding")
	}

	if strings.TrimSpace(query) == "" {
		return errors.New("query is empty")
	}

	if len(query) > v.maxLength {
		return fmt.Errorf("query too long: maximum %d characters", v.maxLength)
	}

	return nil
}

// Sanitize trims and collapses whitespace.
func (v *InputValidator) Sanitize(query string) string {
	query = strings.TrimSpace(query)
	query = spaceRegexp.ReplaceAllString(query, " ")
	return query
}
