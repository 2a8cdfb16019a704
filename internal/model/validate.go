package model

import (
	"fmt"
	"strings"
)

// maxNameLength matches the VARCHAR(255) columns of selected_at_location.
const maxNameLength = 255

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateSelection checks a SelectionWrite for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the write is valid.
func ValidateSelection(w SelectionWrite) error {
	var ve ValidationError
	checkName(&ve, "item", w.Item)
	checkName(&ve, "location", w.Location)
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func checkName(ve *ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: "is required"})
		return
	}
	if n := len([]rune(value)); n > maxNameLength {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be %d characters or fewer, got %d", maxNameLength, n),
		})
	}
}

// ParseDirty parses the dirty flag of a submitted selection. Besides the
// strconv spellings it accepts yes/no and on/off, which older device
// firmware sends.
func ParseDirty(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y", "on":
		return true, nil
	case "false", "f", "0", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid dirty flag %q", s)
}
