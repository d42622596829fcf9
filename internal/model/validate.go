package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

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

// ValidateFormat checks a Format for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the format is valid.
func ValidateFormat(f *Format) error {
	var ve ValidationError

	// Name: required and at most 200 characters.
	name := strings.TrimSpace(f.Name)
	if name == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	} else if len([]rune(name)) > 200 {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must be 200 characters or fewer"})
	}

	// Service: must be a valid enum value (closed set).
	if !f.Service.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "service",
			Message: fmt.Sprintf("invalid value %q", f.Service),
		})
	}

	// Version: monotonic counter starting at 1.
	if f.Version < 1 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "version",
			Message: fmt.Sprintf("must be at least 1, got %d", f.Version),
		})
	}

	// Specifications: a format without rules matches nothing and cannot be
	// deployed meaningfully.
	if len(f.Specifications) == 0 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "specifications",
			Message: "at least one specification is required",
		})
	}
	for i, spec := range f.Specifications {
		prefix := fmt.Sprintf("specifications[%d].", i)
		if strings.TrimSpace(spec.Name) == "" {
			ve.Errors = append(ve.Errors, FieldError{Field: prefix + "name", Message: "is required"})
		}
		if strings.TrimSpace(spec.Implementation) == "" {
			ve.Errors = append(ve.Errors, FieldError{Field: prefix + "implementation", Message: "is required"})
		}
		if len(spec.Fields) > 0 {
			if !json.Valid(spec.Fields) {
				ve.Errors = append(ve.Errors, FieldError{Field: prefix + "fields", Message: "contains invalid JSON"})
			} else if trimmed := strings.TrimSpace(string(spec.Fields)); !strings.HasPrefix(trimmed, "{") {
				ve.Errors = append(ve.Errors, FieldError{Field: prefix + "fields", Message: "must be a JSON object"})
			}
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateInstance checks an Instance for constraint violations.
func ValidateInstance(inst *Instance) error {
	var ve ValidationError

	if strings.TrimSpace(inst.Label) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "label", Message: "is required"})
	}

	if strings.TrimSpace(inst.URL) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "url", Message: "is required"})
	} else if u, err := url.Parse(inst.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "url", Message: "must be an absolute http(s) URL"})
	}

	if strings.TrimSpace(inst.APIKey) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "api_key", Message: "is required"})
	}

	if !inst.Service.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "service",
			Message: fmt.Sprintf("invalid value %q", inst.Service),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
