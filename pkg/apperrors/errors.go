// Package apperrors defines the typed error taxonomy shared by the store,
// render, resolver, cache and service layers. Business errors are raised
// here and mapped to HTTP responses exactly once, at the API boundary.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Layers below pkg/api raise these directly; they are
// never logged and swallowed.
var (
	// ErrNotFound is returned when a prompt, version, scene or project is missing.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on duplicate (project_id, slug) or (prompt_id, version).
	ErrConflict = errors.New("conflict")

	// ErrPermissionDenied is returned when a cross-project reference targets a
	// prompt that is not shared.
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError wraps a field-specific validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CircularDependencyError is raised by the dependency resolver when the
// reference closure of a scene contains a cycle.
type CircularDependencyError struct {
	// Path is the cycle, in visitation order, e.g. ["A", "B", "A"].
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", joinPath(e.Path))
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

// NewCircularDependencyError creates a new circular dependency error for the given cycle path.
func NewCircularDependencyError(path []string) error {
	return &CircularDependencyError{Path: path}
}

// IsCircularDependencyError reports whether err is (or wraps) a *CircularDependencyError.
func IsCircularDependencyError(err error) bool {
	var ce *CircularDependencyError
	return errors.As(err, &ce)
}

// TemplateRenderErrorKind enumerates the reasons rendering can fail, per the
// renderer's error taxonomy.
type TemplateRenderErrorKind string

const (
	KindUndefinedVariable TemplateRenderErrorKind = "undefined_variable"
	KindTypeMismatch      TemplateRenderErrorKind = "type_mismatch"
	KindEnumViolation     TemplateRenderErrorKind = "enum_violation"
	KindSyntaxError       TemplateRenderErrorKind = "syntax_error"
	KindSandboxViolation  TemplateRenderErrorKind = "sandbox_violation"
	KindMissingRequired   TemplateRenderErrorKind = "missing_required"
)

// TemplateRenderError is raised by the template renderer.
type TemplateRenderError struct {
	Kind    TemplateRenderErrorKind
	Field   string
	Message string
}

func (e *TemplateRenderError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("template render error (%s) on %q: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("template render error (%s): %s", e.Kind, e.Message)
}

// NewTemplateRenderError creates a new template render error of the given kind.
func NewTemplateRenderError(kind TemplateRenderErrorKind, field, message string) error {
	return &TemplateRenderError{Kind: kind, Field: field, Message: message}
}

// AsTemplateRenderError extracts a *TemplateRenderError from err, if any.
func AsTemplateRenderError(err error) (*TemplateRenderError, bool) {
	var te *TemplateRenderError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
