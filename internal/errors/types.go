// Package errors provides the structured error type used across the code
// generation engine. Every error carries a category, a stable code for
// programmatic handling and optional location context (template or file
// and byte offset).
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeTemplate   ErrorType = "template"
	ErrorTypeTrace      ErrorType = "trace"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeMalformedTemplate    = "ERR_TEMPLATE_MALFORMED"
	ErrCodePlaceholderNotFound  = "ERR_PLACEHOLDER_NOT_FOUND"
	ErrCodePlaceholderAmbiguous = "ERR_PLACEHOLDER_AMBIGUOUS"
	ErrCodeTemplateCycle        = "ERR_TEMPLATE_CYCLE"
	ErrCodeSegmentNotFound      = "ERR_SEGMENT_NOT_FOUND"
	ErrCodeTraceMismatch        = "ERR_TRACE_MISMATCH"
	ErrCodeTraceDecode          = "ERR_TRACE_DECODE"
	ErrCodeRuleInvalid          = "ERR_RULE_INVALID"
	ErrCodeConfigInvalid        = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound         = "ERR_FILE_NOT_FOUND"
	ErrCodeInternalError        = "ERR_INTERNAL"
)

// Sentinels for errors.Is matching. Comparison is by type and code only.
var (
	ErrMalformedTemplate    = &CAEError{Type: ErrorTypeTemplate, Code: ErrCodeMalformedTemplate}
	ErrPlaceholderNotFound  = &CAEError{Type: ErrorTypeTemplate, Code: ErrCodePlaceholderNotFound}
	ErrPlaceholderAmbiguous = &CAEError{Type: ErrorTypeTemplate, Code: ErrCodePlaceholderAmbiguous}
	ErrTemplateCycle        = &CAEError{Type: ErrorTypeTemplate, Code: ErrCodeTemplateCycle}
	ErrSegmentNotFound      = &CAEError{Type: ErrorTypeTrace, Code: ErrCodeSegmentNotFound}
	ErrTraceMismatch        = &CAEError{Type: ErrorTypeTrace, Code: ErrCodeTraceMismatch}
	ErrTraceDecode          = &CAEError{Type: ErrorTypeTrace, Code: ErrCodeTraceDecode}
	ErrRuleInvalid          = &CAEError{Type: ErrorTypeConfig, Code: ErrCodeRuleInvalid}
)

// CAEError is a structured error type with context.
type CAEError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Offset      int
	Recoverable bool
}

// Error implements the error interface.
func (e *CAEError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "template:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Offset > 0 {
			location += fmt.Sprintf("@%d", e.Offset)
		}
		parts = append(parts, location)
	} else if e.Offset > 0 {
		parts = append(parts, fmt.Sprintf("offset:%d", e.Offset))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *CAEError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *CAEError) Is(target error) bool {
	var t *CAEError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *CAEError) WithContext(key string, value interface{}) *CAEError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *CAEError) WithLocation(filePath string, offset int) *CAEError {
	e.FilePath = filePath
	e.Offset = offset

	return e
}

// WithComponent adds the template or component the error belongs to.
func (e *CAEError) WithComponent(component string) *CAEError {
	e.Component = component

	return e
}

// NewTemplateError creates a template error.
func NewTemplateError(code, message string) *CAEError {
	return &CAEError{
		Type:    ErrorTypeTemplate,
		Code:    code,
		Message: message,
	}
}

// NewTraceError creates a trace metadata error.
func NewTraceError(code, message string, cause error) *CAEError {
	return &CAEError{
		Type:    ErrorTypeTrace,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *CAEError {
	return &CAEError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *CAEError {
	return &CAEError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *CAEError {
	return &CAEError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *CAEError {
	return &CAEError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ce *CAEError
	if errors.As(err, &ce) {
		return ce.Recoverable
	}

	return false
}

// TypeOf returns the category of err, or the empty string for foreign errors.
func TypeOf(err error) ErrorType {
	var ce *CAEError
	if errors.As(err, &ce) {
		return ce.Type
	}

	return ""
}
