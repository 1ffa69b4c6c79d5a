package errors

import (
	"fmt"
)

// Template errors

// MalformedTemplate reports template source that cannot be split into
// segments. offset is the byte position in the source where parsing failed.
func MalformedTemplate(templateID string, offset int, message string) *CAEError {
	return NewTemplateError(ErrCodeMalformedTemplate, message).
		WithComponent(templateID).
		WithContext("offset", offset).
		withOffset(offset)
}

// PlaceholderNotFound reports a fill operation on a name the template lacks.
func PlaceholderNotFound(templateID, name string) *CAEError {
	return NewTemplateError(ErrCodePlaceholderNotFound,
		fmt.Sprintf("placeholder %s not found", name)).
		WithComponent(templateID).
		WithContext("placeholder", name)
}

// PlaceholderAmbiguous reports a nesting operation on a placeholder that
// occurs more than once.
func PlaceholderAmbiguous(templateID, name string, occurrences int) *CAEError {
	return NewTemplateError(ErrCodePlaceholderAmbiguous,
		fmt.Sprintf("placeholder %s occurs %d times, cannot nest a template", name, occurrences)).
		WithComponent(templateID).
		WithContext("placeholder", name).
		WithContext("occurrences", occurrences)
}

// TemplateCycle reports a nesting operation that would make a template
// contain itself.
func TemplateCycle(templateID, name, nestedID string) *CAEError {
	return NewTemplateError(ErrCodeTemplateCycle,
		fmt.Sprintf("nesting %s into %s would create a cycle", nestedID, name)).
		WithComponent(templateID).
		WithContext("placeholder", name).
		WithContext("nested_id", nestedID)
}

// Trace errors

// SegmentNotFound reports a trace entry pointing at an id absent from the tree.
func SegmentNotFound(fileName, segmentID string) *CAEError {
	return NewTraceError(ErrCodeSegmentNotFound,
		fmt.Sprintf("segment %s not found", segmentID), nil).
		WithLocation(fileName, 0).
		WithContext("segment_id", segmentID)
}

// TraceMismatch reports trace lengths that do not cover the file content.
func TraceMismatch(fileName string, traced, actual int) *CAEError {
	return NewTraceError(ErrCodeTraceMismatch,
		fmt.Sprintf("trace covers %d bytes but content has %d", traced, actual), nil).
		WithLocation(fileName, 0).
		WithContext("traced", traced).
		WithContext("actual", actual)
}

// TraceDecode reports a trace blob that cannot be decoded.
func TraceDecode(fileName string, cause error) *CAEError {
	return NewTraceError(ErrCodeTraceDecode, "cannot decode trace metadata", cause).
		WithLocation(fileName, 0)
}

// Configuration errors

// InvalidRule reports a guidance rule that cannot be compiled.
func InvalidRule(ruleType, pattern, message string, cause error) *CAEError {
	err := NewConfigError(ErrCodeRuleInvalid,
		fmt.Sprintf("invalid rule for type %s: %s", ruleType, message)).
		WithContext("type", ruleType).
		WithContext("regex", pattern)
	err.Cause = cause

	return err
}

// ConfigurationError creates configuration-related errors
func ConfigurationError(setting, message string, value interface{}) *CAEError {
	return NewConfigError(
		ErrCodeConfigInvalid,
		fmt.Sprintf("invalid configuration for %s: %s", setting, message),
	).WithContext("setting", setting).WithContext("value", value)
}

// I/O errors

// FileOperationError creates file operation errors
func FileOperationError(operation, filePath, message string, cause error) *CAEError {
	code := fmt.Sprintf("ERR_IO_%s", operation)

	return NewIOError(code, fmt.Sprintf("%s %s failed: %s", operation, filePath, message), cause).
		WithLocation(filePath, 0).
		WithContext("file_path", filePath)
}

func (e *CAEError) withOffset(offset int) *CAEError {
	e.Offset = offset

	return e
}
