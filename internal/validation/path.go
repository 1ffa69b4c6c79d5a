// Package validation provides validation of user-supplied paths for
// preventing path traversal and shell injection.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath validates a configured file path. Absolute paths are
// allowed; any ".." component is not.
func ValidatePath(path string) error {
	if path == "" {
		return errors.New("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// RelativePath cleans a slash-separated name and requires it to stay below
// the directory it is joined to.
func RelativePath(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty path")
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) {
		return "", errors.New("absolute path")
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New("path leaves its base directory")
	}
	return clean, nil
}

// ValidateFileExtension validates file extensions against an allowlist
func ValidateFileExtension(filename string, allowedExtensions ...string) error {
	if filename == "" {
		return errors.New("filename cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.New("file must have an extension")
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return fmt.Errorf("file extension '%s' is not allowed", ext)
}
