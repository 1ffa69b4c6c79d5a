package errors

import (
	"errors"
	"sync"
)

// FileError pairs a file name with the error produced while processing it.
type FileError struct {
	File string
	Err  error
}

// Error implements the error interface
func (fe *FileError) Error() string {
	return fe.File + ": " + fe.Err.Error()
}

// Unwrap returns the wrapped error
func (fe *FileError) Unwrap() error {
	return fe.Err
}

// ErrorCollector collects per-file errors of a batch so that one failing file
// does not hide the results of the others.
type ErrorCollector struct {
	errors []FileError
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]FileError, 0),
	}
}

// Add records err for file. Nil errors are ignored.
func (ec *ErrorCollector) Add(file string, err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, FileError{File: file, Err: err})
}

// Errors returns a copy of the collected errors
func (ec *ErrorCollector) Errors() []FileError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]FileError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Err joins all collected errors, or returns nil.
func (ec *ErrorCollector) Err() error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	if len(ec.errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(ec.errors))
	for _, fe := range ec.errors {
		errs = append(errs, &fe)
	}
	return errors.Join(errs...)
}
