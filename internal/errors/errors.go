// Package errors provides standardized error handling for kestrel.
// It defines kind-tagged error types so callers can distinguish backend
// failures from configuration or storage problems without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Re-exported from the standard errors package for convenience.
var (
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// ErrorKind represents the kind of error.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	// Backend error kinds
	BackendUnreachable
	BackendRejected
	BackendInvalidResponse
	// Enhancement error kinds
	EnhanceUnavailable
	EnhanceEmptyResponse
	// Config error kinds
	InvalidConfig
	MissingCredentials
	UnknownProject
	// Storage error kinds
	FileNotFound
	FileOperationFailed
)

// ApplicationError is the base error type for all kestrel errors.
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error.
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// BackendError represents a failure in a generation backend. The backend
// name is carried so status messages can say which side failed.
type BackendError struct {
	ApplicationError
	backend string
}

// NewBackendError creates a new backend error.
func NewBackendError(msg, backend string, kind ErrorKind, err error) *BackendError {
	return &BackendError{
		ApplicationError: ApplicationError{msg: msg, err: err, kind: kind},
		backend:          backend,
	}
}

func (e *BackendError) Error() string {
	if e.backend != "" {
		if e.err != nil {
			return fmt.Sprintf("%s backend: %s: %v", e.backend, e.msg, e.err)
		}
		return fmt.Sprintf("%s backend: %s", e.backend, e.msg)
	}
	return e.ApplicationError.Error()
}

// Backend returns the backend name associated with the error.
func (e *BackendError) Backend() string {
	return e.backend
}

// ConfigError represents errors related to configuration.
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error.
func NewConfigError(msg, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{msg: msg, err: err, kind: kind},
		param:            param,
	}
}

func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error.
func (e *ConfigError) Param() string {
	return e.param
}

// FileError represents errors related to item storage operations.
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error.
func NewFileError(msg, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{msg: msg, err: err, kind: kind},
		path:             path,
	}
}

func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error.
func (e *FileError) Path() string {
	return e.path
}

// New creates a new error with a message.
func New(msg string) error {
	return &ApplicationError{msg: msg, kind: Unknown}
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{msg: fmt.Sprintf(format, args...), kind: Unknown}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{msg: msg, err: err, kind: Unknown}
}

// Wrapf wraps an existing error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{msg: fmt.Sprintf(format, args...), err: err, kind: Unknown}
}

// IsBackendError checks if the error came from a generation backend.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsBackendUnreachable checks for transport-level backend failures.
func IsBackendUnreachable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind() == BackendUnreachable
	}
	return false
}

// IsInvalidConfig checks if the error is an invalid configuration error.
func IsInvalidConfig(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Kind() == InvalidConfig
	}
	return false
}

// IsUnknownProject checks for lookups of a slug missing from the registry.
func IsUnknownProject(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Kind() == UnknownProject
	}
	return false
}

// IsFileNotFound checks if the error is a file not found error.
func IsFileNotFound(err error) bool {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind() == FileNotFound
	}
	return false
}
