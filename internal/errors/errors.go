package errors

import (
	"errors"
	"fmt"
)

// Sentinel failures reported by the bridge. Wrapped errors keep them
// reachable through errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrSizeExceeded      = errors.New("size exceeded")
	ErrReadFailure       = errors.New("read failure")
	ErrWriteFailure      = errors.New("write failure")
	ErrNoResults         = errors.New("no results")
	ErrMalformedLocation = errors.New("malformed location")
	ErrUnknownAuthority  = errors.New("unknown authority")
	ErrUnsupported       = errors.New("unsupported operation")

	// ErrRootUnavailable accompanies ErrNoResults when the root of an
	// enumeration could not be listed at all.
	ErrRootUnavailable = errors.New("root listing failed")
)

// ErrorType represents different types of errors that can occur
type ErrorType int

const (
	ErrorTypeConfig ErrorType = iota
	ErrorTypeLocation
	ErrorTypeProvider
	ErrorTypeContent
	ErrorTypeDescriptor
	ErrorTypeFind
	ErrorTypeWatcher
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfig:
		return "config"
	case ErrorTypeLocation:
		return "location"
	case ErrorTypeProvider:
		return "provider"
	case ErrorTypeContent:
		return "content"
	case ErrorTypeDescriptor:
		return "descriptor"
	case ErrorTypeFind:
		return "find"
	case ErrorTypeWatcher:
		return "watcher"
	default:
		return "unknown"
	}
}

// AppError represents a structured bridge error
type AppError struct {
	Type      ErrorType
	Operation string
	Path      string
	Message   string
	Err       error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error in %s [%s]: %s", e.Type, e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Join pairs a sentinel with the underlying cause so both match errors.Is.
func Join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// NewConfigError creates a new configuration error
func NewConfigError(operation, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeConfig,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NewLocationError creates a new location parsing error
func NewLocationError(operation, path, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeLocation,
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       Join(ErrMalformedLocation, err),
	}
}

// NewProviderError creates a new provider error
func NewProviderError(operation, path, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeProvider,
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// NewContentError creates a new content I/O error. sentinel is one of
// ErrNotFound, ErrSizeExceeded, ErrReadFailure or ErrWriteFailure.
func NewContentError(operation, path string, sentinel, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeContent,
		Operation: operation,
		Path:      path,
		Message:   sentinel.Error(),
		Err:       Join(sentinel, err),
	}
}

// NewDescriptorError creates a new descriptor export error
func NewDescriptorError(operation, path, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeDescriptor,
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// NewFindError creates a new enumeration error. It always matches ErrNoResults.
func NewFindError(path, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeFind,
		Operation: "find_files",
		Path:      path,
		Message:   message,
		Err:       Join(ErrNoResults, err),
	}
}

// NewWatcherError creates a new watcher error
func NewWatcherError(operation, path, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeWatcher,
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }
