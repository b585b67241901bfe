// Package errors provides standardized error handling patterns for the
// halcyon extension loader. It includes error classification, standard error
// variables, and helper functions for consistent error wrapping across the
// system.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorInvalid represents errors due to invalid caller input: empty
	// names, unusable extension-point types, bad constructors.
	ErrorInvalid ErrorClass = iota
	// ErrorConfig represents errors in the extension configuration itself:
	// duplicate bindings, multiple adaptive classes, malformed defaults,
	// impossible adaptive synthesis.
	ErrorConfig
	// ErrorLoad represents deferred class-load failures captured while
	// scanning resource files; they surface when a request names them.
	ErrorLoad
	// ErrorConstruction represents failures while instantiating, injecting
	// or wrapping an extension instance.
	ErrorConstruction
	// ErrorFatal represents unrecoverable programming errors.
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorConfig:
		return "config"
	case ErrorLoad:
		return "load"
	case ErrorConstruction:
		return "construction"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Argument errors
	ErrEmptyName         = errors.New("extension name is empty")
	ErrNilPrototype      = errors.New("extension point prototype is nil")
	ErrNotExtensionPoint = errors.New("type is not a registered extension point")
	ErrInvalidPoint      = errors.New("type cannot serve as an extension point")
	ErrNilConstructor    = errors.New("constructor is nil")

	// Configuration errors
	ErrNoSuchExtension      = errors.New("no such extension")
	ErrDuplicateName        = errors.New("extension name already bound to a different class")
	ErrDuplicateAdaptive    = errors.New("more than one adaptive class")
	ErrUnknownExtension     = errors.New("extension name not bound")
	ErrMultipleDefaultNames = errors.New("more than one default extension name")
	ErrClassNotRegistered   = errors.New("extension class literal is not registered")
	ErrNoAdaptiveMethod     = errors.New("no adaptive method on extension point")
	ErrNoURLArgument        = errors.New("no URL parameter or URL attribute in method parameters")
	ErrNoConstructor        = errors.New("extension class has no usable constructor")

	// Dispatch errors
	ErrUnsupportedOperation = errors.New("method is not an adaptive method")
	ErrNoExtensionName      = errors.New("failed to resolve extension name from url")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsInvalid checks if an error is due to invalid caller input
func IsInvalid(err error) bool {
	return hasClass(err, ErrorInvalid) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrNilPrototype) ||
		errors.Is(err, ErrNotExtensionPoint) ||
		errors.Is(err, ErrInvalidPoint)
}

// IsConfig checks if an error stems from extension configuration
func IsConfig(err error) bool {
	return hasClass(err, ErrorConfig) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrDuplicateAdaptive) ||
		errors.Is(err, ErrMultipleDefaultNames) ||
		errors.Is(err, ErrNoAdaptiveMethod)
}

// IsLoad checks if an error is a deferred class-load failure
func IsLoad(err error) bool {
	return hasClass(err, ErrorLoad) || errors.Is(err, ErrClassNotRegistered)
}

// IsConstruction checks if an error occurred while materializing an instance
func IsConstruction(err error) bool {
	return hasClass(err, ErrorConstruction)
}

// IsFatal checks if an error is fatal
func IsFatal(err error) bool {
	return hasClass(err, ErrorFatal)
}

func hasClass(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}
	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorInvalid
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case IsInvalid(err):
		return ErrorInvalid
	case IsConfig(err):
		return ErrorConfig
	case IsLoad(err):
		return ErrorLoad
	default:
		return ErrorConstruction
	}
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* variants instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as invalid caller input with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapConfig wraps an error as a configuration error with context
func WrapConfig(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorConfig, wrappedErr, component, method, wrappedErr.Error())
}

// WrapLoad wraps an error as a deferred class-load failure with context
func WrapLoad(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorLoad, wrappedErr, component, method, wrappedErr.Error())
}

// WrapConstruction wraps an error as an instance-construction failure
func WrapConstruction(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorConstruction, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}
