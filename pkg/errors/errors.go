// Package errors provides structured error handling for memlink
package errors

import (
	"fmt"
	"strings"

	"github.com/memlinkio/memlink/pkg/types"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Resource errors
	ErrCodeNotFound  ErrorCode = "NOT_FOUND"
	ErrCodeDuplicate ErrorCode = "DUPLICATE_MEMORY"

	// Storage errors
	ErrCodeLocalStorage  ErrorCode = "LOCAL_STORAGE_FAILURE"
	ErrCodeRemoteStorage ErrorCode = "REMOTE_STORAGE_FAILURE"

	// Network errors
	ErrCodeTimeout        ErrorCode = "NETWORK_TIMEOUT"
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"

	// System errors
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
	ErrCodeConfigError ErrorCode = "CONFIG_ERROR"
)

// MemlinkError represents a structured error in memlink
type MemlinkError struct {
	Type    types.ErrorType        `json:"type"`
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *MemlinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *MemlinkError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *MemlinkError) WithDetail(key string, value interface{}) *MemlinkError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new memlink error
func New(errType types.ErrorType, code ErrorCode, message string) *MemlinkError {
	return &MemlinkError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// NewWithCause creates a new memlink error with a cause
func NewWithCause(errType types.ErrorType, code ErrorCode, message string, cause error) *MemlinkError {
	return &MemlinkError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation error constructors

func NewValidationError(message string) *MemlinkError {
	return New(types.ErrorTypeValidation, ErrCodeValidation, message)
}

func NewInvalidInputError(message string) *MemlinkError {
	return New(types.ErrorTypeValidation, ErrCodeInvalidInput, message)
}

func NewMissingFieldError(field string) *MemlinkError {
	return New(types.ErrorTypeValidation, ErrCodeMissingField,
		fmt.Sprintf("missing required field: %s", field)).WithDetail("field", field)
}

// Resource error constructors

func NewNotFoundError(resource string) *MemlinkError {
	return New(types.ErrorTypeNotFound, ErrCodeNotFound,
		fmt.Sprintf("%s not found", resource)).WithDetail("resource", resource)
}

func NewMemoryNotFoundError(memoryID string) *MemlinkError {
	return New(types.ErrorTypeNotFound, ErrCodeNotFound,
		fmt.Sprintf("memory not found: %s", memoryID)).WithDetail("memory_id", memoryID)
}

// NewDuplicateError marks an add that matched an existing memory above the
// dedup threshold. Treated as an idempotent no-op outcome, not a failure.
func NewDuplicateError(existingID string, score float64) *MemlinkError {
	return New(types.ErrorTypeDuplicate, ErrCodeDuplicate,
		"similar memory already stored").
		WithDetail("existing_id", existingID).
		WithDetail("similarity", score)
}

// Storage error constructors

func NewLocalStorageError(message string, cause error) *MemlinkError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeLocalStorage, message, cause)
}

func NewRemoteStorageError(message string, cause error) *MemlinkError {
	return NewWithCause(types.ErrorTypeExternal, ErrCodeRemoteStorage, message, cause)
}

// Network error constructors

func NewTimeoutError(operation string) *MemlinkError {
	return New(types.ErrorTypeExternal, ErrCodeTimeout,
		fmt.Sprintf("%s timed out", operation)).WithDetail("operation", operation)
}

func NewNetworkFailureError(message string, cause error) *MemlinkError {
	return NewWithCause(types.ErrorTypeExternal, ErrCodeNetworkFailure, message, cause)
}

// System error constructors

func NewInternalError(message string) *MemlinkError {
	return New(types.ErrorTypeInternal, ErrCodeInternal, message)
}

func NewConfigError(message string) *MemlinkError {
	return New(types.ErrorTypeValidation, ErrCodeConfigError, message)
}

// IsDuplicate reports whether the error is a duplicate-rejected outcome.
func IsDuplicate(err error) bool {
	if me, ok := err.(*MemlinkError); ok {
		return me.Code == ErrCodeDuplicate
	}
	return false
}

// IsNotFound reports whether the error is a not-found outcome.
func IsNotFound(err error) bool {
	if me, ok := err.(*MemlinkError); ok {
		return me.Type == types.ErrorTypeNotFound
	}
	return false
}

// GetMemlinkError extracts a MemlinkError from an error
func GetMemlinkError(err error) *MemlinkError {
	if me, ok := err.(*MemlinkError); ok {
		return me
	}
	return nil
}

// ErrorList represents a list of errors
type ErrorList struct {
	Errors []*MemlinkError `json:"errors"`
}

// Error implements the error interface
func (el *ErrorList) Error() string {
	var messages []string
	for _, err := range el.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Add adds an error to the list
func (el *ErrorList) Add(err *MemlinkError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if there are errors
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// ToError returns the ErrorList as an error if it has errors, otherwise nil
func (el *ErrorList) ToError() error {
	if el.HasErrors() {
		return el
	}
	return nil
}

// NewErrorList creates a new error list
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*MemlinkError, 0),
	}
}
