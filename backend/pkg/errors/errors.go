package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeIdentity represents invalid profile identifiers
	ErrorTypeIdentity ErrorType = "identity"
	// ErrorTypeRelationship represents relationship rule violations
	ErrorTypeRelationship ErrorType = "relationship"
	// ErrorTypeStore represents graph store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

func (e *BaseError) base() *BaseError { return e }

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Identity Errors

// ErrInvalidIdentity is returned when a required profile id is empty or blank.
// It is always raised before the store is contacted.
type ErrInvalidIdentity struct {
	*BaseError
	Field string
}

func NewInvalidIdentity(field string) *ErrInvalidIdentity {
	return &ErrInvalidIdentity{
		BaseError: NewBaseError(ErrorTypeIdentity, fmt.Sprintf("%s is required", field), nil),
		Field:     field,
	}
}

// Relationship Errors

// ErrSelfRelationship is returned when a profile tries to follow itself
type ErrSelfRelationship struct {
	*BaseError
	ProfileID string
}

func NewSelfRelationship(profileID string) *ErrSelfRelationship {
	return &ErrSelfRelationship{
		BaseError: NewBaseError(ErrorTypeRelationship, "cannot follow yourself", nil),
		ProfileID: profileID,
	}
}

// Store Errors

// ErrStoreUnavailable is returned when the graph store cannot be reached,
// the request timed out or the caller cancelled it
type ErrStoreUnavailable struct {
	*BaseError
	Endpoint string
}

func NewStoreUnavailable(endpoint string, err error) *ErrStoreUnavailable {
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("graph store unavailable: %s", endpoint), err),
		Endpoint:  endpoint,
	}
}

// ErrQueryFailed is returned when the store was reached but rejected or
// failed the submitted statement
type ErrQueryFailed struct {
	*BaseError
	Operation  string
	StatusCode int
	// Conflict marks duplicate-id and uniqueness constraint violations
	Conflict bool
}

func NewQueryFailed(operation string, statusCode int, err error) *ErrQueryFailed {
	return &ErrQueryFailed{
		BaseError:  NewBaseError(ErrorTypeStore, fmt.Sprintf("query failed: %s (status %d)", operation, statusCode), err),
		Operation:  operation,
		StatusCode: statusCode,
	}
}

func NewQueryConflict(operation string, statusCode int, err error) *ErrQueryFailed {
	e := NewQueryFailed(operation, statusCode, err)
	e.Conflict = true
	return e
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if baseErr, ok := err.(interface{ base() *BaseError }); ok {
			if baseErr.base().Type == errType {
				return true
			}
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsInvalidIdentity reports whether err is an ErrInvalidIdentity
func IsInvalidIdentity(err error) bool {
	var target *ErrInvalidIdentity
	return stderrors.As(err, &target)
}

// IsSelfRelationship reports whether err is an ErrSelfRelationship
func IsSelfRelationship(err error) bool {
	var target *ErrSelfRelationship
	return stderrors.As(err, &target)
}

// IsStoreUnavailable reports whether err is an ErrStoreUnavailable
func IsStoreUnavailable(err error) bool {
	var target *ErrStoreUnavailable
	return stderrors.As(err, &target)
}

// IsQueryFailed reports whether err is an ErrQueryFailed
func IsQueryFailed(err error) bool {
	var target *ErrQueryFailed
	return stderrors.As(err, &target)
}

// IsConflict reports whether err is a query failure caused by a duplicate
// creation racing another writer
func IsConflict(err error) bool {
	var target *ErrQueryFailed
	return stderrors.As(err, &target) && target.Conflict
}

// IsRetryable checks if an error is retryable by the caller.
// Nothing in this module retries on its own. A request the caller cancelled
// is never retryable, even though it surfaces as ErrStoreUnavailable.
func IsRetryable(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if IsStoreUnavailable(err) {
		return true
	}
	var qf *ErrQueryFailed
	if stderrors.As(err, &qf) {
		// 429 is the Cosmos DB request-rate-too-large signal
		return qf.StatusCode == 429
	}
	return false
}
