// Package errors provides standardized error handling for the design
// generation pipeline.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodeEmailExists     ErrorCode = "EMAIL_EXISTS"
	ErrCodeInvalidCreds    ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeDesignNotFound  ErrorCode = "DESIGN_NOT_FOUND"
	ErrCodeDesignForbidden ErrorCode = "DESIGN_FORBIDDEN"

	ErrCodeInvalidGenerationResult ErrorCode = "INVALID_GENERATION_RESULT"
	ErrCodeBackendUnavailable      ErrorCode = "GENERATION_BACKEND_UNAVAILABLE"
	ErrCodeBackendTimeout          ErrorCode = "GENERATION_BACKEND_TIMEOUT"

	ErrCodeQueuePublishFailed ErrorCode = "QUEUE_PUBLISH_FAILED"
	ErrCodeConsumptionFailed  ErrorCode = "JOB_CONSUMPTION_FAILED"

	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUserNotFoundError creates a non-retryable identity resolution error.
func NewUserNotFoundError(identity string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserNotFound,
		Message:   "Submitter identity resolves to no known user",
		Details:   fmt.Sprintf("identity: %s", identity),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidGenerationResultError creates a non-retryable contract violation error.
func NewInvalidGenerationResultError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidGenerationResult,
		Message:   "Generation backend output failed structural validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendUnavailableError creates a retryable transient backend error.
func NewBackendUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendUnavailable,
		Message:   "Generation backend call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendTimeoutError creates a retryable timeout error.
func NewBackendTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTimeout,
		Message:   "Generation backend call timed out",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueuePublishFailedError creates an error recording a failed job handoff.
// The payload has already been dead-lettered by the time this is constructed.
func NewQueuePublishFailedError(topic string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueuePublishFailed,
		Message:   "Failed to publish job to queue",
		Details:   fmt.Sprintf("topic: %s, error: %s", topic, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConsumptionFailedError creates an error recording a failed job consumption.
func NewConsumptionFailedError(topic string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConsumptionFailed,
		Message:   "Failed to process dequeued job",
		Details:   fmt.Sprintf("topic: %s, error: %s", topic, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable persistence error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query error.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or empty when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return ""
}

// GetErrorCategory maps an error code to a coarse category used in logs.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeUserNotFound, ErrCodeEmailExists, ErrCodeInvalidCreds,
		ErrCodeDesignNotFound, ErrCodeDesignForbidden:
		return "client"
	case ErrCodeInvalidGenerationResult:
		return "contract"
	case ErrCodeBackendUnavailable, ErrCodeBackendTimeout:
		return "transient"
	case ErrCodeQueuePublishFailed, ErrCodeConsumptionFailed:
		return "queue"
	default:
		return "internal"
	}
}
