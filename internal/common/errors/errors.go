// Package errors provides the error taxonomy shared by the intelligence engine,
// its stores and the workflow job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Engine errors
const (
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeEmptyInput    ErrorCode = "EMPTY_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeCancelled     ErrorCode = "OPERATION_CANCELLED"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
)

// Infrastructure errors
const (
	ErrCodeSnapshotStoreFailed    ErrorCode = "SNAPSHOT_STORE_FAILED"
	ErrCodeProfileSourceFailed    ErrorCode = "PROFILE_SOURCE_FAILED"
	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

var knownCodes = map[ErrorCode]struct{}{
	ErrCodeValidation: {}, ErrCodeConfiguration: {}, ErrCodeEmptyInput: {},
	ErrCodeNotFound: {}, ErrCodeCancelled: {}, ErrCodeInvalidInput: {},
	ErrCodeSnapshotStoreFailed: {}, ErrCodeProfileSourceFailed: {}, ErrCodeCacheUnavailable: {},
	ErrCodeNotificationSendFailed: {}, ErrCodeInternal: {},
}

// IsKnownCode reports whether code is one of the codes defined above.
func IsKnownCode(code ErrorCode) bool {
	_, ok := knownCodes[code]
	return ok
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Field returns the offending field recorded on a validation error, if any.
func (e *StandardError) Field() string {
	if e.Metadata == nil {
		return ""
	}
	field, _ := e.Metadata["field"].(string)
	return field
}

// IsCode reports whether err, or any error it wraps, is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or ErrCodeInternal when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError reports a single malformed input field. Validation errors are
// collected by callers and never abort a whole batch.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Input field failed validation",
		Details:   fmt.Sprintf("field: %s, %s", field, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationError reports an invalid engine configuration.
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Invalid engine configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports a business id missing from the population.
func NewNotFoundError(businessID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Business not found in population",
		Details:   fmt.Sprintf("businessId: %s", businessID),
		Retryable: false,
		Metadata:  map[string]interface{}{"businessId": businessID},
		Timestamp: time.Now().UTC(),
	}
}

// NewSelfMatchError reports a match requested between a business and itself.
func NewSelfMatchError(businessID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "No counterpart business for self match",
		Details:   fmt.Sprintf("businessId: %s", businessID),
		Retryable: false,
		Metadata:  map[string]interface{}{"businessId": businessID},
		Timestamp: time.Now().UTC(),
	}
}

// NewCancelledError wraps a context error for an aborted computation.
func NewCancelledError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCancelled,
		Message:   fmt.Sprintf("Operation '%s' cancelled", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidInputError reports a malformed job payload.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotStoreFailedError creates a retryable score snapshot persistence error.
func NewSnapshotStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotStoreFailed,
		Message:   "Score snapshot store error",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProfileSourceFailedError creates a retryable profile ingestion error.
func NewProfileSourceFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileSourceFailed,
		Message:   "Business profile source error",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCacheUnavailableError creates a retryable cache backend error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidation:             "VALIDATION_ERROR",
	ErrCodeConfiguration:          "CONFIGURATION_ERROR",
	ErrCodeEmptyInput:             "EMPTY_INPUT",
	ErrCodeNotFound:               "BUSINESS_NOT_FOUND",
	ErrCodeCancelled:              "OPERATION_CANCELLED",
	ErrCodeInvalidInput:           "INVALID_INPUT",
	ErrCodeSnapshotStoreFailed:    "SNAPSHOT_STORE_FAILED",
	ErrCodeProfileSourceFailed:    "PROFILE_SOURCE_FAILED",
	ErrCodeCacheUnavailable:       "CACHE_UNAVAILABLE",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSnapshotStoreFailed,
		ErrCodeProfileSourceFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeCacheUnavailable,
		ErrCodeCancelled:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if field := stdErr.Field(); field != "" {
		vars["errorField"] = field
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "SNAPSHOT") || strings.Contains(codeStr, "PROFILE_SOURCE"):
		return "STORAGE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case code == ErrCodeNotFound || code == ErrCodeEmptyInput:
		return "QUERY"
	default:
		return "OTHER"
	}
}
