// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Matching domain errors
const (
	ErrCodeInvalidWeightSpec        ErrorCode = "INVALID_WEIGHT_SPEC"
	ErrCodeInvalidTransition        ErrorCode = "INVALID_TRANSITION"
	ErrCodeMissingRequiredData      ErrorCode = "MISSING_REQUIRED_DATA"
	ErrCodeConcurrentUpdateConflict ErrorCode = "CONCURRENT_UPDATE_CONFLICT"
	ErrCodeAlreadyRevealed          ErrorCode = "ALREADY_REVEALED"
	ErrCodeRetriesExhausted         ErrorCode = "RETRIES_EXHAUSTED"
	ErrCodeMatchNotFound            ErrorCode = "MATCH_NOT_FOUND"
	ErrCodeInputValidationFailed    ErrorCode = "INPUT_VALIDATION_FAILED"
)

// Infrastructure errors
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeCacheFailed              ErrorCode = "CACHE_FAILED"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeIndexingFailed                ErrorCode = "INDEXING_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowEngineFailed   ErrorCode = "WORKFLOW_ENGINE_FAILED"
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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches any StandardError carrying the same code, so errors.Is works against the
// package-level sentinels below.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is. Never return these directly; use the constructors.
var (
	ErrInvalidWeightSpec        = &StandardError{Code: ErrCodeInvalidWeightSpec}
	ErrInvalidTransition        = &StandardError{Code: ErrCodeInvalidTransition}
	ErrConcurrentUpdateConflict = &StandardError{Code: ErrCodeConcurrentUpdateConflict}
	ErrAlreadyRevealed          = &StandardError{Code: ErrCodeAlreadyRevealed}
	ErrRetriesExhausted         = &StandardError{Code: ErrCodeRetriesExhausted}
	ErrMatchNotFound            = &StandardError{Code: ErrCodeMatchNotFound}
	ErrMissingRequiredData      = &StandardError{Code: ErrCodeMissingRequiredData}
	ErrInputValidationFailed    = &StandardError{Code: ErrCodeInputValidationFailed}
)

// CodeOf returns the code of a StandardError anywhere in err's chain, or "".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if se, ok := err.(*StandardError); ok {
			return se.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
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

// NewInvalidWeightSpecError rejects a weight set. Never retried; the owner must fix the weights.
func NewInvalidWeightSpecError(details string, metadata map[string]interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidWeightSpec,
		Message:   "Invalid factor weights",
		Details:   details,
		Retryable: false,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports an event that is not legal from the current state.
func NewInvalidTransitionError(from, event string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Transition not allowed",
		Details:   fmt.Sprintf("event %q not allowed from %q", event, from),
		Retryable: false,
		Metadata: map[string]interface{}{
			"from":  from,
			"event": event,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingRequiredDataError creates a non-retryable error for incomplete inputs.
func NewMissingRequiredDataError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRequiredData,
		Message:   "Required data missing",
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrentUpdateConflictError signals an optimistic-concurrency rejection.
func NewConcurrentUpdateConflictError(matchID string, expectedVersion int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrentUpdateConflict,
		Message:   "Match was modified concurrently",
		Details:   fmt.Sprintf("matchId: %s, expectedVersion: %d", matchID, expectedVersion),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyRevealedError is a no-op signal, not a failure.
func NewAlreadyRevealedError(matchID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyRevealed,
		Message:   "Contact details already revealed",
		Details:   fmt.Sprintf("matchId: %s", matchID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetriesExhaustedError is what users see once conflict retries run out.
func NewRetriesExhaustedError(operation string, attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetriesExhausted,
		Message:   "Please try again",
		Details:   fmt.Sprintf("operation: %s, attempts: %d", operation, attempts),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMatchNotFoundError creates a non-retryable lookup error.
func NewMatchNotFoundError(kind, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMatchNotFound,
		Message:   "Record not found",
		Details:   fmt.Sprintf("%s: %s", kind, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputValidationFailedError rejects malformed payloads at the engine boundary.
func NewInputValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheFailedError creates a retryable cache error.
func NewCacheFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheFailed,
		Message:   "Cache operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable search connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexingFailedError creates a retryable indexing error.
func NewIndexingFailedError(index string, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexingFailed,
		Message:   "Failed to index document",
		Details:   fmt.Sprintf("index: %s, %s", index, details),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(index string, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search query failed",
		Details:   fmt.Sprintf("index: %s, %s", index, details),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send notification",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowEngineError wraps a failed Zeebe command.
func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowEngineFailed,
		Message:   "Workflow engine command failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. BPMN Mapping
// ==========================

// BPMNErrorMapping maps internal codes to the error codes modelled in the process definitions.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidWeightSpec:             "INVALID_WEIGHT_SPEC",
	ErrCodeInvalidTransition:             "INVALID_TRANSITION",
	ErrCodeMissingRequiredData:           "MISSING_REQUIRED_DATA",
	ErrCodeConcurrentUpdateConflict:      "CONCURRENT_UPDATE_CONFLICT",
	ErrCodeAlreadyRevealed:               "ALREADY_REVEALED",
	ErrCodeRetriesExhausted:              "TRY_AGAIN",
	ErrCodeMatchNotFound:                 "MATCH_NOT_FOUND",
	ErrCodeInputValidationFailed:         "INPUT_VALIDATION_FAILED",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:                  "QUERY_TIMEOUT",
	ErrCodeCacheFailed:                   "CACHE_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeIndexingFailed:                "INDEXING_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeNotificationSendFailed:        "NOTIFICATION_SEND_FAILED",
	ErrCodeWorkflowEngineFailed:          "WORKFLOW_ENGINE_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeCacheFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeIndexingFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeWorkflowEngineFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeRetriesExhausted:
		return 2

	case ErrCodeConcurrentUpdateConflict:
		return 1

	default:
		return 0 // Business errors: no retry
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

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for dashboards and log fields.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeInvalidTransition || code == ErrCodeAlreadyRevealed:
		return "LIFECYCLE"
	case code == ErrCodeConcurrentUpdateConflict || code == ErrCodeRetriesExhausted:
		return "CONCURRENCY"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CACHE"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case code == ErrCodeWorkflowEngineFailed:
		return "WORKFLOW"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "MISSING"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	for e := err; e != nil; {
		if se, ok := e.(*StandardError); ok {
			return se
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
