package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := NewInvalidTransitionError("accepted", "view")
	wrapped := fmt.Errorf("transition: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrInvalidTransition))
	assert.False(t, stderrors.Is(wrapped, ErrConcurrentUpdateConflict))
	assert.Equal(t, ErrCodeInvalidTransition, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeQueryExecutionFailed, 3},
		{ErrCodeIndexingFailed, 3},
		{ErrCodeQueryTimeout, 2},
		{ErrCodeConcurrentUpdateConflict, 1},
		{ErrCodeInvalidWeightSpec, 0},
		{ErrCodeInvalidTransition, 0},
		{ErrCodeAlreadyRevealed, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryCount(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("business error is not retried", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewInvalidWeightSpecError("sum is 99", nil))
		assert.Equal(t, "INVALID_WEIGHT_SPEC", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)
		assert.False(t, bpmn.Retryable)
		assert.Equal(t, "INVALID_WEIGHT_SPEC", bpmn.ErrorVariables["originalErrorCode"])
	})

	t.Run("exhausted retries surface as try again", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewRetriesExhaustedError("accept", 3))
		assert.Equal(t, "TRY_AGAIN", bpmn.Code)
		assert.Equal(t, "Please try again", bpmn.Message)
	})
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "LIFECYCLE", GetErrorCategory(ErrCodeInvalidTransition))
	assert.Equal(t, "CONCURRENCY", GetErrorCategory(ErrCodeConcurrentUpdateConflict))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidWeightSpec))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeCacheFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexingFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
}

func TestAsStandardError(t *testing.T) {
	se := AsStandardError(fmt.Errorf("outer: %w", NewMatchNotFoundError("match", "m-1")))
	assert.Equal(t, ErrCodeMatchNotFound, se.Code)

	plain := AsStandardError(stderrors.New("boom"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), plain.Code)
	assert.Equal(t, "boom", plain.Details)
}
