package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrValidation(t *testing.T) {
	err := ErrValidation("amount is required", "chainId must be greater than 0")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "amount is required")
	assert.Contains(t, err.Error(), "chainId must be greater than 0")

	single := ErrValidation("amount is required")
	assert.Equal(t, "amount is required", single.Message)
}

func TestKindOfWrapped(t *testing.T) {
	inner := ErrConflict("quote is no longer pending")
	wrapped := fmt.Errorf("accept quote: %w", inner)

	assert.Equal(t, KindStateConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindStateConflict))
	assert.False(t, IsKind(wrapped, KindNotFound))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, ErrUpstream(CodeOracleTimeout, "oracle did not respond in time", nil).Retryable())
	assert.True(t, ErrUpstream(CodeOracleUnavailable, "oracle returned 503", nil).Retryable())
	assert.False(t, ErrUpstream(CodeOracleNotFound, "unknown feed", nil).Retryable())
	assert.False(t, ErrConflict("request has expired").Retryable())
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrUpstream(CodeOracleUnavailable, "oracle request failed", cause)
	assert.ErrorIs(t, err, cause)
}
