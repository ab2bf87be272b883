package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  NewError(VALIDATION_FAILED, "entity_id or semantic_query required"),
			want: "[VALIDATION_FAILED] entity_id or semantic_query required",
		},
		{
			name: "with cause",
			err:  WrapError(CONFIG_LOAD_FAILED, "reading config", errors.New("no such file")),
			want: "[CONFIG_LOAD_FAILED] reading config: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapRetryableError(CONFIG_LOAD_FAILED, "loading", cause)

	require.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NewError(VALIDATION_FAILED, "missing entity_id")

	assert.ErrorIs(t, err, NewError(VALIDATION_FAILED, ""))
	assert.NotErrorIs(t, err, NewError(CONFIG_LOAD_FAILED, ""))
}

func TestCodeOf(t *testing.T) {
	err := NewError(VALIDATION_FAILED, "bad request")
	wrapped := fmt.Errorf("handling request: %w", err)

	assert.Equal(t, VALIDATION_FAILED, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestIsRetryableDefaultsFalse(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(NewError(VALIDATION_FAILED, "x")))
	assert.True(t, IsRetryable(NewRetryableError(CONFIG_LOAD_FAILED, "x")))
}
