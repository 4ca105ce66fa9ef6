package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Validation("inputText is required"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := UpstreamFailure("transport failure", 0, cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrUpstreamFailure))
}

func TestUserMessageWithholdsDetail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation reason is shown", Validation("inputText exceeds 50000 characters"), "inputText exceeds 50000 characters"},
		{"auth detail is withheld", UpstreamAuth(401, errors.New("invalid x-api-key sk-123")), "Server configuration error. Please try again later."},
		{"extraction detail is withheld", Extraction("parse failed"), "Failed to parse response, please try again."},
		{"rate limited", RateLimited("too many requests"), "Too many requests. Please wait a moment and try again."},
		{"foreign error", errors.New("boom"), "Internal server error"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
