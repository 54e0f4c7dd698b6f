package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "simple validation error",
			field:    "name",
			message:  "is required",
			expected: "validation error on field 'name': is required",
		},
		{
			name:     "empty message",
			field:    "end",
			message:  "",
			expected: "validation error on field 'end': ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidationError_MatchesInvalidInput(t *testing.T) {
	var err error = &ValidationError{Field: "semester", Message: "must be between 1 and 12"}
	wrapped := fmt.Errorf("create schedule: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidInput))
	assert.False(t, errors.Is(wrapped, ErrNotFound))

	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "semester", ve.Field)
}
