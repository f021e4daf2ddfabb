package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorUnwrapsToInvalidRequest(t *testing.T) {
	err := fmt.Errorf("submit: %w", Invalid("timeout", "must be positive, got %d", -1))

	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.EqualError(t, err, "submit: invalid timeout: must be positive, got -1")

	var vErr *ValidationError
	if assert.True(t, errors.As(err, &vErr)) {
		assert.Equal(t, "timeout", vErr.Field)
	}
}
