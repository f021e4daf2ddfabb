package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/static/errs"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{errs.Invalid("timeout", "must be positive"), http.StatusBadRequest, "invalid timeout: must be positive"},
		{fmt.Errorf("%w: cobol", errs.ErrUnsupportedLanguage), http.StatusBadRequest, "unsupported language: cobol"},
		{fmt.Errorf("get: %w", errs.ErrJobNotFound), http.StatusNotFound, "job not found"},
		{errs.ErrJobExists, http.StatusConflict, "job already exists"},
		{errs.ErrQueueFull, http.StatusTooManyRequests, "execution queue is full"},
		{fmt.Errorf("reserve: %w", errs.ErrShuttingDown), http.StatusServiceUnavailable, "engine is shutting down"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.message, func(t *testing.T) {
			got := FromError(tc.err)
			assert.Equal(t, tc.status, got.StatusCode)
			assert.Equal(t, tc.message, got.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, FromError(errs.ErrQueueFull))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "execution queue is full"}, body)
}
