package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/coderunner.net/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

// FromError maps an engine error onto the status and message returned to callers.
// Unrecognised errors are reported as a generic 500.
func FromError(err error) ErrorMessage {
	var vErr *errs.ValidationError
	switch {
	case errors.As(err, &vErr):
		return ErrorMessage{Message: vErr.Error(), StatusCode: http.StatusBadRequest}
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrUnsupportedLanguage):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusBadRequest}
	case errors.Is(err, errs.ErrUnauthorized):
		return ErrorMessage{Message: errs.ErrUnauthorized.Error(), StatusCode: http.StatusUnauthorized}
	case errors.Is(err, errs.ErrJobNotFound):
		return ErrorMessage{Message: errs.ErrJobNotFound.Error(), StatusCode: http.StatusNotFound}
	case errors.Is(err, errs.ErrJobExists):
		return ErrorMessage{Message: errs.ErrJobExists.Error(), StatusCode: http.StatusConflict}
	case errors.Is(err, errs.ErrQueueFull):
		return ErrorMessage{Message: errs.ErrQueueFull.Error(), StatusCode: http.StatusTooManyRequests}
	case errors.Is(err, errs.ErrShuttingDown):
		return ErrorMessage{Message: errs.ErrShuttingDown.Error(), StatusCode: http.StatusServiceUnavailable}
	default:
		return ErrorMessage{Message: errs.InternalError.Error(), StatusCode: http.StatusInternalServerError}
	}
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	w.Header().Set("Content-Type", "application/json")
	if err.StatusCode == http.StatusTooManyRequests || err.StatusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}

func WriteSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
