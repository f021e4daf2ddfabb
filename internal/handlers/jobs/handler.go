package jobs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/services/execution"
	"gitlab.com/coderunner.net/internal/handlers"
	"gitlab.com/coderunner.net/internal/handlers/response"
	"gitlab.com/coderunner.net/internal/static/errs"
)

// requestOverhead is the JSON envelope allowed on top of the code itself.
const requestOverhead = 16 * 1024

// JobHandler handles job API requests
type JobHandler struct {
	execService execution.IExecutionService
	logger      primary.Logger
	syncWait    bool
	maxBody     int64
}

// NewJobHandler creates a new job handler. With syncWait set, POST /execute
// holds the response until the job is terminal unless the caller asks for async.
func NewJobHandler(execService execution.IExecutionService, logger primary.Logger, syncWait bool, maxCodeBytes int) *JobHandler {
	return &JobHandler{
		execService: execService,
		logger:      logger,
		syncWait:    syncWait,
		maxBody:     int64(maxCodeBytes)*2 + requestOverhead,
	}
}

// RegisterRoutes registers the API routes for JobHandler
func (h *JobHandler) RegisterRoutes(router *mux.Router) {
	for _, prefix := range []string{"", "/api"} {
		router.HandleFunc(prefix+"/execute", h.Execute).Methods(http.MethodPost)
		router.HandleFunc(prefix+"/jobs/{jobId}", h.GetJob).Methods(http.MethodGet)
	}
}

// Execute handles execution requests
func (h *JobHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode request", "requestId", handlers.RequestID(r.Context()), "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.ResponseError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		handlers.ResponseError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	job, err := h.execService.Submit(r.Context(), req.toSubmit())
	if err != nil {
		h.writeError(w, r, "Failed to submit job", err)
		return
	}

	if req.Async || !h.syncWait {
		handlers.ResponseWithJson(w, http.StatusAccepted, job)
		return
	}

	job, err = h.execService.Await(r.Context(), job.ID)
	if err != nil {
		h.writeError(w, r, "Failed to read job", err)
		return
	}
	if !job.Status.IsTerminal() {
		// the caller went away or the wait was cut short; the job keeps running
		handlers.ResponseWithJson(w, http.StatusAccepted, job)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, job)
}

// GetJob handles job retrieval requests
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.execService.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeError(w, r, "Failed to get job", err)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, job)
}

func (h *JobHandler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	resp := response.FromError(err)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError && !errors.Is(err, errs.ErrShuttingDown):
		h.logger.Error(msg, "requestId", handlers.RequestID(r.Context()), "error", err)
	case resp.StatusCode != http.StatusNotFound:
		h.logger.Info(msg, "requestId", handlers.RequestID(r.Context()), "error", err)
	}
	response.WriteError(w, resp)
}
