package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/adapter/crypto"
	"gitlab.com/coderunner.net/internal/adapter/logging"
	"gitlab.com/coderunner.net/internal/config"
	"gitlab.com/coderunner.net/internal/core/services/execution"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/limiter"
	"gitlab.com/coderunner.net/internal/static/errs"
)

// stubService completes every job immediately with a passing verdict.
type stubService struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	// submitErr, when set, is returned by Submit.
	submitErr error
	// pending keeps submitted jobs non-terminal.
	pending bool
}

func newStub() *stubService {
	return &stubService{jobs: map[string]*domain.Job{}}
}

func (s *stubService) Submit(_ context.Context, req execution.SubmitRequest) (*domain.Job, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	if req.JobID == "" {
		return nil, errs.Invalid("job_id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[req.JobID]; ok {
		return nil, errs.ErrJobExists
	}
	lang := req.Language
	if lang == "" {
		lang = "python"
	}
	job := domain.NewJob(req.JobID, lang, time.Now())
	s.jobs[job.ID] = job
	return job.Clone(), nil
}

func (s *stubService) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, errs.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *stubService) Await(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if ok && !s.pending && job.Status == domain.JobStatusPending {
		now := time.Now()
		_ = job.MarkRunning(now)
		_ = job.Complete(&domain.Verdict{Passed: true, Logs: "2\n"}, now)
	}
	s.mu.Unlock()
	return s.GetJob(ctx, jobID)
}

func (s *stubService) Execute(context.Context, domain.ExecutionRequest) (*domain.Verdict, error) {
	return &domain.Verdict{Passed: true}, nil
}

func (s *stubService) Languages() []domain.LanguageConfig {
	return []domain.LanguageConfig{{ID: "python", Name: "Python 3", Extension: ".py", DefaultTimeout: 30 * time.Second}}
}

func newTestServer(t *testing.T, svc execution.IExecutionService, opts ...func(*ServiceProvider)) http.Handler {
	t.Helper()
	provider := NewServiceProvider(svc, nil, nil)
	for _, opt := range opts {
		opt(provider)
	}
	srv := NewServer(&config.ServerConfig{Port: 8000}, *provider, "1.0.0", true, 1024, logging.NewNopLogger())
	require.NoError(t, srv.Init())
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestSystemRoutes(t *testing.T) {
	h := newTestServer(t, newStub())

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "healthy", "service": "code-runner"}, decode(t, rec))

	rec = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Code Runner Service", decode(t, rec)["message"])

	rec = do(t, h, http.MethodGet, "/languages", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"languages":[{"id":"python","name":"Python 3","extension":".py","default_timeout":30}]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coderunner_")
}

func TestExecuteSync(t *testing.T) {
	h := newTestServer(t, newStub())

	rec := do(t, h, http.MethodPost, "/execute", `{"job_id":"a1","code":"print(1+1)","language":"python","timeout":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "a1", body["job_id"])
	assert.Equal(t, "completed", body["status"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, true, result["passed"])
	assert.Equal(t, "2\n", result["logs"])

	rec = do(t, h, http.MethodGet, "/jobs/a1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/api/jobs/a1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExecuteAsync(t *testing.T) {
	stub := newStub()
	stub.pending = true
	h := newTestServer(t, stub)

	rec := do(t, h, http.MethodPost, "/api/execute", `{"job_id":"a2","code":"x","async":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "pending", decode(t, rec)["status"])

	rec = do(t, h, http.MethodPost, "/execute", `{"job_id":"a3","code":"x"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code, "a job still running after the wait is reported as accepted")
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name      string
		submitErr error
		body      string
		status    int
		message   string
	}{
		{name: "malformed body", body: `{"job_id":`, status: http.StatusBadRequest, message: "invalid request body"},
		{name: "validation", body: `{"code":"x"}`, status: http.StatusBadRequest, message: "invalid job_id: is required"},
		{name: "unsupported language", submitErr: errs.ErrUnsupportedLanguage, body: `{"job_id":"x","code":"x"}`, status: http.StatusBadRequest, message: "unsupported language"},
		{name: "queue full", submitErr: errs.ErrQueueFull, body: `{"job_id":"x","code":"x"}`, status: http.StatusTooManyRequests, message: "execution queue is full"},
		{name: "shutting down", submitErr: errs.ErrShuttingDown, body: `{"job_id":"x","code":"x"}`, status: http.StatusServiceUnavailable, message: "engine is shutting down"},
		{name: "too large", body: `{"job_id":"x","code":"` + strings.Repeat("a", 40*1024) + `"}`, status: http.StatusRequestEntityTooLarge, message: "request body too large"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStub()
			stub.submitErr = tc.submitErr
			h := newTestServer(t, stub)

			rec := do(t, h, http.MethodPost, "/execute", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decode(t, rec)["error"])
		})
	}
}

func TestDuplicateAndUnknownJobs(t *testing.T) {
	h := newTestServer(t, newStub())

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/execute", `{"job_id":"dup","code":"x"}`).Code)
	rec := do(t, h, http.MethodPost, "/execute", `{"job_id":"dup","code":"x"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "job not found"}, decode(t, rec))
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, newStub())

	rec := do(t, h, http.MethodGet, "/health", "", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestJWTGuardsJobRoutesOnly(t *testing.T) {
	jwtSvc := crypto.NewJWTService(&config.JwtConfig{Secret: "s3cret"})
	h := newTestServer(t, newStub(), func(p *ServiceProvider) { p.verifier = jwtSvc })

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	rec := do(t, h, http.MethodPost, "/execute", `{"job_id":"j","code":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/execute", `{"job_id":"j","code":"x"}`, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwtSvc.GenerateTokenHMAC(context.Background(), "HS256", map[string]interface{}{"sub": "submissions"})
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/execute", `{"job_id":"j","code":"x"}`, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	rl := limiter.NewRateLimiter(1000, 0.001, 1)
	h := newTestServer(t, newStub(), func(p *ServiceProvider) { p.rateLimiter = rl })

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/execute", `{"job_id":"r1","code":"x"}`).Code)
	rec := do(t, h, http.MethodPost, "/execute", `{"job_id":"r2","code":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decode(t, rec)["error"])

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code, "health is never rate limited")
}

func TestInitRequiresService(t *testing.T) {
	srv := NewServer(&config.ServerConfig{}, ServiceProvider{}, "", true, 1024, logging.NewNopLogger())
	assert.Error(t, srv.Init())
}
