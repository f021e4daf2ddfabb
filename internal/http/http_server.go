package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/coderunner.net/internal/config"
	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/services/execution"
	"gitlab.com/coderunner.net/internal/handlers"
	"gitlab.com/coderunner.net/internal/handlers/jobs"
	"gitlab.com/coderunner.net/internal/handlers/response"
	"gitlab.com/coderunner.net/internal/handlers/system"
	"gitlab.com/coderunner.net/internal/limiter"
)

type ServiceProvider struct {
	execService execution.IExecutionService
	verifier    primary.TokenVerifier
	rateLimiter *limiter.RateLimiter
}

// NewServiceProvider collects what the handlers need. verifier and rateLimiter may be nil.
func NewServiceProvider(
	execService execution.IExecutionService,
	verifier primary.TokenVerifier,
	rateLimiter *limiter.RateLimiter,
) *ServiceProvider {
	return &ServiceProvider{
		execService: execService,
		verifier:    verifier,
		rateLimiter: rateLimiter,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Config          *config.ServerConfig
	ServiceProvider ServiceProvider
	Version         string
	SyncWait        bool
	MaxCodeBytes    int
	logger          primary.Logger
	errCh           chan error
}

func NewServer(cfg *config.ServerConfig, serviceProvider ServiceProvider, version string, syncWait bool, maxCodeBytes int, logger primary.Logger) *Server {
	return &Server{
		Config:          cfg,
		ServiceProvider: serviceProvider,
		Version:         version,
		SyncWait:        syncWait,
		MaxCodeBytes:    maxCodeBytes,
		logger:          logger,
		errCh:           make(chan error, 1),
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.execService == nil {
		return fmt.Errorf("http server: execution service is required")
	}
	mw := handlers.New(s.ServiceProvider.verifier, s.logger)

	r := mux.NewRouter()
	r.Use(mw.RequestIDMiddleware, mw.AccessLogMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlers.ResponseError(w, "not found", http.StatusNotFound)
	})

	// public routes go first so the guarded subrouter never shadows them
	system.NewHandler(s.ServiceProvider.execService, s.Version).Register(r)

	api := r.NewRoute().Subrouter()
	if rl := s.ServiceProvider.rateLimiter; rl != nil {
		rl.OnLimit(func(w http.ResponseWriter, _ *http.Request) {
			response.WriteError(w, response.ErrorMessage{Message: "rate limit exceeded", StatusCode: http.StatusTooManyRequests})
		})
		api.Use(rl.Middleware)
	}
	api.Use(mw.JWTMiddleware)
	jobs.NewJobHandler(s.ServiceProvider.execService, s.logger, s.SyncWait, s.MaxCodeBytes).RegisterRoutes(api)

	s.router = r
	return nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) {
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Config.Port),
		Handler:      s.router,
		ReadTimeout:  s.Config.ReadTimeout,
		WriteTimeout: s.Config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			s.errCh <- err
		}
	}()
}

// Errors reports a listener failure after Start.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
