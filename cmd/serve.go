package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/coderunner.net/internal/adapter/crypto"
	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/services/execution"
	"gitlab.com/coderunner.net/internal/core/services/supervisor"
	http2 "gitlab.com/coderunner.net/internal/http"
	"gitlab.com/coderunner.net/internal/limiter"
	"gitlab.com/coderunner.net/internal/schedulerengine"
)

const (
	janitorInterval = 10 * time.Minute
	limiterSweep    = time.Minute
	limiterMaxIdle  = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the execution HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sysCfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting code runner service", "version", version, "backend", sysCfg.RunnerConfig.Backend, "store", sysCfg.StoreConfig.Backend)

	registry, err := setupRegistry(ctx, sysCfg, logger)
	if err != nil {
		return err
	}
	hintClassifier, err := setupClassifier(sysCfg.RegistryConfig)
	if err != nil {
		return err
	}

	// SECONDARY PORTS
	launcher, closeLauncher, err := setupLauncher(ctx, sysCfg.RunnerConfig, registry, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeLauncher() }()

	jobRepo, purger, closeStore, err := setupJobStore(ctx, sysCfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	// the engine outlives the signal context so shutdown can be ordered
	engineCtx, cancelEngine := context.WithCancel(context.Background())
	defer cancelEngine()
	engine := schedulerengine.NewSchedulerEngine(sysCfg.RunnerConfig.MaxConcurrent, sysCfg.RunnerConfig.QueueSize, logger)
	engine.Start(engineCtx)
	if purger != nil {
		engine.StartJanitor(engineCtx, purger, sysCfg.StoreConfig.JobTTL, janitorInterval)
	}

	//services
	sup := supervisor.NewSupervisor(launcher, logger, sysCfg.RunnerConfig.OutputLimitBytes, sysCfg.RunnerConfig.KillGrace)
	execSvc := execution.NewExecutionService(registry, sup, hintClassifier, jobRepo, engine, sysCfg.LimitsConfig, logger)

	var verifier primary.TokenVerifier
	if sysCfg.JwtConfig.Secret != "" {
		verifier = crypto.NewJWTService(sysCfg.JwtConfig)
	} else {
		logger.Warn("JWT_SECRET is empty, execution routes are unauthenticated")
	}
	rateLimiter := limiter.NewRateLimiter(sysCfg.RateLimitConfig.GlobalRPS, sysCfg.RateLimitConfig.PerIPRPS, sysCfg.RateLimitConfig.PerIPBurst)
	rateLimiter.StartCleanup(engineCtx, limiterSweep, limiterMaxIdle)

	//server
	serviceProvider := http2.NewServiceProvider(execSvc, verifier, rateLimiter)
	httpServer := http2.NewServer(sysCfg.ServerConfig, *serviceProvider, version, sysCfg.RunnerConfig.SyncWait, sysCfg.LimitsConfig.MaxCodeBytes, logger)
	if err := httpServer.Init(); err != nil {
		return err
	}
	httpServer.Start(context.Background())

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-httpServer.Errors():
	}
	logger.Info("Shutting down server...")

	// running jobs are terminated and recorded as failed before the listener
	// closes, which also releases requests waiting on them
	cancelEngine()
	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sysCfg.ServerConfig.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("successfully shutdown server")
	return serveErr
}
