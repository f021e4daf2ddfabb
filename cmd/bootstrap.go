package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"gitlab.com/coderunner.net/internal/adapter/logging"
	"gitlab.com/coderunner.net/internal/adapter/memory/jobstore"
	"gitlab.com/coderunner.net/internal/adapter/postgres/jobrepository"
	"gitlab.com/coderunner.net/internal/adapter/postgres/languagecatalog"
	redisjobstore "gitlab.com/coderunner.net/internal/adapter/redis/jobstore"
	"gitlab.com/coderunner.net/internal/adapter/sandbox/docker"
	"gitlab.com/coderunner.net/internal/adapter/sandbox/process"
	"gitlab.com/coderunner.net/internal/config"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/core/services/classifier"
	"gitlab.com/coderunner.net/internal/core/services/language"
	logger2 "gitlab.com/coderunner.net/internal/global/logger"
)

type closer func() error

func loadConfig() (*config.AppConfig, *logging.ZapLogger, error) {
	sysCfg := config.NewSystemConfig()
	if err := sysCfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if sysCfg.DebugMode {
		logger2.UseDebug()
	}
	return sysCfg, logger2.Logger, nil
}

func setupRegistry(ctx context.Context, cfg *config.AppConfig, logger *logging.ZapLogger) (*language.Registry, error) {
	switch {
	case cfg.RegistryConfig.LanguagesSource == config.LanguagesPostgres:
		db, err := jobrepository.Connect(ctx, cfg.PostgresConfig.Url)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		catalog := languagecatalog.NewRepository(db, logger)
		if err := catalog.EnsureSchema(ctx, language.Defaults()); err != nil {
			return nil, err
		}
		langs, err := catalog.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		return language.NewRegistry(langs)
	case cfg.RegistryConfig.LanguagesFile != "":
		return language.LoadFile(cfg.RegistryConfig.LanguagesFile)
	default:
		return language.NewDefaultRegistry(), nil
	}
}

func setupClassifier(cfg *config.RegistryConfig) (*classifier.Classifier, error) {
	if cfg.HintsFile == "" {
		return classifier.NewClassifier(), nil
	}
	rules, err := classifier.LoadRules(cfg.HintsFile)
	if err != nil {
		return nil, err
	}
	return classifier.NewClassifier(rules...), nil
}

// setupLauncher builds the configured sandbox backend. The docker backend
// pulls missing language images before returning.
func setupLauncher(ctx context.Context, cfg *config.RunnerConfig, registry *language.Registry, logger *logging.ZapLogger) (secondary.Launcher, closer, error) {
	switch cfg.Backend {
	case config.BackendDocker:
		cli, err := docker.NewClient()
		if err != nil {
			return nil, nil, fmt.Errorf("docker client: %w", err)
		}
		launcher := docker.NewLauncher(cli, docker.Options{
			ScratchRoot: cfg.ScratchDir,
			KillGrace:   cfg.KillGrace,
		}, logger)
		if err := launcher.EnsureImages(ctx, registry.List()); err != nil {
			_ = cli.Close()
			return nil, nil, err
		}
		return launcher, cli.Close, nil
	default:
		launcher := process.NewLauncher(process.Options{
			ScratchRoot:    cfg.ScratchDir,
			CgroupRoot:     cfg.CgroupRoot,
			IsolateNetwork: cfg.IsolateNetwork,
			KillGrace:      cfg.KillGrace,
		}, logger)
		return launcher, func() error { return nil }, nil
	}
}

// setupJobStore returns the job registry and, for stores without native
// expiry, the purger the janitor sweeps.
func setupJobStore(ctx context.Context, cfg *config.AppConfig, logger *logging.ZapLogger) (secondary.JobRepository, secondary.JobPurger, closer, error) {
	switch cfg.StoreConfig.Backend {
	case config.StoreRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Url,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisjobstore.NewJobRepository(redisClient, cfg.StoreConfig.JobTTL, logger), nil, redisClient.Close, nil
	case config.StorePostgres:
		db, err := jobrepository.Connect(ctx, cfg.PostgresConfig.Url)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := jobrepository.NewJobRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return repo, repo, db.Close, nil
	default:
		store := jobstore.NewStore()
		return store, store, func() error { return nil }, nil
	}
}
