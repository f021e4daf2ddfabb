package config

import (
	"errors"
	"fmt"
)

type AppConfig struct {
	DebugMode       bool
	ServerConfig    *ServerConfig
	RunnerConfig    *RunnerConfig
	LimitsConfig    *LimitsConfig
	StoreConfig     *StoreConfig
	RedisConfig     *RedisConfig
	PostgresConfig  *PostgresConfig
	JwtConfig       *JwtConfig
	RateLimitConfig *RateLimitConfig
	RegistryConfig  *RegistryConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:       getBoolEnv("DEBUG_MODE", false),
		ServerConfig:    NewServerConfig(),
		RunnerConfig:    NewRunnerConfig(),
		LimitsConfig:    NewLimitsConfig(),
		StoreConfig:     NewStoreConfig(),
		RedisConfig:     NewRedisConfig(),
		PostgresConfig:  NewPostgresConfig(),
		JwtConfig:       NewJwtConfig(),
		RateLimitConfig: NewRateLimitConfig(),
		RegistryConfig:  NewRegistryConfig(),
	}
}

// Validate ensures the config is usable.
func (c *AppConfig) Validate() error {
	var problems []error
	if c.ServerConfig.Port <= 0 {
		problems = append(problems, fmt.Errorf("HTTP_PORT must be > 0"))
	}
	problems = append(problems, c.RunnerConfig.validate()...)
	problems = append(problems, c.LimitsConfig.validate()...)
	switch c.StoreConfig.Backend {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		problems = append(problems, fmt.Errorf("unknown JOB_STORE %q", c.StoreConfig.Backend))
	}
	if c.StoreConfig.Backend == StorePostgres && c.PostgresConfig.Url == "" {
		problems = append(problems, fmt.Errorf("DATABASE_URL is required for the postgres store"))
	}
	switch c.RegistryConfig.LanguagesSource {
	case LanguagesBuiltin:
	case LanguagesPostgres:
		if c.PostgresConfig.Url == "" {
			problems = append(problems, fmt.Errorf("DATABASE_URL is required for LANGUAGES_SOURCE=postgres"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown LANGUAGES_SOURCE %q", c.RegistryConfig.LanguagesSource))
	}
	return errors.Join(problems...)
}
