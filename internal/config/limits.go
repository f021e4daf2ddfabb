package config

import (
	"fmt"
	"time"
)

// LimitsConfig holds request defaults and the ceilings a request may ask for.
type LimitsConfig struct {
	DefaultTimeout  time.Duration
	MaxTimeout      time.Duration
	DefaultMemoryMB int
	MaxMemoryMB     int
	DefaultCPU      float64
	MaxCPU          float64
	MaxCodeBytes    int
}

func NewLimitsConfig() *LimitsConfig {
	return &LimitsConfig{
		DefaultTimeout:  getSecondsEnv("LIMIT_DEFAULT_TIMEOUT_SEC", 30),
		MaxTimeout:      getSecondsEnv("LIMIT_MAX_TIMEOUT_SEC", 120),
		DefaultMemoryMB: getIntEnv("LIMIT_DEFAULT_MEMORY_MB", 256),
		MaxMemoryMB:     getIntEnv("LIMIT_MAX_MEMORY_MB", 2048),
		DefaultCPU:      getFloatEnv("LIMIT_DEFAULT_CPU", 1.0),
		MaxCPU:          getFloatEnv("LIMIT_MAX_CPU", 4),
		MaxCodeBytes:    getIntEnv("LIMIT_MAX_CODE_BYTES", 64*1024),
	}
}

func (c *LimitsConfig) validate() []error {
	var problems []error
	if c.DefaultTimeout <= 0 || c.DefaultTimeout > c.MaxTimeout {
		problems = append(problems, fmt.Errorf("LIMIT_DEFAULT_TIMEOUT_SEC must be in (0, LIMIT_MAX_TIMEOUT_SEC]"))
	}
	if c.DefaultMemoryMB <= 0 || c.DefaultMemoryMB > c.MaxMemoryMB {
		problems = append(problems, fmt.Errorf("LIMIT_DEFAULT_MEMORY_MB must be in (0, LIMIT_MAX_MEMORY_MB]"))
	}
	if c.DefaultCPU <= 0 || c.DefaultCPU > c.MaxCPU {
		problems = append(problems, fmt.Errorf("LIMIT_DEFAULT_CPU must be in (0, LIMIT_MAX_CPU]"))
	}
	if c.MaxCodeBytes <= 0 {
		problems = append(problems, fmt.Errorf("LIMIT_MAX_CODE_BYTES must be > 0"))
	}
	return problems
}
