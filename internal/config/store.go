package config

import "time"

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type StoreConfig struct {
	Backend string
	JobTTL  time.Duration
}

func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend: getEnv("JOB_STORE", StoreMemory),
		JobTTL:  time.Duration(getIntEnv("JOB_TTL_HOURS", 24)) * time.Hour,
	}
}
