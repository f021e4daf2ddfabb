package config

import "time"

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getIntEnv("HTTP_PORT", 8000),
		ReadTimeout:     getSecondsEnv("HTTP_READ_TIMEOUT_SEC", 15),
		WriteTimeout:    getSecondsEnv("HTTP_WRITE_TIMEOUT_SEC", 150),
		ShutdownTimeout: getSecondsEnv("SHUTDOWN_TIMEOUT_SEC", 30),
	}
}
