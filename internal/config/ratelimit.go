package config

type RateLimitConfig struct {
	GlobalRPS  float64
	PerIPRPS   float64
	PerIPBurst int
}

func NewRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		GlobalRPS:  getFloatEnv("RATE_LIMIT_RPS", 50),
		PerIPRPS:   getFloatEnv("RATE_LIMIT_PER_IP_RPS", 5),
		PerIPBurst: getIntEnv("RATE_LIMIT_PER_IP_BURST", 10),
	}
}
