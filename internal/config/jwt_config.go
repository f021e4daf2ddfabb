package config

type JwtConfig struct {
	// Secret is the HMAC key shared with calling services. Empty disables the check.
	Secret string
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret: getEnv("JWT_SECRET", ""),
	}
}
