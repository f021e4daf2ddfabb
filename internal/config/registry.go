package config

const (
	LanguagesBuiltin  = "builtin"
	LanguagesPostgres = "postgres"
)

type RegistryConfig struct {
	// LanguagesSource is builtin (defaults, or LanguagesFile when set) or postgres.
	LanguagesSource string
	LanguagesFile   string
	HintsFile       string
}

func NewRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		LanguagesSource: getEnv("LANGUAGES_SOURCE", LanguagesBuiltin),
		LanguagesFile:   getEnv("LANGUAGES_FILE", ""),
		HintsFile:       getEnv("HINTS_FILE", ""),
	}
}
