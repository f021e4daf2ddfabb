package language

import "gitlab.com/coderunner.net/internal/domain"

// IRegistry resolves language identifiers to their runtime configuration.
type IRegistry interface {
	// Resolve returns the config for id or an error wrapping errs.ErrUnsupportedLanguage
	Resolve(id string) (domain.LanguageConfig, error)

	// List returns every registered language ordered by id
	List() []domain.LanguageConfig
}
