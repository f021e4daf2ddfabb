package language

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
)

var _ IRegistry = (*Registry)(nil)

// Registry is an immutable language table. It is safe for concurrent use
// because nothing writes to it after construction.
type Registry struct {
	languages map[string]domain.LanguageConfig
}

// Defaults is the built-in language table.
func Defaults() []domain.LanguageConfig {
	return []domain.LanguageConfig{
		{
			ID:             "python",
			Name:           "Python 3",
			Extension:      ".py",
			Command:        []string{"python3", "-u", domain.FilePlaceholder},
			DefaultTimeout: 30 * time.Second,
			Image:          "python:3.11-slim",
		},
		{
			ID:             "javascript",
			Name:           "JavaScript (Node.js)",
			Extension:      ".js",
			Command:        []string{"node", domain.FilePlaceholder},
			DefaultTimeout: 30 * time.Second,
			Image:          "node:20-slim",

			UnboundedAddressSpace: true,
		},
		{
			ID:             "shell",
			Name:           "POSIX shell",
			Extension:      ".sh",
			Command:        []string{"sh", domain.FilePlaceholder},
			DefaultTimeout: 10 * time.Second,
			Image:          "busybox:1.36",
		},
	}
}

// NewRegistry validates and indexes the given configs.
func NewRegistry(configs []domain.LanguageConfig) (*Registry, error) {
	languages := make(map[string]domain.LanguageConfig, len(configs))
	for _, cfg := range configs {
		cfg.ID = strings.ToLower(strings.TrimSpace(cfg.ID))
		if err := validate(cfg); err != nil {
			return nil, err
		}
		if _, dup := languages[cfg.ID]; dup {
			return nil, fmt.Errorf("language %q registered twice", cfg.ID)
		}
		cfg.Command = append([]string(nil), cfg.Command...)
		languages[cfg.ID] = cfg
	}
	if len(languages) == 0 {
		return nil, fmt.Errorf("language registry is empty")
	}
	return &Registry{languages: languages}, nil
}

// NewDefaultRegistry returns the built-in table.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(Defaults())
	if err != nil {
		panic(err)
	}
	return r
}

type languagesFile struct {
	Languages []domain.LanguageConfig `yaml:"languages"`
}

// LoadFile builds a registry from a YAML document of the form
//
//	languages:
//	  - id: ruby
//	    extension: .rb
//	    command: [ruby, "{file}"]
//	    default_timeout: 20s
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read languages file: %w", err)
	}
	var doc languagesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse languages file %s: %w", path, err)
	}
	return NewRegistry(doc.Languages)
}

func validate(cfg domain.LanguageConfig) error {
	switch {
	case cfg.ID == "":
		return fmt.Errorf("language id is required")
	case len(cfg.Command) == 0:
		return fmt.Errorf("language %q has no command", cfg.ID)
	case !strings.HasPrefix(cfg.Extension, "."):
		return fmt.Errorf("language %q extension must start with a dot", cfg.ID)
	case cfg.DefaultTimeout <= 0:
		return fmt.Errorf("language %q default timeout must be positive", cfg.ID)
	}
	return nil
}

func (r *Registry) Resolve(id string) (domain.LanguageConfig, error) {
	cfg, ok := r.languages[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return domain.LanguageConfig{}, fmt.Errorf("%w: %q", errs.ErrUnsupportedLanguage, id)
	}
	return cfg, nil
}

func (r *Registry) List() []domain.LanguageConfig {
	out := make([]domain.LanguageConfig, 0, len(r.languages))
	for _, cfg := range r.languages {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
