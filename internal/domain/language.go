package domain

import (
	"strings"
	"time"
)

// FilePlaceholder is replaced by the source path in a LanguageConfig command.
const FilePlaceholder = "{file}"

// LanguageConfig describes how to run source files of one language.
// It is read-only once registered and shared by every job of that language.
type LanguageConfig struct {
	ID             string        `yaml:"id" json:"id"`
	Name           string        `yaml:"name" json:"name"`
	Extension      string        `yaml:"extension" json:"extension"`
	Command        []string      `yaml:"command" json:"-"`
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`
	Image          string        `yaml:"image" json:"-"`

	// UnboundedAddressSpace skips the virtual memory rlimit for runtimes that
	// reserve large address ranges up front (V8). Memory is still bounded by
	// the cgroup or container when one is configured.
	UnboundedAddressSpace bool `yaml:"unbounded_address_space" json:"-"`
}

// Argv renders the command for the given source path.
func (c LanguageConfig) Argv(sourcePath string) []string {
	argv := make([]string, 0, len(c.Command)+1)
	substituted := false
	for _, arg := range c.Command {
		if strings.Contains(arg, FilePlaceholder) {
			arg = strings.ReplaceAll(arg, FilePlaceholder, sourcePath)
			substituted = true
		}
		argv = append(argv, arg)
	}
	if !substituted {
		argv = append(argv, sourcePath)
	}
	return argv
}

// SourceFileName is the name of the materialized source file.
func (c LanguageConfig) SourceFileName() string {
	return "main" + c.Extension
}
