package execution

import (
	"regexp"
	"strings"
	"time"

	"gitlab.com/coderunner.net/internal/config"
	"gitlab.com/coderunner.net/internal/core/services/language"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
)

// DefaultLanguage is used when a request names none.
const DefaultLanguage = "python"

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// Validate checks req against the registry and limits and fills in defaults.
// It allocates nothing.
func Validate(req SubmitRequest, registry language.IRegistry, limits *config.LimitsConfig) (domain.ExecutionRequest, domain.LanguageConfig, error) {
	if req.JobID == "" {
		return domain.ExecutionRequest{}, domain.LanguageConfig{}, errs.Invalid("job_id", "is required")
	}
	if !jobIDPattern.MatchString(req.JobID) {
		return domain.ExecutionRequest{}, domain.LanguageConfig{}, errs.Invalid("job_id", "must be 1-128 characters of [A-Za-z0-9._:-]")
	}
	if len(req.Code) > limits.MaxCodeBytes {
		return domain.ExecutionRequest{}, domain.LanguageConfig{}, errs.Invalid("code", "exceeds %d bytes", limits.MaxCodeBytes)
	}

	langID := req.Language
	if strings.TrimSpace(langID) == "" {
		langID = DefaultLanguage
	}
	lang, err := registry.Resolve(langID)
	if err != nil {
		return domain.ExecutionRequest{}, domain.LanguageConfig{}, err
	}

	out := domain.ExecutionRequest{
		JobID:    req.JobID,
		Code:     req.Code,
		Language: lang.ID,
		Limits: domain.Limits{
			Timeout:  lang.DefaultTimeout,
			MemoryMB: limits.DefaultMemoryMB,
			CPU:      limits.DefaultCPU,
		},
	}
	if out.Limits.Timeout > limits.MaxTimeout {
		out.Limits.Timeout = limits.MaxTimeout
	}

	if req.Timeout != nil {
		timeout := time.Duration(*req.Timeout * float64(time.Second))
		if timeout <= 0 || timeout > limits.MaxTimeout {
			return domain.ExecutionRequest{}, domain.LanguageConfig{}, errs.Invalid("timeout", "must be in (0, %g] seconds", limits.MaxTimeout.Seconds())
		}
		out.Limits.Timeout = timeout
	}
	if req.MemoryLimit != nil {
		if *req.MemoryLimit <= 0 || *req.MemoryLimit > limits.MaxMemoryMB {
			return domain.ExecutionRequest{}, domain.LanguageConfig{}, errs.Invalid("memory_limit", "must be in (0, %d] MB", limits.MaxMemoryMB)
		}
		out.Limits.MemoryMB = *req.MemoryLimit
	}
	if req.CPULimit != nil {
		if *req.CPULimit <= 0 || *req.CPULimit > limits.MaxCPU {
			return domain.ExecutionRequest{}, domain.LanguageConfig{}, errs.Invalid("cpu_limit", "must be in (0, %g] cores", limits.MaxCPU)
		}
		out.Limits.CPU = *req.CPULimit
	}
	return out, lang, nil
}
