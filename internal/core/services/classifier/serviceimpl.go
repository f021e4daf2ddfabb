package classifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gitlab.com/coderunner.net/internal/domain"
)

var _ IClassifier = (*Classifier)(nil)

type Classifier struct {
	rules []Rule
}

// NewClassifier uses the built-in rules followed by extra.
func NewClassifier(extra ...Rule) *Classifier {
	rules := append(DefaultRules(), extra...)
	return &Classifier{rules: rules}
}

func (c *Classifier) Classify(language string, outcome domain.Outcome, timeout time.Duration) *domain.Verdict {
	verdict := &domain.Verdict{
		Metrics: metrics(outcome),
		Logs:    FormatLogs(outcome.Stdout, outcome.Stderr),
	}

	switch outcome.State {
	case domain.StateTimedOut:
		verdict.Metrics[domain.MetricExecutionTime] = seconds(timeout)
		verdict.Hints = []string{HintTimeout}
	case domain.StateResourceExceeded:
		verdict.Hints = []string{HintResource}
	case domain.StateCrashed:
		verdict.Hints = append([]string{fmt.Sprintf("process was killed by signal %s", outcome.Signal)},
			c.match(language, outcome.Stderr)...)
	default:
		if outcome.ExitCode == 0 {
			verdict.Passed = true
			return verdict
		}
		verdict.Hints = c.match(language, outcome.Stderr)
		if len(verdict.Hints) == 0 {
			verdict.Hints = []string{HintGeneric}
		}
	}
	return verdict
}

// match returns one hint per matching rule, in table order, without duplicates.
func (c *Classifier) match(language, stderr string) []string {
	if stderr == "" {
		return nil
	}
	var hints []string
	seen := map[string]bool{}
	for _, r := range c.rules {
		if r.Language != AnyLanguage && r.Language != language {
			continue
		}
		if seen[r.Hint] || !r.Pattern.MatchString(stderr) {
			continue
		}
		seen[r.Hint] = true
		hints = append(hints, r.Hint)
	}
	return hints
}

// FormatLogs returns stdout alone, or stdout followed by a labeled stderr block.
func FormatLogs(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	var b strings.Builder
	b.Grow(len(stdout) + len(stderr) + 20)
	b.WriteString("STDOUT:\n")
	b.WriteString(stdout)
	b.WriteString("\n\nSTDERR:\n")
	b.WriteString(stderr)
	return b.String()
}

func metrics(o domain.Outcome) map[string]interface{} {
	m := map[string]interface{}{
		domain.MetricExecutionTime: seconds(o.Elapsed),
		domain.MetricExitCode:      o.ExitCode,
	}
	if o.MemoryBytes > 0 {
		m[domain.MetricMemoryUsed] = o.MemoryBytes
	}
	if o.CPUTime > 0 {
		m[domain.MetricCPUUsed] = seconds(o.CPUTime)
	}
	if o.Signal != "" {
		m[domain.MetricSignal] = o.Signal
	}
	if o.OutputTruncated {
		m[domain.MetricOutputTruncated] = true
	}
	return m
}

// seconds rounds to the millisecond.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
