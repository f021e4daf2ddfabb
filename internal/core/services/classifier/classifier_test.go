package classifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/domain"
)

func TestClassifyPass(t *testing.T) {
	v := NewClassifier().Classify("python", domain.Outcome{
		State:   domain.StateCompleted,
		Stdout:  "2\n",
		Elapsed: 40 * time.Millisecond,
	}, 5*time.Second)

	assert.True(t, v.Passed)
	assert.Empty(t, v.Hints)
	assert.Equal(t, "2\n", v.Logs)
	assert.Equal(t, 0, v.Metrics[domain.MetricExitCode])
	assert.Equal(t, 0.04, v.Metrics[domain.MetricExecutionTime])
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name     string
		language string
		outcome  domain.Outcome
		hints    []string
	}{
		{
			name:     "timeout",
			language: "python",
			outcome:  domain.Outcome{State: domain.StateTimedOut, Signal: "killed", Elapsed: 2100 * time.Millisecond},
			hints:    []string{HintTimeout},
		},
		{
			name:     "resource",
			language: "python",
			outcome:  domain.Outcome{State: domain.StateResourceExceeded, ExitCode: 137},
			hints:    []string{HintResource},
		},
		{
			name:     "python syntax",
			language: "python",
			outcome: domain.Outcome{State: domain.StateCompleted, ExitCode: 1,
				Stderr: "  File \"main.py\", line 1\n    print(\n         ^\nSyntaxError: '(' was never closed\n"},
			hints: []string{"Check your syntax - there might be a syntax error in your code"},
		},
		{
			name:     "python name and import",
			language: "python",
			outcome: domain.Outcome{State: domain.StateCompleted, ExitCode: 1,
				Stderr: "ModuleNotFoundError: No module named 'numpy'\nNameError: name 'x' is not defined"},
			hints: []string{
				"Make sure all variables are defined before use",
				"Make sure you're using only standard library modules",
			},
		},
		{
			name:     "unknown error text",
			language: "python",
			outcome:  domain.Outcome{State: domain.StateCompleted, ExitCode: 3, Stderr: "weird"},
			hints:    []string{HintGeneric},
		},
		{
			name:     "rules are per language",
			language: "shell",
			outcome:  domain.Outcome{State: domain.StateCompleted, ExitCode: 1, Stderr: "NameError"},
			hints:    []string{HintGeneric},
		},
		{
			name:     "crash",
			language: "shell",
			outcome:  domain.Outcome{State: domain.StateCrashed, ExitCode: 139, Signal: "segmentation fault"},
			hints:    []string{"process was killed by signal segmentation fault"},
		},
	}

	c := NewClassifier()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := c.Classify(tc.language, tc.outcome, 2*time.Second)
			assert.False(t, v.Passed)
			assert.Equal(t, tc.hints, v.Hints)
		})
	}
}

func TestClassifyTimeoutReportsBudget(t *testing.T) {
	v := NewClassifier().Classify("python", domain.Outcome{State: domain.StateTimedOut, Elapsed: 2300 * time.Millisecond}, 2*time.Second)
	assert.Equal(t, 2.0, v.Metrics[domain.MetricExecutionTime])
}

func TestClassifyNonZeroExitWithoutStderrFails(t *testing.T) {
	v := NewClassifier().Classify("shell", domain.Outcome{State: domain.StateCompleted, ExitCode: 2}, time.Second)
	assert.False(t, v.Passed)
	assert.Equal(t, []string{HintGeneric}, v.Hints)
}

func TestFormatLogs(t *testing.T) {
	assert.Equal(t, "out", FormatLogs("out", ""))
	assert.Equal(t, "STDOUT:\nout\n\nSTDERR:\nerr", FormatLogs("out", "err"))
}

func TestMetricsOptionalFields(t *testing.T) {
	v := NewClassifier().Classify("shell", domain.Outcome{
		State:           domain.StateCompleted,
		MemoryBytes:     1 << 20,
		CPUTime:         1500 * time.Millisecond,
		OutputTruncated: true,
	}, time.Second)

	assert.Equal(t, int64(1<<20), v.Metrics[domain.MetricMemoryUsed])
	assert.Equal(t, 1.5, v.Metrics[domain.MetricCPUUsed])
	assert.Equal(t, true, v.Metrics[domain.MetricOutputTruncated])
	_, hasSignal := v.Metrics[domain.MetricSignal]
	assert.False(t, hasSignal)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hints.yaml")
	doc := `
hints:
  - language: "*"
    pattern: 'Segmentation'
    hint: Memory access went out of bounds
  - language: ruby
    pattern: 'NoMethodError'
    hint: Check the method name
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	c := NewClassifier(rules...)
	v := c.Classify("python", domain.Outcome{State: domain.StateCompleted, ExitCode: 1, Stderr: "Segmentation fault"}, time.Second)
	assert.Equal(t, []string{"Memory access went out of bounds"}, v.Hints)

	v = c.Classify("ruby", domain.Outcome{State: domain.StateCompleted, ExitCode: 1, Stderr: "NoMethodError: undefined method"}, time.Second)
	assert.Equal(t, []string{"Check the method name"}, v.Hints)
}

func TestLoadRulesRejectsBadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hints.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hints:\n  - language: x\n    pattern: '('\n    hint: y\n"), 0o600))
	_, err := LoadRules(path)
	assert.Error(t, err)
}
