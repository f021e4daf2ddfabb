package domain

// Metric keys reported in Verdict.Metrics.
const (
	MetricExecutionTime   = "execution_time"
	MetricExitCode        = "exit_code"
	MetricMemoryUsed      = "memory_used"
	MetricCPUUsed         = "cpu_used"
	MetricSignal          = "signal"
	MetricOutputTruncated = "output_truncated"
)

// Verdict is the structured outcome of a single job.
type Verdict struct {
	Passed  bool                   `json:"passed"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
	Hints   []string               `json:"hints,omitempty"`
	Logs    string                 `json:"logs,omitempty"`
}

func (v *Verdict) Clone() *Verdict {
	if v == nil {
		return nil
	}
	c := &Verdict{Passed: v.Passed, Logs: v.Logs}
	if v.Metrics != nil {
		c.Metrics = make(map[string]interface{}, len(v.Metrics))
		for k, val := range v.Metrics {
			c.Metrics[k] = val
		}
	}
	if v.Hints != nil {
		c.Hints = append([]string(nil), v.Hints...)
	}
	return c
}
