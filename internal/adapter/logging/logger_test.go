package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesKeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &ZapLogger{logger: zap.New(core).Sugar()}

	l.With("jobId", "job-1").Info("Job completed", "passed", true)
	l.Debug("Draining output")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "Job completed", entries[0].Message)
		ctx := entries[0].ContextMap()
		assert.Equal(t, "job-1", ctx["jobId"])
		assert.Equal(t, true, ctx["passed"])
		assert.Equal(t, zap.DebugLevel, entries[1].Level)
	}
}
