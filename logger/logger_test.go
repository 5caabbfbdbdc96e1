package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldHelpers(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := (&zapLogger{logger: zap.New(core)}).With(String("component", "runner"))

	log.Info("Processed",
		Int("count", 3),
		Int64("request_id", 7),
		Duration("wait", 2*time.Second),
		Strings("urls", []string{"a", "b"}),
		Error(errors.New("timeout")),
	)

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "runner", fields["component"])
	assert.Equal(t, int64(3), fields["count"])
	assert.Equal(t, int64(7), fields["request_id"])
	assert.Equal(t, 2*time.Second, fields["wait"])
	assert.Equal(t, []interface{}{"a", "b"}, fields["urls"])
	assert.Equal(t, "timeout", fields["error"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Debug("discarded", String("k", "v"))
	assert.NoError(t, log.Sync())
}
