package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/dozo/internal/config"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	tests := []struct {
		name       string
		level      string
		logDebug   bool
		logInfo    bool
		wantsWarn  bool
	}{
		{name: "debug", level: "debug", logDebug: true, logInfo: true},
		{name: "info", level: "info", logDebug: false, logInfo: true},
		{name: "error", level: "ERROR", logDebug: false, logInfo: false},
		{name: "invalid falls back to info", level: "chatty", logDebug: false, logInfo: true, wantsWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &logger.TestLogBuffer{}
			l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: tt.level}, buf)
			require.NoError(t, err)
			require.NotNil(t, l)

			l.Debug("debug message")
			l.Info("info message")

			assert.Equal(t, tt.logDebug, contains(buf, "debug message"))
			assert.Equal(t, tt.logInfo, contains(buf, "info message"))
			if tt.wantsWarn {
				logger.AssertLogContains(t, buf, "invalid log level configured")
			}
			logger.AssertLogField(t, buf, "service", "dozo")
			assert.Same(t, l, slog.Default())
		})
	}
}

func TestContextLogger(t *testing.T) {
	buf, l := logger.NewTestLogger(t)
	ctx := logger.WithLogger(context.Background(), l.With("trace_id", "abc"))

	logger.FromContext(ctx).Info("hello")
	logger.AssertLogField(t, buf, "trace_id", "abc")

	assert.Nil(t, logger.FromContext(context.Background()))
	assert.Same(t, l, logger.FromContextOrDefault(context.Background(), l))
	assert.Same(t, slog.Default(), logger.FromContextOrDefault(context.Background(), nil))
}

func contains(buf *logger.TestLogBuffer, s string) bool {
	entries, err := buf.GetLogEntries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e["msg"] == s {
			return true
		}
	}
	return false
}
