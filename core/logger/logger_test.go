package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wsrelay/core/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithJSONFormatter(),
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("service", "wsrelay")),
		)

		log.Info("subscriber connected", logger.Component("relay.session"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "subscriber connected", record["msg"])
		assert.Equal(t, "relay.session", record["component"])
		assert.Equal(t, "wsrelay", record["service"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithLevel(slog.LevelWarn), logger.WithOutput(&buf))

		log.Info("hidden")
		assert.Empty(t, buf.String())

		log.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("development enables debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithDevelopment("wsrelay"), logger.WithOutput(&buf))

		assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))
		log.Debug("frame")
		assert.Contains(t, buf.String(), "app=wsrelay")
	})

	t.Run("production is json at info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.ForEnv("production", "wsrelay"), logger.WithOutput(&buf))

		assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
		log.Info("ready")
		assert.Contains(t, buf.String(), `"env":"production"`)
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(in), "input %q", in)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		logger.Discard().Error("nothing", logger.Error(assert.AnError))
	})
}
