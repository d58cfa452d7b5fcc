package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(level LogLevel, asJSON bool) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(&Config{Level: level, Output: &buf, JSON: asJSON, TimeFormat: "15:04:05"}), &buf
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the logger stored in the context", func(t *testing.T) {
		l, _ := bufferLogger(InfoLevel, false)
		assert.Equal(t, l, FromContext(ContextWithLogger(t.Context(), l)))
	})

	t.Run("Should fall back to the default logger", func(t *testing.T) {
		cases := map[string]context.Context{
			"empty":      t.Context(),
			"wrong type": context.WithValue(t.Context(), LoggerCtxKey, "not a logger"),
			"nil logger": context.WithValue(t.Context(), LoggerCtxKey, Logger(nil)),
		}
		for name, ctx := range cases {
			l := FromContext(ctx)
			require.NotNil(t, l, name)
			assert.Equal(t, GetDefault(), l, name)
		}
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should map every level and default unknown ones to info", func(t *testing.T) {
		cases := map[LogLevel]charmlog.Level{
			DebugLevel:         charmlog.DebugLevel,
			InfoLevel:          charmlog.InfoLevel,
			WarnLevel:          charmlog.WarnLevel,
			ErrorLevel:         charmlog.ErrorLevel,
			LogLevel("chatty"): charmlog.InfoLevel,
		}
		for level, want := range cases {
			assert.Equal(t, want, level.ToCharmlogLevel(), string(level))
		}
		disabled := DisabledLevel
		assert.Greater(t, disabled.ToCharmlogLevel(), charmlog.FatalLevel)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write key/value pairs in text mode", func(t *testing.T) {
		l, buf := bufferLogger(InfoLevel, false)
		l.With("operation", "move").Info("storage operation finished", "path", "/data/new")
		out := buf.String()
		assert.Contains(t, out, "storage operation finished")
		assert.Contains(t, out, "operation")
		assert.Contains(t, out, "/data/new")
	})

	t.Run("Should emit one JSON object per record", func(t *testing.T) {
		l, buf := bufferLogger(InfoLevel, true)
		l.Warn("auto-clean skipped", "reason", "locked")
		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "auto-clean skipped", record["msg"])
		assert.Equal(t, "locked", record["reason"])
	})

	t.Run("Should discard records in a test binary when no config is given", func(t *testing.T) {
		require.True(t, IsTestEnvironment())
		assert.NotNil(t, NewLogger(nil))
		assert.Equal(t, DisabledLevel, TestConfig().Level)
	})
}

func TestLoggerLevels(t *testing.T) {
	t.Run("Should drop records below the configured level", func(t *testing.T) {
		l, buf := bufferLogger(WarnLevel, false)
		l.Debug("debug record")
		l.Info("info record")
		l.Warn("warn record")
		l.Error("error record")
		out := buf.String()
		assert.NotContains(t, out, "debug record")
		assert.NotContains(t, out, "info record")
		assert.Contains(t, out, "warn record")
		assert.Contains(t, out, "error record")
	})

	t.Run("Should write nothing when disabled", func(t *testing.T) {
		l, buf := bufferLogger(DisabledLevel, false)
		l.Error("error record")
		assert.Empty(t, buf.String())
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("Should install the configured logger as the default", func(t *testing.T) {
		l := SetupLogger("disabled", true, false)
		assert.Equal(t, l, FromContext(t.Context()))
	})

	t.Run("Should accept unknown level names", func(t *testing.T) {
		l := SetupLogger("verbose", false, false)
		assert.Equal(t, l, GetDefault())
		SetupLogger("disabled", false, false)
	})
}

func TestGetLoggerConfig(t *testing.T) {
	t.Run("Should read the log flags from the command", func(t *testing.T) {
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().String("log-level", "info", "")
		cmd.Flags().Bool("log-json", false, "")
		cmd.Flags().Bool("log-source", false, "")
		require.NoError(t, cmd.Flags().Parse([]string{"--log-level", "debug", "--log-json"}))

		level, asJSON, source, err := GetLoggerConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, "debug", level)
		assert.True(t, asJSON)
		assert.False(t, source)
	})

	t.Run("Should fail when a flag is missing", func(t *testing.T) {
		_, _, _, err := GetLoggerConfig(&cobra.Command{Use: "test"})
		assert.ErrorContains(t, err, "log-level")
	})
}
