package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"error":   slog.LevelError,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"":        slog.LevelDebug,
		"verbose": slog.LevelDebug,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestNewWithWriterFormats(t *testing.T) {
	var text, js bytes.Buffer

	NewWithWriter(&text, "info", "text").Info("hello", "component", "test")
	NewWithWriter(&js, "info", "json").Info("hello", "component", "test")
	NewWithWriter(&text, "warn", "text").Info("suppressed")

	assert.Contains(t, text.String(), "msg=hello")
	assert.NotContains(t, text.String(), "suppressed")
	assert.True(t, strings.HasPrefix(js.String(), "{"))
	assert.Contains(t, js.String(), `"component":"test"`)
}
