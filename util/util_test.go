package util

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerShortensErrorKey(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, slog.LevelInfo).Error("failed", "error", errors.New("boom"))
	if !strings.Contains(buf.String(), "err=boom") {
		t.Fatal(buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	} {
		if got := ParseLevel(s); got != want {
			t.Errorf("%q: got %v", s, got)
		}
	}
}
