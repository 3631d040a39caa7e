package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewFallsBackToInfo(t *testing.T) {
	logger, err := New(Options{Level: "not-a-level", Format: "console"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be disabled at info level")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be enabled")
	}
}

func TestNewHonoursEnvLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	logger, err := New(Options{})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level from LOG_LEVEL")
	}
}
