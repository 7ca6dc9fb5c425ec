package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/verte-zerg/keydrill/internal/config"
)

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := ParseLevel("bogus").Level(); got != zap.InfoLevel {
		t.Fatalf("expected info level, got %v", got)
	}
	if got := ParseLevel("debug").Level(); got != zap.DebugLevel {
		t.Fatalf("expected debug level, got %v", got)
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "keydrill.log")
	logger, err := New(config.LogConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("session started", zap.String("profile", "beginner"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"session started"`) || !strings.Contains(out, `"profile":"beginner"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected non-nil logger")
	}
}
