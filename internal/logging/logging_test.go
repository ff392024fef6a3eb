package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWarningsStderrPolicyTristate(t *testing.T) {
	t.Setenv("MI_STATE_WARNINGS_STDERR", "")
	os.Unsetenv("MI_STATE_WARNINGS_STDERR")
	if got := WarningsStderrPolicy(); got != OnlyIfNoSink {
		t.Fatalf("expected OnlyIfNoSink when unset, got %v", got)
	}

	t.Setenv("MI_STATE_WARNINGS_STDERR", "true")
	if got := WarningsStderrPolicy(); got != Always {
		t.Fatalf("expected Always, got %v", got)
	}

	t.Setenv("MI_STATE_WARNINGS_STDERR", "false")
	if got := WarningsStderrPolicy(); got != Never {
		t.Fatalf("expected Never, got %v", got)
	}
}

func TestSliceSinkCollectsWarnings(t *testing.T) {
	sink := NewSliceSink()
	Emit(sink, Never, "quarantined corrupt state file", map[string]any{"path": "/x/y.json"})
	if len(sink.Warnings) != 1 || sink.Warnings[0].Msg != "quarantined corrupt state file" {
		t.Fatalf("expected one collected warning, got %+v", sink.Warnings)
	}
}

func TestNewRotatingFileLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mindctl.log")

	logger, writer := NewRotatingFileLogger(RotatingFileOptions{Path: path})
	defer writer.Close()

	logger.Info("starting up", "component", "cli")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty log output")
	}
}
