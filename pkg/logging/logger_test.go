package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ankispeech/pkg/config"
	"ankispeech/pkg/tts"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	appLog := filepath.Join(tempDir, "app.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	ttsLog := filepath.Join(tempDir, "tts.log")

	// A previous run's log must be rotated away.
	if err := os.WriteFile(appLog, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		App:      config.LogSettings{Path: appLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		TTS:      config.LogSettings{Path: ttsLog},
		Runs:     config.LogSettings{Path: filepath.Join(tempDir, "runs.log")},
	}

	prev := slog.Default()
	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		cleanup()
		slog.SetDefault(prev)
		tts.SetLogPath("")
		SetRunLogPath("")
	}()

	if _, err := os.Stat(appLog); os.IsNotExist(err) {
		t.Error("App log file not created")
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	old, err := os.ReadFile(appLog + ".old")
	if err != nil || string(old) != "previous run\n" {
		t.Errorf("previous log not rotated: %q, %v", old, err)
	}
	if RequestLogger == nil {
		t.Error("RequestLogger was not initialized")
	}

	tts.Log("TEST", "Charon", "hello", 200, nil)
	if _, err := os.Stat(ttsLog); err != nil {
		t.Errorf("tts log path not applied: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.log")
	SetRunLogPath(path)
	defer SetRunLogPath("")

	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	LogRun(RunEvent{Time: ts, Command: "process", Query: `deck:"Words"`, Summary: "total=3 processed=1"})
	LogRun(RunEvent{Command: "process", Query: `deck:"Other"`})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	want := `[2024-03-01 10:00:00] [process] deck:"Words" - total=3 processed=1`
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
	if strings.Contains(lines[1], " - ") {
		t.Errorf("empty summary should be omitted: %q", lines[1])
	}
}

func TestLogRun_Disabled(t *testing.T) {
	SetRunLogPath("")
	LogRun(RunEvent{Command: "process"})
}

func TestTrace(t *testing.T) {
	EnableTrace = false
	Trace("not emitted")
	EnableTrace = true
	defer func() { EnableTrace = false }()
	Trace("emitted", "key", "value")
}
