package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ankispeech/pkg/config"
	"ankispeech/pkg/tts"
)

// RequestLogger is the logger instance for HTTP requests.
var RequestLogger *slog.Logger

var (
	runLogPath string
	runLogMu   sync.Mutex
)

// Init initializes the logging system based on configuration.
// It returns a cleanup function to close log files.
func Init(cfg *config.LogConfig) (func(), error) {
	// Each run starts with fresh logs; the previous run is kept as .old.
	rotatePaths(cfg.App.Path, cfg.Requests.Path, cfg.TTS.Path)

	tts.SetLogPath(cfg.TTS.Path)
	SetRunLogPath(cfg.Runs.Path)

	var closers []io.Closer

	appHandler, file1, err := setupHandler(cfg.App.Path, cfg.App.Level, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app logger: %w", err)
	}
	if file1 != nil {
		closers = append(closers, file1)
	}
	slog.SetDefault(slog.New(appHandler))

	requestHandler, file2, err := setupHandler(cfg.Requests.Path, cfg.Requests.Level, false)
	if err != nil {
		if file1 != nil {
			file1.Close()
		}
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}
	if file2 != nil {
		closers = append(closers, file2)
	}
	RequestLogger = slog.New(requestHandler)

	return func() {
		for _, c := range closers {
			c.Close()
		}
	}, nil
}

// ParseLevel maps a level name to a slog level. Unknown names mean INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupHandler(path, levelStr string, stdout bool) (handler slog.Handler, file *os.File, err error) {
	level := ParseLevel(levelStr)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}

	file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	fileHandler := slog.NewTextHandler(file, opts)

	if !stdout {
		return fileHandler, file, nil
	}

	// Console stays at INFO or above so per-card debug noise only reaches the file.
	consoleHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: max(level, slog.LevelInfo),
	})

	return &multiHandler{handlers: []slog.Handler{fileHandler, consoleHandler}}, file, nil
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// rotatePaths renames existing log files to .old, replacing any previous .old.
func rotatePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			oldPath := p + ".old"
			_ = os.Remove(oldPath)
			_ = os.Rename(p, oldPath)
		}
	}
}

// SetRunLogPath configures the path for the run history file.
func SetRunLogPath(path string) {
	runLogMu.Lock()
	defer runLogMu.Unlock()
	runLogPath = path
}

// RunEvent is one line of the run history.
type RunEvent struct {
	Time    time.Time
	Command string
	Query   string
	Summary string
}

// LogRun appends a finished run to the run history file. Unlike the other
// logs it is never rotated.
func LogRun(event RunEvent) {
	runLogMu.Lock()
	defer runLogMu.Unlock()

	if runLogPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(runLogPath), 0o755); err != nil {
		slog.Error("failed to create run log directory", "error", err)
		return
	}

	f, err := os.OpenFile(runLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("failed to open run log", "error", err)
		return
	}
	defer f.Close()

	// Format: [2006-01-02 15:04:05] [command] query - summary
	ts := event.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format("2006-01-02 15:04:05"), event.Command, event.Query)
	if event.Summary != "" {
		line += " - " + event.Summary
	}
	line += "\n"

	if _, err := f.WriteString(line); err != nil {
		slog.Error("failed to write run log", "error", err)
	}
}
