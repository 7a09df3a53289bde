package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	logPath = "logs/tts.log"
	mu      sync.RWMutex
)

// SetLogPath configures the path for the TTS log file.
func SetLogPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	logPath = path
}

// Log appends one backend request to the TTS history file. Failures to write
// the history are ignored.
func Log(provider, voice, prompt string, status int, err error) {
	mu.RLock()
	path := logPath
	mu.RUnlock()
	if path == "" {
		return
	}

	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, fileErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if fileErr != nil {
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	statusStr := fmt.Sprintf("%d", status)
	if err != nil {
		statusStr = fmt.Sprintf("ERROR(%v)", err)
	}

	// Format: [TIMESTAMP] [PROVIDER] VOICE: <voice> STATUS: <code>
	entry := fmt.Sprintf("[%s] [%s] VOICE: %s STATUS: %s\nPROMPT:\n%s\n--------------------------------------------------\n",
		timestamp, provider, voice, statusStr, prompt)

	_, _ = f.WriteString(entry)
}
