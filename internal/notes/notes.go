// Package notes appends timestamped notes to a plain-text log.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimestampLayout is the prefix format of every note line.
const TimestampLayout = "2006-01-02 15:04:05"

// Log is an append-only note file. Each line reads "[timestamp] text".
type Log struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewLog returns a Log writing to path. The file is created on first write.
func NewLog(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the note file path.
func (l *Log) Path() string { return l.path }

// Ensure creates the note file and its directory if they do not exist yet.
func (l *Log) Ensure() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating notes directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("creating notes file: %w", err)
	}
	return f.Close()
}

// Append writes one note line. Interior newlines are folded into spaces so
// the one-line-per-note format holds.
func (l *Log) Append(text string) error {
	text = strings.Join(strings.Fields(text), " ")
	line := fmt.Sprintf("[%s] %s\n", l.now().Format(TimestampLayout), text)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening notes file: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing note: %w", err)
	}
	return f.Close()
}
