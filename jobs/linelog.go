package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const lineLogFileMode = 0644

// LineLog appends plain text lines to a file. The file is opened for each
// write so it can be rotated or removed between runs.
type LineLog struct {
	path string
	mu   sync.Mutex
}

func NewLineLog(dir, name string) *LineLog {
	return &LineLog{path: filepath.Join(dir, name)}
}

func (l *LineLog) Path() string {
	return l.path
}

// Append writes each line followed by a newline.
func (l *LineLog) Append(lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, lineLogFileMode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to write %s: %w", l.path, err)
	}
	return nil
}
