package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RotableLogger is an io.Writer appending to a log file. Rotate moves the
// current file aside with a timestamp suffix and starts a new one.
type RotableLogger struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func NewRotableLogger(path string) (*RotableLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	l := &RotableLogger{path: path}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *RotableLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, os.ErrClosed
	}
	return l.file.Write(p)
}

func (l *RotableLogger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return err
		}
		l.file = nil
	}

	rotated := fmt.Sprintf("%s.%s", l.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(l.path, rotated); err != nil && !os.IsNotExist(err) {
		return err
	}

	return l.open()
}

func (l *RotableLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// caller holds mu, or has exclusive access
func (l *RotableLogger) open() error {
	fd, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.file = fd
	return nil
}
