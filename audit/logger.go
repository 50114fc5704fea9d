package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxFileBytes triggers same-day rotation.
const maxFileBytes = 100 << 20

// Logger appends entries to date-named JSONL files, rotating on UTC
// date change or when the current file reaches 100 MiB. Safe for
// concurrent use.
type Logger struct {
	dir string

	mu      sync.Mutex
	file    *os.File
	date    string // UTC YYYY-MM-DD of the open file
	written int64
	seq     int // same-day rotation counter

	now func() time.Time
}

// NewLogger opens a logger in dir, creating it if needed.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}
	return &Logger{dir: dir, now: time.Now}, nil
}

// Log writes one entry as a single JSON line. A write failure is
// reported but must not fail the query that produced the entry; callers
// log and continue.
func (l *Logger) Log(e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateLocked(int64(len(data))); err != nil {
		return err
	}
	n, err := l.file.Write(data)
	l.written += int64(n)
	if err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Close closes the current file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rotateLocked ensures an open file for today with room for incoming
// bytes. Caller holds the mutex.
func (l *Logger) rotateLocked(incoming int64) error {
	today := l.now().UTC().Format("2006-01-02")

	switch {
	case l.file == nil:
	case l.date != today:
		l.seq = 0
	case l.written+incoming > maxFileBytes:
		l.seq++
	default:
		return nil
	}

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			slog.Warn("audit: closing rotated file", "error", err)
		}
		l.file = nil
	}

	name := fmt.Sprintf("audit_log_%s.jsonl", today)
	if l.seq > 0 {
		name = fmt.Sprintf("audit_log_%s.%d.jsonl", today, l.seq)
	}
	path := filepath.Join(l.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat audit file: %w", err)
	}

	l.file = f
	l.date = today
	l.written = info.Size()
	slog.Info("audit: opened log file", "path", path, "size", info.Size())
	return nil
}
