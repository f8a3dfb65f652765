package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TextWriter appends raw telemetry lines to a log file, one line per write.
// With split-by-date enabled it starts a new file for each UTC day by
// appending -YYYY-MM-DD to the base filename. An empty filename writes to
// stdout.
type TextWriter struct {
	mu          sync.Mutex
	filename    string
	splitByDate bool
	file        *os.File
	fileDate    string

	// now is replaceable in tests to exercise date rollover
	now func() time.Time
}

// NewTextWriter creates a writer for the given base filename, creating the
// parent directory if needed.
func NewTextWriter(filename string, splitByDate bool) (*TextWriter, error) {
	if splitByDate && filename == "" {
		return nil, fmt.Errorf("split-by-date requires a filename")
	}
	if filename != "" {
		if dir := filepath.Dir(filename); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
	}
	return &TextWriter{
		filename:    filename,
		splitByDate: splitByDate,
		now:         time.Now,
	}, nil
}

// Write appends one line, opening or rolling the underlying file as needed.
func (w *TextWriter) Write(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.ensureFile()
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write log line: %w", err)
	}
	return nil
}

// ensureFile returns the current output file, rolling over to a new dated
// file when splitting by date and the UTC day has changed. Caller holds the
// mutex.
func (w *TextWriter) ensureFile() (*os.File, error) {
	if w.filename == "" {
		return os.Stdout, nil
	}

	if w.splitByDate {
		today := w.now().UTC().Format("2006-01-02")
		if w.fileDate != today {
			if w.file != nil {
				w.file.Close()
				w.file = nil
			}
			w.fileDate = today
		}
	}

	if w.file != nil {
		return w.file, nil
	}

	name := w.filename
	if w.splitByDate {
		name = fmt.Sprintf("%s-%s", w.filename, w.fileDate)
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
	}
	w.file = f
	return f, nil
}

// Close closes the current file, if any. Stdout is never closed.
func (w *TextWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
