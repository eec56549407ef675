// Package eventlog writes the append-only text log of persisted events and
// the operator's CSV exports.
package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/NotCoffee418/serial_event_log/pkg/aggregator"
	"github.com/NotCoffee418/serial_event_log/pkg/eventstore"
	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

// logFile is the part of *os.File the log writer uses.
type logFile interface {
	Stat() (os.FileInfo, error)
	Write(p []byte) (int, error)
	Sync() error
	Truncate(size int64) error
	Close() error
}

var openLogFile = func(path string) (logFile, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// FileLog appends one line per event to a text file.
type FileLog struct {
	path string
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (l *FileLog) Name() string {
	return "event_log"
}

func (l *FileLog) Path() string {
	return l.path
}

// Write appends the batch and syncs the file. When either step fails the file
// is truncated back to its previous size, so the retried batch is written once.
func (l *FileLog) Write(ctx context.Context, d eventstore.Drain) error {
	if d.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, ev := range d.Events {
		buf.WriteString(ev.LogLine())
		buf.WriteByte('\n')
	}

	f, err := openLogFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat event log: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return rollback(f, info.Size(), fmt.Errorf("failed to write event log: %w", err))
	}
	if err := f.Sync(); err != nil {
		return rollback(f, info.Size(), fmt.Errorf("failed to sync event log: %w", err))
	}
	return nil
}

func rollback(f logFile, size int64, cause error) error {
	if err := f.Truncate(size); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to truncate event log: %w", err))
	}
	return cause
}

// CountEntries returns the number of lines in the log at path.
// A missing file has no entries.
func CountEntries(path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

// Export replaces the file at path with a CSV rendering of events.
// The file is written next to the target and renamed into place.
func Export(path string, events []types.Event) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := aggregator.RenderCSV(w, events); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to render export: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
