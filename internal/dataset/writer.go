package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer is the append-only durable sink for normalized records: one JSON
// object per line, UTF-8, non-ASCII content unescaped. It never reads or
// rewrites existing content, so partial output from an interrupted run is
// always valid up to the last complete line.
type Writer struct {
	path string
	file *os.File
}

// OpenWriter opens the output stream at path in append mode, creating it
// (and its directory) if needed.
func OpenWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return &Writer{path: path, file: f}, nil
}

// Path returns the output file path.
func (w *Writer) Path() string {
	return w.path
}

// Append encodes record as one self-contained line and flushes it to disk
// before returning. A crash after Append returns leaves the record
// durably visible.
func (w *Writer) Append(record Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	return nil
}

// Close releases the file handle.
func (w *Writer) Close() error {
	return w.file.Close()
}

// RemoveOutput deletes the output stream at path. Used by reset; the core
// pipeline never truncates its own output.
func RemoveOutput(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove output: %w", err)
	}
	return nil
}
