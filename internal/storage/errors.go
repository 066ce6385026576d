package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"abiFrame/internal/model"
)

// ErrorWriter records dropped rows. Paths ending in .csv are written as CSV
// on Close; anything else is streamed as JSONL.
type ErrorWriter struct {
	file    *os.File
	writer  *bufio.Writer
	csv     bool
	pending []*model.DecodeError
	count   int
	closed  bool
}

func NewErrorWriter(path string) (*ErrorWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return &ErrorWriter{
		file:   file,
		writer: bufio.NewWriter(file),
		csv:    strings.EqualFold(FormatFromPath(path), FormatCSV),
	}, nil
}

func (w *ErrorWriter) Write(errRecord model.DecodeError) error {
	if w == nil {
		return nil
	}
	w.count++
	if w.csv {
		w.pending = append(w.pending, &errRecord)
		return nil
	}

	line, err := json.Marshal(errRecord)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// Count returns the number of records written.
func (w *ErrorWriter) Count() int {
	if w == nil {
		return 0
	}
	return w.count
}

// Close flushes pending records. Calling it again is a no-op.
func (w *ErrorWriter) Close() error {
	if w == nil || w.closed {
		return nil
	}
	w.closed = true
	if w.csv && len(w.pending) > 0 {
		if err := gocsv.Marshal(&w.pending, w.writer); err != nil {
			w.file.Close()
			return fmt.Errorf("marshal csv: %w", err)
		}
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
