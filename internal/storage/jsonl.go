package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"abiFrame/internal/model"
)

// JsonlStorage writes table rows to a JSONL file, one object per row.
// Unset cells are omitted from the object.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutTable writes every row in table order, replacing the file.
func (s *JsonlStorage) PutTable(table *model.Table) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, row := range table.Rows() {
		line, err := json.Marshal(table.Record(row))
		if err != nil {
			return fmt.Errorf("marshal row %s: %w", row.Key, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
