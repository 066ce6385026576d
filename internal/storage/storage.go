package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"abiFrame/internal/model"
)

// Output formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTable = "table"
)

// Storage defines a sink for reshaped tables.
type Storage interface {
	PutTable(table *model.Table) error
}

// New returns the file sink for format. An empty format is inferred from the
// path extension. The table format writes to stdout when path is empty.
func New(path, format string) (Storage, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	switch format {
	case FormatJSONL:
		return NewJsonlStorage(path), nil
	case FormatCSV:
		return NewCSVStorage(path), nil
	case FormatTable:
		if path == "" {
			return NewTableStorage(os.Stdout), nil
		}
		return NewTableFileStorage(path), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatFromPath infers the output format from the file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case "":
		if path == "" {
			return FormatTable
		}
		return FormatJSONL
	default:
		return FormatJSONL
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return nil
}

// cellString renders a cell for text formats. Lists and maps are JSON encoded.
func cellString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []interface{}, map[string]interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}
