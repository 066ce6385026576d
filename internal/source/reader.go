package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"abiFrame/internal/model"
)

// Input formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// FormatFromPath infers the input format from the file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	default:
		return FormatJSONL
	}
}

// ReadFile reads all rows of a JSONL or CSV file. An empty format is
// inferred from the extension.
func ReadFile(path, format string) ([]model.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	if format == "" {
		format = FormatFromPath(path)
	}
	switch format {
	case FormatJSONL:
		return ReadJSONL(file)
	case FormatCSV:
		return ReadCSV(file)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// ReadJSONL reads one JSON object per line. Numbers are kept as json.Number.
func ReadJSONL(r io.Reader) ([]model.Row, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var rows []model.Row
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		row := model.Row{}
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return rows, nil
}

// ReadCSV reads a CSV file with a header row. Null-like cells become nil.
func ReadCSV(r io.Reader) ([]model.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []model.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		row := make(model.Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i >= len(record) {
				row[col] = nil
				continue
			}
			if model.IsNullToken(record[i]) {
				row[col] = nil
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
