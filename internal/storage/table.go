package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"abiFrame/internal/model"
)

// TableStorage renders the table for a terminal.
type TableStorage struct {
	out  io.Writer
	path string
}

func NewTableStorage(out io.Writer) *TableStorage {
	return &TableStorage{out: out}
}

// NewTableFileStorage renders into a text file.
func NewTableFileStorage(path string) *TableStorage {
	return &TableStorage{path: path}
}

func (s *TableStorage) PutTable(table *model.Table) error {
	out := s.out
	if s.path != "" {
		if err := ensureDir(s.path); err != nil {
			return err
		}
		file, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("open output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	columns := table.Columns()
	writer := tablewriter.NewWriter(out)
	writer.SetHeader(append(table.MetaColumns(), columns...))
	writer.SetAutoFormatHeaders(false)
	writer.SetAutoWrapText(false)

	for _, row := range table.Rows() {
		record := csvRecord(table, row, columns)
		for i, cell := range record {
			if cell == NullCell {
				record[i] = ""
			}
		}
		writer.Append(record)
	}
	writer.Render()
	return nil
}
