package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"abiFrame/internal/model"
)

// NullCell marks an unset cell in CSV output.
const NullCell = `\N`

// CSVStorage writes the table as CSV with identity columns first.
type CSVStorage struct {
	path string
}

func NewCSVStorage(path string) *CSVStorage {
	return &CSVStorage{path: path}
}

func (s *CSVStorage) PutTable(table *model.Table) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	return WriteCSV(file, table)
}

// WriteCSV writes the header and all rows of table to w.
func WriteCSV(w io.Writer, table *model.Table) error {
	columns := table.Columns()
	header := append(table.MetaColumns(), columns...)

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range table.Rows() {
		if err := writer.Write(csvRecord(table, row, columns)); err != nil {
			return fmt.Errorf("write row %s: %w", row.Key, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvRecord(table *model.Table, row *model.TableRow, columns []string) []string {
	record := []string{
		row.Key,
		strconv.FormatUint(row.Meta.BlockNumber, 10),
		strconv.FormatUint(row.Meta.TxIndex, 10),
	}
	if table.Kind == model.TracesTable {
		record = append(record, row.Meta.TraceAddress)
	}
	for _, col := range columns {
		value, ok := row.Fields[col]
		if !ok {
			record = append(record, NullCell)
			continue
		}
		record = append(record, cellString(value))
	}
	return record
}
