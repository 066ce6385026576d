package model

import (
	"sort"
)

// TableKind distinguishes trace-keyed tables from log-keyed tables.
type TableKind string

const (
	TracesTable TableKind = "traces"
	LogsTable   TableKind = "logs"
)

// ColRowKey is the column carrying the row identity in flat records.
const ColRowKey = "row_key"

// RowMeta is the identity of an output row, copied from its source record.
type RowMeta struct {
	BlockNumber  uint64
	TxIndex      uint64
	TraceAddress string
}

// TableRow is one output row. Fields only holds the cells that are set.
type TableRow struct {
	Key    string
	Meta   RowMeta
	Fields map[string]interface{}
}

// Table is the wide output keyed by row key, with qualified
// address.member.field columns.
type Table struct {
	Kind    TableKind
	rows    map[string]*TableRow
	columns map[string]struct{}
}

func NewTable(kind TableKind) *Table {
	return &Table{
		Kind:    kind,
		rows:    make(map[string]*TableRow),
		columns: make(map[string]struct{}),
	}
}

// Add stores a row, replacing any row with the same key.
func (t *Table) Add(key string, meta RowMeta, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	for col := range fields {
		t.columns[col] = struct{}{}
	}
	t.rows[key] = &TableRow{Key: key, Meta: meta, Fields: fields}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row for key.
func (t *Table) Row(key string) (*TableRow, bool) {
	row, ok := t.rows[key]
	return row, ok
}

// Get returns a cell. The boolean is false when the row is absent or the cell is unset.
func (t *Table) Get(key, column string) (interface{}, bool) {
	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}
	value, ok := row.Fields[column]
	return value, ok
}

// Columns returns the qualified data columns in lexical order.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.columns))
	for col := range t.columns {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// MetaColumns returns the identity columns emitted before the data columns.
func (t *Table) MetaColumns() []string {
	if t.Kind == TracesTable {
		return []string{ColRowKey, ColBlockNumber, ColTxIndex, ColTraceAddress}
	}
	return []string{ColRowKey, ColBlockNumber, ColTxIndex}
}

// Rows returns the rows ordered by block, transaction index, trace address.
func (t *Table) Rows() []*TableRow {
	rows := make([]*TableRow, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Meta, rows[j].Meta
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.TxIndex != b.TxIndex {
			return a.TxIndex < b.TxIndex
		}
		if a.TraceAddress != b.TraceAddress {
			return a.TraceAddress < b.TraceAddress
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

// Keys returns the row keys in Rows order.
func (t *Table) Keys() []string {
	rows := t.Rows()
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key)
	}
	return keys
}

// Record flattens a row into identity columns plus its set cells.
func (t *Table) Record(row *TableRow) map[string]interface{} {
	out := make(map[string]interface{}, len(row.Fields)+4)
	for col, value := range row.Fields {
		out[col] = value
	}
	out[ColRowKey] = row.Key
	out[ColBlockNumber] = row.Meta.BlockNumber
	out[ColTxIndex] = row.Meta.TxIndex
	if t.Kind == TracesTable {
		out[ColTraceAddress] = row.Meta.TraceAddress
	}
	return out
}
