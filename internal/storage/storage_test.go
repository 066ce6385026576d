package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abiFrame/internal/model"
)

func sampleTable() *model.Table {
	table := model.NewTable(model.TracesTable)
	table.Add("100_5_", model.RowMeta{BlockNumber: 100, TxIndex: 5}, map[string]interface{}{
		"0xA.transferOwnership.newOwner": "0x1111",
	})
	table.Add("100_6_0", model.RowMeta{BlockNumber: 100, TxIndex: 6, TraceAddress: "0"}, map[string]interface{}{
		"0xB.mint.data.tokenURI": "ipfs://a",
		"0xB.mint.ids":           []interface{}{"1", "2"},
	})
	return table
}

func TestWriteCSVMarksUnsetCells(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "row_key,block_number,tx_index,trace_address,0xA.transferOwnership.newOwner,0xB.mint.data.tokenURI,0xB.mint.ids", lines[0])
	assert.Equal(t, `100_5_,100,5,,0x1111,\N,\N`, lines[1])
	assert.Equal(t, `100_6_0,100,6,0,\N,ipfs://a,"[""1"",""2""]"`, lines[2])
}

func TestJsonlStorageOmitsUnsetCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rows.jsonl")
	require.NoError(t, NewJsonlStorage(path).PutTable(sampleTable()))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.Len(t, records, 2)
	assert.Equal(t, "100_5_", records[0]["row_key"])
	assert.Equal(t, "", records[0]["trace_address"])
	assert.NotContains(t, records[0], "0xB.mint.data.tokenURI")
	assert.Equal(t, "ipfs://a", records[1]["0xB.mint.data.tokenURI"])
}

func TestTableStorageRenders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableStorage(&buf).PutTable(sampleTable()))
	assert.Contains(t, buf.String(), "0xA.transferOwnership.newOwner")
	assert.Contains(t, buf.String(), "ipfs://a")
	assert.NotContains(t, buf.String(), NullCell)
}

func TestNewPicksFormat(t *testing.T) {
	sink, err := New("out.csv", "")
	require.NoError(t, err)
	assert.IsType(t, &CSVStorage{}, sink)

	sink, err = New("out.jsonl", "")
	require.NoError(t, err)
	assert.IsType(t, &JsonlStorage{}, sink)

	sink, err = New("", "")
	require.NoError(t, err)
	assert.IsType(t, &TableStorage{}, sink)

	_, err = New("out.bin", "parquet")
	require.Error(t, err)
}

func TestErrorWriterFormats(t *testing.T) {
	dir := t.TempDir()
	failure := model.DecodeError{Index: 3, RowKey: "1_0_", BlockNumber: 1, Address: "0xA", Stage: model.StageDecode, Error: "no matching member"}

	jsonlPath := filepath.Join(dir, "errors.jsonl")
	w, err := NewErrorWriter(jsonlPath)
	require.NoError(t, err)
	require.NoError(t, w.Write(failure))
	assert.Equal(t, 1, w.Count())
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(jsonlPath)
	require.NoError(t, err)
	var decoded model.DecodeError
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &decoded))
	assert.Equal(t, failure, decoded)

	csvPath := filepath.Join(dir, "errors.csv")
	w, err = NewErrorWriter(csvPath)
	require.NoError(t, err)
	require.NoError(t, w.Write(failure))
	require.NoError(t, w.Close())

	raw, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "index,row_key,block_number,tx_index,address,stage,error", lines[0])
	assert.Equal(t, "3,1_0_,1,0,0xA,decode,no matching member", lines[1])
}
