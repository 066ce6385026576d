package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abiFrame/internal/model"
)

func TestReadJSONL(t *testing.T) {
	input := `{"block_number": 100, "tx_index": 5, "trace_address": null, "address": "0xabc", "input": "0x01"}

{"block_number": 101, "tx_index": 0, "trace_address": [0, 2], "address": "0xabc", "input": "0x02"}
`
	rows, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, json.Number("100"), rows[0]["block_number"])
	rec, err := model.BindTrace(rows[1])
	require.NoError(t, err)
	assert.Equal(t, uint64(101), rec.BlockNumber)
	assert.Equal(t, "0,2", rec.TraceAddress)
}

func TestReadJSONLReportsLine(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{}\n{not json}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadCSVNullCells(t *testing.T) {
	input := "block_number,tx_index,trace_address,address,topics,data\n" +
		"7,1,,0xabc,\"0xaa,0xbb\",0x\n" +
		"8,2,NaN,0xdef,[],\\N\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Nil(t, rows[0]["trace_address"])
	assert.Nil(t, rows[1]["trace_address"])
	assert.Nil(t, rows[1]["data"])
	assert.Contains(t, rows[1], "data")

	rec, err := model.BindLog(rows[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaa", "0xbb"}, rec.Topics)
	assert.Equal(t, "0x", rec.Data)
}

func TestReadFileInfersFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs.csv")
	require.NoError(t, os.WriteFile(path, []byte("block_number,tx_index\n1,2\n"), 0o644))

	rows, err := ReadFile(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0]["tx_index"])

	_, err = ReadFile(path, "parquet")
	require.Error(t, err)
}
