package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abiFrame/internal/model"
)

const wadColumn = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2.withdraw.wad"

func TestSumByBlock(t *testing.T) {
	table := model.NewTable(model.TracesTable)
	table.Add("11_0_", model.RowMeta{BlockNumber: 11}, map[string]interface{}{wadColumn: "500000000000000000"})
	table.Add("10_0_", model.RowMeta{BlockNumber: 10}, map[string]interface{}{wadColumn: "1000000000000000000"})
	table.Add("10_1_", model.RowMeta{BlockNumber: 10, TxIndex: 1}, map[string]interface{}{wadColumn: "115792089237316195423570985008687907853269984665640564039457584007913129639935"})
	table.Add("10_2_", model.RowMeta{BlockNumber: 10, TxIndex: 2}, map[string]interface{}{"other": "1"})

	sums, err := SumByBlock(table, wadColumn)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, uint64(10), sums[0].BlockNumber)
	assert.Equal(t, 2, sums[0].Rows)
	want, _ := decimal.NewFromString("115792089237316195423570985008687907853269984665640564039458584007913129639935")
	assert.True(t, want.Equal(sums[0].Total), sums[0].Total.String())

	assert.Equal(t, uint64(11), sums[1].BlockNumber)
	assert.Equal(t, "0.5", sums[1].Scaled(18).String())
}

func TestSumByBlockRejectsNonNumeric(t *testing.T) {
	table := model.NewTable(model.LogsTable)
	table.Add("1_0", model.RowMeta{BlockNumber: 1}, map[string]interface{}{"c": "0xabc"})

	_, err := SumByBlock(table, "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1_0")
}

func TestSumByBlockEmpty(t *testing.T) {
	sums, err := SumByBlock(model.NewTable(model.LogsTable), "c")
	require.NoError(t, err)
	assert.Empty(t, sums)
}
