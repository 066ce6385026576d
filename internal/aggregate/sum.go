package aggregate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"abiFrame/internal/model"
)

// BlockSum is the total of one column over the rows of a block.
type BlockSum struct {
	BlockNumber uint64
	Rows        int
	Total       decimal.Decimal
}

// Scaled returns Total divided by 10^decimals, e.g. 18 to turn wei into ether.
func (s BlockSum) Scaled(decimals int32) decimal.Decimal {
	return s.Total.Shift(-decimals)
}

// SumByBlock totals column per block number. Rows where the column is unset
// are skipped. A present cell that is not a number is an error.
func SumByBlock(table *model.Table, column string) ([]BlockSum, error) {
	totals := make(map[uint64]*BlockSum)
	for _, row := range table.Rows() {
		value, ok := row.Fields[column]
		if !ok || value == nil {
			continue
		}
		amount, err := toDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("row %s column %s: %w", row.Key, column, err)
		}

		sum, ok := totals[row.Meta.BlockNumber]
		if !ok {
			sum = &BlockSum{BlockNumber: row.Meta.BlockNumber, Total: decimal.Zero}
			totals[row.Meta.BlockNumber] = sum
		}
		sum.Total = sum.Total.Add(amount)
		sum.Rows++
	}

	out := make([]BlockSum, 0, len(totals))
	for _, sum := range totals {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BlockNumber < out[j].BlockNumber
	})
	return out, nil
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case string:
		return decimal.NewFromString(v)
	case json.Number:
		return decimal.NewFromString(v.String())
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint64:
		return decimal.NewFromString(fmt.Sprintf("%d", v))
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported value type %T", value)
	}
}
