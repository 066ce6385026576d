package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Canonical trace columns.
const (
	ColBlockNumber  = "block_number"
	ColTxIndex      = "tx_index"
	ColTraceAddress = "trace_address"
	ColAddress      = "address"
	ColInput        = "input"
	ColABI          = "abi"
)

// TraceRequiredColumns must each be present on at least one input row.
var TraceRequiredColumns = []string{ColBlockNumber, ColTxIndex, ColAddress, ColInput}

// TraceRecord is a single call trace with its encoded call payload.
type TraceRecord struct {
	BlockNumber  uint64 `json:"block_number"`
	TxIndex      uint64 `json:"tx_index"`
	TraceAddress string `json:"trace_address"`
	Address      string `json:"address"`
	Input        string `json:"input"`
	ABI          string `json:"abi,omitempty"`
}

// BindTrace converts a row carrying canonical column names into a TraceRecord.
func BindTrace(row Row) (TraceRecord, error) {
	var rec TraceRecord
	var err error

	if rec.BlockNumber, err = row.Uint(ColBlockNumber); err != nil {
		return TraceRecord{}, err
	}
	if rec.TxIndex, err = row.Uint(ColTxIndex); err != nil {
		return TraceRecord{}, err
	}
	if rec.TraceAddress, err = NormalizeTraceAddress(row[ColTraceAddress]); err != nil {
		return TraceRecord{}, err
	}
	if rec.Address, err = row.String(ColAddress); err != nil {
		return TraceRecord{}, err
	}
	if rec.Input, err = row.String(ColInput); err != nil {
		return TraceRecord{}, err
	}
	if rec.ABI, err = row.String(ColABI); err != nil {
		return TraceRecord{}, err
	}
	if rec.Address == "" {
		return TraceRecord{}, fmt.Errorf("field %s is empty", ColAddress)
	}
	return rec, nil
}

// NormalizeTraceAddress maps every representation of a trace address to one
// canonical string. Absent values, null tokens such as "nan" or \N, and a
// float NaN all become the empty string. Integer paths are joined with
// commas, other strings are kept verbatim.
func NormalizeTraceAddress(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		if IsNullToken(v) {
			return "", nil
		}
		return strings.TrimSpace(v), nil
	case float64:
		if math.IsNaN(v) {
			return "", nil
		}
		if v < 0 || v != math.Trunc(v) {
			return "", fmt.Errorf("field %s: invalid path %v", ColTraceAddress, v)
		}
		return strconv.FormatUint(uint64(v), 10), nil
	case json.Number:
		return v.String(), nil
	case []int:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, strconv.Itoa(p))
		}
		return strings.Join(parts, ","), nil
	case []uint64:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, strconv.FormatUint(p, 10))
		}
		return strings.Join(parts, ","), nil
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			switch elem := p.(type) {
			case json.Number:
				parts = append(parts, elem.String())
			case float64:
				parts = append(parts, strconv.FormatInt(int64(elem), 10))
			case int:
				parts = append(parts, strconv.Itoa(elem))
			case string:
				parts = append(parts, elem)
			default:
				return "", fmt.Errorf("field %s: unsupported element type %T", ColTraceAddress, p)
			}
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("field %s: unsupported type %T", ColTraceAddress, value)
	}
}
