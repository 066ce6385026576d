package model

import (
	"fmt"
	"strings"
)

// Canonical log columns beyond the shared block/tx/address ones.
const (
	ColTopics   = "topics"
	ColData     = "data"
	ColLogIndex = "log_index"
	ColTxHash   = "transaction_hash"
)

// LogRequiredColumns must each be present on at least one input row.
var LogRequiredColumns = []string{ColBlockNumber, ColTxIndex, ColAddress, ColTopics, ColData}

// LogRecord is the normalized representation of a chain log.
type LogRecord struct {
	BlockNumber uint64   `json:"block_number"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	TxHash      string   `json:"transaction_hash,omitempty"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	ABI         string   `json:"abi,omitempty"`
}

// BindLog converts a row carrying canonical column names into a LogRecord.
func BindLog(row Row) (LogRecord, error) {
	var rec LogRecord
	var err error

	if rec.BlockNumber, err = row.Uint(ColBlockNumber); err != nil {
		return LogRecord{}, err
	}
	if rec.TxIndex, err = row.Uint(ColTxIndex); err != nil {
		return LogRecord{}, err
	}
	if row.Has(ColLogIndex) {
		if rec.LogIndex, err = row.Uint(ColLogIndex); err != nil {
			return LogRecord{}, err
		}
	}
	if rec.TxHash, err = row.String(ColTxHash); err != nil {
		return LogRecord{}, err
	}
	if rec.Address, err = row.String(ColAddress); err != nil {
		return LogRecord{}, err
	}
	if rec.Topics, err = topicsField(row[ColTopics]); err != nil {
		return LogRecord{}, err
	}
	if rec.Data, err = row.String(ColData); err != nil {
		return LogRecord{}, err
	}
	if rec.ABI, err = row.String(ColABI); err != nil {
		return LogRecord{}, err
	}
	if rec.Address == "" {
		return LogRecord{}, fmt.Errorf("field %s is empty", ColAddress)
	}
	return rec, nil
}

func topicsField(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return cleanTopics(v), nil
	case string:
		// CSV exports keep topics as one comma separated cell, sometimes bracketed.
		v = strings.Trim(strings.TrimSpace(v), "[]")
		if v == "" {
			return nil, nil
		}
		return cleanTopics(strings.Split(v, ",")), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %s: unsupported topic type %T", ColTopics, item)
			}
			out = append(out, s)
		}
		return cleanTopics(out), nil
	default:
		return nil, fmt.Errorf("field %s: unsupported type %T", ColTopics, value)
	}
}

func cleanTopics(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
