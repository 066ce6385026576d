package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Row is one input record with named fields, as read from a table source.
type Row map[string]interface{}

// nullTokens are string cells that stand for a missing value.
var nullTokens = map[string]struct{}{
	"":     {},
	`\N`:   {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
}

// IsNullToken reports whether a text cell stands for a missing value.
func IsNullToken(cell string) bool {
	_, ok := nullTokens[strings.TrimSpace(cell)]
	return ok
}

// Rename returns a copy of the row with keys renamed through alias.
// Exact matches win over case-insensitive ones; keys missing from alias are
// kept as-is. A key that already carries the target name keeps its value, and
// when several keys rename to the same target the lexically first source key
// wins.
func (r Row) Rename(alias map[string]string) Row {
	if len(alias) == 0 {
		return r
	}
	folded := make(map[string]string, len(alias))
	for from, to := range alias {
		folded[strings.ToLower(from)] = to
	}

	out := make(Row, len(r))
	renamed := make(map[string]string)
	for key, value := range r {
		target, ok := alias[key]
		if !ok || target == "" {
			target, ok = folded[strings.ToLower(key)]
		}
		if ok && target != "" && target != key {
			renamed[key] = target
			continue
		}
		out[key] = value
	}

	sources := make([]string, 0, len(renamed))
	for key := range renamed {
		sources = append(sources, key)
	}
	sort.Strings(sources)
	for _, key := range sources {
		target := renamed[key]
		if _, exists := out[target]; exists {
			continue
		}
		out[target] = r[key]
	}
	return out
}

// Has reports whether the field is present and not null.
func (r Row) Has(key string) bool {
	value, ok := r[key]
	return ok && value != nil
}

// String returns the field as a string, empty when absent or null.
func (r Row) String(key string) (string, error) {
	value, ok := r[key]
	if !ok || value == nil {
		return "", nil
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("field %s: unsupported string type %T", key, value)
	}
}

// Uint returns the field as a non-negative integer. Decimal strings, 0x hex
// strings and JSON numbers are accepted.
func (r Row) Uint(key string) (uint64, error) {
	value, ok := r[key]
	if !ok || value == nil {
		return 0, fmt.Errorf("field %s is missing", key)
	}
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	case uint:
		return uint64(v), nil
	case int:
		return nonNegative(key, int64(v))
	case int64:
		return nonNegative(key, v)
	case int32:
		return nonNegative(key, int64(v))
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, fmt.Errorf("field %s: invalid integer %v", key, v)
		}
		return uint64(v), nil
	case json.Number:
		return parseUint(key, v.String())
	case string:
		return parseUint(key, v)
	default:
		return 0, fmt.Errorf("field %s: unsupported integer type %T", key, value)
	}
}

func nonNegative(key string, v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("field %s: negative value %d", key, v)
	}
	return uint64(v), nil
}

func parseUint(key, input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		val, err := hexutil.DecodeUint64(strings.ToLower(input))
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", key, err)
		}
		return val, nil
	}
	// CSV exports of integer columns with nulls come out as "123.0".
	input = strings.TrimSuffix(input, ".0")
	val, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return val, nil
}
