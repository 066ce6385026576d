package reshape

import "strconv"

// TraceRowKey identifies a call trace: "<block>_<tx>_<trace_address>".
// An absent trace address is the empty string, so a top-level call at
// block 100, tx 5 is "100_5_".
func TraceRowKey(blockNumber, txIndex uint64, traceAddress string) string {
	return LogRowKey(blockNumber, txIndex) + "_" + traceAddress
}

// LogRowKey identifies a transaction: "<block>_<tx>".
func LogRowKey(blockNumber, txIndex uint64) string {
	return strconv.FormatUint(blockNumber, 10) + "_" + strconv.FormatUint(txIndex, 10)
}
