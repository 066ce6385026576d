package model

// Failure stages for a dropped input row.
const (
	StageBind    = "bind"
	StageResolve = "resolve"
	StageDecode  = "decode"
)

// DecodeError records why an input row was dropped from the output table.
type DecodeError struct {
	Index       int    `json:"index" csv:"index"`
	RowKey      string `json:"row_key" csv:"row_key"`
	BlockNumber uint64 `json:"block_number" csv:"block_number"`
	TxIndex     uint64 `json:"tx_index" csv:"tx_index"`
	Address     string `json:"address" csv:"address"`
	Stage       string `json:"stage" csv:"stage"`
	Error       string `json:"error" csv:"error"`
}
