package source

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"abiFrame/internal/chain"
	"abiFrame/internal/model"
)

// logRow converts an RPC log into a row with canonical log columns.
func logRow(log types.Log) model.Row {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.Row{
		model.ColBlockNumber: log.BlockNumber,
		model.ColTxIndex:     uint64(log.TxIndex),
		model.ColLogIndex:    uint64(log.Index),
		model.ColTxHash:      log.TxHash.Hex(),
		model.ColAddress:     log.Address.Hex(),
		model.ColTopics:      topics,
		model.ColData:        hexutil.Encode(log.Data),
	}
}

// traceRow converts a call trace into a row with canonical trace columns.
// Creations, rewards and self-destructs carry no call payload and are skipped.
func traceRow(trace chain.Trace) (model.Row, bool) {
	if trace.Type != "call" || trace.Action.To == nil || trace.TransactionPosition == nil {
		return nil, false
	}

	return model.Row{
		model.ColBlockNumber:  trace.BlockNumber,
		model.ColTxIndex:      *trace.TransactionPosition,
		model.ColTraceAddress: trace.TraceAddress,
		model.ColAddress:      trace.Action.To.Hex(),
		model.ColInput:        hexutil.Encode(trace.Action.Input),
	}, true
}
