package source

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"abiFrame/internal/chain"
	"abiFrame/internal/model"
)

// Node is the subset of the chain client used for extraction.
type Node interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	TraceFilter(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address) ([]chain.Trace, error)
}

// ExtractConfig holds the block range and filters for an extraction run.
type ExtractConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	Addresses    []common.Address
	Topic0       []common.Hash
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Extractor pulls raw logs or call traces from a node in block batches and
// returns them as input rows.
type Extractor struct {
	cfg    ExtractConfig
	node   Node
	logger *zap.Logger
	seen   map[string]struct{}
}

func NewExtractor(cfg ExtractConfig, node Node, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		cfg:    cfg,
		node:   node,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Logs fetches event logs with eth_getLogs.
func (e *Extractor) Logs(ctx context.Context) ([]model.Row, error) {
	var rows []model.Row
	err := e.eachRange(ctx, func(blockRange BlockRange) (int, error) {
		logs, err := e.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return 0, fmt.Errorf("filter logs: %w", err)
		}
		added := 0
		for _, log := range logs {
			if log.Removed || e.isDuplicate(fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)) {
				continue
			}
			rows = append(rows, logRow(log))
			added++
		}
		return added, nil
	})
	return rows, err
}

// Traces fetches call traces with trace_filter.
func (e *Extractor) Traces(ctx context.Context) ([]model.Row, error) {
	var rows []model.Row
	err := e.eachRange(ctx, func(blockRange BlockRange) (int, error) {
		traces, err := e.traceFilterWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return 0, fmt.Errorf("trace filter: %w", err)
		}
		added := 0
		for _, trace := range traces {
			row, ok := traceRow(trace)
			if !ok {
				continue
			}
			key := fmt.Sprintf("%d:%d:%v", trace.BlockNumber, *trace.TransactionPosition, trace.TraceAddress)
			if e.isDuplicate(key) {
				continue
			}
			rows = append(rows, row)
			added++
		}
		return added, nil
	})
	return rows, err
}

func (e *Extractor) eachRange(ctx context.Context, fetch func(BlockRange) (int, error)) error {
	if e.node == nil {
		return fmt.Errorf("chain client is nil")
	}
	if e.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(e.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	span, err := resolveRange(ctx, e.node, e.cfg.FromBlock, e.cfg.ToBlock)
	if err != nil {
		return err
	}
	if span.Len() == 0 {
		e.logger.Info("nothing to fetch", zap.Uint64("from", span.From), zap.Uint64("to", span.To))
		return nil
	}

	ranges, err := span.Split(e.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		added, err := fetch(blockRange)
		if err != nil {
			return err
		}
		e.logger.Info("batch complete", zap.Int("rows", added), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return nil
}

func (e *Extractor) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	onRetry := func(n uint, err error) {
		e.logger.Warn("filter logs failed", zap.Uint("attempt", n+1), zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
	}
	err := withRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, onRetry, func(ctx context.Context) error {
		var err error
		logs, err = e.node.FilterLogs(ctx, fromBlock, toBlock, e.cfg.Addresses, e.cfg.Topic0)
		return err
	})
	return logs, err
}

func (e *Extractor) traceFilterWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]chain.Trace, error) {
	var traces []chain.Trace
	onRetry := func(n uint, err error) {
		e.logger.Warn("trace filter failed", zap.Uint("attempt", n+1), zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
	}
	err := withRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, onRetry, func(ctx context.Context) error {
		var err error
		traces, err = e.node.TraceFilter(ctx, fromBlock, toBlock, e.cfg.Addresses)
		return err
	})
	return traces, err
}

func (e *Extractor) isDuplicate(id string) bool {
	if _, ok := e.seen[id]; ok {
		return true
	}
	e.seen[id] = struct{}{}
	return false
}
