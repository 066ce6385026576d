package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"abiFrame/internal/abisource"
	"abiFrame/internal/aggregate"
	"abiFrame/internal/chain"
	"abiFrame/internal/config"
	"abiFrame/internal/model"
	"abiFrame/internal/reshape"
	"abiFrame/internal/source"
	"abiFrame/internal/storage"
	"abiFrame/internal/storage/postgres"
)

func runReshape(cmd *cobra.Command, kind model.TableKind) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" && cfg.RPCURL == "" {
		return fmt.Errorf("input path or rpc url is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interfaces, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}

	rows, err := loadRows(ctx, cfg, kind, logger)
	if err != nil {
		return err
	}

	sink, err := storage.New(cfg.Out, cfg.OutFormat)
	if err != nil {
		return err
	}

	errWriter, err := storage.NewErrorWriter(cfg.Errors)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("reshape start",
		zap.String("kind", string(kind)),
		zap.String("in", cfg.In),
		zap.String("rpc", cfg.RPCURL),
		zap.Int("rows", len(rows)),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("etherscan", cfg.Etherscan),
		zap.Int("workers", cfg.Workers),
	)

	opts := reshape.Options{
		Alias: cfg.Alias,
		OnFailure: func(e model.DecodeError) {
			if err := errWriter.Write(e); err != nil {
				logger.Warn("write decode error failed", zap.Error(err))
			}
		},
	}

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.Default(int64(len(rows)), "decoding")
		opts.OnProgress = func() {
			_ = bar.Add(1)
		}
	}

	reshaper := reshape.New(interfaces, reshape.Config{Workers: cfg.Workers}, logger)

	var table *model.Table
	switch kind {
	case model.TracesTable:
		table, err = reshaper.Traces(ctx, rows, opts)
	default:
		table, err = reshaper.Logs(ctx, rows, opts)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	if err := sink.PutTable(table); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if cfg.PGDSN != "" {
		if err := upsertTable(ctx, cfg, table); err != nil {
			return err
		}
	}

	if cfg.SumColumn != "" {
		if err := printSums(cmd.OutOrStdout(), table, cfg.SumColumn, cfg.SumDecimals); err != nil {
			return err
		}
	}

	if err := errWriter.Close(); err != nil {
		return fmt.Errorf("write errors report: %w", err)
	}

	logger.Info("reshape complete",
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Columns())),
		zap.Int("dropped", errWriter.Count()),
	)
	return nil
}

// buildSource chains the static registry with the optional cached Etherscan client.
func buildSource(cfg config.Config, logger *zap.Logger) (abisource.Source, error) {
	static := abisource.NewStatic()
	if err := static.LoadPaths(cfg.ABIPaths, ""); err != nil {
		return nil, err
	}
	if cfg.ABIFile != "" {
		if err := static.LoadTOML(cfg.ABIFile); err != nil {
			return nil, err
		}
	}

	chainSrc := abisource.Chain{static}
	if cfg.Etherscan {
		client := abisource.NewEtherscan(abisource.EtherscanConfig{
			BaseURL:      cfg.EtherscanURL,
			APIKey:       cfg.EtherscanAPIKey,
			RPS:          cfg.EtherscanRPS,
			MaxRetries:   uint(max(cfg.MaxRetries, 0)),
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
		cache := abisource.NewCache(cfg.CacheTTL, cfg.CacheSize)
		chainSrc = append(chainSrc, abisource.NewCached(client, cache))
	}

	logger.Info("abi sources ready", zap.Int("static", static.Len()), zap.Bool("etherscan", cfg.Etherscan))
	return chainSrc, nil
}

func loadRows(ctx context.Context, cfg config.Config, kind model.TableKind, logger *zap.Logger) ([]model.Row, error) {
	if cfg.In != "" {
		return source.ReadFile(cfg.In, cfg.InFormat)
	}

	addresses, err := source.ParseAddresses(cfg.Addresses)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("address list is required")
	}
	topic0, err := source.ParseTopic0(cfg.Topic0)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if chainID, err := chainClient.GetChainID(ctx); err == nil {
		logger.Info("connected", zap.String("rpc", cfg.RPCURL), zap.String("chain_id", chainID.String()))
	}

	extractor := source.NewExtractor(source.ExtractConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		Addresses:    addresses,
		Topic0:       topic0,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, logger)

	if kind == model.TracesTable {
		return extractor.Traces(ctx)
	}
	return extractor.Logs(ctx)
}

func upsertTable(ctx context.Context, cfg config.Config, table *model.Table) error {
	store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.PGBatchSize)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.UpsertTable(ctx, table); err != nil {
		return fmt.Errorf("upsert rows: %w", err)
	}
	return nil
}

func printSums(w io.Writer, table *model.Table, column string, decimals int32) error {
	sums, err := aggregate.SumByBlock(table, column)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-14s %s\n", model.ColBlockNumber, column)
	for _, sum := range sums {
		fmt.Fprintf(w, "%-14d %s\n", sum.BlockNumber, sum.Scaled(decimals).String())
	}
	return nil
}
