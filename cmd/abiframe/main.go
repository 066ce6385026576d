package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"abiFrame/internal/model"
)

func main() {
	root := &cobra.Command{
		Use:          "abiframe",
		Short:        "Decode contract call traces and event logs into wide tables",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	tracesCmd := &cobra.Command{
		Use:   "traces",
		Short: "Reshape call traces into one column per contract function argument",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReshape(cmd, model.TracesTable)
		},
	}
	addReshapeFlags(tracesCmd)
	root.AddCommand(tracesCmd)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Reshape event logs into one column per contract event argument",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReshape(cmd, model.LogsTable)
		},
	}
	addReshapeFlags(logsCmd)
	logsCmd.Flags().StringSlice("topic0", nil, "topic0 filters for RPC extraction (comma-separated)")
	root.AddCommand(logsCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch-abi",
		Short: "Download a verified contract ABI from Etherscan",
		RunE:  runFetchABI,
	}
	fetchCmd.Flags().String("address", "", "contract address")
	fetchCmd.Flags().String("out", "", "output file, stdout when empty")
	fetchCmd.Flags().String("etherscan-url", "https://api.etherscan.io/api", "Etherscan API endpoint")
	fetchCmd.Flags().String("etherscan-api-key", "", "Etherscan API key")
	fetchCmd.Flags().Float64("etherscan-rps", 5, "Etherscan requests per second")
	fetchCmd.Flags().Int("max-retries", 3, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(fetchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addReshapeFlags(cmd *cobra.Command) {
	cmd.Flags().String("in", "", "input JSONL or CSV file")
	cmd.Flags().String("in-format", "", "input format (jsonl, csv), inferred from extension when empty")
	cmd.Flags().String("out", "", "output file, terminal table when empty")
	cmd.Flags().String("out-format", "", "output format (jsonl, csv, table), inferred from extension when empty")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "dropped rows report (.jsonl or .csv)")
	cmd.Flags().StringSlice("alias", nil, "input column renames (comma-separated old=new)")
	cmd.Flags().StringSlice("abi", nil, "contract ABIs (comma-separated address=path)")
	cmd.Flags().String("abi-file", "", "TOML registry of address = \"path\" entries")
	cmd.Flags().Bool("etherscan", false, "fetch unknown ABIs from Etherscan")
	cmd.Flags().String("etherscan-url", "https://api.etherscan.io/api", "Etherscan API endpoint")
	cmd.Flags().String("etherscan-api-key", "", "Etherscan API key")
	cmd.Flags().Float64("etherscan-rps", 5, "Etherscan requests per second")
	cmd.Flags().Duration("cache-ttl", 24*time.Hour, "ABI cache entry lifetime")
	cmd.Flags().Int("cache-size", 1024, "ABI cache capacity")
	cmd.Flags().Int("workers", 0, "decode workers, 0 means GOMAXPROCS")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, also upsert rows into decoded_rows when set")
	cmd.Flags().Int("pg-batch-size", 1000, "rows per Postgres batch")
	cmd.Flags().String("sum-column", "", "print per-block totals of this output column")
	cmd.Flags().Int32("sum-decimals", 0, "divide totals by 10^n (18 for wei)")
	cmd.Flags().Bool("progress", false, "show a progress bar while decoding")
	cmd.Flags().String("rpc", "", "RPC URL to extract from instead of --in")
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().StringSlice("address", nil, "contract addresses for RPC extraction (comma-separated)")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per RPC batch")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
