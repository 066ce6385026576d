package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"abiFrame/internal/abisource"
	"abiFrame/internal/config"
	"abiFrame/internal/decode"
)

func runFetchABI(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Address) {
		return fmt.Errorf("invalid address: %q", cfg.Address)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := abisource.NewEtherscan(abisource.EtherscanConfig{
		BaseURL:      cfg.EtherscanURL,
		APIKey:       cfg.EtherscanAPIKey,
		RPS:          cfg.EtherscanRPS,
		MaxRetries:   uint(max(cfg.MaxRetries, 0)),
		RetryBackoff: cfg.RetryBackoff,
	}, logger)

	raw, err := client.FetchABI(ctx, cfg.Address)
	if err != nil {
		return err
	}

	iface, err := decode.ParseInterface(raw)
	if err != nil {
		return fmt.Errorf("etherscan returned an unusable abi: %w", err)
	}

	if cfg.Out == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), raw)
		return err
	}

	if dir := filepath.Dir(cfg.Out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	if err := os.WriteFile(cfg.Out, []byte(raw), 0o644); err != nil {
		return fmt.Errorf("write abi: %w", err)
	}

	logger.Info("abi saved",
		zap.String("address", cfg.Address),
		zap.String("out", cfg.Out),
		zap.Int("members", len(iface.Members)),
	)
	return nil
}
