package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feederpool/internal/chain"
	"feederpool/internal/config"
	"feederpool/internal/storage"
	"feederpool/internal/storage/postgres"
	"feederpool/internal/track"
)

func runTrack(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTrack(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("valid pool address is required")
	}
	if !common.IsHexAddress(cfg.Asset) {
		return fmt.Errorf("valid asset address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var storageSink storage.Storage
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		storageSink = store
	} else {
		storageSink = storage.NewJsonlStorage(cfg.Out)
	}

	tracker := track.NewTracker(track.Config{
		Schedule:     cfg.Schedule,
		Pool:         common.HexToAddress(cfg.Pool),
		Asset:        common.HexToAddress(cfg.Asset),
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, storageSink, logger)

	logger.Info("track start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", cfg.Pool),
		zap.String("asset", cfg.Asset),
		zap.String("schedule", cfg.Schedule),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	return tracker.Run(ctx)
}
