package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "feederpool",
		Short:        "Feeder pool accounting engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a feeder pool from a scenario and an operation stream",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario YAML path")
	simulateCmd.Flags().String("in", "", "input operations JSONL")
	simulateCmd.Flags().String("out", "./data", "output directory for JSONL sinks")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN (overrides JSONL output)")
	simulateCmd.Flags().Int("batch-size", 500, "events per storage flush")
	simulateCmd.Flags().String("state-file", "", "optional local state file for resume")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Sample an upstream pool's valuation on a schedule",
		RunE:  runTrack,
	}

	trackCmd.Flags().String("rpc", "", "EVM RPC URL")
	trackCmd.Flags().String("pool", "", "upstream pool address")
	trackCmd.Flags().String("asset", "", "underlying asset address")
	trackCmd.Flags().String("schedule", "0 * * * * *", "cron schedule with seconds")
	trackCmd.Flags().String("out", "./data", "output directory for JSONL sinks")
	trackCmd.Flags().String("pg-dsn", "", "Postgres DSN (overrides JSONL output)")
	trackCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	trackCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	trackCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(trackCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Fold a pool event stream into per-depositor aggregates",
		RunE:  runReport,
	}

	reportCmd.Flags().String("in", "", "input events JSONL")
	reportCmd.Flags().Uint("decimals", 18, "asset decimals for rendering")
	reportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
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

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
