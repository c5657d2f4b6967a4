package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feederpool/internal/config"
	"feederpool/internal/report"
)

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	reporter := report.NewReporter(cfg.Decimals, logger)

	logger.Info("report start",
		zap.String("input", cfg.Input),
		zap.Uint8("decimals", cfg.Decimals),
	)

	return reporter.Run(cfg.Input, os.Stdout)
}
