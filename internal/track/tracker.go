package track

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"feederpool/internal/chain"
	"feederpool/internal/model"
	"feederpool/internal/storage"
)

const (
	methodBalanceOfBlock  = "balance_of_block"
	methodBalanceOfLatest = "balance_of_latest"
)

// Config holds runtime settings for the valuation tracker.
type Config struct {
	// Schedule is a cron spec with a seconds field.
	Schedule string
	// Pool is the upstream pool whose asset holdings are sampled.
	Pool common.Address
	// Asset is the underlying ERC-20 token address.
	Asset        common.Address
	MaxRetries   int
	RetryBackoff time.Duration
}

// Tracker samples an upstream pool's valuation on a cron schedule and writes
// the samples to storage.
type Tracker struct {
	cfg     Config
	chain   *chain.Client
	storage storage.Storage
	logger  *zap.Logger
	chainID uint64
}

// NewTracker builds a Tracker with its dependencies.
func NewTracker(cfg Config, chainClient *chain.Client, storageSink storage.Storage, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		cfg:     cfg,
		chain:   chainClient,
		storage: storageSink,
		logger:  logger,
	}
}

// Run starts the sampling schedule and blocks until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if t.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if t.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if t.cfg.Schedule == "" {
		return fmt.Errorf("schedule is required")
	}

	chainID, err := t.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	t.chainID = chainID.Uint64()

	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(t.cfg.Schedule, func() { t.sample(ctx) }); err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}
	scheduler.Start()

	t.logger.Info("tracker started",
		zap.String("schedule", t.cfg.Schedule),
		zap.String("pool", t.cfg.Pool.Hex()),
		zap.String("asset", t.cfg.Asset.Hex()),
		zap.Uint64("chain_id", t.chainID),
	)

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

func (t *Tracker) sample(ctx context.Context) {
	err := withRetry(ctx, t.cfg.MaxRetries, t.cfg.RetryBackoff, func(ctx context.Context) error {
		sample, err := t.takeSample(ctx)
		if err != nil {
			return err
		}
		return t.storage.PutValueSampleBatch(ctx, []model.ValueSample{*sample})
	})
	if err != nil {
		t.logger.Warn("sample failed", zap.Error(err))
	}
}

func (t *Tracker) takeSample(ctx context.Context) (*model.ValueSample, error) {
	block, err := t.chain.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	ts, err := t.chain.BlockTimestamp(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("block timestamp %d: %w", block, err)
	}

	method := methodBalanceOfBlock
	value, err := BalanceOf(ctx, t.chain, t.cfg.Asset, t.cfg.Pool, new(big.Int).SetUint64(block))
	if err != nil {
		// Non-archive endpoints may refuse historical state for a block that
		// just trailed off; fall back to latest.
		value, err = BalanceOf(ctx, t.chain, t.cfg.Asset, t.cfg.Pool, nil)
		if err != nil {
			return nil, err
		}
		method = methodBalanceOfLatest
	}

	sample := &model.ValueSample{
		ChainID:     t.chainID,
		Pool:        t.cfg.Pool.Hex(),
		Asset:       t.cfg.Asset.Hex(),
		Value:       value.String(),
		BlockNumber: block,
		Timestamp:   ts,
		Method:      method,
		SampledAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}

	t.logger.Info("value sampled",
		zap.Uint64("block", block),
		zap.String("value", sample.Value),
		zap.String("method", method),
	)
	return sample, nil
}
