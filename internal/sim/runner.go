package sim

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"feederpool/internal/gate"
	"feederpool/internal/master"
	"feederpool/internal/model"
	"feederpool/internal/pool"
	"feederpool/internal/reward"
	"feederpool/internal/storage"
	"feederpool/internal/token"
)

// RunConfig controls simulation behavior.
type RunConfig struct {
	BatchSize  int
	StateStore StateStore
}

// Runner builds a feeder pool world from a scenario and drives it from a
// JSONL operation stream, writing events and final positions to storage.
type Runner struct {
	cfg      RunConfig
	scenario Scenario
	storage  storage.Storage
	logger   *zap.Logger

	clock      *Clock
	recorder   *Recorder
	asset      *token.Ledger
	masterPool *master.Pool
	meter      *reward.Meter
	engine     *pool.Pool

	poolAddr   common.Address
	masterAddr common.Address

	seen map[common.Address]struct{}
}

// NewRunner wires the scenario world: asset ledger, master pool, reward
// meter, access gate, and the feeder pool engine on a virtual clock.
func NewRunner(cfg RunConfig, scenario Scenario, storageSink storage.Storage, logger *zap.Logger) (*Runner, error) {
	if storageSink == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolAddr, err := parseAddress(scenario.Pool.Address)
	if err != nil {
		return nil, fmt.Errorf("pool address: %w", err)
	}
	liquidator, err := parseAddress(scenario.Pool.Liquidator)
	if err != nil {
		return nil, fmt.Errorf("liquidator address: %w", err)
	}
	masterAddr, err := parseAddress(scenario.Master.Address)
	if err != nil {
		return nil, fmt.Errorf("master address: %w", err)
	}

	clock := NewClock(time.Now().UTC().Truncate(time.Second))
	recorder := NewRecorder(clock.Now)

	asset := token.NewLedger()
	masterPool := master.New(masterAddr, asset, logger)

	rate := "0"
	if scenario.Reward.RatePerSecond != "" {
		rate = scenario.Reward.RatePerSecond
	}
	rateValue, err := parseAmount(rate)
	if err != nil {
		return nil, fmt.Errorf("reward rate: %w", err)
	}
	meter := reward.NewMeter(rateValue)
	meter.WithClock(clock.Now)

	var accessGate pool.AccessGate = gate.Open{}
	if len(scenario.Pool.Whitelist) > 0 {
		members := make([]common.Address, 0, len(scenario.Pool.Whitelist))
		for _, member := range scenario.Pool.Whitelist {
			addr, err := parseAddress(member)
			if err != nil {
				return nil, fmt.Errorf("whitelist member: %w", err)
			}
			members = append(members, addr)
		}
		accessGate = gate.NewWhitelist(members...)
	}

	engine, err := pool.NewPool(pool.Config{
		Address:    poolAddr,
		Liquidator: liquidator,
	}, masterPool.Feeder(poolAddr), meter, accessGate, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}

	runner := &Runner{
		cfg:        cfg,
		scenario:   scenario,
		storage:    storageSink,
		logger:     logger,
		clock:      clock,
		recorder:   recorder,
		asset:      asset,
		masterPool: masterPool,
		meter:      meter,
		engine:     engine,
		poolAddr:   poolAddr,
		masterAddr: masterAddr,
		seen:       make(map[common.Address]struct{}),
	}

	for _, depositor := range scenario.Depositors {
		addr, err := parseAddress(depositor.Address)
		if err != nil {
			return nil, fmt.Errorf("depositor address: %w", err)
		}
		balance, err := parseAmount(depositor.Balance)
		if err != nil {
			return nil, fmt.Errorf("depositor %s balance: %w", depositor.Address, err)
		}
		asset.Mint(addr, balance)
		asset.Approve(addr, poolAddr, balance)
		runner.seen[addr] = struct{}{}
	}

	return runner, nil
}

// Pool exposes the engine for inspection after a run.
func (r *Runner) Pool() *pool.Pool {
	return r.engine
}

// Run executes the operation stream at inputPath.
func (r *Runner) Run(ctx context.Context, inputPath string) error {
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 500
	}

	startSeq, err := r.loadStartSeq(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var seq uint64
	var total, applied, skipped, failed int

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		seq++
		total++

		if seq <= startSeq {
			skipped++
			continue
		}

		var op model.OpRecord
		if err := json.Unmarshal(line, &op); err != nil {
			failed++
			r.logger.Warn("decode op", zap.Uint64("seq", seq), zap.Error(err))
			continue
		}
		if op.ID == "" {
			op.ID = uuid.NewString()
		}

		if err := r.apply(op); err != nil {
			failed++
			r.logger.Warn("apply op",
				zap.Uint64("seq", seq),
				zap.String("id", op.ID),
				zap.String("op", op.Op),
				zap.Error(err),
			)
		} else {
			applied++
		}

		if r.recorder.Pending() >= r.cfg.BatchSize {
			if err := r.storage.PutEventBatch(ctx, r.recorder.Drain()); err != nil {
				return fmt.Errorf("store events: %w", err)
			}
			if err := r.saveState(ctx, seq); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := r.storage.PutEventBatch(ctx, r.recorder.Drain()); err != nil {
		return fmt.Errorf("store events: %w", err)
	}
	if err := r.storage.PutPositionBatch(ctx, r.positions()); err != nil {
		return fmt.Errorf("store positions: %w", err)
	}
	if err := r.saveState(ctx, seq); err != nil {
		return err
	}

	r.logger.Info("simulation complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (r *Runner) apply(op model.OpRecord) error {
	if op.At > 0 {
		r.clock.AdvanceTo(time.Duration(op.At) * time.Second)
	}

	switch op.Op {
	case model.OpDeposit:
		addr, err := parseAddress(op.Depositor)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		r.seen[addr] = struct{}{}
		return r.engine.Deposit(addr, amount)

	case model.OpWithdraw:
		addr, err := parseAddress(op.Depositor)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return r.engine.WithdrawPartial(addr, amount)

	case model.OpWithdrawAll:
		addr, err := parseAddress(op.Depositor)
		if err != nil {
			return err
		}
		return r.engine.WithdrawAll(addr)

	case model.OpAccrueYield:
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		// Yield must be token-backed at the master's custody address.
		r.asset.Mint(r.masterAddr, amount)
		r.masterPool.AccrueYield(r.poolAddr, amount)
		return nil

	case model.OpSetDeposits:
		if op.Enabled == nil {
			return fmt.Errorf("enabled flag is required")
		}
		return r.engine.SetDepositsEnabled(*op.Enabled)

	case model.OpSetWithdrawals:
		if op.Enabled == nil {
			return fmt.Errorf("enabled flag is required")
		}
		return r.engine.SetWithdrawalsEnabled(*op.Enabled)

	case model.OpSetRank:
		return r.engine.SetImpairmentRank(op.Rank)

	case model.OpDeactivate:
		caller, err := parseAddress(op.Caller)
		if err != nil {
			return err
		}
		return r.engine.Deactivate(caller)

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

func (r *Runner) positions() []model.Position {
	asOf := uint64(r.clock.Now().Unix())
	positions := make([]model.Position, 0, len(r.seen))
	for addr := range r.seen {
		positions = append(positions, model.Position{
			Pool:         r.poolAddr.Hex(),
			Depositor:    addr.Hex(),
			Units:        r.engine.Units(addr).String(),
			Principal:    r.engine.Principal(addr).String(),
			Balance:      r.engine.TotalBalance(addr).String(),
			Interest:     r.engine.EarnedInterest(addr).String(),
			LockedReward: r.engine.LockedReward(addr).String(),
			AsOf:         asOf,
		})
	}
	return positions
}

func (r *Runner) loadStartSeq(ctx context.Context) (uint64, error) {
	if r.cfg.StateStore == nil {
		return 0, nil
	}
	seq, ok, err := r.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return seq, nil
}

func (r *Runner) saveState(ctx context.Context, seq uint64) error {
	if r.cfg.StateStore == nil {
		return nil
	}
	return r.cfg.StateStore.Save(ctx, seq)
}
