package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feederpool/internal/model"
)

// Store provides Postgres persistence for pool events, positions, valuation
// samples, and pipeline state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEventBatch inserts pool events, skipping IDs already stored.
func (s *Store) PutEventBatch(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				id, seq, event_type, pool_address, depositor, amount, units,
				principal, interest, unit_total, cached_value, rank, gate,
				enabled, event_ts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
			ON CONFLICT (id) DO NOTHING
		`,
			e.ID,
			int64(e.Seq),
			e.Type,
			e.Pool,
			e.Depositor,
			e.Amount,
			e.Units,
			e.Principal,
			e.Interest,
			e.UnitTotal,
			e.CachedValue,
			int64(e.Rank),
			e.Gate,
			e.Enabled,
			int64(e.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutPositionBatch upserts the latest position per pool and depositor.
func (s *Store) PutPositionBatch(ctx context.Context, positions []model.Position) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
			INSERT INTO positions (
				pool_address, depositor, units, principal, balance, interest,
				locked_reward, as_of, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
			ON CONFLICT (pool_address, depositor)
			DO UPDATE SET
				units = EXCLUDED.units,
				principal = EXCLUDED.principal,
				balance = EXCLUDED.balance,
				interest = EXCLUDED.interest,
				locked_reward = EXCLUDED.locked_reward,
				as_of = EXCLUDED.as_of,
				updated_at = now()
		`,
			p.Pool,
			p.Depositor,
			p.Units,
			p.Principal,
			p.Balance,
			p.Interest,
			p.LockedReward,
			int64(p.AsOf),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range positions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutValueSampleBatch inserts valuation samples, deduplicating by pool and
// block.
func (s *Store) PutValueSampleBatch(ctx context.Context, samples []model.ValueSample) error {
	if len(samples) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sample := range samples {
		batch.Queue(`
			INSERT INTO value_samples (
				chain_id, pool_address, asset, value, block_number, block_ts,
				method, sampled_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
			ON CONFLICT (chain_id, pool_address, block_number) DO NOTHING
		`,
			int64(sample.ChainID),
			sample.Pool,
			sample.Asset,
			sample.Value,
			int64(sample.BlockNumber),
			int64(sample.Timestamp),
			sample.Method,
			sample.SampledAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range samples {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_seq for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_seq FROM feeder_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return seq, true, nil
}

// SaveState upserts last_processed_seq for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feeder_state (name, last_processed_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_seq = EXCLUDED.last_processed_seq, updated_at = now()
	`, name, seq)
	return err
}
