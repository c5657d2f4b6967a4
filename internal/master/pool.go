package master

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feederpool/internal/pool"
)

// Pool is an in-memory master pool shared by multiple feeder pools. It keeps
// one settled balance per feeder and a pending-yield queue that is folded in
// only when a feeder forces a valuation refresh, so live reads can lag the
// last settled transaction. All access is serialized; feeders sharing the
// pool never observe a half-applied refresh.
type Pool struct {
	mu      sync.Mutex
	addr    common.Address
	asset   pool.AssetLedger
	settled map[common.Address]*big.Int
	pending map[common.Address]*big.Int
	logger  *zap.Logger
}

// New builds a master pool holding custody at addr on the given asset ledger.
// Yield credited via AccrueYield must be token-backed at addr by the caller.
func New(addr common.Address, asset pool.AssetLedger, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		addr:    addr,
		asset:   asset,
		settled: make(map[common.Address]*big.Int),
		pending: make(map[common.Address]*big.Int),
		logger:  logger,
	}
}

// Address returns the master pool's custody address.
func (m *Pool) Address() common.Address {
	return m.addr
}

// AccrueYield queues yield for a feeder. It becomes visible to settled reads
// only after that feeder's next RefreshValuation.
func (m *Pool) AccrueYield(feeder common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(m.pending, feeder).Add(m.entry(m.pending, feeder), amount)
	m.logger.Debug("yield queued",
		zap.String("feeder", feeder.Hex()),
		zap.String("amount", amount.String()),
	)
}

// SettledValue returns the feeder's settled balance without refreshing.
func (m *Pool) SettledValue(feeder common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.entry(m.settled, feeder))
}

// Feeder returns the per-feeder facade a feeder pool uses as its upstream.
func (m *Pool) Feeder(feeder common.Address) *FeederAccount {
	return &FeederAccount{master: m, feeder: feeder}
}

func (m *Pool) entry(table map[common.Address]*big.Int, feeder common.Address) *big.Int {
	value, ok := table[feeder]
	if !ok {
		value = new(big.Int)
		table[feeder] = value
	}
	return value
}

// FeederAccount binds the master pool's collaborator surface to one feeder.
type FeederAccount struct {
	master *Pool
	feeder common.Address
}

var _ pool.MasterPool = (*FeederAccount)(nil)

// RefreshValuation folds any pending yield into the feeder's settled balance.
func (f *FeederAccount) RefreshValuation() error {
	m := f.master
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.entry(m.pending, f.feeder)
	if pending.Sign() > 0 {
		m.entry(m.settled, f.feeder).Add(m.entry(m.settled, f.feeder), pending)
		pending.SetInt64(0)
	}
	return nil
}

// CurrentValue returns the feeder's settled balance.
func (f *FeederAccount) CurrentValue() *big.Int {
	return f.master.SettledValue(f.feeder)
}

// LiveValue returns the settled balance for the named pool without folding
// pending yield, so it may lag a refresh another feeder forced.
func (f *FeederAccount) LiveValue(pool common.Address) *big.Int {
	return f.master.SettledValue(pool)
}

// DepositForward pulls amount from the feeder into master custody and grows
// the feeder's settled balance.
func (f *FeederAccount) DepositForward(amount *big.Int) error {
	m := f.master
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.asset.Transfer(f.feeder, m.addr, amount); err != nil {
		return fmt.Errorf("forward custody: %w", err)
	}
	m.entry(m.settled, f.feeder).Add(m.entry(m.settled, f.feeder), amount)
	return nil
}

// WithdrawRelease pays amount from master custody back to the feeder and
// shrinks the feeder's settled balance.
func (f *FeederAccount) WithdrawRelease(amount *big.Int) error {
	m := f.master
	m.mu.Lock()
	defer m.mu.Unlock()

	settled := m.entry(m.settled, f.feeder)
	if settled.Cmp(amount) < 0 {
		return fmt.Errorf("release %s exceeds settled balance %s", amount, settled)
	}
	if err := m.asset.Transfer(m.addr, f.feeder, amount); err != nil {
		return fmt.Errorf("release custody: %w", err)
	}
	settled.Sub(settled, amount)
	return nil
}

// Underlying returns the asset ledger the pool settles in.
func (f *FeederAccount) Underlying() pool.AssetLedger {
	return f.master.asset
}
