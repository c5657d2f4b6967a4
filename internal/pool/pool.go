package pool

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feederpool/internal/model"
)

// WAD is the fixed-point scale for reward factors.
var WAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Config identifies a feeder pool instance.
type Config struct {
	// Address is the pool's own identity on the asset ledger and toward the
	// master pool.
	Address common.Address
	// Liquidator is the only caller allowed to deactivate the pool.
	Liquidator common.Address
}

// depositorState holds everything about a depositor except their units,
// which live in the Ledger. Records are never deleted, only reset to zero.
type depositorState struct {
	principal    *big.Int
	snapshot     *big.Int
	lockedReward *big.Int
}

func newDepositorState() *depositorState {
	return &depositorState{
		principal:    new(big.Int),
		snapshot:     new(big.Int),
		lockedReward: new(big.Int),
	}
}

func (d *depositorState) clone() *depositorState {
	return &depositorState{
		principal:    new(big.Int).Set(d.principal),
		snapshot:     new(big.Int).Set(d.snapshot),
		lockedReward: new(big.Int).Set(d.lockedReward),
	}
}

// Pool is a feeder pool: it aggregates depositor funds, forwards them into a
// master pool, and tracks proportional ownership through the unit ledger.
// Operations are serialized; each either completes fully or leaves no trace.
type Pool struct {
	mu sync.RWMutex

	cfg    Config
	master MasterPool
	meter  RewardMeter
	asset  AssetLedger
	gate   AccessGate
	sink   EventSink
	logger *zap.Logger

	ledger         *Ledger
	depositors     map[common.Address]*depositorState
	principalTotal *big.Int
	cachedValue    *big.Int

	active             bool
	depositsEnabled    bool
	withdrawalsEnabled bool
	impairmentRank     uint64
}

// NewPool builds a feeder pool around its collaborators. The pool starts
// active with both gates open.
func NewPool(cfg Config, master MasterPool, meter RewardMeter, gate AccessGate, sink EventSink, logger *zap.Logger) (*Pool, error) {
	if master == nil {
		return nil, fmt.Errorf("master pool is nil")
	}
	if meter == nil {
		return nil, fmt.Errorf("reward meter is nil")
	}
	asset := master.Underlying()
	if asset == nil {
		return nil, fmt.Errorf("underlying asset is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		cfg:                cfg,
		master:             master,
		meter:              meter,
		asset:              asset,
		gate:               gate,
		sink:               sink,
		logger:             logger,
		depositors:         make(map[common.Address]*depositorState),
		principalTotal:     new(big.Int),
		cachedValue:        new(big.Int),
		active:             true,
		depositsEnabled:    true,
		withdrawalsEnabled: true,
	}
	p.ledger = NewLedger(func(total *big.Int) {
		p.emit(model.PoolEvent{Type: model.EventUnitTotal, UnitTotal: total.String()})
	})
	return p, nil
}

// Address returns the pool's own identity.
func (p *Pool) Address() common.Address {
	return p.cfg.Address
}

// Deposit pulls amount of the underlying asset from caller, forwards it into
// the master pool, and mints units against the settled valuation.
func (p *Pool) Deposit(caller common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gate != nil && !p.gate.Authorize(caller) {
		return ErrUnauthorized
	}
	if !p.depositsEnabled {
		return ErrDepositsDisabled
	}
	if !p.active {
		return ErrPoolInactive
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}

	if err := p.master.RefreshValuation(); err != nil {
		return fmt.Errorf("refresh valuation: %w", err)
	}
	factor := p.meter.Advance()

	unitTotal := p.ledger.UnitTotal()
	var minted *big.Int
	if unitTotal.Sign() == 0 {
		// First deposit establishes the 1:1 unit:value exchange rate.
		minted = new(big.Int).Set(amount)
	} else {
		value := p.master.CurrentValue()
		if value == nil || value.Sign() == 0 {
			return fmt.Errorf("upstream value is zero with %s units outstanding", unitTotal)
		}
		minted = new(big.Int).Mul(amount, unitTotal)
		minted.Quo(minted, value)
	}
	if minted.Sign() == 0 {
		return ErrZeroAmount
	}

	snap := p.capture(caller)
	dep := p.depositor(caller)

	p.ledger.Mint(caller, minted)

	// Principal-weighted average keeps reward already accrued against the
	// old principal intact across the snapshot move.
	num := new(big.Int).Mul(factor, amount)
	num.Add(num, new(big.Int).Mul(dep.snapshot, dep.principal))
	den := new(big.Int).Add(amount, dep.principal)
	dep.snapshot = num.Quo(num, den)

	dep.principal.Add(dep.principal, amount)
	p.principalTotal.Add(p.principalTotal, amount)

	if err := p.asset.TransferFrom(p.cfg.Address, caller, p.cfg.Address, amount); err != nil {
		p.restore(caller, snap)
		return fmt.Errorf("pull deposit: %w", err)
	}
	if err := p.master.DepositForward(amount); err != nil {
		p.restore(caller, snap)
		// Hand the pulled funds back before surfacing the abort.
		_ = p.asset.Transfer(p.cfg.Address, caller, amount)
		return fmt.Errorf("forward deposit: %w", err)
	}

	p.refreshCachedValue()
	p.emit(model.PoolEvent{
		Type:      model.EventDeposit,
		Depositor: caller.Hex(),
		Amount:    amount.String(),
		Units:     minted.String(),
	})

	p.logger.Info("deposit complete",
		zap.String("depositor", caller.Hex()),
		zap.String("amount", amount.String()),
		zap.String("units", minted.String()),
	)
	return nil
}

// WithdrawPartial withdraws amount, which must be strictly less than the
// depositor's total balance; a full withdrawal must use WithdrawAll.
func (p *Pool) WithdrawPartial(caller common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gate != nil && !p.gate.Authorize(caller) {
		return ErrUnauthorized
	}
	if !p.withdrawalsEnabled {
		return ErrWithdrawalsDisabled
	}
	if !p.active {
		return ErrPoolInactive
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}

	if err := p.master.RefreshValuation(); err != nil {
		return fmt.Errorf("refresh valuation: %w", err)
	}
	factor := p.meter.Advance()

	value := p.master.CurrentValue()
	unitTotal := p.ledger.UnitTotal()
	units := p.ledger.Units(caller)

	total := new(big.Int)
	if unitTotal.Sign() > 0 && value != nil {
		total.Mul(units, value)
		total.Quo(total, unitTotal)
	}
	if amount.Cmp(total) >= 0 {
		return ErrInsufficientFunds
	}

	unitsToBurn := new(big.Int).Mul(amount, unitTotal)
	unitsToBurn.Quo(unitsToBurn, value)

	dep := p.depositor(caller)
	principalOut := new(big.Int).Mul(unitsToBurn, dep.principal)
	principalOut.Quo(principalOut, units)

	return p.settle(caller, principalOut, amount, unitsToBurn, factor)
}

// WithdrawAll withdraws the depositor's entire balance, burning their full
// unit holding and attributing their full principal.
func (p *Pool) WithdrawAll(caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gate != nil && !p.gate.Authorize(caller) {
		return ErrUnauthorized
	}
	if !p.withdrawalsEnabled {
		return ErrWithdrawalsDisabled
	}
	if !p.active {
		return ErrPoolInactive
	}

	units := p.ledger.Units(caller)
	if units.Sign() == 0 {
		return ErrZeroAmount
	}

	if err := p.master.RefreshValuation(); err != nil {
		return fmt.Errorf("refresh valuation: %w", err)
	}
	factor := p.meter.Advance()

	value := p.master.CurrentValue()
	unitTotal := p.ledger.UnitTotal()

	amount := new(big.Int).Mul(units, value)
	amount.Quo(amount, unitTotal)

	dep := p.depositor(caller)
	principalOut := new(big.Int).Set(dep.principal)

	return p.settle(caller, principalOut, amount, units, factor)
}

// settle is the shared tail of both withdrawal paths: realize accrued reward
// for the principal leaving, shrink the ledgers, release funds upstream, and
// pay the depositor.
func (p *Pool) settle(caller common.Address, principalOut, amount, unitsToBurn, factor *big.Int) error {
	snap := p.capture(caller)
	dep := p.depositor(caller)

	accrued := new(big.Int).Sub(factor, dep.snapshot)
	accrued.Mul(accrued, principalOut)
	accrued.Quo(accrued, WAD)
	if accrued.Sign() > 0 {
		dep.lockedReward.Add(dep.lockedReward, accrued)
	}

	dep.principal.Sub(dep.principal, principalOut)
	p.principalTotal.Sub(p.principalTotal, principalOut)

	burned, err := p.ledger.Burn(caller, unitsToBurn)
	if err != nil {
		p.restore(caller, snap)
		return fmt.Errorf("burn units: %w", err)
	}

	if err := p.master.WithdrawRelease(amount); err != nil {
		p.restore(caller, snap)
		return fmt.Errorf("release withdrawal: %w", err)
	}

	p.refreshCachedValue()

	if err := p.asset.Transfer(p.cfg.Address, caller, amount); err != nil {
		p.restore(caller, snap)
		// Best effort: push the released funds back upstream before aborting.
		_ = p.master.DepositForward(amount)
		return fmt.Errorf("pay out withdrawal: %w", err)
	}

	// The +1 offsets burn-side rounding so reported interest is not
	// systematically understated. May be negative.
	interest := new(big.Int).Add(amount, big.NewInt(1))
	interest.Sub(interest, principalOut)

	p.emit(model.PoolEvent{
		Type:      model.EventWithdraw,
		Depositor: caller.Hex(),
		Amount:    amount.String(),
		Principal: principalOut.String(),
		Interest:  interest.String(),
		Units:     unitsToBurn.String(),
	})

	p.logger.Info("withdrawal complete",
		zap.String("depositor", caller.Hex()),
		zap.String("amount", amount.String()),
		zap.String("principal", principalOut.String()),
		zap.String("units_burned", burned.String()),
	)
	return nil
}

// opSnapshot captures the mutable state one operation may touch.
type opSnapshot struct {
	dep            *depositorState
	units          *big.Int
	unitTotal      *big.Int
	principalTotal *big.Int
}

func (p *Pool) capture(caller common.Address) opSnapshot {
	return opSnapshot{
		dep:            p.depositor(caller).clone(),
		units:          p.ledger.Units(caller),
		unitTotal:      p.ledger.UnitTotal(),
		principalTotal: new(big.Int).Set(p.principalTotal),
	}
}

func (p *Pool) restore(caller common.Address, snap opSnapshot) {
	p.depositors[caller] = snap.dep
	p.ledger.setUnits(caller, snap.units, snap.unitTotal)
	p.principalTotal.Set(snap.principalTotal)
}

func (p *Pool) depositor(caller common.Address) *depositorState {
	dep, ok := p.depositors[caller]
	if !ok {
		dep = newDepositorState()
		p.depositors[caller] = dep
	}
	return dep
}

func (p *Pool) refreshCachedValue() {
	value := p.master.CurrentValue()
	if value == nil {
		value = new(big.Int)
	}
	p.cachedValue.Set(value)
	p.emit(model.PoolEvent{Type: model.EventCachedValue, CachedValue: value.String()})
}

func (p *Pool) emit(event model.PoolEvent) {
	if p.sink == nil {
		return
	}
	event.Pool = p.cfg.Address.Hex()
	p.sink.Emit(event)
}
