package pool

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feederpool/internal/gate"
	"feederpool/internal/model"
	"feederpool/internal/token"
)

var (
	poolAddr   = common.HexToAddress("0x0000000000000000000000000000000000000f00")
	masterAddr = common.HexToAddress("0x000000000000000000000000000000000000beef")
	liquidator = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

// fakeMaster mirrors one feeder account of an upstream pool: settled value,
// a pending-yield queue folded in on refresh, and token custody moves.
type fakeMaster struct {
	asset      *token.Ledger
	self       common.Address
	feeder     common.Address
	settled    *big.Int
	pending    *big.Int
	refreshErr error
	forwardErr error
}

func (m *fakeMaster) RefreshValuation() error {
	if m.refreshErr != nil {
		return m.refreshErr
	}
	m.settled.Add(m.settled, m.pending)
	m.pending.SetInt64(0)
	return nil
}

func (m *fakeMaster) CurrentValue() *big.Int { return new(big.Int).Set(m.settled) }

func (m *fakeMaster) LiveValue(common.Address) *big.Int { return new(big.Int).Set(m.settled) }

func (m *fakeMaster) DepositForward(amount *big.Int) error {
	if m.forwardErr != nil {
		return m.forwardErr
	}
	if err := m.asset.Transfer(m.feeder, m.self, amount); err != nil {
		return err
	}
	m.settled.Add(m.settled, amount)
	return nil
}

func (m *fakeMaster) WithdrawRelease(amount *big.Int) error {
	if err := m.asset.Transfer(m.self, m.feeder, amount); err != nil {
		return err
	}
	m.settled.Sub(m.settled, amount)
	return nil
}

func (m *fakeMaster) Underlying() AssetLedger { return m.asset }

func (m *fakeMaster) accrue(amount int64) {
	m.asset.Mint(m.self, big.NewInt(amount))
	m.pending.Add(m.pending, big.NewInt(amount))
}

type fakeMeter struct {
	factor *big.Int
}

func (m *fakeMeter) Advance() *big.Int { return new(big.Int).Set(m.factor) }
func (m *fakeMeter) Factor() *big.Int  { return new(big.Int).Set(m.factor) }

type collectSink struct {
	events []model.PoolEvent
}

func (s *collectSink) Emit(event model.PoolEvent) { s.events = append(s.events, event) }

func (s *collectSink) last(eventType string) *model.PoolEvent {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == eventType {
			return &s.events[i]
		}
	}
	return nil
}

type fixture struct {
	pool   *Pool
	asset  *token.Ledger
	master *fakeMaster
	meter  *fakeMeter
	sink   *collectSink
}

func newFixture(t *testing.T, accessGate AccessGate) *fixture {
	t.Helper()
	asset := token.NewLedger()
	fm := &fakeMaster{
		asset:   asset,
		self:    masterAddr,
		feeder:  poolAddr,
		settled: new(big.Int),
		pending: new(big.Int),
	}
	meter := &fakeMeter{factor: new(big.Int)}
	sink := &collectSink{}

	p, err := NewPool(Config{Address: poolAddr, Liquidator: liquidator}, fm, meter, accessGate, sink, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &fixture{pool: p, asset: asset, master: fm, meter: meter, sink: sink}
}

func (f *fixture) fund(addr common.Address, amount int64) {
	f.asset.Mint(addr, big.NewInt(amount))
	f.asset.Approve(addr, poolAddr, big.NewInt(amount))
}

func TestFirstDepositMintsOneToOne(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 1000)

	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.pool.Units(depA); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("units = %s, want 1000", got)
	}
	if got := f.pool.UnitTotal(); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unit total = %s, want 1000", got)
	}
	if got := f.pool.Principal(depA); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("principal = %s, want 1000", got)
	}
	if got := f.asset.BalanceOf(masterAddr); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("master custody = %s, want 1000", got)
	}

	event := f.sink.last(model.EventDeposit)
	if event == nil {
		t.Fatalf("no deposit event emitted")
	}
	if event.Amount != "1000" || event.Units != "1000" {
		t.Fatalf("deposit event = %+v", event)
	}
}

func TestWithdrawAllPaysOutWithYield(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 1000)

	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.master.accrue(100)

	if err := f.pool.WithdrawAll(depA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.asset.BalanceOf(depA); got.Cmp(big.NewInt(1100)) != 0 {
		t.Fatalf("payout = %s, want 1100", got)
	}
	if got := f.pool.Units(depA); got.Sign() != 0 {
		t.Fatalf("units = %s, want 0", got)
	}
	if got := f.pool.UnitTotal(); got.Sign() != 0 {
		t.Fatalf("unit total = %s, want 0", got)
	}
	if got := f.pool.Principal(depA); got.Sign() != 0 {
		t.Fatalf("principal = %s, want 0", got)
	}

	event := f.sink.last(model.EventWithdraw)
	if event == nil {
		t.Fatalf("no withdraw event emitted")
	}
	// (1100 + 1) - 1000
	if event.Interest != "101" {
		t.Fatalf("interest = %s, want 101", event.Interest)
	}
}

func TestWithdrawPartialBurnsCorrectedUnits(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 1000)
	f.fund(depB, 1000)

	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.pool.Deposit(depB, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.pool.Units(depB); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("units B = %s, want 1000", got)
	}

	f.master.accrue(200)

	// B's balance is 1100, so 600 is comfortably partial.
	if err := f.pool.WithdrawPartial(depB, big.NewInt(600)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// unitsToBurn = floor(600*2000/2200) = 545; partial burn takes 546.
	if got := f.pool.Units(depB); got.Cmp(big.NewInt(454)) != 0 {
		t.Fatalf("units B = %s, want 454", got)
	}
	if got := f.pool.UnitTotal(); got.Cmp(big.NewInt(1454)) != 0 {
		t.Fatalf("unit total = %s, want 1454", got)
	}
	// principalOut = floor(545*1000/1000) = 545.
	if got := f.pool.Principal(depB); got.Cmp(big.NewInt(455)) != 0 {
		t.Fatalf("principal B = %s, want 455", got)
	}
	if got := f.pool.PrincipalTotal(); got.Cmp(big.NewInt(1455)) != 0 {
		t.Fatalf("principal total = %s, want 1455", got)
	}
	if got := f.asset.BalanceOf(depB); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("payout = %s, want 600", got)
	}
}

func TestWithdrawPartialRejectsFullBalance(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 1000)

	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Exact equality must be rejected: full withdrawal uses WithdrawAll.
	if err := f.pool.WithdrawPartial(depA, big.NewInt(1000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	if err := f.pool.WithdrawPartial(depA, big.NewInt(2000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
}

func TestEarnedInterestClampsToZero(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 1000)

	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Valuation dips below principal.
	f.master.settled.SetInt64(900)

	if got := f.pool.TotalBalance(depA); got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("balance = %s, want 900", got)
	}
	if got := f.pool.EarnedInterest(depA); got.Sign() != 0 {
		t.Fatalf("interest = %s, want 0", got)
	}

	f.master.settled.SetInt64(1100)
	if got := f.pool.EarnedInterest(depA); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("interest = %s, want 100", got)
	}
}

func TestDeactivateIsOneWay(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 1000)

	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.pool.Deactivate(depA); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if err := f.pool.Deactivate(liquidator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Logical wipe: queries read zero, ledger entries stay.
	if got := f.pool.TotalBalance(depA); got.Sign() != 0 {
		t.Fatalf("balance = %s, want 0", got)
	}
	if got := f.pool.EarnedInterest(depA); got.Sign() != 0 {
		t.Fatalf("interest = %s, want 0", got)
	}
	if got := f.pool.Units(depA); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("units = %s, want 1000", got)
	}

	if err := f.pool.Deactivate(liquidator); !errors.Is(err, ErrPoolInactive) {
		t.Fatalf("error = %v, want ErrPoolInactive", err)
	}
	if err := f.pool.Deposit(depA, big.NewInt(1)); !errors.Is(err, ErrPoolInactive) {
		t.Fatalf("error = %v, want ErrPoolInactive", err)
	}
	if err := f.pool.WithdrawAll(depA); !errors.Is(err, ErrPoolInactive) {
		t.Fatalf("error = %v, want ErrPoolInactive", err)
	}
}

func TestGovernanceRejectsRedundantChanges(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.pool.SetDepositsEnabled(true); !errors.Is(err, ErrRedundantChange) {
		t.Fatalf("error = %v, want ErrRedundantChange", err)
	}
	if err := f.pool.SetDepositsEnabled(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.pool.Deposit(depA, big.NewInt(1)); !errors.Is(err, ErrDepositsDisabled) {
		t.Fatalf("error = %v, want ErrDepositsDisabled", err)
	}

	if err := f.pool.SetWithdrawalsEnabled(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.pool.WithdrawAll(depA); !errors.Is(err, ErrWithdrawalsDisabled) {
		t.Fatalf("error = %v, want ErrWithdrawalsDisabled", err)
	}

	if err := f.pool.SetImpairmentRank(0); !errors.Is(err, ErrRedundantChange) {
		t.Fatalf("error = %v, want ErrRedundantChange", err)
	}
	if err := f.pool.SetImpairmentRank(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.pool.ImpairmentRank(); got != 3 {
		t.Fatalf("rank = %d, want 3", got)
	}
}

func TestZeroAmountRejected(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.pool.Deposit(depA, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("error = %v, want ErrZeroAmount", err)
	}
	if err := f.pool.Deposit(depA, nil); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("error = %v, want ErrZeroAmount", err)
	}
	if err := f.pool.WithdrawPartial(depA, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("error = %v, want ErrZeroAmount", err)
	}
	// WithdrawAll with no units held.
	if err := f.pool.WithdrawAll(depA); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("error = %v, want ErrZeroAmount", err)
	}
}

func TestWhitelistGateBlocksOutsiders(t *testing.T) {
	f := newFixture(t, gate.NewWhitelist(depA))
	f.fund(depA, 1000)
	f.fund(depB, 1000)

	if err := f.pool.Deposit(depA, big.NewInt(500)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.pool.Deposit(depB, big.NewInt(500)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if err := f.pool.WithdrawAll(depB); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestFailedDepositLeavesNoTrace(t *testing.T) {
	f := newFixture(t, nil)
	// Funded but the pool is only approved for 500.
	f.asset.Mint(depA, big.NewInt(1000))
	f.asset.Approve(depA, poolAddr, big.NewInt(500))

	err := f.pool.Deposit(depA, big.NewInt(1000))
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("error = %v, want ErrInsufficientAllowance", err)
	}

	if got := f.pool.Units(depA); got.Sign() != 0 {
		t.Fatalf("units = %s, want 0", got)
	}
	if got := f.pool.UnitTotal(); got.Sign() != 0 {
		t.Fatalf("unit total = %s, want 0", got)
	}
	if got := f.pool.Principal(depA); got.Sign() != 0 {
		t.Fatalf("principal = %s, want 0", got)
	}
	if got := f.pool.PrincipalTotal(); got.Sign() != 0 {
		t.Fatalf("principal total = %s, want 0", got)
	}
	if got := f.asset.BalanceOf(depA); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("balance = %s, want 1000", got)
	}
}

func TestRewardSnapshotWeightedByPrincipal(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 2000)

	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Factor advances by one WAD, then A doubles their principal: snapshot
	// becomes the principal-weighted average WAD/2.
	f.meter.factor = new(big.Int).Set(WAD)
	if err := f.pool.Deposit(depA, big.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.pool.WithdrawAll(depA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// locked = 2000 * (WAD - WAD/2) / WAD = 1000
	if got := f.pool.LockedReward(depA); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("locked reward = %s, want 1000", got)
	}
}

func TestUnitInvariantAcrossOperations(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(depA, 5000)
	f.fund(depB, 5000)

	steps := []func() error{
		func() error { return f.pool.Deposit(depA, big.NewInt(1000)) },
		func() error { return f.pool.Deposit(depB, big.NewInt(3000)) },
		func() error { f.master.accrue(400); return f.pool.WithdrawPartial(depB, big.NewInt(700)) },
		func() error { return f.pool.Deposit(depA, big.NewInt(1200)) },
		func() error { return f.pool.WithdrawAll(depA) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		sum := new(big.Int).Add(f.pool.Units(depA), f.pool.Units(depB))
		if sum.Cmp(f.pool.UnitTotal()) != 0 {
			t.Fatalf("step %d: unit sum %s != total %s", i, sum, f.pool.UnitTotal())
		}
		principals := new(big.Int).Add(f.pool.Principal(depA), f.pool.Principal(depB))
		if principals.Cmp(f.pool.PrincipalTotal()) != 0 {
			t.Fatalf("step %d: principal sum %s != total %s", i, principals, f.pool.PrincipalTotal())
		}
	}
}
