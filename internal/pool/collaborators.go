package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"feederpool/internal/model"
)

// MasterPool is the upstream pool a feeder forwards funds into and sources
// valuation from. CurrentValue is the settled snapshot agreed with the master
// for the duration of one operation after RefreshValuation; LiveValue is a
// non-mutating read that may lag the last settled transaction.
type MasterPool interface {
	RefreshValuation() error
	CurrentValue() *big.Int
	LiveValue(pool common.Address) *big.Int
	DepositForward(amount *big.Int) error
	WithdrawRelease(amount *big.Int) error
	Underlying() AssetLedger
}

// AssetLedger moves the underlying fungible asset. TransferFrom pulls from
// an owner using an allowance granted to spender; both fail atomically on
// insufficient balance or allowance.
type AssetLedger interface {
	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// RewardMeter is the shared time-weighted reward factor. Advance moves the
// global factor forward for elapsed time and returns its new value; Factor
// reads it without advancing. Values are WAD-scaled and monotone.
type RewardMeter interface {
	Advance() *big.Int
	Factor() *big.Int
}

// AccessGate wraps the deposit/withdraw entry points. The orchestrator is
// identical regardless of which gate variant is injected.
type AccessGate interface {
	Authorize(caller common.Address) bool
}

// EventSink receives pool observability events. Implementations stamp IDs,
// sequence numbers, and timestamps.
type EventSink interface {
	Emit(event model.PoolEvent)
}
