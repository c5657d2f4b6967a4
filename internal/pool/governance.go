package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feederpool/internal/model"
)

// SetDepositsEnabled toggles the deposit gate. Setting the current value
// again fails, to catch accidental redundant governance calls.
func (p *Pool) SetDepositsEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.depositsEnabled == enabled {
		return ErrRedundantChange
	}
	p.depositsEnabled = enabled
	p.emit(model.PoolEvent{Type: model.EventGateStatus, Gate: model.GateDeposits, Enabled: enabled})
	p.logger.Info("deposit gate changed", zap.Bool("enabled", enabled))
	return nil
}

// SetWithdrawalsEnabled toggles the withdrawal gate.
func (p *Pool) SetWithdrawalsEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.withdrawalsEnabled == enabled {
		return ErrRedundantChange
	}
	p.withdrawalsEnabled = enabled
	p.emit(model.PoolEvent{Type: model.EventGateStatus, Gate: model.GateWithdrawals, Enabled: enabled})
	p.logger.Info("withdrawal gate changed", zap.Bool("enabled", enabled))
	return nil
}

// SetImpairmentRank updates the ordering metadata used by the external
// impairment cascade. The new rank must differ from the current one.
func (p *Pool) SetImpairmentRank(rank uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.impairmentRank == rank {
		return ErrRedundantChange
	}
	p.impairmentRank = rank
	p.emit(model.PoolEvent{Type: model.EventImpairmentRank, Rank: rank})
	p.logger.Info("impairment rank changed", zap.Uint64("rank", rank))
	return nil
}

// Deactivate permanently shuts the pool down. Only the configured liquidation
// authority may call it, and there is no way back: all balance and interest
// queries read zero afterwards, but ledger entries are left untouched.
func (p *Pool) Deactivate(caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.cfg.Liquidator {
		return ErrUnauthorized
	}
	if !p.active {
		return ErrPoolInactive
	}
	p.active = false
	p.emit(model.PoolEvent{Type: model.EventDeactivated})
	p.logger.Info("pool deactivated", zap.String("liquidator", caller.Hex()))
	return nil
}
