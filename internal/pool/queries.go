package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TotalBalance returns the depositor's current claim in asset terms using the
// live upstream valuation. Zero once the pool is deactivated or while no
// units are outstanding.
func (p *Pool) TotalBalance(depositor common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalBalance(depositor)
}

func (p *Pool) totalBalance(depositor common.Address) *big.Int {
	if !p.active {
		return new(big.Int)
	}
	unitTotal := p.ledger.UnitTotal()
	if unitTotal.Sign() == 0 {
		return new(big.Int)
	}
	live := p.master.LiveValue(p.cfg.Address)
	if live == nil {
		return new(big.Int)
	}
	balance := new(big.Int).Mul(p.ledger.Units(depositor), live)
	return balance.Quo(balance, unitTotal)
}

// EarnedInterest returns the depositor's balance in excess of their principal,
// clamped to zero: a transient valuation dip must never read as negative
// earned interest.
func (p *Pool) EarnedInterest(depositor common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.active {
		return new(big.Int)
	}
	balance := p.totalBalance(depositor)
	principal := p.depositorPrincipal(depositor)
	if balance.Cmp(principal) < 0 {
		return new(big.Int)
	}
	return balance.Sub(balance, principal)
}

// Units returns the depositor's unit balance.
func (p *Pool) Units(depositor common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Units(depositor)
}

// UnitTotal returns the global unit total.
func (p *Pool) UnitTotal() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.UnitTotal()
}

// Principal returns the depositor's outstanding principal.
func (p *Pool) Principal(depositor common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.depositorPrincipal(depositor)
}

// PrincipalTotal returns the pool-wide principal total.
func (p *Pool) PrincipalTotal() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.principalTotal)
}

// LockedReward returns reward settled to the depositor but not yet claimed
// through the reward subsystem.
func (p *Pool) LockedReward(depositor common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if dep, ok := p.depositors[depositor]; ok {
		return new(big.Int).Set(dep.lockedReward)
	}
	return new(big.Int)
}

// CachedValue returns the last-observed upstream valuation. Advisory only.
func (p *Pool) CachedValue() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.cachedValue)
}

// Active reports whether the pool has not been deactivated.
func (p *Pool) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// ImpairmentRank returns the pool's impairment ordering metadata.
func (p *Pool) ImpairmentRank() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.impairmentRank
}

func (p *Pool) depositorPrincipal(depositor common.Address) *big.Int {
	if dep, ok := p.depositors[depositor]; ok {
		return new(big.Int).Set(dep.principal)
	}
	return new(big.Int)
}
