package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger tracks per-depositor unit balances and the global unit total.
// Pure arithmetic, no external calls; the notify callback fires with the new
// total after every mint and burn.
type Ledger struct {
	units  map[common.Address]*big.Int
	total  *big.Int
	notify func(total *big.Int)
}

func NewLedger(notify func(total *big.Int)) *Ledger {
	return &Ledger{
		units:  make(map[common.Address]*big.Int),
		total:  new(big.Int),
		notify: notify,
	}
}

// Units returns a copy of the depositor's unit balance.
func (l *Ledger) Units(depositor common.Address) *big.Int {
	held, ok := l.units[depositor]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(held)
}

// UnitTotal returns a copy of the global unit total.
func (l *Ledger) UnitTotal() *big.Int {
	return new(big.Int).Set(l.total)
}

// Mint adds amount to the depositor's balance and the unit total. The caller
// guarantees amount already reflects any necessary rounding.
func (l *Ledger) Mint(depositor common.Address, amount *big.Int) {
	held, ok := l.units[depositor]
	if !ok {
		held = new(big.Int)
		l.units[depositor] = held
	}
	held.Add(held, amount)
	l.total.Add(l.total, amount)
	if l.notify != nil {
		l.notify(l.UnitTotal())
	}
}

// Burn removes amount from the depositor's balance and the unit total.
// A burn that matches neither the depositor's full balance nor the full unit
// total removes amount+1 instead: partial-withdrawal unit math floors in the
// depositor's favor by at most one unit, and the extra unit hands that slack
// back to the remaining pool. Full-balance and full-pool burns carry no
// rounding error and remove exactly amount. Returns the units removed.
func (l *Ledger) Burn(depositor common.Address, amount *big.Int) (*big.Int, error) {
	held, ok := l.units[depositor]
	if !ok || held.Sign() == 0 {
		return nil, fmt.Errorf("depositor holds no units")
	}

	burn := new(big.Int).Set(amount)
	if amount.Cmp(held) != 0 && amount.Cmp(l.total) != 0 {
		burn.Add(burn, big.NewInt(1))
	}

	if burn.Cmp(held) > 0 {
		return nil, fmt.Errorf("burn %s exceeds depositor units %s", burn, held)
	}
	if burn.Cmp(l.total) > 0 {
		return nil, fmt.Errorf("burn %s exceeds unit total %s", burn, l.total)
	}

	held.Sub(held, burn)
	l.total.Sub(l.total, burn)
	if l.notify != nil {
		l.notify(l.UnitTotal())
	}
	return burn, nil
}

// setUnits overwrites a depositor balance and the total without firing the
// change notification; used only to restore pre-operation state on abort.
func (l *Ledger) setUnits(depositor common.Address, units, total *big.Int) {
	l.units[depositor] = new(big.Int).Set(units)
	l.total.Set(total)
}
