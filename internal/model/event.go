package model

import "encoding/json"

// Pool event types.
const (
	EventDeposit        = "deposit"
	EventWithdraw       = "withdraw"
	EventUnitTotal      = "unit_total_changed"
	EventCachedValue    = "cached_value_changed"
	EventImpairmentRank = "impairment_rank_changed"
	EventGateStatus     = "gate_status_changed"
	EventDeactivated    = "deactivated"
)

// Gate names used by gate_status_changed events.
const (
	GateDeposits    = "deposits"
	GateWithdrawals = "withdrawals"
)

// PoolEvent is the normalized representation of a pool engine event for storage.
// Amounts are string-encoded big integers; Interest may be negative.
type PoolEvent struct {
	ID          string `json:"id"`
	Seq         uint64 `json:"seq"`
	Type        string `json:"type"`
	Pool        string `json:"pool"`
	Depositor   string `json:"depositor,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Units       string `json:"units,omitempty"`
	Principal   string `json:"principal,omitempty"`
	Interest    string `json:"interest,omitempty"`
	UnitTotal   string `json:"unit_total,omitempty"`
	CachedValue string `json:"cached_value,omitempty"`
	Rank        uint64 `json:"rank,omitempty"`
	Gate        string `json:"gate,omitempty"`
	Enabled     bool   `json:"enabled,omitempty"`
	Timestamp   uint64 `json:"timestamp"`
}

// MarshalJSON ensures PoolEvent is encoded with stable field names.
func (e PoolEvent) MarshalJSON() ([]byte, error) {
	type Alias PoolEvent
	return json.Marshal(Alias(e))
}

// UnmarshalJSON decodes a PoolEvent from JSON.
func (e *PoolEvent) UnmarshalJSON(data []byte) error {
	type Alias PoolEvent
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = PoolEvent(a)
	return nil
}
