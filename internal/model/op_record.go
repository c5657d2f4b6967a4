package model

// Operation kinds accepted by the simulator input stream.
const (
	OpDeposit        = "deposit"
	OpWithdraw       = "withdraw"
	OpWithdrawAll    = "withdraw_all"
	OpAccrueYield    = "accrue_yield"
	OpSetDeposits    = "set_deposits"
	OpSetWithdrawals = "set_withdrawals"
	OpSetRank        = "set_rank"
	OpDeactivate     = "deactivate"
)

// OpRecord is one line of the simulator operation stream (JSONL).
// At is an offset in seconds from the scenario start; the simulator clock is
// advanced to it before the operation is applied.
type OpRecord struct {
	ID        string `json:"id,omitempty"`
	Op        string `json:"op"`
	Depositor string `json:"depositor,omitempty"`
	Caller    string `json:"caller,omitempty"`
	Amount    string `json:"amount,omitempty"`
	At        uint64 `json:"at,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
	Rank      uint64 `json:"rank,omitempty"`
}
