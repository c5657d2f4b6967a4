package model

// Position is a point-in-time snapshot of one depositor's standing in a pool.
type Position struct {
	Pool         string `json:"pool"`
	Depositor    string `json:"depositor"`
	Units        string `json:"units"`
	Principal    string `json:"principal"`
	Balance      string `json:"balance"`
	Interest     string `json:"interest"`
	LockedReward string `json:"locked_reward"`
	AsOf         uint64 `json:"as_of"`
}
