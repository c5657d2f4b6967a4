package model

// ValueSample is one observation of an upstream pool's asset holdings.
type ValueSample struct {
	ChainID     uint64 `json:"chain_id"`
	Pool        string `json:"pool"`
	Asset       string `json:"asset"`
	Value       string `json:"value"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   uint64 `json:"timestamp"`
	Method      string `json:"method"`
	SampledAt   string `json:"sampled_at"`
}
