package model

// OpportunityRecord is an emitted arbitrage signal.
type OpportunityRecord struct {
	ID           string `json:"id"`
	PoolIn       string `json:"pool_in"`
	PoolOut      string `json:"pool_out"`
	TokenIn      string `json:"token_in"`
	TokenMid     string `json:"token_mid"`
	AmountIn     string `json:"amount_in"`
	AmountMid    string `json:"amount_mid"`
	AmountOut    string `json:"amount_out"`
	Profit       string `json:"profit"`
	IsProfitable bool   `json:"is_profitable"`
	Block        uint64 `json:"block"`
	FoundAt      string `json:"found_at"`
}
