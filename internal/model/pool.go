package model

// PoolRecord is the persisted form of a pool. Reserves are decimal strings
// so values wider than 64 bits survive any JSON decoder.
type PoolRecord struct {
	Kind      string `json:"kind"`
	Address   string `json:"address"`
	TokenA    string `json:"token_a"`
	TokenB    string `json:"token_b"`
	DecimalsA uint8  `json:"decimals_a"`
	DecimalsB uint8  `json:"decimals_b"`
	ReserveA  string `json:"reserve_a"`
	ReserveB  string `json:"reserve_b"`
	Fee       uint32 `json:"fee"`
}
