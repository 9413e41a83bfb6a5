package model

// CheckpointRecord is the document written by every checkpoint backend.
type CheckpointRecord struct {
	Timestamp   int64           `json:"timestamp"`
	BlockNumber uint64          `json:"block_number"`
	Factories   []FactoryRecord `json:"factories"`
	Pools       []PoolRecord    `json:"pools"`
}
