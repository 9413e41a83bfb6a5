package model

// FactoryRecord is the persisted form of a factory.
type FactoryRecord struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Fee     uint32 `json:"fee"`
}
