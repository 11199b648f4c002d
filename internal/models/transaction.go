package models

// Transaction is one balance change reported by the indexer for a key.
type Transaction struct {
	BlockID       int64  `json:"block_id"`
	Hash          string `json:"hash"`
	Time          string `json:"time"` // e.g. "2024-12-01 13:55:41", UTC
	BalanceChange int64  `json:"balance_change"`
	Address       string `json:"address"`
}

// Dashboard is the slice of an xpub dashboard the valuation needs.
type Dashboard struct {
	Key            string
	Transactions   []Transaction
	MarketPriceUSD float64
}
