package models

const (
	TypeReceive = "receive"
	TypeSend    = "send"
)

// Valuation compares a transaction's USD value on its own day with its
// value at the current market price.
type Valuation struct {
	TxID       string  `json:"txid"`
	Time       string  `json:"time"`
	Amount     float64 `json:"amount"`
	USDAmount  float64 `json:"usdAmount"`
	CurrentUSD float64 `json:"currentUsd"`
	DiffUSD    float64 `json:"diffUsd"`
	Type       string  `json:"type"`
}

type Summary struct {
	Count       int     `json:"count"`
	ReceivedBTC float64 `json:"receivedBtc"`
	SentBTC     float64 `json:"sentBtc"`
	USDAmount   float64 `json:"usdAmount"`
	CurrentUSD  float64 `json:"currentUsd"`
	DiffUSD     float64 `json:"diffUsd"`
}
