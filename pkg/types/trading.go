package types

import "time"

// Fill records one executed trade. Fills are immutable and append-only,
// ordered by execution time within a ledger.
type Fill struct {
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"` // BUY or SELL
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	Timestamp time.Time `json:"timestamp"`
}

// Value returns the gross notional of the fill before fees.
func (f Fill) Value() float64 {
	return f.Quantity * f.Price
}

// EquityPoint is one sample of total portfolio value over time.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Position is an open holding carried at its average entry price.
type Position struct {
	Quantity      float64 `json:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
}

// DecisionRecord captures one aggregate decision for later analysis,
// including the decisions that did not trade.
type DecisionRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	Rationale  string    `json:"rationale"`
}
