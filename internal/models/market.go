package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents a candlestick for a timeframe.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Tick is the latest quote for a symbol.
type Tick struct {
	Symbol string
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Time   time.Time
}

// BrokerPosition is the terminal's view of one live position, populated from
// the connector response at the boundary so downstream code never depends on
// field ordering of the raw payload.
type BrokerPosition struct {
	Ticket       int64
	Symbol       string
	Direction    Direction
	Lot          decimal.Decimal
	Magic        int
	OpenPrice    decimal.Decimal
	CurrentPrice decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
}

// OrderRequest describes a market order submission.
type OrderRequest struct {
	Symbol     string
	Direction  Direction
	Lot        decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal // zero to omit the target
	Deviation  int
	Magic      int
}

// OrderResult is the broker's answer to a successful submission.
type OrderResult struct {
	Ticket    int64
	OpenPrice decimal.Decimal
	OpenTime  time.Time
}
