package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

// Position lifecycle statuses.
const (
	StatusPending = "pending"
	StatusOpen    = "open"
	StatusClosed  = "closed"
)

// Position represents one broker order from submission to close. A ticket id
// is assigned by the broker on open and is never reused across two logical
// positions.
type Position struct {
	Ticket     int64           `json:"ticket"`
	Symbol     string          `json:"symbol"`
	Direction  Direction       `json:"direction"`
	Lot        decimal.Decimal `json:"lot"`
	Magic      int             `json:"magic"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"` // zero means no target
	Deviation  int             `json:"deviation"`
	OpenPrice  decimal.Decimal `json:"open_price"`
	OpenTime   time.Time       `json:"open_time"`
	ClosePrice decimal.Decimal `json:"close_price"`
	CloseTime  time.Time       `json:"close_time"`
	Status     string          `json:"status"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
}

// MarkOpen records the broker's fill details and moves the position to open.
func (p *Position) MarkOpen(ticket int64, price decimal.Decimal, at time.Time) {
	p.Ticket = ticket
	p.OpenPrice = price
	p.OpenTime = at
	p.Status = StatusOpen
}

// MarkClosed records the close and computes the realized profit/loss. The
// computation happens exactly once, here: (close-open)*lot signed by direction.
func (p *Position) MarkClosed(price decimal.Decimal, at time.Time) {
	p.ClosePrice = price
	p.CloseTime = at
	p.Status = StatusClosed
	if p.Direction == Buy {
		p.ProfitLoss = price.Sub(p.OpenPrice).Mul(p.Lot)
	} else {
		p.ProfitLoss = p.OpenPrice.Sub(price).Mul(p.Lot)
	}
}

// HasStopLoss reports whether the broker holds a stop for this position.
func (p *Position) HasStopLoss() bool {
	return !p.StopLoss.IsZero()
}
