// Package strategy contains the pure decision logic of the box breakout
// strategy: daily range calculation, breakout detection, trade admission,
// retracement detection and the two trailing-stop algorithms. Nothing in here
// touches the terminal or the store.
package strategy

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/models"
)

// ErrFlatWindow means the historical window produced no usable range; the
// session must not arm breakout detection that day.
var ErrFlatWindow = errors.New("strategy: box height is not positive")

// Box is the daily price range used as breakout reference. Immutable once
// calculated; the session replaces it at the next daily reset.
type Box struct {
	BuyLevel     decimal.Decimal
	SellLevel    decimal.Decimal
	BuyStopLoss  decimal.Decimal
	SellStopLoss decimal.Decimal
	Height       decimal.Decimal
}

// CalculateBox derives the box from the close prices of the window. Closes
// rather than wick extremes, so intrabar noise does not widen the range.
func CalculateBox(bars []models.Bar) (Box, error) {
	if len(bars) == 0 {
		return Box{}, errors.New("strategy: empty bar window")
	}
	high := bars[0].Close
	low := bars[0].Close
	for _, b := range bars[1:] {
		if b.Close.GreaterThan(high) {
			high = b.Close
		}
		if b.Close.LessThan(low) {
			low = b.Close
		}
	}
	height := high.Sub(low)
	if height.Sign() <= 0 {
		return Box{}, ErrFlatWindow
	}
	return Box{
		BuyLevel:     high,
		SellLevel:    low,
		BuyStopLoss:  low,
		SellStopLoss: high,
		Height:       height,
	}, nil
}

// Midpoint is the reference level for retracement entries.
func (b Box) Midpoint() decimal.Decimal {
	return b.BuyLevel.Add(b.SellLevel).Div(decimal.NewFromInt(2))
}

// StopFor returns the box extreme used as the initial stop for a direction.
func (b Box) StopFor(d models.Direction) decimal.Decimal {
	if d == models.Buy {
		return b.BuyStopLoss
	}
	return b.SellStopLoss
}

// Signal is the outcome of a breakout check.
type Signal int

const (
	SignalNone Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) Direction() models.Direction {
	if s == SignalSell {
		return models.Sell
	}
	return models.Buy
}

// DetectBreakout compares the price to the box. Both comparisons are strict:
// price sitting exactly on a level is not a breakout.
func DetectBreakout(box Box, price decimal.Decimal) Signal {
	switch {
	case price.GreaterThan(box.BuyLevel):
		return SignalBuy
	case price.LessThan(box.SellLevel):
		return SignalSell
	default:
		return SignalNone
	}
}

// ShouldTrade admits a signal only while the price is still within pipRange
// of the broken level, on the breakout side. Late evaluation that finds the
// price already run past the band is rejected; both band edges are inclusive.
func ShouldTrade(box Box, sig Signal, price, pipRange decimal.Decimal) bool {
	switch sig {
	case SignalBuy:
		return price.GreaterThanOrEqual(box.BuyLevel) &&
			price.LessThanOrEqual(box.BuyLevel.Add(pipRange))
	case SignalSell:
		return price.LessThanOrEqual(box.SellLevel) &&
			price.GreaterThanOrEqual(box.SellLevel.Sub(pipRange))
	default:
		return false
	}
}

// RetracementHit reports whether the price has crossed back over the midpoint
// against the breakout direction: below it after a buy breakout, above it
// after a sell breakout.
func RetracementHit(breakout models.Direction, midpoint, price decimal.Decimal) bool {
	if breakout == models.Buy {
		return price.LessThan(midpoint)
	}
	return price.GreaterThan(midpoint)
}

// ProjectTarget projects the box height beyond a reference price to form a
// take-profit: above it for buys, below it for sells.
func ProjectTarget(d models.Direction, price, height decimal.Decimal) decimal.Decimal {
	if d == models.Buy {
		return price.Add(height)
	}
	return price.Sub(height)
}
