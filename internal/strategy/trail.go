package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/models"
)

// ATRTrailParams are the multipliers applied to the ATR value.
type ATRTrailParams struct {
	SLMultiplier      decimal.Decimal // initial stop distance when none is set
	MaxDistMultiplier decimal.Decimal // trigger distance between price and stop
	TrailMultiplier   decimal.Decimal // step the stop advances by
}

// ATRTrail computes the next stop for an ATR-managed position. If the position
// carries no stop yet, an initial one is placed at openPrice minus (buys) or
// plus (sells) ATR*SLMultiplier. Otherwise, once the price has run more than
// ATR*MaxDistMultiplier away from the stop, the stop advances by
// ATR*TrailMultiplier. The stop only ever moves in the trade's favor; when no
// move is due, ok is false and the stop must be left untouched.
func ATRTrail(d models.Direction, openPrice, currentPrice, stop, atr decimal.Decimal, p ATRTrailParams) (decimal.Decimal, bool) {
	if stop.IsZero() {
		offset := atr.Mul(p.SLMultiplier)
		if d == models.Buy {
			return openPrice.Sub(offset), true
		}
		return openPrice.Add(offset), true
	}

	dist := currentPrice.Sub(stop).Abs()
	if !dist.GreaterThan(atr.Mul(p.MaxDistMultiplier)) {
		return stop, false
	}

	step := atr.Mul(p.TrailMultiplier)
	var next decimal.Decimal
	if d == models.Buy {
		next = stop.Add(step)
	} else {
		next = stop.Sub(step)
	}
	if !favors(d, next, stop) {
		return stop, false
	}
	return next, true
}

// BoxTrail computes the next stop for a box-managed position. Once the price
// is a full box height or more away from the stop, the stop snaps to half a
// box height behind the price. Never widens the stop.
func BoxTrail(d models.Direction, currentPrice, stop, boxHeight decimal.Decimal) (decimal.Decimal, bool) {
	if boxHeight.Sign() <= 0 {
		return stop, false
	}
	dist := currentPrice.Sub(stop).Abs()
	if dist.LessThan(boxHeight) {
		return stop, false
	}

	half := boxHeight.Div(decimal.NewFromInt(2))
	var next decimal.Decimal
	if d == models.Buy {
		next = currentPrice.Sub(half)
	} else {
		next = currentPrice.Add(half)
	}
	if !stop.IsZero() && !favors(d, next, stop) {
		return stop, false
	}
	return next, true
}

// favors reports whether next is strictly better than current for the side:
// higher for buys, lower for sells.
func favors(d models.Direction, next, current decimal.Decimal) bool {
	if d == models.Buy {
		return next.GreaterThan(current)
	}
	return next.LessThan(current)
}
