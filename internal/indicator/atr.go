// Package indicator holds the technical calculations the sessions consume.
package indicator

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/models"
)

var ErrInsufficientData = errors.New("indicator: not enough bars")

// AverageTrueRange computes the ATR over the last period bars as a simple
// rolling mean of true ranges. True range of a bar is the greatest of
// high-low, |high-prevClose| and |low-prevClose|.
func AverageTrueRange(bars []models.Bar, period int) (decimal.Decimal, error) {
	if period < 1 {
		return decimal.Zero, errors.New("indicator: period must be positive")
	}
	if len(bars) < period+1 {
		return decimal.Zero, ErrInsufficientData
	}

	trs := make([]decimal.Decimal, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs = append(trs, trueRange(bars[i], bars[i-1].Close))
	}

	sum := decimal.Zero
	for _, tr := range trs[len(trs)-period:] {
		sum = sum.Add(tr)
	}
	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

func trueRange(bar models.Bar, prevClose decimal.Decimal) decimal.Decimal {
	tr := bar.High.Sub(bar.Low)
	if hc := bar.High.Sub(prevClose).Abs(); hc.GreaterThan(tr) {
		tr = hc
	}
	if lc := bar.Low.Sub(prevClose).Abs(); lc.GreaterThan(tr) {
		tr = lc
	}
	return tr
}
