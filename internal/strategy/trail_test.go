package strategy

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/models"
)

var testATRParams = ATRTrailParams{
	SLMultiplier:      d("2"),
	MaxDistMultiplier: d("3"),
	TrailMultiplier:   d("1"),
}

func TestATRTrail_InitialStop(t *testing.T) {
	atr := d("0.0010")

	// Buy with no stop: open - 2*ATR
	stop, ok := ATRTrail(models.Buy, d("1.1000"), d("1.1000"), decimal.Zero, atr, testATRParams)
	if !ok || !stop.Equal(d("1.0980")) {
		t.Errorf("buy initial stop: expected 1.0980, got %s (ok=%v)", stop, ok)
	}

	// Sell with no stop: open + 2*ATR
	stop, ok = ATRTrail(models.Sell, d("1.1000"), d("1.1000"), decimal.Zero, atr, testATRParams)
	if !ok || !stop.Equal(d("1.1020")) {
		t.Errorf("sell initial stop: expected 1.1020, got %s (ok=%v)", stop, ok)
	}
}

func TestATRTrail_AdvancesOnlyPastTriggerDistance(t *testing.T) {
	atr := d("0.0010") // trigger distance 0.0030, step 0.0010

	// Distance 0.0030 is not strictly greater than the trigger: no move.
	stop, ok := ATRTrail(models.Buy, d("1.1000"), d("1.1030"), d("1.1000"), atr, testATRParams)
	if ok {
		t.Errorf("expected no move at trigger distance, got %s", stop)
	}

	// One tick past the trigger: stop steps up by 1*ATR.
	stop, ok = ATRTrail(models.Buy, d("1.1000"), d("1.1031"), d("1.1000"), atr, testATRParams)
	if !ok || !stop.Equal(d("1.1010")) {
		t.Errorf("expected stop 1.1010, got %s (ok=%v)", stop, ok)
	}

	// Sell mirror: stop steps down.
	stop, ok = ATRTrail(models.Sell, d("1.1000"), d("1.0969"), d("1.1000"), atr, testATRParams)
	if !ok || !stop.Equal(d("1.0990")) {
		t.Errorf("expected stop 1.0990, got %s (ok=%v)", stop, ok)
	}
}

func TestBoxTrail_MovesHalfHeightBehindPrice(t *testing.T) {
	height := d("0.04")

	// Distance from stop equals the height: snap to price - height/2.
	stop, ok := BoxTrail(models.Buy, d("1.1200"), d("1.0800"), height)
	if !ok || !stop.Equal(d("1.1000")) {
		t.Errorf("expected stop 1.1000, got %s (ok=%v)", stop, ok)
	}

	// Just inside the height: no move.
	if _, ok := BoxTrail(models.Buy, d("1.1199"), d("1.0800"), height); ok {
		t.Error("expected no move inside one box height")
	}

	stop, ok = BoxTrail(models.Sell, d("1.0800"), d("1.1200"), height)
	if !ok || !stop.Equal(d("1.1000")) {
		t.Errorf("sell: expected stop 1.1000, got %s (ok=%v)", stop, ok)
	}
}

func TestBoxTrail_NeverLoosens(t *testing.T) {
	height := d("0.04")

	// For any sequence of prices, an accepted move must always improve the
	// stop for the side.
	prices := []string{"1.1200", "1.1600", "1.1300", "1.2000", "1.1500", "1.2400"}
	stop := d("1.0800")
	for _, p := range prices {
		next, ok := BoxTrail(models.Buy, d(p), stop, height)
		if !ok {
			continue
		}
		if !next.GreaterThan(stop) {
			t.Fatalf("stop loosened from %s to %s at price %s", stop, next, p)
		}
		stop = next
	}

	// Price collapsing back below the stop must not drag the stop down.
	if next, ok := BoxTrail(models.Buy, d("1.0500"), stop, height); ok {
		t.Errorf("falling price moved the stop from %s to %s", stop, next)
	}
}

func TestBoxTrail_InvalidHeight(t *testing.T) {
	if _, ok := BoxTrail(models.Buy, d("1.20"), d("1.10"), decimal.Zero); ok {
		t.Error("zero height must not move a stop")
	}
}
