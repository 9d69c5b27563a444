package indicator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bar(high, low, close string) models.Bar {
	return models.Bar{High: d(high), Low: d(low), Close: d(close)}
}

func TestAverageTrueRange(t *testing.T) {
	bars := []models.Bar{
		bar("1.20", "1.00", "1.10"),
		bar("1.30", "1.10", "1.20"), // TR = 0.20
		bar("1.25", "1.15", "1.20"), // TR = 0.10
	}

	atr, err := AverageTrueRange(bars, 2)
	if err != nil {
		t.Fatalf("AverageTrueRange failed: %v", err)
	}
	if !atr.Equal(d("0.15")) {
		t.Errorf("expected ATR 0.15, got %s", atr)
	}
}

func TestAverageTrueRange_GapUsesPrevClose(t *testing.T) {
	// Second bar gaps entirely above the first close: the true range must
	// stretch down to the previous close, not just the bar's own span.
	bars := []models.Bar{
		bar("1.10", "1.00", "1.05"),
		bar("1.30", "1.25", "1.28"), // TR = |1.30-1.05| = 0.25
	}

	atr, err := AverageTrueRange(bars, 1)
	if err != nil {
		t.Fatalf("AverageTrueRange failed: %v", err)
	}
	if !atr.Equal(d("0.25")) {
		t.Errorf("expected ATR 0.25, got %s", atr)
	}
}

func TestAverageTrueRange_ShortWindow(t *testing.T) {
	bars := []models.Bar{bar("1.2", "1.0", "1.1"), bar("1.3", "1.1", "1.2")}
	if _, err := AverageTrueRange(bars, 2); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAverageTrueRange_BadPeriod(t *testing.T) {
	if _, err := AverageTrueRange(nil, 0); err == nil {
		t.Error("expected error for zero period")
	}
}
