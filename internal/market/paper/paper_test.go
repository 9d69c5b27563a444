package paper

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/market"
	"github.com/omeguy/tracy/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestConnector_RequiresConnect(t *testing.T) {
	ctx := context.Background()
	c := New()

	if _, err := c.CurrentPrice(ctx, "EURUSD"); !errors.Is(err, market.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if _, err := c.Bars(ctx, "EURUSD", "H1", 10); !errors.Is(err, market.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnector_FillsAtScriptedQuote(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.Connect(ctx)
	c.SetTick("EURUSD", d("1.1000"), d("1.1002"))

	buy, err := c.SubmitOrder(ctx, models.OrderRequest{
		Symbol: "EURUSD", Direction: models.Buy, Lot: d("0.01"), Magic: 101,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !buy.OpenPrice.Equal(d("1.1002")) {
		t.Errorf("buy fills at the ask, got %s", buy.OpenPrice)
	}

	sell, err := c.SubmitOrder(ctx, models.OrderRequest{
		Symbol: "EURUSD", Direction: models.Sell, Lot: d("0.01"), Magic: 102,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !sell.OpenPrice.Equal(d("1.1000")) {
		t.Errorf("sell fills at the bid, got %s", sell.OpenPrice)
	}
	if buy.Ticket == sell.Ticket {
		t.Error("tickets must be unique")
	}

	live, _ := c.OpenPositions(ctx, "EURUSD")
	if len(live) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(live))
	}
}

func TestConnector_TickRefreshesCurrentPrices(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.Connect(ctx)
	c.SetTick("EURUSD", d("1.1000"), d("1.1002"))

	res, _ := c.SubmitOrder(ctx, models.OrderRequest{
		Symbol: "EURUSD", Direction: models.Buy, Lot: d("0.01"), Magic: 101,
	})

	c.SetTick("EURUSD", d("1.1050"), d("1.1052"))

	live, _ := c.OpenPositions(ctx, "EURUSD")
	if len(live) != 1 {
		t.Fatalf("expected 1 position, got %d", len(live))
	}
	if !live[0].CurrentPrice.Equal(d("1.1050")) {
		t.Errorf("buy marks at the bid, got %s", live[0].CurrentPrice)
	}

	c.CloseTicket(res.Ticket)
	live, _ = c.OpenPositions(ctx, "EURUSD")
	if len(live) != 0 {
		t.Errorf("position should be gone after the scripted close, got %d", len(live))
	}
}

func TestConnector_UpdateStopUnknownTicketRejected(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.Connect(ctx)

	err := c.UpdateStop(ctx, 9999, d("1.0900"))
	if !errors.Is(err, market.ErrOrderRejected) {
		t.Errorf("expected ErrOrderRejected, got %v", err)
	}
	if market.IsRetryable(err) {
		t.Error("a rejection must not be retryable")
	}
}

func TestConnector_BarsReturnsRequestedTail(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.Connect(ctx)

	bars := make([]models.Bar, 5)
	for i := range bars {
		bars[i].Close = decimal.NewFromInt(int64(i))
	}
	c.SetBars("EURUSD", bars)

	got, err := c.Bars(ctx, "EURUSD", "H1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(got))
	}
	if !got[0].Close.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected the most recent tail, first close %s", got[0].Close)
	}

	if _, err := c.Bars(ctx, "GBPUSD", "H1", 3); !errors.Is(err, market.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
