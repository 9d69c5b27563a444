package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/models"
)

func samplePosition(ticket int64, symbol string) *models.Position {
	p := &models.Position{
		Symbol:    symbol,
		Direction: models.Buy,
		Lot:       decimal.RequireFromString("0.01"),
		Magic:     101,
		StopLoss:  decimal.RequireFromString("1.08"),
		Status:    models.StatusPending,
	}
	p.MarkOpen(ticket, decimal.RequireFromString("1.10"), time.Date(2024, 3, 5, 2, 0, 0, 0, time.UTC))
	return p
}

func TestMemoryStore_InsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := samplePosition(1, "EURUSD")
	if err := s.InsertOpened(ctx, p); err != nil {
		t.Fatal(err)
	}

	// A second insert for the same ticket must not clobber the row.
	dup := samplePosition(1, "EURUSD")
	dup.StopLoss = decimal.RequireFromString("9.99")
	if err := s.InsertOpened(ctx, dup); err != nil {
		t.Fatal(err)
	}

	rows, _ := s.ListOpened(ctx, "EURUSD")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].StopLoss.Equal(decimal.RequireFromString("1.08")) {
		t.Errorf("duplicate insert overwrote the row: stop %s", rows[0].StopLoss)
	}
}

func TestMemoryStore_UpdateOpened(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := samplePosition(2, "EURUSD")
	s.InsertOpened(ctx, p)

	p.StopLoss = decimal.RequireFromString("1.0950")
	if err := s.UpdateOpened(ctx, p); err != nil {
		t.Fatal(err)
	}

	rows, _ := s.ListOpened(ctx, "EURUSD")
	if !rows[0].StopLoss.Equal(decimal.RequireFromString("1.0950")) {
		t.Errorf("stop not updated: %s", rows[0].StopLoss)
	}
}

func TestMemoryStore_MoveToClosedIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := samplePosition(3, "EURUSD")
	s.InsertOpened(ctx, p)

	p.MarkClosed(decimal.RequireFromString("1.15"), time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))
	if err := s.MoveToClosed(ctx, p); err != nil {
		t.Fatal(err)
	}

	opened, _ := s.ListOpened(ctx, "EURUSD")
	closed, _ := s.ListClosed(ctx, "EURUSD")
	if len(opened) != 0 {
		t.Errorf("row still in the opened table: %v", opened)
	}
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed row, got %d", len(closed))
	}
	if closed[0].Status != models.StatusClosed {
		t.Errorf("closed row status: %q", closed[0].Status)
	}
	if !closed[0].ProfitLoss.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("p/l: %s", closed[0].ProfitLoss)
	}
}

func TestMemoryStore_ListFiltersBySymbol(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.InsertOpened(ctx, samplePosition(4, "EURUSD"))
	s.InsertOpened(ctx, samplePosition(5, "GBPUSD"))

	eur, _ := s.ListOpened(ctx, "EURUSD")
	gbp, _ := s.ListOpened(ctx, "GBPUSD")
	if len(eur) != 1 || len(gbp) != 1 {
		t.Errorf("symbol filter broken: %d / %d", len(eur), len(gbp))
	}
	if eur[0].Ticket != 4 || gbp[0].Ticket != 5 {
		t.Errorf("wrong rows: %d / %d", eur[0].Ticket, gbp[0].Ticket)
	}
}
