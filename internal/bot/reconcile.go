package bot

import (
	"context"
	"log"
	"time"

	"github.com/omeguy/tracy/internal/metrics"
	"github.com/omeguy/tracy/internal/models"
)

// reconcile merges the three views of the position set: what the session
// holds in memory, what the broker reports live, and what the opened table
// persists. Two passes:
//
//  1. Broker-driven removal: any in-memory ticket the broker no longer
//     reports is closed out: realized P/L computed from the last price the
//     broker showed for it, its row moved from opened to closed, the entry
//     dropped. This is the only way the session learns of stop hits, target
//     hits and manual closes.
//  2. Persistence-driven restoration: any opened row the session does not
//     hold is reconstructed into memory, provided the broker still reports
//     the ticket. Rows the broker no longer knows go straight to closed.
//
// Afterwards memory is a subset of the broker set and a superset of the live
// opened rows; running it again with no external change is a no-op.
func (s *Session) reconcile(ctx context.Context, live []models.BrokerPosition, now time.Time) {
	reported := make(map[int64]models.BrokerPosition, len(live))
	for _, bp := range live {
		reported[bp.Ticket] = bp
	}

	// Pass 1: drop what the broker closed.
	for ticket, pos := range s.positions {
		bp, ok := reported[ticket]
		if ok {
			s.lastPrice[ticket] = bp.CurrentPrice
			if !bp.StopLoss.Equal(pos.StopLoss) {
				// The terminal is authoritative for the stop (manual moves,
				// server-side adjustments).
				pos.StopLoss = bp.StopLoss
				if err := s.trades.UpdateOpened(ctx, pos); err != nil {
					log.Printf("[%s] persist stop sync for %d: %v", s.symbol, ticket, err)
				}
			}
			continue
		}
		s.closeOut(ctx, pos, now)
		delete(s.positions, ticket)
		delete(s.lastPrice, ticket)
	}

	// Pass 2: restore rows that survived a restart, retire rows whose ticket
	// the broker no longer reports.
	rows, err := s.trades.ListOpened(ctx, s.symbol)
	if err != nil {
		log.Printf("[%s] list opened rows: %v", s.symbol, err)
		return
	}
	for _, row := range rows {
		if _, held := s.positions[row.Ticket]; held {
			continue
		}
		bp, liveTicket := reported[row.Ticket]
		if !liveTicket {
			stale := row
			s.closeOut(ctx, &stale, now)
			continue
		}
		restored := row
		restored.Status = models.StatusOpen
		s.positions[row.Ticket] = &restored
		s.lastPrice[row.Ticket] = bp.CurrentPrice
		log.Printf("[%s] restored position %d from the opened table", s.symbol, row.Ticket)
	}
}

// closeOut finalizes a position the broker no longer reports and moves its
// row to the closed table atomically. The close price is the last price the
// broker showed for the ticket; when none was ever seen the open price is
// used and the realized P/L reads zero rather than invented.
func (s *Session) closeOut(ctx context.Context, pos *models.Position, now time.Time) {
	closePrice, seen := s.lastPrice[pos.Ticket]
	if !seen || closePrice.IsZero() {
		closePrice = pos.OpenPrice
	}
	pos.MarkClosed(closePrice, now)

	if err := s.trades.MoveToClosed(ctx, pos); err != nil {
		log.Printf("[%s] move %d to closed: %v", s.symbol, pos.Ticket, err)
	}
	metrics.ReconciledCloses.Inc()
	log.Printf("[%s] position %d closed externally, P/L %s", s.symbol, pos.Ticket, pos.ProfitLoss)
	s.msg.PositionClosed(s.symbol, pos.Ticket, pos.ProfitLoss)
}
