// Package store persists trade rows. Every row is keyed by the broker ticket
// and lives in exactly one of two tables, opened or closed; the move between
// them is atomic with respect to concurrent readers.
package store

import (
	"context"

	"github.com/omeguy/tracy/internal/models"
)

// TradeStore is the durable mirror of the sessions' positions.
type TradeStore interface {
	// CreateTables provisions the opened/closed tables if absent.
	CreateTables(ctx context.Context) error
	// InsertOpened records a freshly opened position; inserting a ticket that
	// already exists is a no-op.
	InsertOpened(ctx context.Context, p *models.Position) error
	// UpdateOpened rewrites the mutable fields (stop loss, take profit,
	// status) of an opened row.
	UpdateOpened(ctx context.Context, p *models.Position) error
	// ListOpened returns the opened rows for one symbol.
	ListOpened(ctx context.Context, symbol string) ([]models.Position, error)
	// MoveToClosed removes the row from opened and inserts it into closed in
	// one atomic step.
	MoveToClosed(ctx context.Context, p *models.Position) error
	// ListClosed returns the closed rows for one symbol.
	ListClosed(ctx context.Context, symbol string) ([]models.Position, error)
}
