package market

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/models"
)

// Connector is the surface a trading session needs from the brokerage
// terminal. Implementations must be safe for concurrent use by multiple
// sessions; the bridge serializes on the terminal side.
type Connector interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect()
	// Bars returns up to count historical bars for the symbol and timeframe,
	// oldest first.
	Bars(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error)
	CurrentPrice(ctx context.Context, symbol string) (models.Tick, error)
	SubmitOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
	UpdateStop(ctx context.Context, ticket int64, newStop decimal.Decimal) error
	OpenPositions(ctx context.Context, symbol string) ([]models.BrokerPosition, error)
}

// Sentinel errors. Connection and data failures are retried on the next tick;
// a rejected order is final for that leg.
var (
	ErrNotConnected  = errors.New("market: not connected")
	ErrNoData        = errors.New("market: no data")
	ErrOrderRejected = errors.New("market: order rejected")
)

// IsRetryable reports whether the next tick should simply try again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrOrderRejected)
}
