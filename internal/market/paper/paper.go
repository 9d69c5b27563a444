// Package paper is an in-memory connector for dry runs. No terminal, no
// network: bars and ticks are scripted in, orders fill instantly at the
// scripted price, and positions live in a map until something closes them.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/market"
	"github.com/omeguy/tracy/internal/models"
)

// Connector implements market.Connector entirely in memory.
type Connector struct {
	mu         sync.Mutex
	connected  bool
	nextTicket int64
	bars       map[string][]models.Bar // keyed by symbol
	ticks      map[string]models.Tick
	positions  map[int64]models.BrokerPosition
}

func New() *Connector {
	return &Connector{
		nextTicket: 1000,
		bars:       make(map[string][]models.Bar),
		ticks:      make(map[string]models.Tick),
		positions:  make(map[int64]models.BrokerPosition),
	}
}

func (c *Connector) Name() string { return "paper" }

func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

// SetBars scripts the historical window returned for a symbol.
func (c *Connector) SetBars(symbol string, bars []models.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars[symbol] = bars
}

// SetTick scripts the current quote for a symbol and refreshes the current
// price on any live position of that symbol.
func (c *Connector) SetTick(symbol string, bid, ask decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks[symbol] = models.Tick{Symbol: symbol, Bid: bid, Ask: ask, Time: time.Now().UTC()}
	for ticket, p := range c.positions {
		if p.Symbol != symbol {
			continue
		}
		if p.Direction == models.Buy {
			p.CurrentPrice = bid
		} else {
			p.CurrentPrice = ask
		}
		c.positions[ticket] = p
	}
}

// CloseTicket drops a position as if the terminal closed it (stop hit, manual
// close). The session only learns of this through reconciliation.
func (c *Connector) CloseTicket(ticket int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.positions, ticket)
}

func (c *Connector) Bars(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, market.ErrNotConnected
	}
	bars := c.bars[symbol]
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars scripted for %s", market.ErrNoData, symbol)
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

func (c *Connector) CurrentPrice(ctx context.Context, symbol string) (models.Tick, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return models.Tick{}, market.ErrNotConnected
	}
	tick, ok := c.ticks[symbol]
	if !ok {
		return models.Tick{}, fmt.Errorf("%w: no tick scripted for %s", market.ErrNoData, symbol)
	}
	return tick, nil
}

func (c *Connector) SubmitOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return models.OrderResult{}, market.ErrNotConnected
	}
	tick, ok := c.ticks[req.Symbol]
	if !ok {
		return models.OrderResult{}, fmt.Errorf("%w: no tick for %s", market.ErrNoData, req.Symbol)
	}
	fill := tick.Ask
	if req.Direction == models.Sell {
		fill = tick.Bid
	}
	c.nextTicket++
	ticket := c.nextTicket
	c.positions[ticket] = models.BrokerPosition{
		Ticket:       ticket,
		Symbol:       req.Symbol,
		Direction:    req.Direction,
		Lot:          req.Lot,
		Magic:        req.Magic,
		OpenPrice:    fill,
		CurrentPrice: fill,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
	}
	return models.OrderResult{Ticket: ticket, OpenPrice: fill, OpenTime: time.Now().UTC()}, nil
}

func (c *Connector) UpdateStop(ctx context.Context, ticket int64, newStop decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return market.ErrNotConnected
	}
	p, ok := c.positions[ticket]
	if !ok {
		return fmt.Errorf("%w: unknown ticket %d", market.ErrOrderRejected, ticket)
	}
	p.StopLoss = newStop
	c.positions[ticket] = p
	return nil
}

func (c *Connector) OpenPositions(ctx context.Context, symbol string) ([]models.BrokerPosition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, market.ErrNotConnected
	}
	out := make([]models.BrokerPosition, 0, len(c.positions))
	for _, p := range c.positions {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}
