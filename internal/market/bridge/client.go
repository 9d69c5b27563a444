// Package bridge talks to the local MetaTrader 5 bridge sidecar over HTTP.
//
// The sidecar fronts a logged-in MT5 terminal and normalizes its payloads:
//   - POST /connect, /disconnect       – terminal session login/logout
//   - GET  /bars                       – historical candles
//   - GET  /tick/{symbol}              – latest bid/ask
//   - POST /order/market               – immediate-execution order
//   - POST /position/{ticket}/stop     – stop-loss modification
//   - GET  /positions                  – live positions for one symbol
//
// All prices travel as strings and are parsed into decimals at this boundary.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/market"
	"github.com/omeguy/tracy/internal/models"
)

// Client implements market.Connector against the bridge.
type Client struct {
	base       string
	hc         *http.Client
	maxRetries int
	retryDelay time.Duration
	connected  bool
}

// New builds a Client for the given base URL. maxRetries and retryDelay bound
// the Connect attempt; they do not apply to per-tick calls, which the session
// naturally retries on its next iteration.
func New(base string, maxRetries int, retryDelay time.Duration) *Client {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "http://127.0.0.1:8787"
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		base:       base,
		hc:         &http.Client{Timeout: 15 * time.Second},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

func (c *Client) Name() string { return "mt5-bridge" }

// Connect asks the sidecar to initialize and log in to the terminal. It
// retries a bounded number of times with a fixed delay, then gives up.
func (c *Client) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.post(ctx, "/connect", nil, nil); err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				select {
				case <-time.After(c.retryDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		c.connected = true
		return nil
	}
	return fmt.Errorf("%w: connect failed after %d attempts: %v",
		market.ErrNotConnected, c.maxRetries, lastErr)
}

func (c *Client) Disconnect() {
	if !c.connected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.post(ctx, "/disconnect", nil, nil)
	c.connected = false
}

type wireBar struct {
	Time   int64  `json:"time"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume int64  `json:"tick_volume"`
}

func (c *Client) Bars(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	u := fmt.Sprintf("/bars?symbol=%s&timeframe=%s&count=%d",
		url.QueryEscape(symbol), url.QueryEscape(timeframe), count)
	var out []wireBar
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty bar window for %s", market.ErrNoData, symbol)
	}
	bars := make([]models.Bar, 0, len(out))
	for _, wb := range out {
		b, err := wb.toBar()
		if err != nil {
			return nil, fmt.Errorf("%w: bad bar for %s: %v", market.ErrNoData, symbol, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func (wb wireBar) toBar() (models.Bar, error) {
	var b models.Bar
	var err error
	if b.Open, err = decimal.NewFromString(wb.Open); err != nil {
		return b, err
	}
	if b.High, err = decimal.NewFromString(wb.High); err != nil {
		return b, err
	}
	if b.Low, err = decimal.NewFromString(wb.Low); err != nil {
		return b, err
	}
	if b.Close, err = decimal.NewFromString(wb.Close); err != nil {
		return b, err
	}
	b.Time = time.Unix(wb.Time, 0).UTC()
	b.Volume = wb.Volume
	return b, nil
}

func (c *Client) CurrentPrice(ctx context.Context, symbol string) (models.Tick, error) {
	var out struct {
		Bid  string `json:"bid"`
		Ask  string `json:"ask"`
		Time int64  `json:"time"`
	}
	if err := c.get(ctx, "/tick/"+url.PathEscape(symbol), &out); err != nil {
		return models.Tick{}, err
	}
	bid, err := decimal.NewFromString(out.Bid)
	if err != nil {
		return models.Tick{}, fmt.Errorf("%w: bad bid for %s: %v", market.ErrNoData, symbol, err)
	}
	ask, err := decimal.NewFromString(out.Ask)
	if err != nil {
		return models.Tick{}, fmt.Errorf("%w: bad ask for %s: %v", market.ErrNoData, symbol, err)
	}
	return models.Tick{
		Symbol: symbol,
		Bid:    bid,
		Ask:    ask,
		Time:   time.Unix(out.Time, 0).UTC(),
	}, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	body := map[string]any{
		"symbol":          req.Symbol,
		"side":            string(req.Direction),
		"lot":             req.Lot.String(),
		"sl":              req.StopLoss.String(),
		"deviation":       req.Deviation,
		"magic":           req.Magic,
		"client_order_id": uuid.New().String(), // dedupe-safe across HTTP retries
	}
	if !req.TakeProfit.IsZero() {
		body["tp"] = req.TakeProfit.String()
	}
	var out struct {
		Retcode int    `json:"retcode"`
		Comment string `json:"comment"`
		Ticket  int64  `json:"ticket"`
		Price   string `json:"price"`
		Time    int64  `json:"time"`
	}
	if err := c.post(ctx, "/order/market", body, &out); err != nil {
		return models.OrderResult{}, err
	}
	// Retcode 10009 is TRADE_RETCODE_DONE; anything else is a terminal refusal.
	if out.Retcode != 10009 {
		return models.OrderResult{}, fmt.Errorf("%w: retcode %d (%s)",
			market.ErrOrderRejected, out.Retcode, out.Comment)
	}
	price, err := decimal.NewFromString(out.Price)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("%w: bad fill price: %v", market.ErrNoData, err)
	}
	return models.OrderResult{
		Ticket:    out.Ticket,
		OpenPrice: price,
		OpenTime:  time.Unix(out.Time, 0).UTC(),
	}, nil
}

func (c *Client) UpdateStop(ctx context.Context, ticket int64, newStop decimal.Decimal) error {
	body := map[string]any{"sl": newStop.String()}
	var out struct {
		Retcode int    `json:"retcode"`
		Comment string `json:"comment"`
	}
	path := fmt.Sprintf("/position/%d/stop", ticket)
	if err := c.post(ctx, path, body, &out); err != nil {
		return err
	}
	if out.Retcode != 10009 {
		return fmt.Errorf("%w: retcode %d (%s)", market.ErrOrderRejected, out.Retcode, out.Comment)
	}
	return nil
}

type wirePosition struct {
	Ticket       int64  `json:"ticket"`
	Symbol       string `json:"symbol"`
	Type         int    `json:"type"` // 0 buy, 1 sell
	Volume       string `json:"volume"`
	Magic        int    `json:"magic"`
	PriceOpen    string `json:"price_open"`
	PriceCurrent string `json:"price_current"`
	SL           string `json:"sl"`
	TP           string `json:"tp"`
}

func (c *Client) OpenPositions(ctx context.Context, symbol string) ([]models.BrokerPosition, error) {
	var out []wirePosition
	if err := c.get(ctx, "/positions?symbol="+url.QueryEscape(symbol), &out); err != nil {
		return nil, err
	}
	positions := make([]models.BrokerPosition, 0, len(out))
	for _, wp := range out {
		p, err := wp.toPosition()
		if err != nil {
			return nil, fmt.Errorf("%w: bad position %d: %v", market.ErrNoData, wp.Ticket, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func (wp wirePosition) toPosition() (models.BrokerPosition, error) {
	p := models.BrokerPosition{
		Ticket: wp.Ticket,
		Symbol: wp.Symbol,
		Magic:  wp.Magic,
	}
	p.Direction = models.Buy
	if wp.Type == 1 {
		p.Direction = models.Sell
	}
	var err error
	if p.Lot, err = decimal.NewFromString(wp.Volume); err != nil {
		return p, err
	}
	if p.OpenPrice, err = decimal.NewFromString(wp.PriceOpen); err != nil {
		return p, err
	}
	if p.CurrentPrice, err = decimal.NewFromString(wp.PriceCurrent); err != nil {
		return p, err
	}
	if p.StopLoss, err = decimal.NewFromString(wp.SL); err != nil {
		return p, err
	}
	if p.TakeProfit, err = decimal.NewFromString(wp.TP); err != nil {
		return p, err
	}
	return p, nil
}

// --- HTTP plumbing ---

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", "tracy/bridge")
	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", market.ErrNotConnected, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%w: %s %s: %d: %s",
			market.ErrNotConnected, req.Method, req.URL.Path, res.StatusCode, string(b))
	}
	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
