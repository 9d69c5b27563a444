// Package notify pushes one-line updates to a Discord webhook. Delivery is
// fire-and-log: trade logic never waits on it and never sees its failures.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Messenger posts messages to one webhook under a fixed username.
type Messenger struct {
	webhookURL string
	username   string
	hc         *http.Client
}

func NewMessenger(webhookURL string) *Messenger {
	return &Messenger{
		webhookURL: webhookURL,
		username:   "Tracy",
		hc:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the text. A missing webhook URL disables delivery silently so a
// bare config still runs.
func (m *Messenger) Send(text string) {
	if m == nil || m.webhookURL == "" {
		return
	}
	payload := map[string]string{
		"content":  text,
		"username": m.username,
	}
	body, _ := json.Marshal(payload)

	resp, err := m.hc.Post(m.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Printf("notify: webhook post failed: %v", err)
		return
	}
	defer resp.Body.Close()
	// Discord answers 204 on success.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		log.Printf("notify: webhook returned status %s", resp.Status)
	}
}

func (m *Messenger) TradeOpened(symbol string, ticket int64, role string) {
	m.Send(fmt.Sprintf("✅ Trade opened for %s (%s), ticket %d", symbol, role, ticket))
}

func (m *Messenger) TradeFailed(symbol, role string, err error) {
	m.Send(fmt.Sprintf("❌ Failed to open %s leg for %s: %v", role, symbol, err))
}

func (m *Messenger) PositionClosed(symbol string, ticket int64, pnl decimal.Decimal) {
	m.Send(fmt.Sprintf("✅ Position closed: %s ticket %d, P/L %s", symbol, ticket, pnl.String()))
}

func (m *Messenger) TrailingUpdated(symbol string, ticket int64, newStop decimal.Decimal) {
	m.Send(fmt.Sprintf("🔼 Trailing stop: %s ticket %d moved to %s", symbol, ticket, newStop.String()))
}

func (m *Messenger) TrailingFailed(symbol string, ticket int64) {
	m.Send(fmt.Sprintf("❌ Failed to update trailing stop: %s ticket %d", symbol, ticket))
}

func (m *Messenger) DailyReset(symbol string) {
	m.Send(fmt.Sprintf("🔄 Daily data reset: %s", symbol))
}

func (m *Messenger) MarketOpen()  { m.Send("Market is open.. 🎉") }
func (m *Messenger) MarketClose() { m.Send("Market is closed 😴") }
