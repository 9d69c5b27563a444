// Package engine supervises the sessions: it watches the market calendar,
// connects the terminal when trading opens, runs one session goroutine per
// configured symbol and winds everything down when the market closes or the
// process is told to stop.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/omeguy/tracy/internal/bot"
	"github.com/omeguy/tracy/internal/config"
	"github.com/omeguy/tracy/internal/market"
	"github.com/omeguy/tracy/internal/notify"
	"github.com/omeguy/tracy/internal/store"
)

// statusInterval is how often the market calendar is rechecked.
const statusInterval = 10 * time.Second

type Engine struct {
	cfg    *config.Config
	conn   market.Connector
	trades store.TradeStore
	msg    *notify.Messenger

	now func() time.Time

	running       bool
	openAnnounced bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func New(cfg *config.Config, conn market.Connector, trades store.TradeStore, msg *notify.Messenger) *Engine {
	return &Engine{
		cfg:    cfg,
		conn:   conn,
		trades: trades,
		msg:    msg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is canceled. Sessions only exist while the market is
// open; outside trading hours the terminal connection is dropped.
func (e *Engine) Run(ctx context.Context) {
	log.Println("engine started")
	e.step(ctx)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.stopSessions()
			log.Println("engine stopped")
			return
		case <-ticker.C:
			e.step(ctx)
		}
	}
}

func (e *Engine) step(ctx context.Context) {
	open := MarketOpen(e.now())
	switch {
	case open && !e.running:
		if !e.openAnnounced {
			log.Println("market open")
			e.msg.MarketOpen()
			e.openAnnounced = true
		}
		e.startSessions(ctx)
	case !open:
		e.openAnnounced = false
		if e.running {
			log.Println("market closed")
			e.msg.MarketClose()
			e.stopSessions()
		}
	}
}

// startSessions connects the terminal (the connector bounds its own retries)
// and launches one goroutine per symbol. A failed connect leaves the engine
// idle; the next calendar check tries again.
func (e *Engine) startSessions(ctx context.Context) {
	if err := e.conn.Connect(ctx); err != nil {
		log.Printf("connect to %s failed: %v", e.conn.Name(), err)
		return
	}
	log.Printf("connected to %s", e.conn.Name())

	sessCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	for _, symbol := range e.cfg.Trading.Symbols {
		session := bot.NewSession(e.cfg, symbol, e.conn, e.trades, e.msg)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			session.Run(sessCtx)
		}()
	}
	e.running = true
	log.Printf("%d sessions running", len(e.cfg.Trading.Symbols))
}

func (e *Engine) stopSessions() {
	if !e.running {
		return
	}
	e.cancel()
	e.wg.Wait()
	e.conn.Disconnect()
	e.running = false
	log.Println("all sessions stopped, terminal disconnected")
}
