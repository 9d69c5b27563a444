// Package bot runs one trading session per symbol: the daily box cycle,
// breakout and retracement entries, trailing-stop management and the
// broker/store reconciliation that keeps all three views of the position set
// consistent.
package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omeguy/tracy/internal/config"
	"github.com/omeguy/tracy/internal/indicator"
	"github.com/omeguy/tracy/internal/market"
	"github.com/omeguy/tracy/internal/metrics"
	"github.com/omeguy/tracy/internal/models"
	"github.com/omeguy/tracy/internal/notify"
	"github.com/omeguy/tracy/internal/store"
	"github.com/omeguy/tracy/internal/strategy"
)

// Phase is where the session stands inside the current trading day.
type Phase int

const (
	PhaseIdle     Phase = iota // waiting for the levels hour
	PhaseArmed                 // box calculated, watching for a breakout
	PhaseTraded                // breakout legs opened, watching for retracement
	PhaseRetraced              // retracement handled, managing positions only
)

func (p Phase) String() string {
	switch p {
	case PhaseArmed:
		return "armed"
	case PhaseTraded:
		return "traded"
	case PhaseRetraced:
		return "retraced"
	default:
		return "idle"
	}
}

// Strategy roles, reported in logs, notifications and metrics.
const (
	RolePrimary     = "primary"
	RoleSecondary   = "secondary"
	RoleRetracement = "retracement"
)

// TradeInfo is recorded once the breakout trade fires and feeds the
// retracement evaluation later in the day.
type TradeInfo struct {
	Direction models.Direction
	Stop      decimal.Decimal
	BoxHeight decimal.Decimal
}

// Session drives the box breakout strategy for one symbol. Each session owns
// its box, phase and position map outright; the connector and store are the
// only shared resources.
type Session struct {
	cfg    *config.Config
	symbol string
	conn   market.Connector
	trades store.TradeStore
	msg    *notify.Messenger

	now func() time.Time // injectable clock

	phase     Phase
	box       *strategy.Box
	tradeInfo *TradeInfo

	// Day stamps replace one-shot boolean flags: "already done today" is
	// derived by comparing the stamp to the current date.
	boxDay        string
	earlyResetDay string
	lateResetDay  string

	positions map[int64]*models.Position
	lastPrice map[int64]decimal.Decimal // last broker-reported price per ticket

	lot       decimal.Decimal
	pipRange  decimal.Decimal
	atrParams strategy.ATRTrailParams
}

// NewSession builds the session for one symbol. The config has already been
// validated; anything missing here would have failed at startup.
func NewSession(cfg *config.Config, symbol string, conn market.Connector, trades store.TradeStore, msg *notify.Messenger) *Session {
	return &Session{
		cfg:       cfg,
		symbol:    symbol,
		conn:      conn,
		trades:    trades,
		msg:       msg,
		now:       func() time.Time { return time.Now().UTC() },
		positions: make(map[int64]*models.Position),
		lastPrice: make(map[int64]decimal.Decimal),
		lot:       decimal.NewFromFloat(cfg.Trading.Lot),
		pipRange:  decimal.NewFromFloat(cfg.Trading.PipRange),
		atrParams: strategy.ATRTrailParams{
			SLMultiplier:      decimal.NewFromFloat(cfg.Strategy.ATRSLMultiplier),
			MaxDistMultiplier: decimal.NewFromFloat(cfg.Strategy.MaxDistATRMultiplier),
			TrailMultiplier:   decimal.NewFromFloat(cfg.Strategy.TrailATRMultiplier),
		},
	}
}

// Run loops until the context is canceled. The cadence shortens while the
// session holds positions so trailing stops react faster. A failed tick is
// logged and the loop sleeps as usual; one symbol's trouble never escapes its
// session.
func (s *Session) Run(ctx context.Context) {
	log.Printf("[%s] session started", s.symbol)
	for {
		if err := s.tick(ctx); err != nil {
			metrics.TickErrors.WithLabelValues(s.symbol).Inc()
			log.Printf("[%s] tick: %v", s.symbol, err)
		}

		interval := s.cfg.PollInterval()
		if len(s.positions) > 0 {
			interval = s.cfg.FastPollInterval()
		}
		select {
		case <-ctx.Done():
			log.Printf("[%s] session stopped", s.symbol)
			return
		case <-time.After(interval):
		}
	}
}

// tick is one pass of the state machine. Phase transitions and trade
// admission are strictly sequential within it; there is no re-entrancy.
func (s *Session) tick(ctx context.Context) error {
	now := s.now()

	s.dailyCycle(ctx, now)

	live, err := s.conn.OpenPositions(ctx, s.symbol)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	s.reconcile(ctx, live, now)
	metrics.OpenPositions.WithLabelValues(s.symbol).Set(float64(len(s.positions)))

	tick, err := s.conn.CurrentPrice(ctx, s.symbol)
	if err != nil {
		// Price gone for a beat: trailing and entries wait for the next tick,
		// reconciliation above already ran.
		return fmt.Errorf("current price: %w", err)
	}

	s.managePositions(ctx, tick)

	switch s.phase {
	case PhaseArmed:
		s.checkBreakout(ctx, tick, now)
	case PhaseTraded:
		s.checkRetracement(ctx, tick, now)
	}
	return nil
}

// dailyCycle drives the wall-clock transitions: the early reset clearing
// yesterday's state, the one-shot box calculation at the levels hour, and the
// end-of-day safety reset. All three fire at most once per day via the stamps.
func (s *Session) dailyCycle(ctx context.Context, now time.Time) {
	today := now.Format("2006-01-02")
	hour := now.Hour()

	if hour >= s.cfg.Hours.ResetEarly && hour < s.cfg.Hours.Levels && s.earlyResetDay != today {
		s.earlyResetDay = today
		s.resetDaily("early reset")
	}

	if hour >= s.cfg.Hours.Levels && hour < s.cfg.Hours.ResetLate && s.boxDay != today {
		s.boxDay = today
		s.computeBox(ctx)
	}

	if hour >= s.cfg.Hours.ResetLate && s.lateResetDay != today {
		s.lateResetDay = today
		if s.phase == PhaseArmed {
			log.Printf("[%s] day expired without a trade", s.symbol)
		}
		s.resetDaily("end of day reset")
	}
}

// resetDaily clears the box, the trade info and the phase. Idempotent within
// a day thanks to the stamps in dailyCycle.
func (s *Session) resetDaily(reason string) {
	s.box = nil
	s.tradeInfo = nil
	s.phase = PhaseIdle
	log.Printf("[%s] %s: state cleared", s.symbol, reason)
	s.msg.DailyReset(s.symbol)
}

// computeBox runs the once-per-day box calculation. A flat or missing window
// leaves the session idle: a box without height must not arm breakout
// detection.
func (s *Session) computeBox(ctx context.Context) {
	bars, err := s.conn.Bars(ctx, s.symbol, s.cfg.Trading.Timeframe, s.cfg.Trading.WindowBars)
	if err != nil {
		log.Printf("[%s] box window fetch failed: %v", s.symbol, err)
		return
	}
	box, err := strategy.CalculateBox(bars)
	if err != nil {
		log.Printf("[%s] box not calculated: %v", s.symbol, err)
		return
	}
	s.box = &box
	s.phase = PhaseArmed
	log.Printf("[%s] box armed: buy %s / sell %s (height %s)",
		s.symbol, box.BuyLevel, box.SellLevel, box.Height)
}

// checkBreakout watches the armed box. Buys break on the ask, sells on the
// bid. A breakout beyond the admission band is left alone: chasing a price
// that has already run past the level is how slippage compounds.
func (s *Session) checkBreakout(ctx context.Context, tick models.Tick, now time.Time) {
	box := *s.box

	var sig strategy.Signal
	var price decimal.Decimal
	if sig = strategy.DetectBreakout(box, tick.Ask); sig == strategy.SignalBuy {
		price = tick.Ask
	} else if sig = strategy.DetectBreakout(box, tick.Bid); sig == strategy.SignalSell {
		price = tick.Bid
	} else {
		return
	}

	side := string(sig.Direction())
	metrics.Signals.WithLabelValues(s.symbol, side).Inc()
	log.Printf("[%s] breakout: price %s crossed the %s level", s.symbol, price, side)

	if !strategy.ShouldTrade(box, sig, price, s.pipRange) {
		log.Printf("[%s] breakout rejected: %s is outside the admission band", s.symbol, price)
		return
	}
	s.executeBreakout(ctx, sig.Direction(), price, box, now)
}

// executeBreakout opens the paired entry: a primary leg carrying the
// projected take-profit and a secondary leg left open-ended for trailing
// management. The legs fail independently; one rejection does not roll back
// the other.
func (s *Session) executeBreakout(ctx context.Context, dir models.Direction, price decimal.Decimal, box strategy.Box, now time.Time) {
	stop := box.StopFor(dir)
	target := strategy.ProjectTarget(dir, price, box.Height)

	s.msg.Send(fmt.Sprintf("%s level broken: %s", dir, s.symbol))

	opened := 0
	if _, err := s.openLeg(ctx, RolePrimary, s.cfg.Strategy.MagicPrimary, dir, stop, target, now); err == nil {
		opened++
	}
	if _, err := s.openLeg(ctx, RoleSecondary, s.cfg.Strategy.MagicSecondary, dir, stop, decimal.Zero, now); err == nil {
		opened++
	}
	if opened == 0 {
		// Both legs refused; stay armed and re-evaluate next tick.
		return
	}

	s.tradeInfo = &TradeInfo{Direction: dir, Stop: stop, BoxHeight: box.Height}
	s.phase = PhaseTraded
	log.Printf("[%s] breakout trade executed (%d of 2 legs)", s.symbol, opened)
}

// checkRetracement waits for the price to cross back over the box midpoint
// against the breakout direction, then opens one more entry in the original
// direction. One attempt per day, whatever its outcome.
func (s *Session) checkRetracement(ctx context.Context, tick models.Tick, now time.Time) {
	if s.tradeInfo == nil || s.box == nil {
		return
	}
	info := *s.tradeInfo

	price := tick.Bid
	if info.Direction == models.Sell {
		price = tick.Ask
	}
	if !strategy.RetracementHit(info.Direction, s.box.Midpoint(), price) {
		return
	}

	log.Printf("[%s] retracement: price %s back across the midpoint", s.symbol, price)
	target := strategy.ProjectTarget(info.Direction, price, info.BoxHeight)
	s.openLeg(ctx, RoleRetracement, s.cfg.Strategy.MagicRetracement, info.Direction, info.Stop, target, now)
	s.phase = PhaseRetraced
}

// openLeg submits one market order and mirrors the result into memory and the
// opened table. Failures are logged and notified; the caller decides what a
// missing leg means.
func (s *Session) openLeg(ctx context.Context, role string, magic int, dir models.Direction, stop, target decimal.Decimal, now time.Time) (*models.Position, error) {
	pos := &models.Position{
		Symbol:     s.symbol,
		Direction:  dir,
		Lot:        s.lot,
		Magic:      magic,
		StopLoss:   stop,
		TakeProfit: target,
		Deviation:  s.cfg.Trading.Deviation,
		Status:     models.StatusPending,
	}
	result, err := s.conn.SubmitOrder(ctx, models.OrderRequest{
		Symbol:     s.symbol,
		Direction:  dir,
		Lot:        s.lot,
		StopLoss:   stop,
		TakeProfit: target,
		Deviation:  s.cfg.Trading.Deviation,
		Magic:      magic,
	})
	if err != nil {
		metrics.Orders.WithLabelValues(role, "failed").Inc()
		log.Printf("[%s] %s leg failed: %v", s.symbol, role, err)
		s.msg.TradeFailed(s.symbol, role, err)
		return nil, err
	}

	pos.MarkOpen(result.Ticket, result.OpenPrice, result.OpenTime)
	s.positions[result.Ticket] = pos
	s.lastPrice[result.Ticket] = result.OpenPrice

	if err := s.trades.InsertOpened(ctx, pos); err != nil {
		// Memory stays authoritative; the row lands on a later pass or the
		// position simply lives without a mirror until close.
		log.Printf("[%s] persist opened %d: %v", s.symbol, result.Ticket, err)
	}

	metrics.Orders.WithLabelValues(role, "ok").Inc()
	log.Printf("[%s] %s leg open: ticket %d at %s", s.symbol, role, result.Ticket, result.OpenPrice)
	s.msg.TradeOpened(s.symbol, result.Ticket, role)
	return pos, nil
}

// managePositions runs the trailing-stop engines over the in-memory set. The
// secondary leg trails on ATR; box-managed legs trail on the box height. Both
// fail soft: missing inputs leave the existing stop untouched.
func (s *Session) managePositions(ctx context.Context, tick models.Tick) {
	if len(s.positions) == 0 {
		return
	}

	var atr decimal.Decimal
	atrReady := false
	if s.hasATRManaged() {
		bars, err := s.conn.Bars(ctx, s.symbol, s.cfg.Trading.Timeframe, s.cfg.Strategy.ATRPeriod+1)
		if err == nil {
			if atr, err = indicator.AverageTrueRange(bars, s.cfg.Strategy.ATRPeriod); err == nil {
				atrReady = true
			}
		}
		if !atrReady {
			log.Printf("[%s] atr unavailable, leaving stops untouched: %v", s.symbol, err)
		}
	}

	for _, pos := range s.positions {
		price := tick.Bid
		if pos.Direction == models.Sell {
			price = tick.Ask
		}

		var newStop decimal.Decimal
		var move bool
		var algo string
		switch pos.Magic {
		case s.cfg.Strategy.MagicSecondary:
			if !atrReady {
				continue
			}
			newStop, move = strategy.ATRTrail(pos.Direction, pos.OpenPrice, price, pos.StopLoss, atr, s.atrParams)
			algo = "atr"
		default:
			height := s.boxHeightForTrailing()
			if height.IsZero() {
				continue
			}
			newStop, move = strategy.BoxTrail(pos.Direction, price, pos.StopLoss, height)
			algo = "box"
		}
		if !move {
			continue
		}

		if err := s.conn.UpdateStop(ctx, pos.Ticket, newStop); err != nil {
			log.Printf("[%s] stop update for %d failed: %v", s.symbol, pos.Ticket, err)
			s.msg.TrailingFailed(s.symbol, pos.Ticket)
			continue
		}
		pos.StopLoss = newStop
		if err := s.trades.UpdateOpened(ctx, pos); err != nil {
			log.Printf("[%s] persist stop for %d: %v", s.symbol, pos.Ticket, err)
		}
		metrics.TrailingUpdates.WithLabelValues(algo).Inc()
		log.Printf("[%s] trailing stop (%s): ticket %d -> %s", s.symbol, algo, pos.Ticket, newStop)
		s.msg.TrailingUpdated(s.symbol, pos.Ticket, newStop)
	}
}

func (s *Session) hasATRManaged() bool {
	for _, pos := range s.positions {
		if pos.Magic == s.cfg.Strategy.MagicSecondary {
			return true
		}
	}
	return false
}

// boxHeightForTrailing prefers the height recorded with the day's trade so
// box trailing keeps working after the box itself is reset.
func (s *Session) boxHeightForTrailing() decimal.Decimal {
	if s.tradeInfo != nil {
		return s.tradeInfo.BoxHeight
	}
	if s.box != nil {
		return s.box.Height
	}
	return decimal.Zero
}
