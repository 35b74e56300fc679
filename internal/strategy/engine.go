package strategy

import (
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/order"
	"main/internal/refdata"
	"main/internal/schema"
)

// historySize bounds the recorded last-price window.
const historySize = 2

// Config wires the engine's collaborators for one tracked instrument.
type Config struct {
	InstrumentID string
	Contract     refdata.Contract
	Manager      *order.Manager
	Metrics      *obs.Metrics
}

// Engine runs a two-tick momentum strategy over a single instrument. It
// owns the one mutex serializing market-data ticks against trading-side
// order events, so the manager, position book and tick history underneath
// it never see concurrent access.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	history []float64
	staged  schema.Direction
}

// NewEngine creates a strategy engine with empty history and nothing staged.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		history: make([]float64, 0, historySize),
	}
}

// OnTick handles one market-data tick. It never blocks: every gateway call
// made underneath is fire-and-forget.
func (e *Engine) OnTick(tick schema.Tick) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	inSession := e.cfg.Contract.InSession(tick.Recv)
	e.cfg.Metrics.IncTick(!inSession)
	if !inSession {
		return
	}

	e.handleTick(tick)
	e.cfg.Metrics.ObserveTickHandle(time.Since(start))
}

func (e *Engine) handleTick(tick schema.Tick) {
	if err := e.cfg.Manager.CancelStale(tick.Recv); err != nil {
		logs.Errorf("stale sweep failed: %+v", err)
	}

	if e.cfg.Manager.Pending() {
		return
	}

	e.pushPrice(tick.LastPrice)

	position := e.cfg.Manager.Position(e.cfg.InstrumentID)

	// A staged intent executes one tick after its signal formed, at this
	// tick's book price.
	if e.staged != schema.DirectionUnknown && position == 0 {
		direction := e.staged
		e.staged = schema.DirectionUnknown
		price := tick.AskPrice1
		if direction == schema.DirectionBuy {
			price = tick.BidPrice1
		}
		e.submit(direction, price, tick)
		return
	}

	if position == 0 {
		if e.staged == schema.DirectionUnknown && len(e.history) == historySize {
			if e.history[0] >= tick.AskPrice1 && e.history[1] >= tick.AskPrice1 {
				e.staged = schema.DirectionSell
				e.cfg.Metrics.IncIntentStaged()
				logs.Infof("sell intent staged, last prices: %.2f %.2f, ask: %.2f",
					e.history[0], e.history[1], tick.AskPrice1)
			} else if e.history[0] <= tick.BidPrice1 && e.history[1] <= tick.BidPrice1 {
				e.staged = schema.DirectionBuy
				e.cfg.Metrics.IncIntentStaged()
				logs.Infof("buy intent staged, last prices: %.2f %.2f, bid: %.2f",
					e.history[0], e.history[1], tick.BidPrice1)
			}
		}
		return
	}

	// Unwind: while non-flat, keep submitting a closing order until a fill
	// or cancel clears the position. The in-flight guard above keeps this
	// to one working order at a time.
	if position > 0 {
		e.submit(schema.DirectionSellClose, tick.BidPrice1, tick)
	} else {
		e.submit(schema.DirectionBuyClose, tick.AskPrice1, tick)
	}
}

func (e *Engine) submit(direction schema.Direction, price float64, tick schema.Tick) {
	intent := schema.OrderIntent{
		InstrumentID: e.cfg.InstrumentID,
		Direction:    direction,
		Price:        price,
		Volume:       1,
	}
	if err := e.cfg.Manager.Submit(intent, tick.LastPrice, tick.Recv); err != nil {
		logs.Errorf("submit %s refused: %+v", direction, err)
	}
}

func (e *Engine) pushPrice(price float64) {
	e.history = append(e.history, price)
	if len(e.history) > historySize {
		e.history = e.history[len(e.history)-historySize:]
	}
}

// SweepStale runs the stale-order check outside the tick path; the runner
// calls it on a low-frequency timer so cancels fire even when the market
// goes quiet.
func (e *Engine) SweepStale(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cfg.Manager.CancelStale(now); err != nil {
		logs.Errorf("stale sweep failed: %+v", err)
	}
}

// OnOrderAck delivers a gateway acknowledgment from the trading thread.
func (e *Engine) OnOrderAck(ack schema.OrderAck) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg.Manager.OnAck(ack, time.Now())
}

// OnOrderUpdate delivers an order lifecycle event from the trading thread.
func (e *Engine) OnOrderUpdate(update schema.OrderUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg.Manager.OnOrderUpdate(update)
}

// Position returns the current signed lot count for the tracked instrument.
func (e *Engine) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cfg.Manager.Position(e.cfg.InstrumentID)
}
