package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"main/internal/schema"
)

// chanListener exposes gateway callbacks as channels for test assertions.
type chanListener struct {
	connected chan struct{}
	auth      chan schema.Result
	login     chan schema.Result
	ticks     chan schema.Tick
	acks      chan schema.OrderAck
	updates   chan schema.OrderUpdate
}

func newChanListener() *chanListener {
	return &chanListener{
		connected: make(chan struct{}, 16),
		auth:      make(chan schema.Result, 16),
		login:     make(chan schema.Result, 16),
		ticks:     make(chan schema.Tick, 16),
		acks:      make(chan schema.OrderAck, 16),
		updates:   make(chan schema.OrderUpdate, 16),
	}
}

func (l *chanListener) OnConnected() { l.connected <- struct{}{} }
func (l *chanListener) OnAuthResult(r schema.Result) { l.auth <- r }
func (l *chanListener) OnLoginResult(r schema.Result) { l.login <- r }
func (l *chanListener) OnTick(t schema.Tick) { l.ticks <- t }
func (l *chanListener) OnOrderAck(a schema.OrderAck) { l.acks <- a }
func (l *chanListener) OnOrderUpdate(u schema.OrderUpdate) { l.updates <- u }

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestGeneratorPricesAlignToTick(t *testing.T) {
	gen := NewTickGenerator("rb2410", 4000, 1, 42)
	now := time.Now()
	for i := 0; i < 100; i++ {
		tick := gen.Next(now)
		if rem := math.Mod(tick.LastPrice, 1); rem != 0 {
			t.Fatalf("price off the grid: %.4f", tick.LastPrice)
		}
		if tick.AskPrice1 <= tick.BidPrice1 {
			t.Fatalf("crossed book: bid %.2f ask %.2f", tick.BidPrice1, tick.AskPrice1)
		}
	}
}

func TestMarketSimDeliversSubscribedTicks(t *testing.T) {
	s := NewMarketSim(MarketConfig{
		Generator: NewTickGenerator("rb2410", 4000, 1, 1),
		Interval:  5 * time.Millisecond,
	})
	l := newChanListener()
	s.Register(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	go s.RunFeeder(ctx)

	if err := s.Connect("sim"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, l.connected, "connected")

	if err := s.Login("9999", "000001", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if res := waitFor(t, l.login, "login result"); !res.OK {
		t.Fatalf("login result: %+v", res)
	}

	if err := s.Subscribe([]string{"rb2410"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	tick := waitFor(t, l.ticks, "tick")
	if tick.InstrumentID != "rb2410" {
		t.Fatalf("tick instrument: %s", tick.InstrumentID)
	}
}

func TestMarketSimFailLogin(t *testing.T) {
	s := NewMarketSim(MarketConfig{
		Generator: NewTickGenerator("rb2410", 4000, 1, 1),
		FailLogin: true,
	})
	l := newChanListener()
	s.Register(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	_ = s.Login("9999", "000001", "bad")
	if res := waitFor(t, l.login, "login result"); res.OK {
		t.Fatalf("login should fail")
	}
}

func TestTradeSimFillLifecycle(t *testing.T) {
	s := NewTradeSim(TradeConfig{Mode: ModeFill})
	l := newChanListener()
	s.Register(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	_ = s.Connect("sim")
	waitFor(t, l.connected, "connected")
	_ = s.Authenticate("9999", "000001", "app", "code")
	if res := waitFor(t, l.auth, "auth result"); !res.OK {
		t.Fatalf("auth result: %+v", res)
	}
	_ = s.Login("9999", "000001", "secret", "000001")
	if res := waitFor(t, l.login, "login result"); !res.OK {
		t.Fatalf("login result: %+v", res)
	}

	if err := s.SubmitOrder(schema.OrderInput{Ref: "ref-1", InstrumentID: "rb2410", Volume: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ack := waitFor(t, l.acks, "ack")
	if !ack.OK || ack.Ref != "ref-1" || ack.SysID == "" || ack.ExchangeID == "" {
		t.Fatalf("ack: %+v", ack)
	}
	update := waitFor(t, l.updates, "fill")
	if update.Ref != "ref-1" || update.Status != schema.OrderStatusFilled {
		t.Fatalf("update: %+v", update)
	}
}

func TestTradeSimSilentModeNeverFills(t *testing.T) {
	s := NewTradeSim(TradeConfig{Mode: ModeSilent})
	l := newChanListener()
	s.Register(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	_ = s.SubmitOrder(schema.OrderInput{Ref: "ref-1"})
	ack := waitFor(t, l.acks, "ack")
	if !ack.OK {
		t.Fatalf("ack: %+v", ack)
	}
	select {
	case u := <-l.updates:
		t.Fatalf("silent mode produced an update: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}

	// The working order can still be cancelled.
	_ = s.CancelOrder(schema.CancelRequest{Ref: "ref-1", SysID: ack.SysID, ExchangeID: ack.ExchangeID})
	update := waitFor(t, l.updates, "cancel confirmation")
	if update.Status != schema.OrderStatusCancelled {
		t.Fatalf("update: %+v", update)
	}
}

func TestTradeSimRejectMode(t *testing.T) {
	s := NewTradeSim(TradeConfig{Mode: ModeReject})
	l := newChanListener()
	s.Register(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	_ = s.SubmitOrder(schema.OrderInput{Ref: "ref-1"})
	ack := waitFor(t, l.acks, "ack")
	if ack.OK || ack.ErrorID == 0 {
		t.Fatalf("ack should carry the rejection: %+v", ack)
	}
}
