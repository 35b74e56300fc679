package sim

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/schema"
)

const defaultQueueSize = 1024

// dispatch fans one queued event out to the registered listener.
func dispatch(l gateway.Listener, e bus.Event) {
	if l == nil {
		return
	}
	switch e.Kind {
	case bus.EventConnected:
		l.OnConnected()
	case bus.EventAuthResult:
		l.OnAuthResult(e.Result)
	case bus.EventLoginResult:
		l.OnLoginResult(e.Result)
	case bus.EventTick:
		l.OnTick(e.Tick)
	case bus.EventOrderAck:
		l.OnOrderAck(e.Ack)
	case bus.EventOrderUpdate:
		l.OnOrderUpdate(e.Update)
	}
}

// MarketConfig controls the simulated market-data gateway.
type MarketConfig struct {
	Generator *TickGenerator
	Interval  time.Duration
	QueueSize int
	FailLogin bool
	Metrics   *obs.Metrics
}

// MarketSim is an in-process market-data gateway. Outbound calls enqueue
// their callbacks on a bounded queue; a single Run consumer delivers them,
// giving the same single-threaded callback context a live front provides.
type MarketSim struct {
	cfg   MarketConfig
	queue *bus.Queue

	mu         sync.Mutex
	listener   gateway.Listener
	subscribed map[string]struct{}
}

// NewMarketSim creates a disconnected simulated market gateway.
func NewMarketSim(cfg MarketConfig) *MarketSim {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &MarketSim{
		cfg:        cfg,
		queue:      bus.NewQueue(size),
		subscribed: make(map[string]struct{}),
	}
}

// Register sets the listener receiving this gateway's callbacks.
func (s *MarketSim) Register(l gateway.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *MarketSim) publish(e bus.Event) {
	if err := s.queue.TryPublish(e); err != nil {
		s.cfg.Metrics.IncQueueDrop()
		logs.Errorf("market sim dropped event kind %d: %+v", e.Kind, err)
	}
}

// Connect acknowledges immediately; the sim front is always reachable.
func (s *MarketSim) Connect(string) error {
	s.publish(bus.Event{Kind: bus.EventConnected})
	return nil
}

// Login answers with the configured login outcome.
func (s *MarketSim) Login(_, _, _ string) error {
	if s.cfg.FailLogin {
		s.publish(bus.Event{Kind: bus.EventLoginResult, Result: schema.Fail(3, "invalid login")})
		return nil
	}
	s.publish(bus.Event{Kind: bus.EventLoginResult, Result: schema.Ok()})
	return nil
}

// Subscribe starts tick delivery for the given instruments.
func (s *MarketSim) Subscribe(instrumentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range instrumentIDs {
		s.subscribed[id] = struct{}{}
	}
	return nil
}

// Release shuts the callback queue down.
func (s *MarketSim) Release() {
	s.queue.Close()
}

func (s *MarketSim) wantsTick(instrumentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribed[instrumentID]
	return ok
}

// Run delivers queued callbacks to the registered listener until the
// context is done.
func (s *MarketSim) Run(ctx context.Context) {
	s.queue.Run(ctx, func(e bus.Event) {
		s.mu.Lock()
		l := s.listener
		s.mu.Unlock()
		dispatch(l, e)
	})
}

// RunFeeder generates ticks at the configured interval for subscribed
// instruments until the context is done or the process shuts down.
func (s *MarketSim) RunFeeder(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tick := s.cfg.Generator.Next(now)
			if !s.wantsTick(tick.InstrumentID) {
				continue
			}
			s.publish(bus.Event{Kind: bus.EventTick, Tick: tick})
		}
	}
}
