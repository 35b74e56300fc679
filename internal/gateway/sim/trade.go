package sim

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/schema"
)

// Mode selects how the simulated trading gateway answers submissions.
type Mode uint16

const (
	// ModeFill acknowledges and fills every order.
	ModeFill Mode = iota
	// ModeSilent acknowledges but never fills, leaving orders working.
	ModeSilent
	// ModeReject answers every submission with a gateway rejection.
	ModeReject
)

// TradeConfig controls the simulated trading gateway.
type TradeConfig struct {
	Mode      Mode
	QueueSize int
	FailAuth  bool
	FailLogin bool

	// AckDelay postpones the acknowledgment after a submission; zero
	// acknowledges immediately.
	AckDelay time.Duration

	Metrics *obs.Metrics
}

// TradeSim is an in-process trading gateway counterpart to MarketSim. It
// assigns sequential system IDs and plays back acks, fills, rejections and
// cancel confirmations through its callback queue.
type TradeSim struct {
	cfg   TradeConfig
	queue *bus.Queue

	mu       sync.Mutex
	listener gateway.Listener
	nextSys  int64
}

// NewTradeSim creates a disconnected simulated trading gateway.
func NewTradeSim(cfg TradeConfig) *TradeSim {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &TradeSim{cfg: cfg, queue: bus.NewQueue(size)}
}

// Register sets the listener receiving this gateway's callbacks.
func (s *TradeSim) Register(l gateway.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *TradeSim) publish(e bus.Event) {
	if err := s.queue.TryPublish(e); err != nil {
		s.cfg.Metrics.IncQueueDrop()
		logs.Errorf("trade sim dropped event kind %d: %+v", e.Kind, err)
	}
}

// Connect acknowledges immediately.
func (s *TradeSim) Connect(string) error {
	s.publish(bus.Event{Kind: bus.EventConnected})
	return nil
}

// Authenticate answers with the configured outcome.
func (s *TradeSim) Authenticate(_, _, _, _ string) error {
	if s.cfg.FailAuth {
		s.publish(bus.Event{Kind: bus.EventAuthResult, Result: schema.Fail(63, "authcode mismatch")})
		return nil
	}
	s.publish(bus.Event{Kind: bus.EventAuthResult, Result: schema.Ok()})
	return nil
}

// Login answers with the configured outcome.
func (s *TradeSim) Login(_, _, _, _ string) error {
	if s.cfg.FailLogin {
		s.publish(bus.Event{Kind: bus.EventLoginResult, Result: schema.Fail(3, "invalid login")})
		return nil
	}
	s.publish(bus.Event{Kind: bus.EventLoginResult, Result: schema.Ok()})
	return nil
}

// SubmitOrder acknowledges (and, in ModeFill, fills) the order through the
// callback queue according to the configured mode.
func (s *TradeSim) SubmitOrder(input schema.OrderInput) error {
	s.mu.Lock()
	s.nextSys++
	sysID := strconv.FormatInt(s.nextSys, 10)
	s.mu.Unlock()

	if s.cfg.Mode == ModeReject {
		s.publish(bus.Event{Kind: bus.EventOrderAck, Ack: schema.OrderAck{
			Ref:      input.Ref,
			OK:       false,
			ErrorID:  22,
			ErrorMsg: "order rejected",
		}})
		return nil
	}

	ack := schema.OrderAck{Ref: input.Ref, SysID: sysID, ExchangeID: "SIM", OK: true}
	deliver := func() {
		s.publish(bus.Event{Kind: bus.EventOrderAck, Ack: ack})
		if s.cfg.Mode == ModeFill {
			s.publish(bus.Event{Kind: bus.EventOrderUpdate, Update: schema.OrderUpdate{
				Ref:    input.Ref,
				Status: schema.OrderStatusFilled,
			}})
		}
	}
	if s.cfg.AckDelay > 0 {
		time.AfterFunc(s.cfg.AckDelay, deliver)
		return nil
	}
	deliver()
	return nil
}

// CancelOrder confirms the cancel through the callback queue.
func (s *TradeSim) CancelOrder(cancel schema.CancelRequest) error {
	s.publish(bus.Event{Kind: bus.EventOrderUpdate, Update: schema.OrderUpdate{
		Ref:    cancel.Ref,
		Status: schema.OrderStatusCancelled,
	}})
	return nil
}

// Release shuts the callback queue down.
func (s *TradeSim) Release() {
	s.queue.Close()
}

// Run delivers queued callbacks to the registered listener until the
// context is done.
func (s *TradeSim) Run(ctx context.Context) {
	s.queue.Run(ctx, func(e bus.Event) {
		s.mu.Lock()
		l := s.listener
		s.mu.Unlock()
		dispatch(l, e)
	})
}
