package gateway

import (
	"sync"

	"main/internal/schema"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// SessionState is the handshake progression of one gateway connection.
// Transitions are driven exclusively by inbound callback events.
type SessionState uint16

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateAuthenticating
	StateLoggingIn
	StateReady
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggingIn:
		return "logging_in"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarketConfig wires a market session to its gateway and tick consumer.
type MarketConfig struct {
	Gateway     MarketGateway
	Address     string
	Credentials Credentials
	Instruments []string
	Ticks       MarketListener
}

// MarketSession owns the market-data handshake:
// connect -> onConnected -> login -> onLoginResult(ok) -> ready -> subscribe.
// A negative login result halts the session in place; Connect restarts the
// whole sequence from scratch.
type MarketSession struct {
	mu    sync.Mutex
	cfg   MarketConfig
	state SessionState
}

// NewMarketSession creates a market session in the disconnected state.
func NewMarketSession(cfg MarketConfig) *MarketSession {
	return &MarketSession{cfg: cfg, state: StateDisconnected}
}

// Connect starts (or restarts) the handshake. Any partial handshake state
// is discarded.
func (s *MarketSession) Connect() error {
	s.setState(StateConnecting)
	if err := s.cfg.Gateway.Connect(s.cfg.Address); err != nil {
		s.setState(StateDisconnected)
		return errors.Wrap(err, "connect market gateway")
	}
	return nil
}

// State returns the current handshake state.
func (s *MarketSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Release drops the connection and resets the session.
func (s *MarketSession) Release() {
	s.cfg.Gateway.Release()
	s.setState(StateDisconnected)
}

func (s *MarketSession) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *MarketSession) advance(from, to SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// OnConnected moves the session to logging_in and issues the login request.
// The market-data gateway has no authenticate step.
func (s *MarketSession) OnConnected() {
	if !s.advance(StateConnecting, StateLoggingIn) {
		return
	}
	logs.Info("market session connected, logging in")
	creds := s.cfg.Credentials
	if err := s.cfg.Gateway.Login(creds.BrokerID, creds.UserID, creds.Password); err != nil {
		logs.Errorf("market login request failed, err: %+v", err)
	}
}

// OnAuthResult is unused for the market-data gateway.
func (s *MarketSession) OnAuthResult(schema.Result) {}

// OnLoginResult completes the handshake and subscribes the configured
// instruments, or halts the session on a negative result.
func (s *MarketSession) OnLoginResult(res schema.Result) {
	if !res.OK {
		logs.Errorf("market login rejected, code: %d, msg: %s", res.ErrorID, res.ErrorMsg)
		return
	}
	if !s.advance(StateLoggingIn, StateReady) {
		return
	}
	logs.Infof("market session ready, subscribing %v", s.cfg.Instruments)
	if err := s.cfg.Gateway.Subscribe(s.cfg.Instruments); err != nil {
		logs.Errorf("subscribe request failed, err: %+v", err)
	}
}

// OnTick forwards quotes to the tick consumer once the session is ready.
func (s *MarketSession) OnTick(tick schema.Tick) {
	if s.State() != StateReady {
		return
	}
	s.cfg.Ticks.OnTick(tick)
}

// OnOrderAck is unused for the market-data gateway.
func (s *MarketSession) OnOrderAck(schema.OrderAck) {}

// OnOrderUpdate is unused for the market-data gateway.
func (s *MarketSession) OnOrderUpdate(schema.OrderUpdate) {}

// TradeConfig wires a trade session to its gateway and order consumer.
type TradeConfig struct {
	Gateway     TradeGateway
	Address     string
	Credentials Credentials
	Orders      TradeListener
}

// TradeSession owns the order-entry handshake:
// connect -> onConnected -> authenticate -> onAuthResult(ok) -> login ->
// onLoginResult(ok) -> ready. Negative acknowledgments halt the session in
// place; Connect restarts from scratch.
type TradeSession struct {
	mu    sync.Mutex
	cfg   TradeConfig
	state SessionState
}

// NewTradeSession creates a trade session in the disconnected state.
func NewTradeSession(cfg TradeConfig) *TradeSession {
	return &TradeSession{cfg: cfg, state: StateDisconnected}
}

// Connect starts (or restarts) the handshake.
func (s *TradeSession) Connect() error {
	s.setState(StateConnecting)
	if err := s.cfg.Gateway.Connect(s.cfg.Address); err != nil {
		s.setState(StateDisconnected)
		return errors.Wrap(err, "connect trade gateway")
	}
	return nil
}

// State returns the current handshake state.
func (s *TradeSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Release drops the connection and resets the session.
func (s *TradeSession) Release() {
	s.cfg.Gateway.Release()
	s.setState(StateDisconnected)
}

func (s *TradeSession) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *TradeSession) advance(from, to SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// OnConnected moves the session to authenticating and issues the
// authenticate request.
func (s *TradeSession) OnConnected() {
	if !s.advance(StateConnecting, StateAuthenticating) {
		return
	}
	logs.Info("trade session connected, authenticating")
	creds := s.cfg.Credentials
	if err := s.cfg.Gateway.Authenticate(creds.BrokerID, creds.UserID, creds.AppID, creds.AuthCode); err != nil {
		logs.Errorf("authenticate request failed, err: %+v", err)
	}
}

// OnAuthResult moves the session to logging_in and issues the login
// request, or halts the session on a negative result.
func (s *TradeSession) OnAuthResult(res schema.Result) {
	if !res.OK {
		logs.Errorf("trade authentication rejected, code: %d, msg: %s", res.ErrorID, res.ErrorMsg)
		return
	}
	if !s.advance(StateAuthenticating, StateLoggingIn) {
		return
	}
	logs.Info("trade session authenticated, logging in")
	creds := s.cfg.Credentials
	if err := s.cfg.Gateway.Login(creds.BrokerID, creds.UserID, creds.Password, creds.InvestorID); err != nil {
		logs.Errorf("trade login request failed, err: %+v", err)
	}
}

// OnLoginResult completes the handshake or halts the session on a negative
// result.
func (s *TradeSession) OnLoginResult(res schema.Result) {
	if !res.OK {
		logs.Errorf("trade login rejected, code: %d, msg: %s", res.ErrorID, res.ErrorMsg)
		return
	}
	if !s.advance(StateLoggingIn, StateReady) {
		return
	}
	logs.Info("trade session ready")
}

// OnTick is unused for the order-entry gateway.
func (s *TradeSession) OnTick(schema.Tick) {}

// OnOrderAck forwards submission acknowledgments to the order consumer.
func (s *TradeSession) OnOrderAck(ack schema.OrderAck) {
	s.cfg.Orders.OnOrderAck(ack)
}

// OnOrderUpdate forwards lifecycle notifications to the order consumer.
func (s *TradeSession) OnOrderUpdate(update schema.OrderUpdate) {
	s.cfg.Orders.OnOrderUpdate(update)
}
