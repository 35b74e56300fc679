package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/pkg/exception"
)

// DefaultStaleTimeout is how long a working order may stay unfilled before
// a cancel is issued.
const DefaultStaleTimeout = 20 * time.Second

// record is the manager's view of the single in-flight order.
type record struct {
	ref         string
	intent      schema.OrderIntent
	status      schema.OrderStatus
	sysID       string
	exchangeID  string
	submittedAt time.Time
}

// Config wires the manager's collaborators.
type Config struct {
	Gateway gateway.TradeGateway
	Risk    *risk.Engine
	Book    *state.Book
	Metrics *obs.Metrics

	// PriceTick is the contract's minimum price increment. Zero disables
	// the alignment check.
	PriceTick decimal.Decimal

	// StaleTimeout overrides DefaultStaleTimeout when positive.
	StaleTimeout time.Duration
}

// Manager tracks at most one in-flight order at a time: it submits intents,
// applies gateway acknowledgments and lifecycle updates, folds fills into
// the position book, and cancels orders that stay working too long.
//
// Manager is not safe for concurrent use; the owning engine serializes all
// calls under its own lock.
type Manager struct {
	cfg     Config
	timeout time.Duration
	pending *record
}

// NewManager creates an order manager with an empty in-flight slot.
func NewManager(cfg Config) *Manager {
	timeout := cfg.StaleTimeout
	if timeout <= 0 {
		timeout = DefaultStaleTimeout
	}
	return &Manager{cfg: cfg, timeout: timeout}
}

// Pending reports whether an order is currently in flight.
func (m *Manager) Pending() bool {
	return m.pending != nil
}

// PendingRef returns the in-flight order ref, or "" when the slot is empty.
func (m *Manager) PendingRef() string {
	if m.pending == nil {
		return ""
	}
	return m.pending.ref
}

// Position returns the current signed lot count for an instrument.
func (m *Manager) Position(instrumentID string) int64 {
	return m.cfg.Book.Position(instrumentID)
}

// Submit validates an intent and sends it to the trading gateway as a
// single limit IOC order. lastTrade is the most recent traded price, used
// for the risk price band. The in-flight slot is occupied until the order
// reaches a terminal state or its submission fails.
func (m *Manager) Submit(intent schema.OrderIntent, lastTrade float64, now time.Time) error {
	if m.pending != nil {
		return errors.Wrap(exception.ErrOrderPending, "ref "+m.pending.ref)
	}

	if !m.cfg.PriceTick.IsZero() {
		price := decimal.NewFromFloat(intent.Price)
		if !price.Mod(m.cfg.PriceTick).IsZero() {
			return errors.Wrap(exception.ErrOrderPriceTick, "price "+price.String()+" tick "+m.cfg.PriceTick.String())
		}
	}

	decision := m.cfg.Risk.Evaluate(intent, risk.StateView{
		Position:  m.cfg.Book.Position(intent.InstrumentID),
		LastTrade: lastTrade,
	})
	if decision.Action != risk.ActionAllow {
		m.cfg.Metrics.IncRiskReject()
		return errors.Wrap(exception.ErrRiskRejected, "reason "+decision.Reason.String())
	}

	input := schema.OrderInput{
		Ref:           uuid.NewString(),
		InstrumentID:  intent.InstrumentID,
		Side:          intent.Direction.Side(),
		Offset:        intent.Direction.Offset(),
		PriceType:     schema.PriceTypeLimit,
		TimeCondition: schema.TimeConditionIOC,
		Price:         intent.Price,
		Volume:        intent.Volume,
	}

	m.pending = &record{
		ref:         input.Ref,
		intent:      intent,
		status:      schema.OrderStatusSubmitted,
		submittedAt: now,
	}

	if err := m.cfg.Gateway.SubmitOrder(input); err != nil {
		m.pending = nil
		return errors.Wrap(err, "submit order "+input.Ref)
	}

	m.cfg.Metrics.IncOrderSubmitted()
	logs.Infof("order submitted, ref: %s, %s %s %d@%.2f",
		input.Ref, intent.Direction, intent.InstrumentID, intent.Volume, intent.Price)
	return nil
}

// OnAck applies the gateway acknowledgment for the in-flight order. A
// failed submission frees the slot; a successful one records the
// gateway-assigned IDs needed for a later cancel.
func (m *Manager) OnAck(ack schema.OrderAck, now time.Time) {
	if m.pending == nil || m.pending.ref != ack.Ref {
		return
	}

	if !ack.OK {
		logs.Errorf("order rejected by gateway, ref: %s, error: %d %s", ack.Ref, ack.ErrorID, ack.ErrorMsg)
		m.cfg.Metrics.IncOrderRejected()
		m.pending = nil
		return
	}

	m.pending.sysID = ack.SysID
	m.pending.exchangeID = ack.ExchangeID
	m.cfg.Metrics.ObserveSubmitAck(now.Sub(m.pending.submittedAt))
}

// OnOrderUpdate applies a lifecycle notification. Fills update the position
// book; any terminal status frees the in-flight slot.
func (m *Manager) OnOrderUpdate(update schema.OrderUpdate) {
	if m.pending == nil || m.pending.ref != update.Ref {
		return
	}

	switch update.Status {
	case schema.OrderStatusFilled:
		intent := m.pending.intent
		pos := m.cfg.Book.ApplyFill(intent.InstrumentID, intent.Direction.Side(), intent.Volume)
		m.cfg.Metrics.IncOrderFilled()
		m.pending = nil
		logs.Infof("order filled, ref: %s, %s position: %d", update.Ref, intent.InstrumentID, pos)
	case schema.OrderStatusRejected:
		m.cfg.Metrics.IncOrderRejected()
		m.pending = nil
		logs.Infof("order rejected, ref: %s", update.Ref)
	case schema.OrderStatusCancelled:
		m.pending = nil
		logs.Infof("order cancelled, ref: %s", update.Ref)
	default:
		m.pending.status = update.Status
	}
}

// CancelStale issues a cancel for the in-flight order once it has been
// working longer than the stale timeout. An order whose gateway IDs have
// not arrived yet is left alone until they do.
func (m *Manager) CancelStale(now time.Time) error {
	if m.pending == nil {
		return nil
	}
	if now.Sub(m.pending.submittedAt) < m.timeout {
		return nil
	}
	if m.pending.sysID == "" || m.pending.exchangeID == "" {
		// The ack has not landed yet; retry on the next pass.
		return nil
	}

	cancel := schema.CancelRequest{
		Ref:          m.pending.ref,
		InstrumentID: m.pending.intent.InstrumentID,
		SysID:        m.pending.sysID,
		ExchangeID:   m.pending.exchangeID,
	}
	if err := m.cfg.Gateway.CancelOrder(cancel); err != nil {
		return errors.Wrap(err, "cancel order "+cancel.Ref)
	}

	m.cfg.Metrics.IncCancelRequested()
	logs.Infof("stale order cancelled, ref: %s, age: %s", cancel.Ref, now.Sub(m.pending.submittedAt))
	m.pending = nil
	return nil
}
