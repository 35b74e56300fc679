package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/obs"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/pkg/exception"
)

type fakeTradeGateway struct {
	submits   []schema.OrderInput
	cancels   []schema.CancelRequest
	submitErr error
	cancelErr error
}

func (f *fakeTradeGateway) Connect(string) error { return nil }
func (f *fakeTradeGateway) Authenticate(_, _, _, _ string) error { return nil }
func (f *fakeTradeGateway) Login(_, _, _, _ string) error { return nil }
func (f *fakeTradeGateway) Release() {}
func (f *fakeTradeGateway) SubmitOrder(input schema.OrderInput) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submits = append(f.submits, input)
	return nil
}
func (f *fakeTradeGateway) CancelOrder(cancel schema.CancelRequest) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancels = append(f.cancels, cancel)
	return nil
}

func newTestManager(gw *fakeTradeGateway) *Manager {
	return NewManager(Config{
		Gateway:   gw,
		Risk:      risk.NewEngine(risk.Config{MaxOrderVolume: 10, MaxPosition: 10}),
		Book:      state.NewBook(),
		Metrics:   obs.NewMetrics(),
		PriceTick: decimal.NewFromFloat(1),
	})
}

func buyIntent() schema.OrderIntent {
	return schema.OrderIntent{
		InstrumentID: "rb2410",
		Direction:    schema.DirectionBuy,
		Price:        4000,
		Volume:       1,
	}
}

func TestSubmitFillLifecycle(t *testing.T) {
	gw := &fakeTradeGateway{}
	m := newTestManager(gw)
	now := time.Now()

	if err := m.Submit(buyIntent(), 4000, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !m.Pending() {
		t.Fatalf("slot should be occupied after submit")
	}
	if len(gw.submits) != 1 {
		t.Fatalf("submit calls: %d", len(gw.submits))
	}
	input := gw.submits[0]
	if input.Side != schema.OrderSideBuy || input.Offset != schema.OrderOffsetOpen {
		t.Fatalf("wire order: %+v", input)
	}
	if input.PriceType != schema.PriceTypeLimit || input.TimeCondition != schema.TimeConditionIOC {
		t.Fatalf("wire order: %+v", input)
	}

	m.OnAck(schema.OrderAck{Ref: input.Ref, OK: true, SysID: "1001", ExchangeID: "SHFE"}, now.Add(time.Millisecond))
	if !m.Pending() {
		t.Fatalf("ack must not free the slot")
	}

	m.OnOrderUpdate(schema.OrderUpdate{Ref: input.Ref, Status: schema.OrderStatusFilled})
	if m.Pending() {
		t.Fatalf("fill should free the slot")
	}
	if got := m.Position("rb2410"); got != 1 {
		t.Fatalf("position after buy fill: %d", got)
	}
}

func TestSubmitRejectsSecondOrderInFlight(t *testing.T) {
	gw := &fakeTradeGateway{}
	m := newTestManager(gw)
	now := time.Now()

	if err := m.Submit(buyIntent(), 4000, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	err := m.Submit(buyIntent(), 4000, now)
	if !errors.Is(err, exception.ErrOrderPending) {
		t.Fatalf("want ErrOrderPending, got %v", err)
	}
	if len(gw.submits) != 1 {
		t.Fatalf("second order must not reach the gateway")
	}
}

func TestSubmitRejectsMisalignedPrice(t *testing.T) {
	m := newTestManager(&fakeTradeGateway{})
	intent := buyIntent()
	intent.Price = 4000.3

	err := m.Submit(intent, 4000, time.Now())
	if !errors.Is(err, exception.ErrOrderPriceTick) {
		t.Fatalf("want ErrOrderPriceTick, got %v", err)
	}
	if m.Pending() {
		t.Fatalf("rejected order must not occupy the slot")
	}
}

func TestSubmitRejectedByRisk(t *testing.T) {
	gw := &fakeTradeGateway{}
	m := NewManager(Config{
		Gateway: gw,
		Risk:    risk.NewEngine(risk.Config{KillSwitch: true}),
		Book:    state.NewBook(),
		Metrics: obs.NewMetrics(),
	})

	err := m.Submit(buyIntent(), 4000, time.Now())
	if !errors.Is(err, exception.ErrRiskRejected) {
		t.Fatalf("want ErrRiskRejected, got %v", err)
	}
	if len(gw.submits) != 0 {
		t.Fatalf("denied order must not reach the gateway")
	}
}

func TestSubmitTransportErrorFreesSlot(t *testing.T) {
	gw := &fakeTradeGateway{submitErr: errors.New("front disconnected")}
	m := newTestManager(gw)

	if err := m.Submit(buyIntent(), 4000, time.Now()); err == nil {
		t.Fatalf("want transport error")
	}
	if m.Pending() {
		t.Fatalf("failed submission must free the slot")
	}
}

func TestAckFailureFreesSlot(t *testing.T) {
	gw := &fakeTradeGateway{}
	m := newTestManager(gw)
	now := time.Now()

	if err := m.Submit(buyIntent(), 4000, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ref := gw.submits[0].Ref
	m.OnAck(schema.OrderAck{Ref: ref, OK: false, ErrorID: 22, ErrorMsg: "insufficient margin"}, now)
	if m.Pending() {
		t.Fatalf("negative ack should free the slot")
	}
	if got := m.Position("rb2410"); got != 0 {
		t.Fatalf("position after rejection: %d", got)
	}
}

func TestOnOrderUpdateIgnoresUnknownRef(t *testing.T) {
	gw := &fakeTradeGateway{}
	m := newTestManager(gw)
	now := time.Now()

	if err := m.Submit(buyIntent(), 4000, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	m.OnOrderUpdate(schema.OrderUpdate{Ref: "someone-else", Status: schema.OrderStatusFilled})
	if !m.Pending() {
		t.Fatalf("update for foreign ref must not touch the slot")
	}
	if got := m.Position("rb2410"); got != 0 {
		t.Fatalf("position after foreign update: %d", got)
	}
}

func TestCancelStale(t *testing.T) {
	gw := &fakeTradeGateway{}
	m := newTestManager(gw)
	start := time.Now()

	if err := m.Submit(buyIntent(), 4000, start); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ref := gw.submits[0].Ref

	// Not yet stale.
	if err := m.CancelStale(start.Add(5 * time.Second)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(gw.cancels) != 0 {
		t.Fatalf("order cancelled before the timeout")
	}

	// Stale but the ack has not arrived: the cancel is deferred.
	if err := m.CancelStale(start.Add(25 * time.Second)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(gw.cancels) != 0 {
		t.Fatalf("cancel issued without gateway ids")
	}

	m.OnAck(schema.OrderAck{Ref: ref, OK: true, SysID: "1001", ExchangeID: "SHFE"}, start.Add(time.Second))
	if err := m.CancelStale(start.Add(25 * time.Second)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(gw.cancels) != 1 {
		t.Fatalf("cancel calls: %d", len(gw.cancels))
	}
	cancel := gw.cancels[0]
	if cancel.Ref != ref || cancel.SysID != "1001" || cancel.ExchangeID != "SHFE" {
		t.Fatalf("cancel request: %+v", cancel)
	}
	if m.Pending() {
		t.Fatalf("issued cancel should free the slot")
	}
}

func TestCancelStaleKeepsRecordOnTransportError(t *testing.T) {
	gw := &fakeTradeGateway{}
	m := newTestManager(gw)
	start := time.Now()

	if err := m.Submit(buyIntent(), 4000, start); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ref := gw.submits[0].Ref
	m.OnAck(schema.OrderAck{Ref: ref, OK: true, SysID: "1001", ExchangeID: "SHFE"}, start)

	gw.cancelErr = errors.New("front disconnected")
	if err := m.CancelStale(start.Add(25 * time.Second)); err == nil {
		t.Fatalf("want transport error")
	}
	if !m.Pending() {
		t.Fatalf("failed cancel must keep the record for retry")
	}

	gw.cancelErr = nil
	if err := m.CancelStale(start.Add(26 * time.Second)); err != nil {
		t.Fatalf("retry cancel: %v", err)
	}
	if m.Pending() {
		t.Fatalf("retried cancel should free the slot")
	}
}
