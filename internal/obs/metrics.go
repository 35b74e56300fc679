package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the trading
// loop. All methods are safe for concurrent use and tolerate a nil receiver.
type Metrics struct {
	ticks             uint64
	ticksOutOfSession uint64
	intentsStaged     uint64
	ordersSubmitted   uint64
	ordersFilled      uint64
	ordersRejected    uint64
	cancelsRequested  uint64
	riskRejects       uint64
	queueDrops        uint64

	submitAckLatency  LatencyStats
	tickHandleLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Ticks             uint64
	TicksOutOfSession uint64
	IntentsStaged     uint64
	OrdersSubmitted   uint64
	OrdersFilled      uint64
	OrdersRejected    uint64
	CancelsRequested  uint64
	RiskRejects       uint64
	QueueDrops        uint64
	SubmitAckLatency  LatencySnapshot
	TickHandleLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncTick records a received tick; outOfSession marks ticks observed outside
// the trading-session windows.
func (m *Metrics) IncTick(outOfSession bool) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
	if outOfSession {
		atomic.AddUint64(&m.ticksOutOfSession, 1)
	}
}

// IncIntentStaged records a staged order intent.
func (m *Metrics) IncIntentStaged() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.intentsStaged, 1)
}

// IncOrderSubmitted records an outbound order submission.
func (m *Metrics) IncOrderSubmitted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersSubmitted, 1)
}

// IncOrderFilled records a confirmed fill.
func (m *Metrics) IncOrderFilled() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersFilled, 1)
}

// IncOrderRejected records a gateway rejection.
func (m *Metrics) IncOrderRejected() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersRejected, 1)
}

// IncCancelRequested records an outbound cancel request.
func (m *Metrics) IncCancelRequested() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cancelsRequested, 1)
}

// IncRiskReject records a locally refused order intent.
func (m *Metrics) IncRiskReject() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.riskRejects, 1)
}

// IncQueueDrop records an event dropped by a full delivery queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// ObserveSubmitAck records the submit-to-ack round trip.
func (m *Metrics) ObserveSubmitAck(d time.Duration) {
	if m == nil {
		return
	}
	m.submitAckLatency.Observe(d)
}

// ObserveTickHandle records the time spent handling one tick.
func (m *Metrics) ObserveTickHandle(d time.Duration) {
	if m == nil {
		return
	}
	m.tickHandleLatency.Observe(d)
}

// Snapshot captures the current values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Ticks:             atomic.LoadUint64(&m.ticks),
		TicksOutOfSession: atomic.LoadUint64(&m.ticksOutOfSession),
		IntentsStaged:     atomic.LoadUint64(&m.intentsStaged),
		OrdersSubmitted:   atomic.LoadUint64(&m.ordersSubmitted),
		OrdersFilled:      atomic.LoadUint64(&m.ordersFilled),
		OrdersRejected:    atomic.LoadUint64(&m.ordersRejected),
		CancelsRequested:  atomic.LoadUint64(&m.cancelsRequested),
		RiskRejects:       atomic.LoadUint64(&m.riskRejects),
		QueueDrops:        atomic.LoadUint64(&m.queueDrops),
		SubmitAckLatency:  m.submitAckLatency.Snapshot(),
		TickHandleLatency: m.tickHandleLatency.Snapshot(),
	}
}

// Observe adds one duration sample.
func (s *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	v := uint64(d)
	atomic.AddUint64(&s.count, 1)
	atomic.AddUint64(&s.sum, v)
	for {
		old := atomic.LoadUint64(&s.min)
		if old != 0 && old <= v {
			break
		}
		if atomic.CompareAndSwapUint64(&s.min, old, v) {
			break
		}
	}
	for {
		old := atomic.LoadUint64(&s.max)
		if old >= v {
			break
		}
		if atomic.CompareAndSwapUint64(&s.max, old, v) {
			break
		}
	}
}

// Snapshot captures the current latency aggregates.
func (s *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&s.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&s.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&s.min)),
		Max:   time.Duration(atomic.LoadUint64(&s.max)),
		Avg:   time.Duration(sum / count),
	}
}
