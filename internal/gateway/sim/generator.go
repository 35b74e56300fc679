package sim

import (
	"math/rand"
	"time"

	"main/internal/schema"
)

// TickGenerator produces a random-walk tick stream for one instrument. The
// walk moves one price tick at a time so generated prices always align to
// the contract grid.
type TickGenerator struct {
	instrumentID string
	priceTick    float64
	last         float64
	volume       int64
	rng          *rand.Rand
}

// NewTickGenerator creates a generator starting the walk at basePrice.
func NewTickGenerator(instrumentID string, basePrice, priceTick float64, seed int64) *TickGenerator {
	if priceTick <= 0 {
		priceTick = 1
	}
	return &TickGenerator{
		instrumentID: instrumentID,
		priceTick:    priceTick,
		last:         basePrice,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Next produces the next tick in the walk.
func (g *TickGenerator) Next(now time.Time) schema.Tick {
	switch g.rng.Intn(3) {
	case 0:
		g.last += g.priceTick
	case 1:
		g.last -= g.priceTick
	}
	g.volume += int64(g.rng.Intn(5))
	return schema.Tick{
		InstrumentID: g.instrumentID,
		BidPrice1:    g.last - g.priceTick,
		AskPrice1:    g.last + g.priceTick,
		LastPrice:    g.last,
		Volume:       g.volume,
		Recv:         now,
	}
}
