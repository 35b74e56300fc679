package risk

import (
	"testing"

	"main/internal/schema"

	"github.com/stretchr/testify/assert"
)

func intent(dir schema.Direction, price float64) schema.OrderIntent {
	return schema.OrderIntent{
		InstrumentID: "rb2410",
		Direction:    dir,
		Price:        price,
		Volume:       1,
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		intent schema.OrderIntent
		state  StateView
		want   Reason
	}{
		{
			name:   "allow within limits",
			cfg:    Config{MaxOrderVolume: 1, MaxPosition: 1, MaxPriceDeviationBps: 100},
			intent: intent(schema.DirectionBuy, 4001),
			state:  StateView{Position: 0, LastTrade: 4000},
			want:   ReasonNone,
		},
		{
			name:   "kill switch denies everything",
			cfg:    Config{KillSwitch: true},
			intent: intent(schema.DirectionBuy, 4000),
			want:   ReasonKillSwitch,
		},
		{
			name:   "volume above cap",
			cfg:    Config{MaxOrderVolume: 1},
			intent: schema.OrderIntent{InstrumentID: "rb2410", Direction: schema.DirectionBuy, Price: 4000, Volume: 2},
			want:   ReasonMaxVolume,
		},
		{
			name:   "price outside band",
			cfg:    Config{MaxPriceDeviationBps: 10},
			intent: intent(schema.DirectionBuy, 4100),
			state:  StateView{LastTrade: 4000},
			want:   ReasonPriceBand,
		},
		{
			name:   "position limit blocks further longs",
			cfg:    Config{MaxPosition: 1},
			intent: intent(schema.DirectionBuy, 4000),
			state:  StateView{Position: 1},
			want:   ReasonPositionLimit,
		},
		{
			name:   "closing a long is allowed at the limit",
			cfg:    Config{MaxPosition: 1},
			intent: intent(schema.DirectionSellClose, 4000),
			state:  StateView{Position: 1},
			want:   ReasonNone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := NewEngine(tc.cfg).Evaluate(tc.intent, tc.state)
			assert.Equal(t, tc.want, decision.Reason)
			if tc.want == ReasonNone {
				assert.Equal(t, ActionAllow, decision.Action)
			} else {
				assert.Equal(t, ActionDeny, decision.Action)
			}
		})
	}
}
