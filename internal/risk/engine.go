package risk

import "main/internal/schema"

// Config defines the pre-trade limits.
type Config struct {
	KillSwitch           bool  `mapstructure:"kill_switch"`
	MaxOrderVolume       int64 `mapstructure:"max_order_volume"`
	MaxPosition          int64 `mapstructure:"max_position"`
	MaxPriceDeviationBps int64 `mapstructure:"max_price_deviation_bps"`
}

// StateView provides the current market and position snapshot.
type StateView struct {
	Position  int64
	LastTrade float64
}

// Action is the outcome of a risk decision.
type Action uint16

const (
	ActionUnknown Action = iota
	ActionAllow
	ActionDeny
)

// Reason is a coarse reason code for risk decisions.
type Reason uint16

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonMaxVolume
	ReasonPriceBand
	ReasonPositionLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill_switch"
	case ReasonMaxVolume:
		return "max_volume"
	case ReasonPriceBand:
		return "price_band"
	case ReasonPositionLimit:
		return "position_limit"
	default:
		return "unknown"
	}
}

// Decision is the evaluated outcome for one order intent.
type Decision struct {
	Action Action
	Reason Reason
}

// Engine evaluates order intents against static limits.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate applies the configured checks to an order intent.
func (e *Engine) Evaluate(intent schema.OrderIntent, state StateView) Decision {
	if e == nil {
		return Decision{Action: ActionAllow, Reason: ReasonNone}
	}

	if e.cfg.KillSwitch {
		return Decision{Action: ActionDeny, Reason: ReasonKillSwitch}
	}

	if e.cfg.MaxOrderVolume > 0 && intent.Volume > e.cfg.MaxOrderVolume {
		return Decision{Action: ActionDeny, Reason: ReasonMaxVolume}
	}

	if e.cfg.MaxPriceDeviationBps > 0 && state.LastTrade > 0 && intent.Price > 0 {
		diff := intent.Price - state.LastTrade
		if diff < 0 {
			diff = -diff
		}
		if diff*10000 > state.LastTrade*float64(e.cfg.MaxPriceDeviationBps) {
			return Decision{Action: ActionDeny, Reason: ReasonPriceBand}
		}
	}

	next := applySide(state.Position, intent.Direction.Side(), intent.Volume)
	if e.cfg.MaxPosition > 0 && abs(next) > e.cfg.MaxPosition {
		return Decision{Action: ActionDeny, Reason: ReasonPositionLimit}
	}

	return Decision{Action: ActionAllow, Reason: ReasonNone}
}

func applySide(pos int64, side schema.OrderSide, volume int64) int64 {
	switch side {
	case schema.OrderSideBuy:
		return pos + volume
	case schema.OrderSideSell:
		return pos - volume
	default:
		return pos
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
