package refdata

import (
	"time"

	"main/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Window is one trading-session interval expressed as local time of day.
// Both endpoints are inclusive.
type Window struct {
	Start DayTime
	End   DayTime
}

// DayTime is a second-of-day offset in local exchange time.
type DayTime int

// NewDayTime builds a DayTime from hour/minute components.
func NewDayTime(hour, minute int) DayTime {
	return DayTime(hour*3600 + minute*60)
}

func dayTimeOf(t time.Time) DayTime {
	return DayTime(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Contains reports whether the wall-clock time of t falls inside the window,
// endpoints included.
func (w Window) Contains(t time.Time) bool {
	d := dayTimeOf(t)
	return w.Start <= d && d <= w.End
}

// Contract is the immutable resolved view of one tradable product.
type Contract struct {
	ProductID    string
	MainContract string
	Sessions     []Window
	PriceTick    decimal.Decimal
}

// InSession reports whether t falls inside any trading-session window.
func (c Contract) InSession(t time.Time) bool {
	for _, w := range c.Sessions {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Config holds the static tables the resolver serves.
type Config struct {
	// Products maps a human product name to its product ID.
	Products map[string]string
	// MonthCode is appended to a product ID to form the main contract ID.
	// The real front-month roll rule is still an open question upstream;
	// the suffix policy is kept but made configurable.
	MonthCode string
	// Sessions maps a product ID to its trading-session windows.
	Sessions map[string][]Window
	// PriceTicks maps a product ID to its minimum price increment.
	PriceTicks map[string]float64
}

// Resolver is a pure lookup over startup configuration. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	cfg Config
	ids map[string]struct{}
}

// NewResolver builds a resolver from configuration tables.
func NewResolver(cfg Config) *Resolver {
	ids := make(map[string]struct{}, len(cfg.Products))
	for _, id := range cfg.Products {
		ids[id] = struct{}{}
	}
	return &Resolver{cfg: cfg, ids: ids}
}

// ProductID resolves a product name to its product ID.
func (r *Resolver) ProductID(name string) (string, error) {
	id, ok := r.cfg.Products[name]
	if !ok {
		return "", errors.Wrap(exception.ErrRefDataNotFound, "product name: "+name)
	}
	return id, nil
}

// MainContract resolves the main contract ID for a product ID.
func (r *Resolver) MainContract(productID string) (string, error) {
	if _, ok := r.ids[productID]; !ok {
		return "", errors.Wrap(exception.ErrRefDataNotFound, "product id: "+productID)
	}
	return productID + r.cfg.MonthCode, nil
}

// TradingSessions returns the trading-session windows of a product ID.
func (r *Resolver) TradingSessions(productID string) ([]Window, error) {
	sessions, ok := r.cfg.Sessions[productID]
	if !ok || len(sessions) == 0 {
		return nil, errors.Wrap(exception.ErrRefDataNotFound, "trading sessions for product id: "+productID)
	}
	return sessions, nil
}

// Contract resolves the complete contract view for a product ID. Callers
// treat an error as fatal to strategy startup for that product.
func (r *Resolver) Contract(productID string) (Contract, error) {
	main, err := r.MainContract(productID)
	if err != nil {
		return Contract{}, err
	}
	sessions, err := r.TradingSessions(productID)
	if err != nil {
		return Contract{}, err
	}
	return Contract{
		ProductID:    productID,
		MainContract: main,
		Sessions:     sessions,
		PriceTick:    decimal.NewFromFloat(r.cfg.PriceTicks[productID]),
	}, nil
}
