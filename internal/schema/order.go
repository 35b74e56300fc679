package schema

// Direction is the strategy-level order intent direction.
type Direction uint16

const (
	DirectionUnknown Direction = iota
	DirectionBuy
	DirectionSell
	DirectionBuyClose
	DirectionSellClose
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	case DirectionBuyClose:
		return "buy_close"
	case DirectionSellClose:
		return "sell_close"
	default:
		return "unknown"
	}
}

// OrderSide describes the wire-level side of an order.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// OrderOffset describes whether an order opens or closes a position.
type OrderOffset uint16

const (
	OrderOffsetUnknown OrderOffset = iota
	OrderOffsetOpen
	OrderOffsetClose
)

// Side maps a strategy direction to the wire-level order side.
func (d Direction) Side() OrderSide {
	switch d {
	case DirectionBuy, DirectionBuyClose:
		return OrderSideBuy
	case DirectionSell, DirectionSellClose:
		return OrderSideSell
	default:
		return OrderSideUnknown
	}
}

// Offset maps a strategy direction to the wire-level offset flag.
func (d Direction) Offset() OrderOffset {
	switch d {
	case DirectionBuy, DirectionSell:
		return OrderOffsetOpen
	case DirectionBuyClose, DirectionSellClose:
		return OrderOffsetClose
	default:
		return OrderOffsetUnknown
	}
}

// PriceType describes the order pricing mode.
type PriceType uint16

const (
	PriceTypeUnknown PriceType = iota
	PriceTypeLimit
	PriceTypeMarket
)

// TimeCondition describes how long an order stays working.
type TimeCondition uint16

const (
	TimeConditionUnknown TimeCondition = iota
	TimeConditionIOC
	TimeConditionGFD
)

// OrderStatus tracks the lifecycle of a client order.
type OrderStatus uint16

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusSubmitted
	OrderStatusAcked
	OrderStatusFilled
	OrderStatusCancelRequested
	OrderStatusCancelled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusSubmitted:
		return "submitted"
	case OrderStatusAcked:
		return "acked"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCancelRequested:
		return "cancel_requested"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status ends the order lifecycle.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// OrderIntent is a not-yet-submitted order proposal evaluated by the risk
// engine before it becomes an OrderInput.
type OrderIntent struct {
	InstrumentID string
	Direction    Direction
	Price        float64
	Volume       int64
}

// OrderInput is one outbound order submission.
type OrderInput struct {
	Ref           string
	InstrumentID  string
	Side          OrderSide
	Offset        OrderOffset
	PriceType     PriceType
	TimeCondition TimeCondition
	Price         float64
	Volume        int64
}

// OrderAck is the gateway acknowledgment of a submission. A failed
// submission carries the gateway error code and message.
type OrderAck struct {
	Ref        string
	SysID      string
	ExchangeID string
	OK         bool
	ErrorID    int
	ErrorMsg   string
}

// OrderUpdate is an order lifecycle notification from the trading gateway.
type OrderUpdate struct {
	Ref    string
	Status OrderStatus
}

// CancelRequest asks the trading gateway to withdraw a working order. The
// gateway-assigned system and exchange IDs are mandatory.
type CancelRequest struct {
	Ref          string
	InstrumentID string
	SysID        string
	ExchangeID   string
}
