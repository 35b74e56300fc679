package gateway

import "main/internal/schema"

// MarketGateway is the outbound surface of one market-data connection. All
// calls are asynchronous fire-and-forget requests; outcomes arrive later as
// Listener events on the gateway's delivery goroutine.
type MarketGateway interface {
	Connect(address string) error
	Login(brokerID, userID, password string) error
	Subscribe(instrumentIDs []string) error
	Release()
}

// TradeGateway is the outbound surface of one order-entry connection.
type TradeGateway interface {
	Connect(address string) error
	Authenticate(brokerID, userID, appID, authCode string) error
	Login(brokerID, userID, password, investorID string) error
	SubmitOrder(input schema.OrderInput) error
	CancelOrder(cancel schema.CancelRequest) error
	Release()
}

// Listener receives inbound gateway events. A gateway delivers all events
// for its connection from a single goroutine; implementations must never
// block that goroutine.
type Listener interface {
	OnConnected()
	OnAuthResult(res schema.Result)
	OnLoginResult(res schema.Result)
	OnTick(tick schema.Tick)
	OnOrderAck(ack schema.OrderAck)
	OnOrderUpdate(update schema.OrderUpdate)
}

// MarketListener consumes ticks forwarded by a ready market session.
type MarketListener interface {
	OnTick(tick schema.Tick)
}

// TradeListener consumes order events forwarded by a ready trade session.
type TradeListener interface {
	OnOrderAck(ack schema.OrderAck)
	OnOrderUpdate(update schema.OrderUpdate)
}

// Credentials holds the account fields both handshakes need.
type Credentials struct {
	BrokerID   string
	UserID     string
	Password   string
	InvestorID string
	AppID      string
	AuthCode   string
}
