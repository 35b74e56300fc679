package schema

import "time"

// Tick is one quote update for an instrument. The strategy only ever keeps
// the last two ticks' traded prices, so ticks are passed by value and never
// retained.
type Tick struct {
	InstrumentID string
	BidPrice1    float64
	AskPrice1    float64
	LastPrice    float64
	Volume       int64
	Recv         time.Time
}

// Result carries the outcome of an authenticate or login request.
type Result struct {
	OK       bool
	ErrorID  int
	ErrorMsg string
}

// Ok builds a positive result.
func Ok() Result {
	return Result{OK: true}
}

// Fail builds a negative result with the gateway error code and message.
func Fail(errorID int, errorMsg string) Result {
	return Result{ErrorID: errorID, ErrorMsg: errorMsg}
}
