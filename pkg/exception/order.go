package exception

import "github.com/yanun0323/errors"

var (
	ErrOrderPending   = errors.New("an order is already in flight")
	ErrOrderPriceTick = errors.New("price is not aligned to the contract price tick")
	ErrRiskRejected   = errors.New("order rejected by risk engine")
)
