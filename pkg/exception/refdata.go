package exception

import "github.com/yanun0323/errors"

var (
	ErrRefDataNotFound = errors.New("reference data not found")
)
