package model

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountExists        = errors.New("account already exists")
	ErrInvalidOrder         = errors.New("order quantity and price must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrExceedsShortPosition = errors.New("cannot buy more than the amount shorted")
	ErrExceedsLongPosition  = errors.New("cannot sell more than the amount owned")
	ErrOpenPositionExists   = errors.New("an open position already exists for this ticker")
	ErrTradeNotFound        = errors.New("trade not found")
)
