// Package model defines the core domain types shared across the paper engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side a position is held in, fixed at open.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Status is the lifecycle state of a trade record.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// OrderSide is the side of an incoming order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// StartingBalance is the fixed cash balance every account begins with.
var StartingBalance = decimal.NewFromInt(10000)

// Account is the simulated cash account, one per user.
// Invariant: TotalValue == Balance + PortfolioValue after every mutation.
type Account struct {
	UserID         string          `json:"user_id" db:"user_id"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	PortfolioValue decimal.Decimal `json:"portfolio_value" db:"portfolio_value"` // cost basis of open longs
	TotalValue     decimal.Decimal `json:"total_value" db:"total_value"`
	LastUpdated    time.Time       `json:"last_updated" db:"last_updated"`
}

// NewAccount returns a fresh account with the starting balance.
func NewAccount(userID string, now time.Time) *Account {
	return &Account{
		UserID:         userID,
		Balance:        StartingBalance,
		PortfolioValue: decimal.Zero,
		TotalValue:     StartingBalance,
		LastUpdated:    now,
	}
}

// Recompute derives TotalValue from Balance and PortfolioValue and stamps
// LastUpdated. Called as the last step of every mutating operation.
func (a *Account) Recompute(now time.Time) {
	a.TotalValue = a.Balance.Add(a.PortfolioValue)
	a.LastUpdated = now
}

// Trade is one position ledger record. An open trade is the single live
// exposure for its (user, ticker); a closed trade is immutable history.
// At most one open trade exists per (UserID, Ticker) at any time.
type Trade struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Ticker      string          `json:"ticker" db:"ticker"`
	Direction   Direction       `json:"direction" db:"direction"`
	Quantity    int64           `json:"quantity" db:"quantity"` // remaining open size
	OpenPrice   decimal.Decimal `json:"open_price" db:"open_price"`
	ClosePrice  decimal.Decimal `json:"close_price" db:"close_price"` // zero until closed
	Status      Status          `json:"status" db:"status"`
	RealizedPnL decimal.Decimal `json:"realized_pnl" db:"realized_pnl"` // set only at close
	OpenTime    time.Time       `json:"open_time" db:"open_time"`
	CloseTime   time.Time       `json:"close_time" db:"close_time"` // zero until closed
}

// IsOpen reports whether the trade is still a live position.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}
