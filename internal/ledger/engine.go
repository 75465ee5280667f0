// Package ledger implements the paper-trading order matching engine.
//
// The engine is pure logic: given an order, the caller's account snapshot,
// and the open position for the order's ticker (if any), it computes the
// updated account and the batch of ledger mutations to persist. It performs
// no I/O; the surrounding service loads state, calls Execute, and applies
// the mutations atomically.
//
// Per (user, ticker) there is at most one open position. A buy against an
// open short covers it (partially or fully); a sell against an open long
// closes it. With no opposing position, a buy opens a long and a sell opens
// a short. Oversized closes are rejected rather than split into a close plus
// a new open.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/paper-engine/internal/model"
)

// Order is a validated buy or sell request against one ticker.
type Order struct {
	Ticker   string
	Side     model.OrderSide
	Quantity int64
	Price    decimal.Decimal
}

// Cost returns quantity * price.
func (o Order) Cost() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Quantity))
}

// Mutations is the batch of ledger writes produced by one execution.
// Append entries are new records; Update entries replace existing records
// by ID. The batch must be applied atomically together with the account.
type Mutations struct {
	Append []model.Trade
	Update []model.Trade
}

// Execute runs one order against the account and the open position for the
// order's ticker (nil when none). It returns the updated account snapshot
// and the ledger mutations to persist. On error, nothing is mutated.
//
// The account is copied; the caller's snapshot is never written through.
func Execute(order Order, account model.Account, open *model.Trade, now time.Time) (model.Account, Mutations, error) {
	if order.Quantity <= 0 || order.Price.LessThanOrEqual(decimal.Zero) {
		return account, Mutations{}, model.ErrInvalidOrder
	}
	if open != nil && !open.IsOpen() {
		open = nil
	}

	switch order.Side {
	case model.SideBuy:
		return executeBuy(order, account, open, now)
	case model.SideSell:
		return executeSell(order, account, open, now)
	default:
		return account, Mutations{}, model.ErrInvalidOrder
	}
}

// executeBuy covers an open short if one exists, otherwise opens a new long.
//
// Covering a short is not gated on the cash balance; only opening a new
// long is. Short positions never touch PortfolioValue — it tracks the cost
// basis of open longs only.
func executeBuy(order Order, account model.Account, openShort *model.Trade, now time.Time) (model.Account, Mutations, error) {
	cost := order.Cost()

	if openShort != nil && openShort.Direction == model.Short {
		var mut Mutations

		switch {
		case order.Quantity < openShort.Quantity:
			// Partial cover: spin off a closed record for the covered
			// slice, shrink the surviving open short.
			covered := closedSlice(openShort, order, shortPnL(openShort.OpenPrice, order.Price, order.Quantity), now)
			remaining := *openShort
			remaining.Quantity -= order.Quantity
			mut.Append = append(mut.Append, covered)
			mut.Update = append(mut.Update, remaining)

		case order.Quantity == openShort.Quantity:
			// Full cover: close in place.
			closed := *openShort
			closeInPlace(&closed, order.Price, shortPnL(openShort.OpenPrice, order.Price, openShort.Quantity), now)
			mut.Update = append(mut.Update, closed)

		default:
			return account, Mutations{}, model.ErrExceedsShortPosition
		}

		account.Balance = account.Balance.Sub(cost)
		account.Recompute(now)
		return account, mut, nil
	}

	// No short to cover: open a new long, gated on available cash.
	if account.Balance.LessThan(cost) {
		return account, Mutations{}, model.ErrInsufficientFunds
	}

	opened := newOpenTrade(account.UserID, order, model.Long, now)
	account.Balance = account.Balance.Sub(cost)
	account.PortfolioValue = account.PortfolioValue.Add(cost)
	account.Recompute(now)
	return account, Mutations{Append: []model.Trade{opened}}, nil
}

// executeSell closes an open long if one exists, otherwise opens a new short.
func executeSell(order Order, account model.Account, openLong *model.Trade, now time.Time) (model.Account, Mutations, error) {
	revenue := order.Cost()

	if openLong != nil && openLong.Direction == model.Long {
		var mut Mutations

		switch {
		case order.Quantity < openLong.Quantity:
			closed := closedSlice(openLong, order, longPnL(openLong.OpenPrice, order.Price, order.Quantity), now)
			remaining := *openLong
			remaining.Quantity -= order.Quantity
			mut.Append = append(mut.Append, closed)
			mut.Update = append(mut.Update, remaining)

		case order.Quantity == openLong.Quantity:
			closed := *openLong
			closeInPlace(&closed, order.Price, longPnL(openLong.OpenPrice, order.Price, openLong.Quantity), now)
			mut.Update = append(mut.Update, closed)

		default:
			return account, Mutations{}, model.ErrExceedsLongPosition
		}

		account.Balance = account.Balance.Add(revenue)
		account.PortfolioValue = account.PortfolioValue.Sub(revenue)
		account.Recompute(now)
		return account, mut, nil
	}

	// No long to sell: open a new short. PortfolioValue is untouched.
	opened := newOpenTrade(account.UserID, order, model.Short, now)
	account.Balance = account.Balance.Add(revenue)
	account.Recompute(now)
	return account, Mutations{Append: []model.Trade{opened}}, nil
}

// longPnL is (close - open) * qty; shortPnL is (open - close) * qty.

func longPnL(openPrice, closePrice decimal.Decimal, qty int64) decimal.Decimal {
	return closePrice.Sub(openPrice).Mul(decimal.NewFromInt(qty))
}

func shortPnL(openPrice, closePrice decimal.Decimal, qty int64) decimal.Decimal {
	return openPrice.Sub(closePrice).Mul(decimal.NewFromInt(qty))
}

// newOpenTrade builds a fresh open position from an order.
func newOpenTrade(userID string, order Order, dir model.Direction, now time.Time) model.Trade {
	return model.Trade{
		ID:        uuid.New().String(),
		UserID:    userID,
		Ticker:    order.Ticker,
		Direction: dir,
		Quantity:  order.Quantity,
		OpenPrice: order.Price,
		Status:    model.StatusOpen,
		OpenTime:  now,
	}
}

// closedSlice builds the immutable closed record for a partial close.
// It keeps the original open price and open time so the slice reads as a
// complete round trip.
func closedSlice(open *model.Trade, order Order, pnl decimal.Decimal, now time.Time) model.Trade {
	return model.Trade{
		ID:          uuid.New().String(),
		UserID:      open.UserID,
		Ticker:      open.Ticker,
		Direction:   open.Direction,
		Quantity:    order.Quantity,
		OpenPrice:   open.OpenPrice,
		ClosePrice:  order.Price,
		Status:      model.StatusClosed,
		RealizedPnL: pnl,
		OpenTime:    open.OpenTime,
		CloseTime:   now,
	}
}

// closeInPlace transitions an open record to its terminal closed state.
func closeInPlace(t *model.Trade, closePrice, pnl decimal.Decimal, now time.Time) {
	t.ClosePrice = closePrice
	t.CloseTime = now
	t.Status = model.StatusClosed
	t.RealizedPnL = pnl
}
