package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/stockpulse/paper-engine/internal/model"
)

// Property: after any sequence of orders on one ticker, the account always
// satisfies totalValue == balance + portfolioValue exactly, at most one
// position is open, and the open quantity stays positive.
func TestProperty_ValuationInvariantHolds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		account := model.Account{
			UserID:         "user1",
			Balance:        model.StartingBalance,
			PortfolioValue: decimal.Zero,
			TotalValue:     model.StartingBalance,
		}
		var open *model.Trade
		now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			side := model.SideBuy
			if rapid.Bool().Draw(t, "sell") {
				side = model.SideSell
			}
			order := Order{
				Ticker:   "AAPL",
				Side:     side,
				Quantity: rapid.Int64Range(1, 20).Draw(t, "qty"),
				Price:    decimal.NewFromInt(rapid.Int64Range(1, 200).Draw(t, "price")),
			}

			updated, mut, err := Execute(order, account, open, now)
			if err != nil {
				// Rejected orders must not mutate anything.
				if len(mut.Append) != 0 || len(mut.Update) != 0 {
					t.Fatalf("rejected order produced mutations: %+v", mut)
				}
				continue
			}

			next, ok := applyBatch(open, mut)
			if !ok {
				// The store rejects batches that would create a second
				// open position; the whole execution is discarded.
				continue
			}

			account = updated
			open = next
			now = now.Add(time.Minute)

			if !account.TotalValue.Equal(account.Balance.Add(account.PortfolioValue)) {
				t.Fatalf("invariant violated after step %d: total=%s balance=%s portfolio=%s",
					i, account.TotalValue, account.Balance, account.PortfolioValue)
			}
			if open != nil && open.Quantity <= 0 {
				t.Fatalf("open position with non-positive quantity: %d", open.Quantity)
			}
		}
	})
}

// Property: closing a long over any split of partial sells realizes the same
// total P&L as a single full close at the same price.
func TestProperty_PartialCloseConservesValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qty := rapid.Int64Range(2, 100).Draw(t, "qty")
		openPrice := decimal.NewFromInt(rapid.Int64Range(1, 50).Draw(t, "openPrice"))
		closePrice := decimal.NewFromInt(rapid.Int64Range(1, 100).Draw(t, "closePrice"))
		splitAt := rapid.Int64Range(1, qty-1).Draw(t, "splitAt")

		now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		account := model.Account{UserID: "user1", Balance: decimal.NewFromInt(100000)}
		account.Recompute(now)

		// Open the long.
		account, mut, err := Execute(Order{
			Ticker: "AAPL", Side: model.SideBuy, Quantity: qty, Price: openPrice,
		}, account, nil, now)
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}
		open, _ := applyBatch(nil, mut)

		// Close in two slices.
		var totalPnL decimal.Decimal
		for _, sliceQty := range []int64{splitAt, qty - splitAt} {
			var m Mutations
			account, m, err = Execute(Order{
				Ticker: "AAPL", Side: model.SideSell, Quantity: sliceQty, Price: closePrice,
			}, account, open, now)
			if err != nil {
				t.Fatalf("sell failed: %v", err)
			}
			for _, tr := range append(m.Append, m.Update...) {
				if tr.Status == model.StatusClosed {
					totalPnL = totalPnL.Add(tr.RealizedPnL)
				}
			}
			open, _ = applyBatch(open, m)
		}

		expected := closePrice.Sub(openPrice).Mul(decimal.NewFromInt(qty))
		if !totalPnL.Equal(expected) {
			t.Fatalf("split close pnl %s != full close pnl %s", totalPnL, expected)
		}
		if open != nil {
			t.Fatalf("position should be fully closed, still open qty=%d", open.Quantity)
		}
		if !account.TotalValue.Equal(account.Balance.Add(account.PortfolioValue)) {
			t.Fatalf("invariant violated: total=%s balance=%s portfolio=%s",
				account.TotalValue, account.Balance, account.PortfolioValue)
		}
	})
}

// applyBatch mirrors what the store does with an execution batch, tracking
// the single open position for the ticker under test. It returns ok=false
// when the batch would create a second open position, which the store
// rejects atomically.
func applyBatch(open *model.Trade, mut Mutations) (*model.Trade, bool) {
	next := open
	for _, tr := range mut.Update {
		if next == nil || tr.ID != next.ID {
			return open, false
		}
		if tr.Status == model.StatusClosed {
			next = nil
		} else {
			copy := tr
			next = &copy
		}
	}
	for _, tr := range mut.Append {
		if !tr.IsOpen() {
			continue
		}
		if next != nil {
			return open, false
		}
		copy := tr
		next = &copy
	}
	return next, true
}
