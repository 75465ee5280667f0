// Package store defines the persistence interface for the paper engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/stockpulse/paper-engine/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache for account snapshots.
//
// The trade store enforces the at-most-one-open-position invariant itself:
// appending an open trade for a (user, ticker) that already has one fails
// with model.ErrOpenPositionExists.
type Store interface {
	// --- Account operations ---

	// GetAccount retrieves the account for a user.
	// Returns model.ErrAccountNotFound when absent.
	GetAccount(ctx context.Context, userID string) (*model.Account, error)

	// CreateAccount persists a new account.
	// Returns model.ErrAccountExists when one is already present.
	CreateAccount(ctx context.Context, account *model.Account) error

	// SaveAccount overwrites an existing account.
	SaveAccount(ctx context.Context, account *model.Account) error

	// --- Position ledger ---

	// GetOpenTrade returns the single open trade for (user, ticker),
	// or (nil, nil) when there is none.
	GetOpenTrade(ctx context.Context, userID, ticker string) (*model.Trade, error)

	// GetTradesByUser returns all trade records for a user, open and closed.
	GetTradesByUser(ctx context.Context, userID string) ([]model.Trade, error)

	// ApplyExecution atomically saves the updated account, appends new
	// trade records, and updates existing ones. Either everything is
	// applied or nothing is.
	ApplyExecution(ctx context.Context, account *model.Account, appends, updates []model.Trade) error
}
