package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/paper-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
//
// Expected schema:
//
//	accounts     (user_id TEXT PRIMARY KEY, balance NUMERIC, portfolio_value NUMERIC,
//	              total_value NUMERIC, last_updated TIMESTAMPTZ)
//	paper_trades (id TEXT PRIMARY KEY, user_id TEXT, ticker TEXT, direction TEXT,
//	              quantity BIGINT, open_price NUMERIC, close_price NUMERIC,
//	              status TEXT, realized_pnl NUMERIC, open_time TIMESTAMPTZ,
//	              close_time TIMESTAMPTZ NULL)
//
// A partial unique index backs the one-open-position invariant:
//
//	CREATE UNIQUE INDEX one_open_position ON paper_trades (user_id, ticker)
//	WHERE status = 'open';
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT user_id, balance::TEXT, portfolio_value::TEXT, total_value::TEXT, last_updated
		 FROM accounts WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", userID, err)
	}
	return a, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (user_id, balance, portfolio_value, total_value, last_updated)
		 VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5)`,
		a.UserID, a.Balance.String(), a.PortfolioValue.String(), a.TotalValue.String(), a.LastUpdated,
	)
	if isUniqueViolation(err) {
		return model.ErrAccountExists
	}
	return err
}

func (s *PostgresStore) SaveAccount(ctx context.Context, a *model.Account) error {
	return saveAccountTx(ctx, s.pool, a)
}

// execer covers both pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveAccountTx(ctx context.Context, db execer, a *model.Account) error {
	tag, err := db.Exec(ctx,
		`UPDATE accounts
		 SET balance = $2::NUMERIC, portfolio_value = $3::NUMERIC,
		     total_value = $4::NUMERIC, last_updated = $5
		 WHERE user_id = $1`,
		a.UserID, a.Balance.String(), a.PortfolioValue.String(), a.TotalValue.String(), a.LastUpdated,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (s *PostgresStore) GetOpenTrade(ctx context.Context, userID, ticker string) (*model.Trade, error) {
	t, err := scanTrade(s.pool.QueryRow(ctx,
		tradeSelect+` WHERE user_id = $1 AND ticker = $2 AND status = 'open'`,
		userID, ticker))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open trade %s/%s: %w", userID, ticker, err)
	}
	return t, nil
}

func (s *PostgresStore) GetTradesByUser(ctx context.Context, userID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		tradeSelect+` WHERE user_id = $1 ORDER BY open_time`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) ApplyExecution(ctx context.Context, account *model.Account, appends, updates []model.Trade) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := saveAccountTx(ctx, tx, account); err != nil {
		return err
	}

	for _, t := range updates {
		tag, err := tx.Exec(ctx,
			`UPDATE paper_trades
			 SET quantity = $2, close_price = $3::NUMERIC, status = $4,
			     realized_pnl = $5::NUMERIC, close_time = $6
			 WHERE id = $1`,
			t.ID, t.Quantity, t.ClosePrice.String(), string(t.Status),
			t.RealizedPnL.String(), nullTime(t.CloseTime),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrTradeNotFound
		}
	}

	for _, t := range appends {
		_, err := tx.Exec(ctx,
			`INSERT INTO paper_trades
			     (id, user_id, ticker, direction, quantity, open_price, close_price,
			      status, realized_pnl, open_time, close_time)
			 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8, $9::NUMERIC, $10, $11)`,
			t.ID, t.UserID, t.Ticker, string(t.Direction), t.Quantity,
			t.OpenPrice.String(), t.ClosePrice.String(), string(t.Status),
			t.RealizedPnL.String(), t.OpenTime, nullTime(t.CloseTime),
		)
		if isUniqueViolation(err) {
			return model.ErrOpenPositionExists
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const tradeSelect = `SELECT id, user_id, ticker, direction, quantity,
       open_price::TEXT, close_price::TEXT, status, realized_pnl::TEXT,
       open_time, close_time
 FROM paper_trades`

// pgxRow covers pgx.Row and pgx.Rows for shared scanning.
type pgxRow interface {
	Scan(dest ...any) error
}

func scanAccount(row pgxRow) (*model.Account, error) {
	var a model.Account
	var balance, portfolio, total string

	if err := row.Scan(&a.UserID, &balance, &portfolio, &total, &a.LastUpdated); err != nil {
		return nil, err
	}
	a.Balance, _ = decimal.NewFromString(balance)
	a.PortfolioValue, _ = decimal.NewFromString(portfolio)
	a.TotalValue, _ = decimal.NewFromString(total)
	return &a, nil
}

func scanTrade(row pgxRow) (*model.Trade, error) {
	var t model.Trade
	var direction, status string
	var openPrice, closePrice, pnl string
	var closeTime *time.Time

	if err := row.Scan(&t.ID, &t.UserID, &t.Ticker, &direction, &t.Quantity,
		&openPrice, &closePrice, &status, &pnl,
		&t.OpenTime, &closeTime); err != nil {
		return nil, err
	}

	t.Direction = model.Direction(direction)
	t.Status = model.Status(status)
	t.OpenPrice, _ = decimal.NewFromString(openPrice)
	t.ClosePrice, _ = decimal.NewFromString(closePrice)
	t.RealizedPnL, _ = decimal.NewFromString(pnl)
	if closeTime != nil {
		t.CloseTime = *closeTime
	}
	return &t, nil
}

// nullTime maps the zero time to NULL for still-open records.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
