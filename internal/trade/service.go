// Package trade provides the HTTP handlers and business logic for the
// paper-trading API: executing buy/sell orders against the matching engine
// and managing simulated accounts.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/paper-engine/internal/auth"
	"github.com/stockpulse/paper-engine/internal/ledger"
	"github.com/stockpulse/paper-engine/internal/locks"
	"github.com/stockpulse/paper-engine/internal/metrics"
	"github.com/stockpulse/paper-engine/internal/model"
	"github.com/stockpulse/paper-engine/internal/store"
	"github.com/stockpulse/paper-engine/internal/symbol"
)

// Service handles order and account operations. A keyed mutex serializes
// read-modify-write execution per user (single-instance). For horizontal
// scaling, replace with database-level locking or optimistic concurrency.
type Service struct {
	store     store.Store
	userLocks *locks.Keyed
	wsHub     *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, hub *WSHub) *Service {
	return &Service{
		store:     st,
		userLocks: locks.NewKeyed(),
		wsHub:     hub,
	}
}

// --- Request types ---

// OrderRequest is the JSON body for POST /trades/buy and /trades/sell.
type OrderRequest struct {
	Ticker   string          `json:"ticker"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// UpdateAccountRequest is the JSON body for PUT /account. TotalValue is
// recomputed server-side; it cannot be set directly.
type UpdateAccountRequest struct {
	Balance        decimal.Decimal `json:"balance"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// --- Order handlers ---

// Buy handles POST /api/v1/trades/buy.
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	s.executeOrder(w, r, model.SideBuy)
}

// Sell handles POST /api/v1/trades/sell.
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	s.executeOrder(w, r, model.SideSell)
}

func (s *Service) executeOrder(w http.ResponseWriter, r *http.Request, side model.OrderSide) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErr(w, model.ErrUnauthenticated)
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ticker, err := symbol.Normalize(req.Ticker)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	order := ledger.Order{
		Ticker:   ticker,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	}

	ctx := r.Context()

	// Serialize load → execute → persist per user. Concurrent orders for
	// different users proceed in parallel.
	s.userLocks.Lock(userID)
	defer s.userLocks.Unlock(userID)

	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		writeErr(w, err)
		return
	}

	open, err := s.store.GetOpenTrade(ctx, userID, ticker)
	if err != nil {
		writeErr(w, err)
		return
	}

	now := time.Now().UTC()
	updated, mut, err := ledger.Execute(order, *account, open, now)
	if err != nil {
		metrics.OrderRejections.WithLabelValues(rejectionReason(err)).Inc()
		writeErr(w, err)
		return
	}

	if err := s.store.ApplyExecution(ctx, &updated, mut.Append, mut.Update); err != nil {
		writeErr(w, err)
		return
	}

	metrics.OrdersTotal.WithLabelValues(string(side)).Inc()
	metrics.OrderLatency.WithLabelValues(string(side)).Observe(time.Since(start).Seconds())
	recordRealized(mut)

	slog.Info("order executed",
		"user", userID,
		"ticker", ticker,
		"side", side,
		"qty", order.Quantity,
		"price", order.Price.String(),
		"balance", updated.Balance.String(),
		"total_value", updated.TotalValue.String(),
	)

	if s.wsHub != nil {
		s.broadcastExecution(ticker, side, order, mut)
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) broadcastExecution(ticker string, side model.OrderSide, order ledger.Order, mut ledger.Mutations) {
	msg := WSMessage{
		Type:     "order_executed",
		Ticker:   ticker,
		Side:     string(side),
		Quantity: order.Quantity,
		Price:    order.Price.String(),
	}
	for _, t := range closedRecords(mut) {
		msg.RealizedPnL = t.RealizedPnL.String()
	}
	s.wsHub.Broadcast(msg)
}

// recordRealized feeds realized P&L from closed records into metrics.
func recordRealized(mut ledger.Mutations) {
	for _, t := range closedRecords(mut) {
		sign := "profit"
		if t.RealizedPnL.IsNegative() {
			sign = "loss"
		}
		pnl, _ := t.RealizedPnL.Abs().Float64()
		metrics.RealizedPnL.WithLabelValues(string(t.Direction), sign).Add(pnl)
	}
}

func closedRecords(mut ledger.Mutations) []model.Trade {
	var closed []model.Trade
	for _, t := range mut.Append {
		if t.Status == model.StatusClosed {
			closed = append(closed, t)
		}
	}
	for _, t := range mut.Update {
		if t.Status == model.StatusClosed {
			closed = append(closed, t)
		}
	}
	return closed
}

// GetTrades handles GET /api/v1/trades.
// Returns all trade records for the caller; ?status=open filters to the
// currently open positions.
func (s *Service) GetTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErr(w, model.ErrUnauthenticated)
		return
	}

	trades, err := s.store.GetTradesByUser(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := []model.Trade{}
		for _, t := range trades {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		trades = filtered
	}

	writeJSON(w, http.StatusOK, trades)
}

// --- Account handlers ---

// GetAccount handles GET /api/v1/account.
// Creates the account with the starting balance on first access.
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErr(w, model.ErrUnauthenticated)
		return
	}

	ctx := r.Context()
	s.userLocks.Lock(userID)
	defer s.userLocks.Unlock(userID)

	account, err := s.store.GetAccount(ctx, userID)
	if errors.Is(err, model.ErrAccountNotFound) {
		account = model.NewAccount(userID, time.Now().UTC())
		if err := s.store.CreateAccount(ctx, account); err != nil {
			writeErr(w, err)
			return
		}
		slog.Info("account created", "user", userID, "balance", account.Balance.String())
	} else if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// CreateAccount handles POST /api/v1/account.
// Unlike GetAccount it fails when an account already exists.
func (s *Service) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErr(w, model.ErrUnauthenticated)
		return
	}

	ctx := r.Context()
	s.userLocks.Lock(userID)
	defer s.userLocks.Unlock(userID)

	account := model.NewAccount(userID, time.Now().UTC())
	if err := s.store.CreateAccount(ctx, account); err != nil {
		writeErr(w, err)
		return
	}

	slog.Info("account created", "user", userID, "balance", account.Balance.String())
	writeJSON(w, http.StatusCreated, account)
}

// UpdateAccount handles PUT /api/v1/account.
// Administrative overwrite of balance and portfolio value; the total is
// recomputed and no ledger records are produced.
func (s *Service) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeErr(w, model.ErrUnauthenticated)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	s.userLocks.Lock(userID)
	defer s.userLocks.Unlock(userID)

	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		writeErr(w, err)
		return
	}

	account.Balance = req.Balance
	account.PortfolioValue = req.PortfolioValue
	account.Recompute(time.Now().UTC())

	if err := s.store.SaveAccount(ctx, account); err != nil {
		writeErr(w, err)
		return
	}

	slog.Info("account overwritten",
		"user", userID,
		"balance", account.Balance.String(),
		"portfolio_value", account.PortfolioValue.String(),
	)
	writeJSON(w, http.StatusOK, account)
}

// --- Error mapping ---

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidOrder):
		return "invalid_order"
	case errors.Is(err, model.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, model.ErrExceedsShortPosition):
		return "exceeds_short_position"
	case errors.Is(err, model.ErrExceedsLongPosition):
		return "exceeds_long_position"
	default:
		return "other"
	}
}

// writeErr maps domain sentinel errors to HTTP status codes.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrAccountNotFound), errors.Is(err, model.ErrTradeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrAccountExists), errors.Is(err, model.ErrOpenPositionExists):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidOrder),
		errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrExceedsShortPosition),
		errors.Is(err, model.ErrExceedsLongPosition):
		status = http.StatusBadRequest
	}
	writeError(w, err.Error(), status)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
