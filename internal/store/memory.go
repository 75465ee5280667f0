package store

import (
	"context"
	"sync"

	"github.com/stockpulse/paper-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	trades   []model.Trade
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
	}
}

func (s *MemoryStore) GetAccount(_ context.Context, userID string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.UserID]; ok {
		return model.ErrAccountExists
	}

	// Store a copy to avoid external mutation.
	copy := *account
	s.accounts[account.UserID] = &copy
	return nil
}

func (s *MemoryStore) SaveAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveAccountLocked(account)
}

func (s *MemoryStore) saveAccountLocked(account *model.Account) error {
	if _, ok := s.accounts[account.UserID]; !ok {
		return model.ErrAccountNotFound
	}
	copy := *account
	s.accounts[account.UserID] = &copy
	return nil
}

func (s *MemoryStore) GetOpenTrade(_ context.Context, userID, ticker string) (*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.trades {
		t := &s.trades[i]
		if t.UserID == userID && t.Ticker == ticker && t.IsOpen() {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetTradesByUser(_ context.Context, userID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) ApplyExecution(_ context.Context, account *model.Account, appends, updates []model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before touching state so a failed batch leaves
	// the store unchanged.
	for _, t := range appends {
		if t.IsOpen() && s.hasOpenTradeLocked(t.UserID, t.Ticker) {
			return model.ErrOpenPositionExists
		}
	}
	for _, t := range updates {
		if s.indexByIDLocked(t.ID) < 0 {
			return model.ErrTradeNotFound
		}
	}

	if err := s.saveAccountLocked(account); err != nil {
		return err
	}
	for _, t := range updates {
		s.trades[s.indexByIDLocked(t.ID)] = t
	}
	s.trades = append(s.trades, appends...)
	return nil
}

func (s *MemoryStore) hasOpenTradeLocked(userID, ticker string) bool {
	for i := range s.trades {
		t := &s.trades[i]
		if t.UserID == userID && t.Ticker == ticker && t.IsOpen() {
			return true
		}
	}
	return false
}

func (s *MemoryStore) indexByIDLocked(id string) int {
	for i := range s.trades {
		if s.trades[i].ID == id {
			return i
		}
	}
	return -1
}
