package wallet

import (
	"context"
	"sort"
	"sync"

	"shuttle/internal/types"
)

// MemoryStore is an in-memory Store for tests and local runs. Wallets are
// created lazily with a zero balance, mirroring the persistent schema's
// default.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[types.ID]types.Money
	log      []Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[types.ID]types.Money)}
}

func (s *MemoryStore) Balance(_ context.Context, riderID types.ID) (types.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[riderID], nil
}

func (s *MemoryStore) Append(_ context.Context, tx Transaction, requireFunds bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.balances[tx.RiderID] + tx.Amount
	if requireFunds && next < 0 {
		return ErrInsufficientFunds
	}
	s.balances[tx.RiderID] = next
	s.log = append(s.log, tx)
	return nil
}

func (s *MemoryStore) Transactions(_ context.Context, riderID types.ID) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for _, t := range s.log {
		if t.RiderID == riderID {
			out = append(out, t)
		}
	}
	reverseChronological(out)
	return out, nil
}

func (s *MemoryStore) AllTransactions(_ context.Context) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Transaction(nil), s.log...)
	reverseChronological(out)
	return out, nil
}

func reverseChronological(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
