package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/eaglebank/ledger/internal/ledger"
)

// MemoryAccountRepository is an in-process AccountStore used when no database
// is configured, and in tests. Accounts are kept in insertion order.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts []*ledger.Account
	byNumber map[string]*ledger.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byNumber: make(map[string]*ledger.Account),
	}
}

var _ ledger.AccountStore = (*MemoryAccountRepository)(nil)

func (r *MemoryAccountRepository) Create(_ context.Context, account *ledger.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byNumber[account.AccountNumber]; ok {
		return ledger.ErrAccountExists
	}
	stored := account.Clone()
	r.accounts = append(r.accounts, stored)
	r.byNumber[stored.AccountNumber] = stored
	return nil
}

func (r *MemoryAccountRepository) FindByAccountNumber(_ context.Context, accountNumber string) (*ledger.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byNumber[accountNumber]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return stored.Clone(), nil
}

func (r *MemoryAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return r.SaveAll(ctx, account)
}

// SaveAll checks every version before writing anything, so a failed call
// leaves all accounts untouched.
func (r *MemoryAccountRepository) SaveAll(_ context.Context, accounts ...*ledger.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range accounts {
		stored, ok := r.byNumber[account.AccountNumber]
		if !ok {
			return ledger.ErrAccountNotFound
		}
		if stored.Version != account.Version {
			return fmt.Errorf("account %s: %w", account.AccountNumber, ledger.ErrConcurrentModification)
		}
	}
	for _, account := range accounts {
		stored := r.byNumber[account.AccountNumber]
		stored.Balance = account.Balance
		stored.UpdatedAt = account.UpdatedAt
		stored.Version++
		account.Version = stored.Version
	}
	return nil
}

func (r *MemoryAccountRepository) FindAll(_ context.Context) ([]*ledger.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*ledger.Account, len(r.accounts))
	for i, stored := range r.accounts {
		accounts[i] = stored.Clone()
	}
	return accounts, nil
}
