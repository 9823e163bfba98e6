package query

import (
	"context"

	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/utils"
)

// AccountReader is the read model single-account lookups are served from.
type AccountReader interface {
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.AccountView, error)
}

// AccountLister lists every account in store order. ledger.Ledger satisfies it.
type AccountLister interface {
	GetAllAccounts(ctx context.Context) ([]*ledger.Account, error)
}

type AccountQueryService struct {
	readRepo AccountReader
	accounts AccountLister
}

func NewAccountQueryService(readRepo AccountReader, accounts AccountLister) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo, accounts: accounts}
}

// GetAccount fetches a single account view. Numbers that cannot belong to any
// account are reported as not found without touching the read model.
func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	if !utils.ValidateAccountNumber(q.AccountNumber) {
		return nil, ledger.ErrAccountNotFound
	}
	return s.readRepo.GetByAccountNumber(ctx, q.AccountNumber)
}

// ListAccounts returns the display view of every account in store order.
// The listing always comes from the ledger: the cache holds single-account
// views only and cannot answer for accounts it has never seen.
func (s *AccountQueryService) ListAccounts(ctx context.Context, _ cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	accounts, err := s.accounts.GetAllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.AccountView, len(accounts))
	for i, account := range accounts {
		views[i] = models.AccountView{
			AccountNumber: account.AccountNumber,
			Name:          account.Name,
			Balance:       account.Balance,
			Version:       account.Version,
			UpdatedAt:     account.UpdatedAt,
		}
	}
	return views, nil
}
