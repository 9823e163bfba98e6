package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/shared/models"
	sharedredis "github.com/eaglebank/ledger/shared/redis"
)

const accountViewKeyPrefix = "ledger:account:view:"

// accountCacheEntry is the internal Redis representation of an account view.
// Unlike models.AccountView, every field is serialised so that the cached
// entry can be turned back into a complete view.
type accountCacheEntry struct {
	AccountNumber string          `json:"accountNumber"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int64           `json:"version"`
	UpdatedAt     time.Time       `json:"updatedTimestamp"`
}

// AccountSource loads the current state of an account. ledger.Ledger
// satisfies it.
type AccountSource interface {
	GetAccount(ctx context.Context, accountNumber string) (*ledger.Account, error)
}

// AccountReadRepository handles the display reads of single accounts.
// Redis is the primary read store when configured; it falls back to the
// ledger transparently, warming the cache on every cold read. Cached views
// are versioned, so a warm-up racing with the projector never replaces a
// newer view. Reads served from Redis may lag behind the store until the
// projector catches up.
type AccountReadRepository struct {
	accounts AccountSource
	cache    *sharedredis.ViewCache[accountCacheEntry]
}

// NewAccountReadRepository creates a read repository. redisClient may be nil,
// in which case every read goes to the ledger.
func NewAccountReadRepository(accounts AccountSource, redisClient *goredis.Client, logger log.Logger) *AccountReadRepository {
	r := &AccountReadRepository{accounts: accounts}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[accountCacheEntry](redisClient, 0, logger)
	}
	return r
}

func cacheEntryToView(e *accountCacheEntry) *models.AccountView {
	return &models.AccountView{
		AccountNumber: e.AccountNumber,
		Name:          e.Name,
		Balance:       e.Balance,
		Version:       e.Version,
		UpdatedAt:     e.UpdatedAt,
	}
}

// AccountToView builds the display projection of an account.
func AccountToView(account *ledger.Account) *models.AccountView {
	return &models.AccountView{
		AccountNumber: account.AccountNumber,
		Name:          account.Name,
		Balance:       account.Balance,
		Version:       account.Version,
		UpdatedAt:     account.UpdatedAt,
	}
}

// GetByAccountNumber returns an AccountView, trying Redis first then the ledger.
// Returns ledger.ErrAccountNotFound for unknown numbers.
func (r *AccountReadRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.AccountView, error) {
	if r.cache != nil {
		if entry, ok := r.cache.Get(ctx, accountViewKeyPrefix+accountNumber); ok {
			return cacheEntryToView(entry), nil
		}
	}

	account, err := r.accounts.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	view := AccountToView(account)
	r.CacheAccountView(ctx, view)
	return view, nil
}

// Refresh reloads the account and rewrites its cached view.
// An account that no longer exists has its cached view removed.
func (r *AccountReadRepository) Refresh(ctx context.Context, accountNumber string) error {
	account, err := r.accounts.GetAccount(ctx, accountNumber)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		r.InvalidateAccountView(ctx, accountNumber)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to refresh account %s: %w", accountNumber, err)
	}
	r.CacheAccountView(ctx, AccountToView(account))
	return nil
}

// CacheAccountView stores the Redis read model for an account unless a view
// of the same or a newer version is already cached.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, accountViewKeyPrefix+view.AccountNumber, &accountCacheEntry{
		AccountNumber: view.AccountNumber,
		Name:          view.Name,
		Balance:       view.Balance,
		Version:       view.Version,
		UpdatedAt:     view.UpdatedAt,
	}, view.Version)
}

// InvalidateAccountView removes the Redis read model entry for an account.
func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, accountNumber string) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, accountViewKeyPrefix+accountNumber)
}
