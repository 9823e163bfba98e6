package ledger

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"
)

// Middleware describes a Ledger middleware.
type Middleware func(Ledger) Ledger

// LoggingMiddleware takes a logger as a dependency
// and returns a Ledger Middleware. PINs are never logged.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Ledger) Ledger {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Ledger
}

func (mw loggingMiddleware) CreateAccount(ctx context.Context, name, pin string) (accountNumber string, err error) {
	defer func() {
		_ = mw.leveled(err).Log("method", "CreateAccount", "name", name, "account", accountNumber, "err", err)
	}()
	return mw.next.CreateAccount(ctx, name, pin)
}

func (mw loggingMiddleware) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, pin string) (code ResponseCode, err error) {
	defer func() {
		_ = mw.leveled(err).Log("method", "Deposit", "account", accountNumber, "amount", amount, "code", code, "err", err)
	}()
	return mw.next.Deposit(ctx, accountNumber, amount, pin)
}

func (mw loggingMiddleware) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, pin string) (code ResponseCode, err error) {
	defer func() {
		_ = mw.leveled(err).Log("method", "Withdraw", "account", accountNumber, "amount", amount, "code", code, "err", err)
	}()
	return mw.next.Withdraw(ctx, accountNumber, amount, pin)
}

func (mw loggingMiddleware) Transfer(ctx context.Context, sourceAccountNumber, targetAccountNumber string, amount decimal.Decimal, pin string) (code ResponseCode, err error) {
	defer func() {
		_ = mw.leveled(err).Log("method", "Transfer", "source", sourceAccountNumber, "target", targetAccountNumber, "amount", amount, "code", code, "err", err)
	}()
	return mw.next.Transfer(ctx, sourceAccountNumber, targetAccountNumber, amount, pin)
}

func (mw loggingMiddleware) GetAccount(ctx context.Context, accountNumber string) (_ *Account, err error) {
	defer func() {
		_ = level.Debug(mw.logger).Log("method", "GetAccount", "account", accountNumber, "err", err)
	}()
	return mw.next.GetAccount(ctx, accountNumber)
}

func (mw loggingMiddleware) GetAllAccounts(ctx context.Context) (accounts []*Account, err error) {
	defer func() {
		_ = level.Debug(mw.logger).Log("method", "GetAllAccounts", "count", len(accounts), "err", err)
	}()
	return mw.next.GetAllAccounts(ctx)
}

func (mw loggingMiddleware) leveled(err error) log.Logger {
	if err != nil {
		return level.Error(mw.logger)
	}
	return level.Info(mw.logger)
}
