package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/shopspring/decimal"

	"github.com/eaglebank/ledger/shared/utils"
)

const defaultCreateAttempts = 5

// Ledger describes the account-mutation operations of the ledger.
//
// Deposit, Withdraw and Transfer always return a ResponseCode describing the
// business outcome. The error is non-nil only when the store fails, in which
// case the code is empty and nothing can be assumed about the outcome.
type Ledger interface {
	CreateAccount(ctx context.Context, name, pin string) (string, error)
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, pin string) (ResponseCode, error)
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, pin string) (ResponseCode, error)
	Transfer(ctx context.Context, sourceAccountNumber, targetAccountNumber string, amount decimal.Decimal, pin string) (ResponseCode, error)
	GetAccount(ctx context.Context, accountNumber string) (*Account, error)
	GetAllAccounts(ctx context.Context) ([]*Account, error)
}

// New returns a Ledger backed by store with all of the expected middlewares wired in.
func New(store AccountStore, logger log.Logger, opts ...Option) Ledger {
	var l Ledger
	{
		l = NewService(store, opts...)
		l = LoggingMiddleware(logger)(l)
	}
	return l
}

// Option configures a Service.
type Option func(*Service)

// WithAccountNumberGenerator replaces the default account number generator.
func WithAccountNumberGenerator(generate func() string) Option {
	return func(s *Service) {
		s.generate = generate
	}
}

// WithCreateAttempts sets how many account numbers CreateAccount tries before giving up.
func WithCreateAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.createAttempts = n
		}
	}
}

// Service implements Ledger. Every mutation holds the lock of each account it
// touches for the whole read-check-write sequence.
type Service struct {
	store          AccountStore
	locker         *accountLocker
	generate       func() string
	createAttempts int
}

// NewService creates a Service on top of store.
func NewService(store AccountStore, opts ...Option) *Service {
	s := &Service{
		store:          store,
		locker:         newAccountLocker(),
		generate:       utils.GenerateAccountNumber,
		createAttempts: defaultCreateAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount opens an account with a zero balance and returns its number.
// Uniqueness is enforced by the store; a collision triggers a new number.
func (s *Service) CreateAccount(ctx context.Context, name, pin string) (string, error) {
	for attempt := 0; attempt < s.createAttempts; attempt++ {
		account := NewAccount(s.generate(), name, pin)
		err := s.store.Create(ctx, account)
		if err == nil {
			return account.AccountNumber, nil
		}
		if !errors.Is(err, ErrAccountExists) {
			return "", fmt.Errorf("failed to create account: %w", err)
		}
	}
	return "", ErrAccountNumberExhausted
}

// Deposit credits amount to the account.
func (s *Service) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, pin string) (ResponseCode, error) {
	unlock := s.locker.lock(accountNumber)
	defer unlock()

	account, found, err := s.find(ctx, accountNumber)
	if err != nil {
		return "", err
	}
	if !found {
		return NoAccount, nil
	}
	if code, ok := checkPinAndAmount(account, amount, pin); !ok {
		return code, nil
	}

	account.Credit(amount)
	if err := s.store.Save(ctx, account); err != nil {
		return "", fmt.Errorf("failed to save account %s: %w", accountNumber, err)
	}
	return Success, nil
}

// Withdraw debits amount from the account if the balance covers it.
func (s *Service) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, pin string) (ResponseCode, error) {
	unlock := s.locker.lock(accountNumber)
	defer unlock()

	account, found, err := s.find(ctx, accountNumber)
	if err != nil {
		return "", err
	}
	if !found {
		return NoAccount, nil
	}
	if code, ok := checkPinAndAmount(account, amount, pin); !ok {
		return code, nil
	}
	if !account.HasSufficientFunds(amount) {
		return NotEnoughBalance, nil
	}

	account.Debit(amount)
	if err := s.store.Save(ctx, account); err != nil {
		return "", fmt.Errorf("failed to save account %s: %w", accountNumber, err)
	}
	return Success, nil
}

// Transfer moves amount from the source to the target account. The pin is
// checked against the source account. The target is looked up only after the
// source is known to cover the amount, so a transfer to a missing target from
// an underfunded source reports NOT_ENOUGH_BALANCE.
func (s *Service) Transfer(ctx context.Context, sourceAccountNumber, targetAccountNumber string, amount decimal.Decimal, pin string) (ResponseCode, error) {
	unlock := s.locker.lock(sourceAccountNumber, targetAccountNumber)
	defer unlock()

	source, found, err := s.find(ctx, sourceAccountNumber)
	if err != nil {
		return "", err
	}
	if !found {
		return NoSourceAccount, nil
	}
	if code, ok := checkPinAndAmount(source, amount, pin); !ok {
		return code, nil
	}
	if !source.HasSufficientFunds(amount) {
		return NotEnoughBalance, nil
	}

	// Debiting and crediting the same account nets to zero.
	if sourceAccountNumber == targetAccountNumber {
		return Success, nil
	}

	target, found, err := s.find(ctx, targetAccountNumber)
	if err != nil {
		return "", err
	}
	if !found {
		return NoTargetAccount, nil
	}

	source.Debit(amount)
	target.Credit(amount)
	if err := s.store.SaveAll(ctx, source, target); err != nil {
		return "", fmt.Errorf("failed to save transfer %s -> %s: %w", sourceAccountNumber, targetAccountNumber, err)
	}
	return Success, nil
}

// GetAccount returns the account with the given number or ErrAccountNotFound.
func (s *Service) GetAccount(ctx context.Context, accountNumber string) (*Account, error) {
	return s.store.FindByAccountNumber(ctx, accountNumber)
}

// GetAllAccounts returns every account in store order.
func (s *Service) GetAllAccounts(ctx context.Context) ([]*Account, error) {
	accounts, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Service) find(ctx context.Context, accountNumber string) (*Account, bool, error) {
	account, err := s.store.FindByAccountNumber(ctx, accountNumber)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load account %s: %w", accountNumber, err)
	}
	return account, true, nil
}

// checkPinAndAmount validates the pin before the amount. ok is false when the
// caller must stop and return code.
func checkPinAndAmount(account *Account, amount decimal.Decimal, pin string) (code ResponseCode, ok bool) {
	if account.Pin != pin {
		return IncorrectPin, false
	}
	if !amount.IsPositive() {
		return EmptyAmount, false
	}
	return "", true
}
