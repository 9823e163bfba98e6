package ledger

import (
	"context"
	"errors"
)

var (
	// ErrAccountNotFound is returned by a store when no account has the requested number.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned by Create when the account number is already taken.
	ErrAccountExists = errors.New("account number already exists")

	// ErrConcurrentModification is returned by Save/SaveAll when the stored
	// version no longer matches the version the caller read.
	ErrConcurrentModification = errors.New("account was modified concurrently")

	// ErrAccountNumberExhausted is returned by CreateAccount when every generated
	// account number collided with an existing one.
	ErrAccountNumberExhausted = errors.New("failed to generate a unique account number")
)

// AccountStore persists accounts keyed by account number.
type AccountStore interface {
	// Create inserts a new account. Returns ErrAccountExists if the number is taken.
	Create(ctx context.Context, account *Account) error

	// FindByAccountNumber returns a copy of the stored account or ErrAccountNotFound.
	FindByAccountNumber(ctx context.Context, accountNumber string) (*Account, error)

	// Save atomically writes the balance of an existing account.
	// The write only succeeds if the stored version equals account.Version;
	// on success account.Version is incremented.
	Save(ctx context.Context, account *Account) error

	// SaveAll writes several accounts in one atomic step with the same
	// version check as Save. Either every account is written or none is.
	SaveAll(ctx context.Context, accounts ...*Account) error

	// FindAll returns every account in insertion order.
	FindAll(ctx context.Context) ([]*Account, error)
}
