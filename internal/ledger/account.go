package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a monetary account identified by its account number.
// Name and Pin are fixed at creation; only Balance changes afterwards.
type Account struct {
	AccountNumber string
	Name          string
	Pin           string
	Balance       decimal.Decimal
	Version       int64 // bumped by the store on every successful write
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAccount creates an Account with a zero balance.
func NewAccount(accountNumber, name, pin string) *Account {
	now := time.Now().UTC()
	return &Account{
		AccountNumber: accountNumber,
		Name:          name,
		Pin:           pin,
		Balance:       decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a copy of the account that can be mutated independently.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}

// HasSufficientFunds reports whether the balance covers amount.
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return !a.Balance.LessThan(amount)
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now().UTC()
}

// Debit subtracts amount from the balance. Callers check HasSufficientFunds first.
func (a *Account) Debit(amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now().UTC()
}
