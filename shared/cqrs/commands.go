package cqrs

import "github.com/shopspring/decimal"

type CreateAccountCommand struct {
	Name string
	Pin  string
}

type DepositCommand struct {
	AccountNumber string
	Amount        decimal.Decimal
	Pin           string
}

type WithdrawCommand struct {
	AccountNumber string
	Amount        decimal.Decimal
	Pin           string
}

type TransferCommand struct {
	SourceAccountNumber string
	TargetAccountNumber string
	Amount              decimal.Decimal
	Pin                 string
}
