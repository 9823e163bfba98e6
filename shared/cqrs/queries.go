package cqrs

// GetAccountQuery fetches a single account by account number.
type GetAccountQuery struct {
	AccountNumber string
}

// ListAccountsQuery fetches every account in store order.
type ListAccountsQuery struct{}
